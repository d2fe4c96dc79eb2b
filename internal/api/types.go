package api

import (
	"voicemood/internal/display"
	"voicemood/internal/service"
	"voicemood/models"
)

// Message types exchanged over WebSocket and the gRPC stream.
const (
	TypeClassify      = "classify"
	TypeProcessing    = "processing"
	TypeResult        = "result"
	TypeError         = "error"
	TypeGetEmotions   = "get_emotions"
	TypeEmotions      = "emotions"
	TypeGetModels     = "get_models"
	TypeModelsList    = "models_list"
	TypePullModel     = "pull_model"
	TypeModelProgress = "model_progress"
)

// Message WebSocket/gRPC message structure
type Message struct {
	Type string `json:"type"`

	// Classify request: Name is the client file name, Data the base64 payload.
	Name      string `json:"name,omitempty"`
	Data      string `json:"data,omitempty"`
	RequestID string `json:"requestId,omitempty"`

	// Responses
	Result   *service.Classification `json:"result,omitempty"`
	Emotions []display.Emotion       `json:"emotions,omitempty"`
	Labels   []string                `json:"labels,omitempty"`

	// Artifacts
	Models   []models.ArtifactState `json:"models,omitempty"`
	ModelID  string                 `json:"modelId,omitempty"`
	Progress float64                `json:"progress,omitempty"`
	Status   string                 `json:"status,omitempty"`

	Error string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string   `json:"status"`
	Labels []string `json:"labels"`
}

// ErrorResponse is the JSON body of a failed HTTP request.
type ErrorResponse struct {
	Error string `json:"error"`
}
