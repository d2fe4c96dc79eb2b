// Package models управляет обученными артефактами классификатора
package models

// ArtifactKind тип артефакта
type ArtifactKind string

const (
	KindModel   ArtifactKind = "model"   // ONNX граф нейросети
	KindScaler  ArtifactKind = "scaler"  // mean/scale для 54 признаков
	KindEncoder ArtifactKind = "encoder" // словарь меток
)

// ArtifactInfo описание артефакта
type ArtifactInfo struct {
	ID          string       `json:"id" yaml:"id"`
	Kind        ArtifactKind `json:"kind" yaml:"kind"`
	File        string       `json:"file" yaml:"file"`
	Description string       `json:"description" yaml:"description"`
	SizeBytes   int64        `json:"sizeBytes,omitempty" yaml:"size_bytes,omitempty"` // 0 = неизвестен
}

// ArtifactStatus статус артефакта на диске
type ArtifactStatus string

const (
	StatusNotDownloaded ArtifactStatus = "not_downloaded"
	StatusDownloading   ArtifactStatus = "downloading"
	StatusDownloaded    ArtifactStatus = "downloaded"
	StatusError         ArtifactStatus = "error"
)

// ArtifactState состояние артефакта
type ArtifactState struct {
	ArtifactInfo `yaml:",inline"`
	Status       ArtifactStatus `json:"status" yaml:"status"`
	Progress     float64        `json:"progress,omitempty" yaml:"progress,omitempty"` // 0-100
	Error        string         `json:"error,omitempty" yaml:"error,omitempty"`
	Path         string         `json:"path" yaml:"path"`
}

// Registry артефакты, необходимые для классификации
var Registry = []ArtifactInfo{
	{
		ID:          "model",
		Kind:        KindModel,
		File:        "model.onnx",
		Description: "Emotion classifier, input [1, 300, 54] float32, output [1, classes]",
	},
	{
		ID:          "scaler",
		Kind:        KindScaler,
		File:        "scaler.json",
		Description: "Per-feature standardization: {\"mean\": [54], \"scale\": [54]}",
	},
	{
		ID:          "encoder",
		Kind:        KindEncoder,
		File:        "encoder.json",
		Description: "Label vocabulary: {\"categories\": [...]} in training order",
	},
}

// GetArtifactByID возвращает артефакт по ID
func GetArtifactByID(id string) *ArtifactInfo {
	for i := range Registry {
		if Registry[i].ID == id {
			return &Registry[i]
		}
	}
	return nil
}

// GetArtifactByKind возвращает артефакт по типу
func GetArtifactByKind(kind ArtifactKind) *ArtifactInfo {
	for i := range Registry {
		if Registry[i].Kind == kind {
			return &Registry[i]
		}
	}
	return nil
}
