package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"voicemood/ai"
	"voicemood/internal/display"
)

// ErrEmptyUpload is returned by ClassifyBytes for a zero-length payload.
var ErrEmptyUpload = errors.New("empty upload")

// Classification is the user-facing outcome of a single request.
type Classification struct {
	RequestID  string             `json:"request_id" yaml:"request_id"`
	File       string             `json:"file" yaml:"file"`
	Normalized string             `json:"normalized,omitempty" yaml:"normalized,omitempty"`
	Label      string             `json:"label" yaml:"label"`
	Emotion    display.Emotion    `json:"emotion" yaml:"emotion"`
	Extraction string             `json:"extraction" yaml:"extraction"`
	Fallback   string             `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Frames     int                `json:"frames" yaml:"frames"`
	Scores     map[string]float32 `json:"scores" yaml:"scores"`
	ElapsedMS  int64              `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// ClassificationService runs the classifier and logs each request.
type ClassificationService struct {
	Classifier *ai.Context
	UploadDir  string // parent for upload temp dirs, os.TempDir() when empty
}

func NewClassificationService(classifier *ai.Context, uploadDir string) *ClassificationService {
	return &ClassificationService{
		Classifier: classifier,
		UploadDir:  uploadDir,
	}
}

// Labels returns the encoder vocabulary.
func (s *ClassificationService) Labels() []string {
	return s.Classifier.Labels()
}

// Classify classifies the file at path. The normalized copy written next to a
// non-WAV input is left in place.
func (s *ClassificationService) Classify(ctx context.Context, path string) (*Classification, error) {
	requestID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"request_id": requestID,
		"file":       path,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("classification started")
	result, err := s.Classifier.Classify(path)
	if err != nil {
		logger.WithError(err).Error("classification failed")
		return nil, err
	}

	c := s.build(requestID, result)
	fields := log.Fields{
		"label":      c.Label,
		"extraction": c.Extraction,
		"frames":     c.Frames,
		"elapsed":    result.Elapsed.Round(time.Millisecond),
	}
	if c.Fallback != "" {
		fields["fallback"] = c.Fallback
	}
	logger.WithFields(fields).Info("classification finished")
	return c, nil
}

// ClassifyBytes writes an uploaded payload into a private temp dir, classifies
// it and removes the dir afterwards.
func (s *ClassificationService) ClassifyBytes(ctx context.Context, name string, data []byte) (*Classification, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	dir, err := os.MkdirTemp(s.UploadDir, "voicemood-upload-")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, uploadName(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	c, err := s.Classify(ctx, path)
	if err != nil {
		return nil, err
	}
	// временные пути клиенту не нужны
	c.File = filepath.Base(name)
	c.Normalized = ""
	return c, nil
}

func (s *ClassificationService) build(requestID string, r *ai.Result) *Classification {
	labels := s.Classifier.Labels()
	scores := make(map[string]float32, len(r.Scores))
	for i, v := range r.Scores {
		if i < len(labels) {
			scores[strings.ToLower(labels[i])] = v
		}
	}

	c := &Classification{
		RequestID:  requestID,
		File:       r.Path,
		Label:      r.Label,
		Emotion:    display.Lookup(r.Label),
		Extraction: r.Extraction.String(),
		Fallback:   r.Fallback,
		Frames:     r.Frames,
		Scores:     scores,
		ElapsedMS:  r.Elapsed.Milliseconds(),
	}
	if r.NormalizedPath != r.Path {
		c.Normalized = r.NormalizedPath
	}
	return c
}

// uploadName keeps only the base name and extension of a client file name.
func uploadName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "upload.wav"
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		ext = ".wav"
	}
	return "upload" + ext
}
