package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"voicemood/media"
)

// Source captures a fixed amount of audio.
type Source interface {
	Record(ctx context.Context, duration time.Duration) (*media.Waveform, error)
}

// RecordingService records from a Source, stores the take and classifies it.
type RecordingService struct {
	Source     Source
	Classifier *ClassificationService
	Dir        string
	Format     string // wav or mp3

	mu  sync.Mutex
	now func() time.Time
}

func NewRecordingService(source Source, classifier *ClassificationService, dir, format string) *RecordingService {
	return &RecordingService{
		Source:     source,
		Classifier: classifier,
		Dir:        dir,
		Format:     format,
		now:        time.Now,
	}
}

// Take records for duration and writes the file. Only one take runs at a time.
func (s *RecordingService) Take(ctx context.Context, duration time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if duration <= 0 {
		return "", fmt.Errorf("invalid duration: %v", duration)
	}

	wave, err := s.Source.Record(ctx, duration)
	if err != nil {
		return "", fmt.Errorf("failed to record: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recordings dir: %w", err)
	}

	format := strings.ToLower(s.Format)
	if format == "" {
		format = "wav"
	}
	now := s.now
	if now == nil {
		now = time.Now
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("recording-%s.%s", now().Format("20060102-150405"), format))

	switch format {
	case "wav":
		err = media.WriteWAV(path, wave)
	case "mp3":
		err = media.EncodeMP3(path, wave)
	default:
		return "", fmt.Errorf("unsupported recording format: %s", s.Format)
	}
	if err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"file":     path,
		"duration": wave.Duration().Round(time.Millisecond),
		"peak":     wave.Peak(),
	}).Info("recording saved")
	return path, nil
}

// RecordAndClassify records a take and classifies it. Canceling ctx stops the
// recording early; the partial take is still classified.
func (s *RecordingService) RecordAndClassify(ctx context.Context, duration time.Duration) (*Classification, error) {
	path, err := s.Take(ctx, duration)
	if err != nil {
		return nil, err
	}
	return s.Classifier.Classify(context.WithoutCancel(ctx), path)
}
