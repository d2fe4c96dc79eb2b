package ai

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func repeatNumber(n string, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = n
	}
	return strings.Join(parts, ", ")
}

// fakeModel тестовая модель с фиксированным выходом
type fakeModel struct {
	mu      sync.Mutex
	scores  []float32
	err     error
	last    *Batch
	calls   int
	closed  bool
	scoreFn func(*Batch) []float32
}

func (m *fakeModel) Predict(batch *Batch) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = batch
	if m.err != nil {
		return nil, m.err
	}
	if m.scoreFn != nil {
		return m.scoreFn(batch), nil
	}
	return m.scores, nil
}

func (m *fakeModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("already closed")
	}
	m.closed = true
	return nil
}

var testLabels = []string{"angry", "disgust", "fear", "happy", "neutral", "sad", "surprised"}

func oneHot(index, n int) []float32 {
	out := make([]float32, n)
	out[index] = 1
	return out
}
