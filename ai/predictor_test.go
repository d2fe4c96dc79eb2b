package ai

import (
	"errors"
	"testing"
)

func TestArgmax(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float32
		expected int
	}{
		{"Single", []float32{0.3}, 0},
		{"Clear", []float32{0.1, 0.7, 0.2}, 1},
		{"TieLowestIndex", []float32{0.1, 0.4, 0.1, 0.4}, 1},
		{"AllEqual", []float32{0.25, 0.25, 0.25, 0.25}, 0},
		{"Negative", []float32{-3, -1, -2}, 1},
		{"Empty", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Argmax(tt.scores); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func validBatch() *Batch {
	return &Batch{
		Data:  make([]float32, MaxFrames*FeatureWidth),
		Shape: []int64{1, MaxFrames, FeatureWidth},
	}
}

func TestPredictor(t *testing.T) {
	encoder := &LabelEncoder{Categories: []string{"Angry", "Happy", "Sad"}}

	t.Run("Label", func(t *testing.T) {
		model := &fakeModel{scores: []float32{0.1, 0.8, 0.1}}
		p := NewPredictor(model, encoder, MaxFrames, FeatureWidth)
		pred, err := p.Predict(validBatch())
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if pred.Label != "happy" || pred.Index != 1 {
			t.Errorf("expected happy/1, got %s/%d", pred.Label, pred.Index)
		}
	})

	t.Run("TieBreak", func(t *testing.T) {
		model := &fakeModel{scores: []float32{0.1, 0.45, 0.45}}
		p := NewPredictor(model, encoder, MaxFrames, FeatureWidth)
		pred, err := p.Predict(validBatch())
		if err != nil {
			t.Fatal(err)
		}
		if pred.Label != "happy" {
			t.Errorf("expected the lower index to win, got %s", pred.Label)
		}
	})

	t.Run("ModelError", func(t *testing.T) {
		model := &fakeModel{err: errors.New("backend exploded")}
		p := NewPredictor(model, encoder, MaxFrames, FeatureWidth)
		if _, err := p.Predict(validBatch()); !errors.Is(err, ErrModelExecution) {
			t.Errorf("expected ErrModelExecution, got %v", err)
		}
		if model.calls != 1 {
			t.Errorf("expected exactly one attempt, got %d", model.calls)
		}
	})

	t.Run("EmptyOutput", func(t *testing.T) {
		p := NewPredictor(&fakeModel{scores: []float32{}}, encoder, MaxFrames, FeatureWidth)
		if _, err := p.Predict(validBatch()); !errors.Is(err, ErrModelExecution) {
			t.Errorf("expected ErrModelExecution, got %v", err)
		}
	})

	t.Run("UnknownIndex", func(t *testing.T) {
		model := &fakeModel{scores: []float32{0, 0, 0, 1}}
		p := NewPredictor(model, encoder, MaxFrames, FeatureWidth)
		if _, err := p.Predict(validBatch()); !errors.Is(err, ErrUnknownIndex) {
			t.Errorf("expected ErrUnknownIndex, got %v", err)
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		model := &fakeModel{scores: []float32{1, 0, 0}}
		p := NewPredictor(model, encoder, MaxFrames, FeatureWidth)

		bad := []*Batch{
			nil,
			{Data: make([]float32, MaxFrames*53), Shape: []int64{1, MaxFrames, 53}},
			{Data: make([]float32, 10), Shape: []int64{1, MaxFrames, FeatureWidth}},
			{Data: make([]float32, MaxFrames*FeatureWidth), Shape: []int64{MaxFrames, FeatureWidth}},
		}
		for i, b := range bad {
			if _, err := p.Predict(b); !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("case %d: expected ErrShapeMismatch, got %v", i, err)
			}
		}
		if model.calls != 0 {
			t.Error("model must not run on mismatched input")
		}
	})
}

func TestCheckOutputClasses(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int64
		classes int
		wantErr bool
	}{
		{"Match", []int64{1, 7}, 7, false},
		{"DynamicBatch", []int64{-1, 7}, 7, false},
		{"DynamicClasses", []int64{1, -1}, 7, false},
		{"Unknown", nil, 7, false},
		{"Mismatch", []int64{1, 8}, 7, true},
		{"FlatMismatch", []int64{6}, 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOutputClasses(tt.shape, tt.classes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}
}
