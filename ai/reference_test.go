package ai

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voicemood/media"
)

// referenceFeatures эталон из testdata/gen_reference.py
type referenceFeatures struct {
	Source     string      `json:"source"`
	SampleRate int         `json:"sample_rate"`
	Samples    []float32   `json:"samples"`
	Tuning     float64     `json:"tuning"`
	MFCC       [][]float64 `json:"mfcc"`
	Chroma     [][]float64 `json:"chroma"`
	ZCR        []float64   `json:"zcr"`
	RMS        []float64   `json:"rms"`
}

func loadReference(t *testing.T) *referenceFeatures {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "reference_features.json"))
	if err != nil {
		t.Skipf("reference features not available: %v", err)
	}
	var ref referenceFeatures
	if err := json.Unmarshal(data, &ref); err != nil {
		t.Fatalf("invalid reference file: %v", err)
	}
	return &ref
}

func TestExtractMatchesReference(t *testing.T) {
	ref := loadReference(t)
	if ref.SampleRate != SampleRate {
		t.Fatalf("reference sample rate %d, expected %d", ref.SampleRate, SampleRate)
	}

	e := newTestExtractor(t)
	res := e.Extract(&media.Waveform{Samples: ref.Samples, SampleRate: ref.SampleRate})
	if res.Kind != ExtractionOK {
		t.Fatalf("expected ok, got %s (%s)", res.Kind, res.Reason)
	}
	if res.Frames != len(ref.RMS) {
		t.Fatalf("expected %d frames, got %d", len(ref.RMS), res.Frames)
	}
	if math.Abs(res.Tuning-ref.Tuning) > 1e-6 {
		t.Errorf("tuning: expected %.4f (%s), got %.4f", ref.Tuning, ref.Source, res.Tuning)
	}

	columns := []struct {
		name   string
		offset int
		tol    float64
		value  func(frame, i int) float64
		width  int
	}{
		{"mfcc", 0, 1e-2, func(f, i int) float64 { return ref.MFCC[f][i] }, NMFCC},
		{"chroma", NMFCC, 1e-3, func(f, i int) float64 { return ref.Chroma[f][i] }, NChroma},
		{"zcr", NMFCC + NChroma, 1e-6, func(f, _ int) float64 { return ref.ZCR[f] }, 1},
		{"rms", NMFCC + NChroma + 1, 1e-5, func(f, _ int) float64 { return ref.RMS[f] }, 1},
	}

	for _, col := range columns {
		t.Run(col.name, func(t *testing.T) {
			mismatches := 0
			for f := 0; f < res.Frames; f++ {
				for i := 0; i < col.width; i++ {
					want := col.value(f, i)
					got := float64(res.Tensor[f][col.offset+i])
					if math.Abs(got-want) > col.tol {
						t.Errorf("frame %d %s[%d]: expected %.6f, got %.6f", f, col.name, i, want, got)
						if mismatches++; mismatches >= 10 {
							t.FailNow()
						}
					}
				}
			}
		})
	}

	for f := res.Frames; f < MaxFrames; f++ {
		for _, v := range res.Tensor[f] {
			if v != 0 {
				t.Fatalf("padding row %d is not zero", f)
			}
		}
	}
}
