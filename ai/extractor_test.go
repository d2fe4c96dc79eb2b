package ai

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"voicemood/media"
)

// speechLike синус с гармониками и шумом
func speechLike(seconds float64, seed int64) *media.Waveform {
	rng := rand.New(rand.NewSource(seed))
	n := int(seconds * SampleRate)
	samples := make([]float32, n)
	for i := range samples {
		ts := float64(i) / SampleRate
		v := 0.3*math.Sin(2*math.Pi*220*ts) + 0.15*math.Sin(2*math.Pi*440*ts) + 0.05*(rng.Float64()*2-1)
		samples[i] = float32(v)
	}
	return &media.Waveform{Samples: samples, SampleRate: SampleRate}
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultFeatureConfig())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return e
}

func TestExtractShape(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name    string
		seconds float64
		frames  int
	}{
		{"OneSecond", 1.0, 22050/HopLength + 1},
		{"ThreeSeconds", 3.0, 3*22050/HopLength + 1},
		{"AroundLimit", 6.8, int(6.8*22050)/HopLength + 1},
		{"TenSeconds", 10.0, 10*22050/HopLength + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Extract(speechLike(tt.seconds, 1))
			if res.Kind != ExtractionOK {
				t.Fatalf("expected ok, got %s (%s)", res.Kind, res.Reason)
			}
			rows, cols := res.Tensor.Shape()
			if rows != MaxFrames || cols != FeatureWidth {
				t.Fatalf("expected (300, 54), got (%d, %d)", rows, cols)
			}
			if res.Frames != tt.frames {
				t.Errorf("expected %d frames before fixing length, got %d", tt.frames, res.Frames)
			}
			for r := 0; r < min(res.Frames, MaxFrames); r++ {
				for c, v := range res.Tensor[r] {
					if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
						t.Fatalf("row %d col %d is not finite", r, c)
					}
				}
			}
			for r := res.Frames; r < MaxFrames; r++ {
				for _, v := range res.Tensor[r] {
					if v != 0 {
						t.Fatalf("padding row %d is not zero", r)
					}
				}
			}
		})
	}
}

func TestExtractColumnLayout(t *testing.T) {
	e := newTestExtractor(t)
	res := e.Extract(speechLike(2.0, 2))
	row := res.Tensor[20]

	// хрома нормирована по максимуму
	var chromaMax float32
	for _, v := range row[NMFCC : NMFCC+NChroma] {
		if v < 0 || v > 1 {
			t.Fatalf("chroma value out of [0, 1]: %f", v)
		}
		chromaMax = max(chromaMax, v)
	}
	if math.Abs(float64(chromaMax)-1) > 1e-6 {
		t.Errorf("expected chroma max 1, got %f", chromaMax)
	}

	zcr := row[NMFCC+NChroma]
	if zcr <= 0 || zcr >= 1 {
		t.Errorf("zcr out of (0, 1): %f", zcr)
	}
	rms := row[NMFCC+NChroma+1]
	if rms < 0.1 || rms > 0.5 {
		t.Errorf("unexpected rms %f", rms)
	}
	// первый MFCC это энергия в dB, сильно отрицательный не для тихого сигнала
	if row[0] == 0 {
		t.Error("mfcc[0] must not be zero for a non-silent frame")
	}
}

func TestExtractDegenerate(t *testing.T) {
	e := newTestExtractor(t)

	quiet := speechLike(2.0, 3)
	for i := range quiet.Samples {
		quiet.Samples[i] *= 1e-5
	}

	tests := []struct {
		name string
		w    *media.Waveform
	}{
		{"Nil", nil},
		{"Empty", &media.Waveform{SampleRate: SampleRate}},
		{"Short", &media.Waveform{Samples: speechLike(1, 4).Samples[:MinSamples-1], SampleRate: SampleRate}},
		{"Silent", &media.Waveform{Samples: make([]float32, SampleRate), SampleRate: SampleRate}},
		{"BelowThreshold", quiet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := e.Extract(tt.w)
			second := e.Extract(tt.w)

			if first.Kind != ExtractionDegenerate {
				t.Fatalf("expected degenerate, got %s", first.Kind)
			}
			if !first.Fallback() || first.Reason == "" {
				t.Error("expected fallback with reason")
			}
			rows, cols := first.Tensor.Shape()
			if rows != MaxFrames || cols != FeatureWidth {
				t.Fatalf("expected (300, 54), got (%d, %d)", rows, cols)
			}
			if !first.Tensor.IsZero() {
				t.Error("expected all-zero tensor")
			}
			if !reflect.DeepEqual(first.Tensor, second.Tensor) {
				t.Error("repeated calls must be bit-identical")
			}
		})
	}
}

func TestExtractExactlyMinSamples(t *testing.T) {
	e := newTestExtractor(t)
	w := &media.Waveform{Samples: speechLike(1, 5).Samples[:MinSamples], SampleRate: SampleRate}
	if res := e.Extract(w); res.Kind != ExtractionOK {
		t.Errorf("expected ok for %d samples, got %s", MinSamples, res.Kind)
	}
}

func TestExtractFile(t *testing.T) {
	e := newTestExtractor(t)
	dir := t.TempDir()

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "voice.wav")
		if err := media.WriteWAV(path, speechLike(1.5, 6)); err != nil {
			t.Fatal(err)
		}
		res := e.ExtractFile(path)
		if res.Kind != ExtractionOK {
			t.Fatalf("expected ok, got %s (%s)", res.Kind, res.Reason)
		}
		if res.Tensor.IsZero() {
			t.Error("expected non-zero features")
		}
	})

	t.Run("Corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.wav")
		if err := os.WriteFile(path, []byte("RIFF....garbage"), 0644); err != nil {
			t.Fatal(err)
		}
		res := e.ExtractFile(path)
		if res.Kind != ExtractionFailed {
			t.Fatalf("expected failed, got %s", res.Kind)
		}
		if !res.Tensor.IsZero() || len(res.Tensor) != MaxFrames {
			t.Error("expected zero (300, 54) tensor")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		res := e.ExtractFile(filepath.Join(dir, "missing.wav"))
		if res.Kind != ExtractionFailed {
			t.Fatalf("expected failed, got %s", res.Kind)
		}
	})

	t.Run("SilentFile", func(t *testing.T) {
		path := filepath.Join(dir, "silent.wav")
		if err := media.WriteWAV(path, &media.Waveform{Samples: make([]float32, SampleRate), SampleRate: SampleRate}); err != nil {
			t.Fatal(err)
		}
		if res := e.ExtractFile(path); res.Kind != ExtractionDegenerate {
			t.Fatalf("expected degenerate, got %s", res.Kind)
		}
	})
}

func TestExtractFileUsesConfiguredFFmpeg(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "custom-ffmpeg")

	cfg := DefaultFeatureConfig()
	cfg.FFmpegPath = bin
	e, err := NewExtractor(cfg)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "clip.ogg")
	if err := os.WriteFile(path, []byte("OggS not really"), 0644); err != nil {
		t.Fatal(err)
	}
	res := e.ExtractFile(path)
	if res.Kind != ExtractionFailed {
		t.Fatalf("expected failed, got %s", res.Kind)
	}
	if !strings.Contains(res.Reason, bin) {
		t.Errorf("expected decoder to run %s, got reason %q", bin, res.Reason)
	}

	ctx, err := NewContext(&fakeModel{}, testScaler(), &LabelEncoder{Categories: []string{"a", "b"}}, bin)
	if err != nil {
		t.Fatal(err)
	}
	if got := ctx.Extractor().Config().FFmpegPath; got != bin {
		t.Errorf("context extractor uses ffmpeg %q, expected %q", got, bin)
	}
}

func TestExtractionKindString(t *testing.T) {
	tests := []struct {
		kind     ExtractionKind
		expected string
	}{
		{ExtractionOK, "ok"},
		{ExtractionDegenerate, "degenerate"},
		{ExtractionFailed, "failed"},
		{ExtractionKind(7), "ExtractionKind(7)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, got)
		}
	}
}

func BenchmarkExtract(b *testing.B) {
	e, err := NewExtractor(DefaultFeatureConfig())
	if err != nil {
		b.Fatal(err)
	}
	w := speechLike(7, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Extract(w)
	}
}
