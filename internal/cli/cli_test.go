package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"voicemood/ai"
	"voicemood/media"
	"voicemood/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTone(t *testing.T, seconds float64) string {
	t.Helper()
	n := int(seconds * ai.SampleRate)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/ai.SampleRate))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := media.WriteWAV(path, &media.Waveform{Samples: samples, SampleRate: ai.SampleRate}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFeaturesCommand(t *testing.T) {
	path := writeTone(t, 2)

	out, err := run(t, "features", path, "-o", "json")
	if err != nil {
		t.Fatalf("features failed: %v", err)
	}
	var report FeatureReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if report.Shape != [2]int{ai.MaxFrames, ai.FeatureWidth} {
		t.Errorf("shape %v", report.Shape)
	}
	if report.Kind != "ok" {
		t.Errorf("kind %s", report.Kind)
	}
	if report.Frames != 1+2*ai.SampleRate/ai.HopLength {
		t.Errorf("frames %d", report.Frames)
	}
	if len(report.Groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(report.Groups))
	}
	chroma := report.Groups[1]
	if chroma.Name != "chroma" || chroma.Max > 1.0001 || chroma.Min < 0 {
		t.Errorf("chroma out of range: %+v", chroma)
	}
	if len(report.Tensor) != 0 {
		t.Error("tensor must be omitted without --full")
	}
	// A440 оценивается почти без отклонения
	if math.Abs(report.Tuning) > 0.06 {
		t.Errorf("expected tuning near 0 for A440, got %f", report.Tuning)
	}
}

func TestFeaturesCommandText(t *testing.T) {
	path := writeTone(t, 1)

	out, err := run(t, "features", path, "-o", "text", "--full=false")
	if err != nil {
		t.Fatalf("features failed: %v", err)
	}
	for _, want := range []string{"shape:  (300, 54)", "mfcc", "chroma", "zcr", "rms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFeaturesCommandTuningOverride(t *testing.T) {
	t.Cleanup(func() { featuresCmd.Flags().Lookup("tuning").Changed = false })
	path := writeTone(t, 1)

	out, err := run(t, "features", path, "-o", "json", "--tuning", "-0.3")
	if err != nil {
		t.Fatalf("features failed: %v", err)
	}
	var report FeatureReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if math.Abs(report.Tuning+0.3) > 1e-12 {
		t.Errorf("expected tuning -0.3, got %f", report.Tuning)
	}
}

func TestBuildFeatureReportDegenerate(t *testing.T) {
	e := ai.Extraction{Tensor: ai.ZeroTensor(), Kind: ai.ExtractionDegenerate, Reason: "silent"}
	r := buildFeatureReport("a.wav", "a.wav", e)
	if r.Normalized != "" {
		t.Error("normalized must be empty for pass-through")
	}
	for _, g := range r.Groups {
		if g.Mean != 0 || g.Std != 0 {
			t.Errorf("%s: expected zero stats, got %+v", g.Name, g)
		}
	}
}

func TestNormalizeCommand(t *testing.T) {
	path := writeTone(t, 1)

	out, err := run(t, "normalize", path, "-o", "json")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	var files []NormalizedFile
	if err := json.Unmarshal([]byte(out), &files); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(files) != 1 || files[0].Output != path || files[0].Converted {
		t.Errorf("unexpected result %+v", files)
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "--log-level", "debug", "--models-dir", dir, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, "level: debug") || !strings.Contains(out, "dir: "+dir) {
		t.Errorf("flags not applied:\n%s", out)
	}
	// вернуть уровень по умолчанию для остальных тестов
	if _, err := run(t, "--log-level", "info", "config"); err != nil {
		t.Fatal(err)
	}
}

func TestClassifyMissingArtifacts(t *testing.T) {
	path := writeTone(t, 1)
	_, err := run(t, "--models-dir", t.TempDir(), "classify", path)
	if !errors.Is(err, models.ErrMissing) {
		t.Errorf("expected ErrMissing, got %v", err)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	path := writeTone(t, 1)
	if _, err := run(t, "normalize", path, "-o", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
