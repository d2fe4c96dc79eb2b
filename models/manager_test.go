package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func artifactServer(t *testing.T) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/models/model.onnx":   "onnx-bytes",
		"/models/scaler.json":  `{"mean": [], "scale": []}`,
		"/models/encoder.json": `{"categories": ["happy"]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistry(t *testing.T) {
	for _, kind := range []ArtifactKind{KindModel, KindScaler, KindEncoder} {
		if GetArtifactByKind(kind) == nil {
			t.Errorf("no artifact for kind %s", kind)
		}
	}
	if GetArtifactByID("nope") != nil {
		t.Error("unknown id must return nil")
	}
}

func TestManagerPaths(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	p := m.Artifacts()
	if p.Model != filepath.Join(dir, "model.onnx") {
		t.Errorf("unexpected model path %s", p.Model)
	}

	m.SetFile(KindScaler, "scaler.yaml")
	if got := m.Artifacts().Scaler; got != filepath.Join(dir, "scaler.yaml") {
		t.Errorf("override not applied: %s", got)
	}

	abs := filepath.Join(t.TempDir(), "custom.json")
	m.SetFile(KindEncoder, abs)
	if got := m.Artifacts().Encoder; got != abs {
		t.Errorf("absolute override must be kept, got %s", got)
	}
}

func TestManagerStatusAndReady(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Ready(); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}

	writeFile(t, filepath.Join(dir, "model.onnx"), "x")
	writeFile(t, filepath.Join(dir, "scaler.json"), "")

	got := map[string]ArtifactStatus{}
	for _, s := range m.Status() {
		got[s.ID] = s.Status
	}
	want := map[string]ArtifactStatus{
		"model":   StatusDownloaded,
		"scaler":  StatusNotDownloaded, // пустой файл не считается
		"encoder": StatusNotDownloaded,
	}
	for id, st := range want {
		if got[id] != st {
			t.Errorf("%s: status %s, want %s", id, got[id], st)
		}
	}

	writeFile(t, filepath.Join(dir, "scaler.json"), "{}")
	writeFile(t, filepath.Join(dir, "encoder.json"), "{}")
	if err := m.Ready(); err != nil {
		t.Errorf("expected ready, got %v", err)
	}
}

func TestManagerPullAll(t *testing.T) {
	srv := artifactServer(t)
	dir := t.TempDir()
	m, err := NewManager(dir, srv.URL+"/models/")
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	final := map[string]ArtifactStatus{}
	m.SetProgressCallback(func(id string, progress float64, status ArtifactStatus, err error) {
		mu.Lock()
		defer mu.Unlock()
		final[id] = status
	})

	if err := m.PullAll(context.Background(), false); err != nil {
		t.Fatalf("PullAll failed: %v", err)
	}
	if err := m.Ready(); err != nil {
		t.Fatalf("expected all artifacts, got %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "encoder.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "happy") {
		t.Errorf("unexpected content %q", data)
	}
	for _, info := range Registry {
		if final[info.ID] != StatusDownloaded {
			t.Errorf("%s: last status %s", info.ID, final[info.ID])
		}
	}
}

func TestManagerPullErrors(t *testing.T) {
	srv := artifactServer(t)
	dir := t.TempDir()

	m, _ := NewManager(dir, "")
	if err := m.Pull(context.Background(), "model"); err == nil {
		t.Error("expected error without base url")
	}

	m, _ = NewManager(dir, srv.URL+"/missing/")
	if err := m.Pull(context.Background(), "model"); err == nil {
		t.Fatal("expected 404 error")
	}
	if _, err := os.Stat(filepath.Join(dir, "model.onnx.tmp")); !os.IsNotExist(err) {
		t.Error("tmp file must be removed after failure")
	}
	st := m.Status()[0]
	if st.Status != StatusError || st.Error == "" {
		t.Errorf("expected error status, got %+v", st)
	}

	if err := m.Pull(context.Background(), "unknown"); err == nil {
		t.Error("expected error for unknown artifact")
	}
}

func TestDownloadFileSizeMismatch(t *testing.T) {
	srv := artifactServer(t)
	dest := filepath.Join(t.TempDir(), "model.onnx")

	err := DownloadFile(context.Background(), srv.URL+"/models/model.onnx", dest, 1<<20, nil)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination must not exist after mismatch")
	}
}

func TestDownloadFileCanceled(t *testing.T) {
	srv := artifactServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "model.onnx")
	if err := DownloadFile(ctx, srv.URL+"/models/model.onnx", dest, 0, nil); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestManagerDelete(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir, "")
	if err := m.Delete("model"); err == nil {
		t.Error("expected error for missing artifact")
	}
	writeFile(t, filepath.Join(dir, "model.onnx"), "x")
	if err := m.Delete("model"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if m.IsDownloaded("model") {
		t.Error("artifact still present")
	}
}
