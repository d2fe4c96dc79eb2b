package models

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrMissing один или несколько артефактов отсутствуют на диске
var ErrMissing = errors.New("artifacts missing")

// ProgressCallback функция обратного вызова для прогресса
type ProgressCallback func(id string, progress float64, status ArtifactStatus, err error)

// Paths пути к артефактам классификатора
type Paths struct {
	Model   string `json:"model" yaml:"model"`
	Scaler  string `json:"scaler" yaml:"scaler"`
	Encoder string `json:"encoder" yaml:"encoder"`
}

// Manager менеджер артефактов
type Manager struct {
	dir        string
	baseURL    string
	files      map[ArtifactKind]string // переопределённые имена файлов
	downloads  map[string]context.CancelFunc
	failures   map[string]string
	mu         sync.RWMutex
	onProgress ProgressCallback
}

// NewManager создаёт менеджер для директории dir. baseURL задаёт адрес, относительно
// которого скачиваются файлы (может быть пустым, тогда Pull недоступен).
func NewManager(dir, baseURL string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create models directory: %w", err)
	}
	return &Manager{
		dir:       dir,
		baseURL:   baseURL,
		files:     make(map[ArtifactKind]string),
		downloads: make(map[string]context.CancelFunc),
		failures:  make(map[string]string),
	}, nil
}

// SetFile переопределяет имя файла артефакта (например scaler.yaml)
func (m *Manager) SetFile(kind ArtifactKind, file string) {
	if file == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[kind] = file
}

// SetProgressCallback устанавливает callback для прогресса
func (m *Manager) SetProgressCallback(cb ProgressCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onProgress = cb
}

// Dir возвращает директорию артефактов
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) fileName(info *ArtifactInfo) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.files[info.Kind]; ok {
		return f
	}
	return info.File
}

// Path возвращает путь к артефакту. Абсолютные имена файлов не склеиваются с dir.
func (m *Manager) Path(id string) string {
	info := GetArtifactByID(id)
	if info == nil {
		return ""
	}
	name := m.fileName(info)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.dir, name)
}

// IsDownloaded проверяет, что файл есть и не пустой
func (m *Manager) IsDownloaded(id string) bool {
	path := m.Path(id)
	if path == "" {
		return false
	}
	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		return false
	}
	return stat.Size() > 0
}

// Artifacts возвращает пути ко всем артефактам
func (m *Manager) Artifacts() Paths {
	return Paths{
		Model:   m.Path(GetArtifactByKind(KindModel).ID),
		Scaler:  m.Path(GetArtifactByKind(KindScaler).ID),
		Encoder: m.Path(GetArtifactByKind(KindEncoder).ID),
	}
}

// Ready возвращает ErrMissing со списком отсутствующих артефактов
func (m *Manager) Ready() error {
	var missing []string
	for _, info := range Registry {
		if !m.IsDownloaded(info.ID) {
			missing = append(missing, m.Path(info.ID))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Status возвращает состояние всех артефактов
func (m *Manager) Status() []ArtifactState {
	m.mu.RLock()
	downloading := make(map[string]bool, len(m.downloads))
	for id := range m.downloads {
		downloading[id] = true
	}
	failures := make(map[string]string, len(m.failures))
	for id, msg := range m.failures {
		failures[id] = msg
	}
	m.mu.RUnlock()

	states := make([]ArtifactState, len(Registry))
	for i, info := range Registry {
		state := ArtifactState{
			ArtifactInfo: info,
			Path:         m.Path(info.ID),
		}
		state.File = filepath.Base(state.Path)

		switch {
		case downloading[info.ID]:
			state.Status = StatusDownloading
		case m.IsDownloaded(info.ID):
			state.Status = StatusDownloaded
			if stat, err := os.Stat(state.Path); err == nil {
				state.SizeBytes = stat.Size()
			}
		case failures[info.ID] != "":
			state.Status = StatusError
			state.Error = failures[info.ID]
		default:
			state.Status = StatusNotDownloaded
		}
		states[i] = state
	}
	return states
}

// URL возвращает адрес скачивания артефакта
func (m *Manager) URL(id string) (string, error) {
	info := GetArtifactByID(id)
	if info == nil {
		return "", fmt.Errorf("unknown artifact: %s", id)
	}
	if m.baseURL == "" {
		return "", errors.New("models base url is not configured")
	}
	u, err := url.JoinPath(m.baseURL, filepath.Base(m.fileName(info)))
	if err != nil {
		return "", fmt.Errorf("invalid models base url: %w", err)
	}
	return u, nil
}

// Pull скачивает артефакт и блокируется до завершения
func (m *Manager) Pull(ctx context.Context, id string) error {
	info := GetArtifactByID(id)
	if info == nil {
		return fmt.Errorf("unknown artifact: %s", id)
	}
	src, err := m.URL(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.downloads[id]; exists {
		m.mu.Unlock()
		return fmt.Errorf("artifact %s is already downloading", id)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.downloads[id] = cancel
	delete(m.failures, id)
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		delete(m.downloads, id)
		m.mu.Unlock()
	}()

	dest := m.Path(id)
	logger := log.WithFields(log.Fields{"artifact": id, "url": src, "file": dest})
	logger.Info("downloading artifact")
	m.notifyProgress(id, 0, StatusDownloading, nil)

	err = DownloadFile(ctx, src, dest, info.SizeBytes, func(p float64) {
		m.notifyProgress(id, p, StatusDownloading, nil)
	})
	if err != nil {
		m.mu.Lock()
		m.failures[id] = err.Error()
		m.mu.Unlock()
		logger.WithError(err).Error("artifact download failed")
		m.notifyProgress(id, 0, StatusError, err)
		return fmt.Errorf("download %s: %w", id, err)
	}

	logger.Info("artifact downloaded")
	m.notifyProgress(id, 100, StatusDownloaded, nil)
	return nil
}

// PullAll скачивает отсутствующие артефакты (или все при force)
func (m *Manager) PullAll(ctx context.Context, force bool) error {
	for _, info := range Registry {
		if !force && m.IsDownloaded(info.ID) {
			continue
		}
		if err := m.Pull(ctx, info.ID); err != nil {
			return err
		}
	}
	return nil
}

// CancelDownload отменяет скачивание
func (m *Manager) CancelDownload(id string) error {
	m.mu.Lock()
	cancel, exists := m.downloads[id]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("artifact %s is not downloading", id)
	}
	cancel()
	return nil
}

// Delete удаляет скачанный артефакт
func (m *Manager) Delete(id string) error {
	if !m.IsDownloaded(id) {
		return fmt.Errorf("artifact %s is not downloaded", id)
	}
	path := m.Path(id)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	log.WithField("file", path).Info("artifact deleted")
	return nil
}

func (m *Manager) notifyProgress(id string, progress float64, status ArtifactStatus, err error) {
	m.mu.RLock()
	cb := m.onProgress
	m.mu.RUnlock()

	if cb != nil {
		cb(id, progress, status, err)
	}
}
