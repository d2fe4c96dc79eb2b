package media

import (
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CanonicalExt расширение канонического формата (PCM WAV)
const CanonicalExt = ".wav"

// IsCanonical сообщает, что файл уже в каноническом контейнере
func IsCanonical(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CanonicalExt)
}

// CanonicalPath возвращает путь с тем же именем и расширением .wav
func CanonicalPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + CanonicalExt
}

// Normalizer приводит входной файл к моно WAV с фиксированной частотой
type Normalizer struct {
	SampleRate int
	FFmpegPath string
}

// NewNormalizer создаёт нормализатор
func NewNormalizer(sampleRate int, ffmpegPath string) *Normalizer {
	return &Normalizer{SampleRate: sampleRate, FFmpegPath: ffmpegPath}
}

// Normalize возвращает путь к каноническому файлу.
// WAV возвращается как есть (без перекодирования и без новых файлов);
// остальное декодируется, сводится в моно, ресемплится и пишется рядом
// как <имя>.wav. Оригинал не удаляется.
func (n *Normalizer) Normalize(path string) (string, error) {
	if IsCanonical(path) {
		return path, nil
	}

	w, err := LoadWith(n.FFmpegPath, path, n.SampleRate)
	if err != nil {
		return "", fmt.Errorf("normalize %s: %w", path, err)
	}

	out := CanonicalPath(path)
	if err := WriteWAV(out, w); err != nil {
		return "", fmt.Errorf("normalize %s: %w", path, err)
	}

	log.WithFields(log.Fields{
		"src":      path,
		"dst":      out,
		"rate":     n.SampleRate,
		"duration": w.Duration(),
	}).Info("audio normalized")
	return out, nil
}
