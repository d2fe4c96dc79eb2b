package media

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	ffmpegOnce sync.Once
	ffmpegPath string
)

// FFmpegPath возвращает путь к FFmpeg бинарнику.
// Ищет в следующих местах (в порядке приоритета):
// 1. Переменная окружения VOICEMOOD_FFMPEG
// 2. Рядом с исполняемым файлом
// 3. В текущей рабочей директории
// 4. Системный PATH
func FFmpegPath() string {
	ffmpegOnce.Do(func() {
		ffmpegPath = findFFmpeg()
	})
	return ffmpegPath
}

func findFFmpeg() string {
	if env := os.Getenv("VOICEMOOD_FFMPEG"); env != "" && fileExists(env) {
		return env
	}

	var searchPaths []string
	if execPath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "ffmpeg"))
	}
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(cwd, "ffmpeg"),
			filepath.Join(cwd, "vendor", "ffmpeg", "ffmpeg"),
		)
	}

	for _, path := range searchPaths {
		if fileExists(path) {
			log.WithField("path", path).Debug("using bundled ffmpeg")
			return path
		}
	}

	if systemPath, err := exec.LookPath("ffmpeg"); err == nil {
		return systemPath
	}

	// Fallback: просто "ffmpeg" - может сработает
	log.WithField("searched", searchPaths).Debug("ffmpeg not found, using default name")
	return "ffmpeg"
}

// FFmpegAvailable проверяет, что ffmpeg можно запустить
func FFmpegAvailable(bin string) bool {
	if bin == "" {
		bin = FFmpegPath()
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DecodeFFmpeg декодирует любой контейнер, который понимает ffmpeg
// (webm, ogg, m4a, flac, ...), сразу в моно float32 с нужной частотой
func DecodeFFmpeg(bin, path string, sampleRate int) (*Waveform, error) {
	if bin == "" {
		bin = FFmpegPath()
	}
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: file not found: %s", ErrDecode, path)
	}

	cmd := exec.Command(bin,
		"-nostdin",
		"-i", path,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	)

	output, err := cmd.Output()
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		return nil, fmt.Errorf("%w: ffmpeg decode failed: %v, output: %s", ErrDecode, err, stderr)
	}

	return &Waveform{Samples: bytesToFloat32(output), SampleRate: sampleRate}, nil
}

func bytesToFloat32(data []byte) []float32 {
	numSamples := len(data) / 4
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
