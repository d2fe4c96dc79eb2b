package media

import (
	"fmt"
	"os"

	"github.com/braheezy/shine-mp3/pkg/mp3"
	log "github.com/sirupsen/logrus"
)

// Блок MPEG Layer III: 1152 сэмпла на канал
const (
	mp3FrameSamples = 1152
	mp3Channels     = 2
	mp3BlockSize    = mp3FrameSamples * mp3Channels
)

// EncodeMP3 кодирует моно сигнал в MP3 через shine-mp3 (без FFmpeg)
func EncodeMP3(path string, w *Waveform) error {
	if w == nil || w.SampleRate <= 0 {
		return fmt.Errorf("invalid waveform")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	// shine-mp3 за проход читает samplesPerPass*2 interleaved значений,
	// поэтому моно дублируется в оба канала
	pcm := make([]int16, 0, 2*len(w.Samples)+mp3BlockSize)
	for _, s := range w.Samples {
		v := toInt16(s)
		pcm = append(pcm, v, v)
	}
	// Дополняем нулями до целого числа блоков
	for len(pcm)%mp3BlockSize != 0 {
		pcm = append(pcm, 0)
	}

	encoder := mp3.NewEncoder(w.SampleRate, mp3Channels)
	if err := encoder.Write(file, pcm); err != nil {
		file.Close()
		return fmt.Errorf("mp3 encoding error: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	log.WithFields(log.Fields{
		"path":     path,
		"rate":     w.SampleRate,
		"duration": w.Duration(),
	}).Debug("mp3 written")
	return nil
}
