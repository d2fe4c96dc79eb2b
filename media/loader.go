package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Load декодирует файл в моно сигнал с частотой sampleRate.
// WAV и MP3 читаются на чистом Go, остальные форматы через ffmpeg.
func Load(path string, sampleRate int) (*Waveform, error) {
	return LoadWith("", path, sampleRate)
}

// LoadWith как Load, но с явным путём к ffmpeg
func LoadWith(ffmpegBin, path string, sampleRate int) (*Waveform, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	var (
		w   *Waveform
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		w, err = ReadWAV(path)
		if err != nil && fileExists(path) && FFmpegAvailable(ffmpegBin) {
			// float/ADPCM WAV, которые go-audio не читает
			w, err = DecodeFFmpeg(ffmpegBin, path, sampleRate)
		}
	case ".mp3":
		w, err = DecodeMP3(path)
	default:
		w, err = DecodeFFmpeg(ffmpegBin, path, sampleRate)
	}
	if err != nil {
		return nil, err
	}

	if w.SampleRate != sampleRate {
		resampled, err := Resample(w.Samples, w.SampleRate, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		w = &Waveform{Samples: resampled, SampleRate: sampleRate}
	}
	return w, nil
}
