package media

import (
	"errors"
	"math"
	"time"
)

// ErrDecode оборачивает любые ошибки чтения/декодирования аудио
var ErrDecode = errors.New("audio decode failed")

// Waveform моно сигнал в диапазоне [-1, 1] с известной частотой дискретизации
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Len возвращает количество сэмплов
func (w *Waveform) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Samples)
}

// Duration возвращает длительность сигнала
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Peak возвращает максимальную абсолютную амплитуду
func (w *Waveform) Peak() float64 {
	if w == nil {
		return 0
	}
	var peak float64
	for _, s := range w.Samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// Downmix сводит interleaved каналы в моно (среднее по каналам)
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// toInt16 клампит float32 сэмпл и переводит в signed 16-bit
func toInt16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767)
}
