package ai

import (
	"fmt"
)

// Фиксированная раскладка признаков
const (
	SampleRate       = 22050
	NFFT             = 2048
	HopLength        = 512
	NMels            = 128
	NMFCC            = 40
	NChroma          = 12
	FeatureWidth     = NMFCC + NChroma + 1 + 1 // mfcc + chroma + zcr + rms = 54
	MaxFrames        = 300
	MinSamples       = 2048
	SilenceThreshold = 1e-4
	TopDB            = 80.0
)

// FeatureConfig конфигурация извлечения признаков
type FeatureConfig struct {
	SampleRate       int
	NFFT             int
	HopLength        int
	NMels            int
	NMFCC            int
	NChroma          int
	MaxFrames        int
	MinSamples       int
	SilenceThreshold float64
	TopDB            float64
	// Tuning фиксирует отклонение строя в долях класса высоты;
	// nil означает оценку по каждому сигналу
	Tuning     *float64
	FFmpegPath string // пусто = автопоиск
}

// DefaultFeatureConfig возвращает параметры, на которых обучена модель
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		SampleRate:       SampleRate,
		NFFT:             NFFT,
		HopLength:        HopLength,
		NMels:            NMels,
		NMFCC:            NMFCC,
		NChroma:          NChroma,
		MaxFrames:        MaxFrames,
		MinSamples:       MinSamples,
		SilenceThreshold: SilenceThreshold,
		TopDB:            TopDB,
	}
}

// Width ширина строки признаков
func (c FeatureConfig) Width() int {
	return c.NMFCC + c.NChroma + 2
}

// Validate проверяет согласованность параметров
func (c FeatureConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	case c.NFFT <= 0 || c.NFFT%2 != 0:
		return fmt.Errorf("n_fft must be a positive even number, got %d", c.NFFT)
	case c.HopLength <= 0:
		return fmt.Errorf("hop length must be positive, got %d", c.HopLength)
	case c.NMFCC <= 0 || c.NMFCC > c.NMels:
		return fmt.Errorf("n_mfcc must be in [1, n_mels], got %d", c.NMFCC)
	case c.NChroma <= 0:
		return fmt.Errorf("n_chroma must be positive, got %d", c.NChroma)
	case c.MaxFrames <= 0:
		return fmt.Errorf("max frames must be positive, got %d", c.MaxFrames)
	}
	return nil
}

// Matrix последовательность фреймов признаков [T][F]
type Matrix [][]float32

// NewMatrix создаёт нулевую матрицу rows x cols
func NewMatrix(rows, cols int) Matrix {
	data := make([]float32, rows*cols)
	m := make(Matrix, rows)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// Shape возвращает (строки, столбцы); столбцы берутся из первой строки
func (m Matrix) Shape() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// IsZero сообщает, что все значения равны нулю
func (m Matrix) IsZero() bool {
	for _, row := range m {
		for _, v := range row {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// FixLength приводит число фреймов к n: дополняет нулевыми строками в конце
// или оставляет первые n строк. Значения не меняются.
func FixLength(rows Matrix, n, width int) Matrix {
	out := NewMatrix(n, width)
	for i := 0; i < n && i < len(rows); i++ {
		copy(out[i], rows[i])
	}
	return out
}

// ZeroTensor детерминированный нулевой тензор (MaxFrames, FeatureWidth)
func ZeroTensor() Matrix {
	return NewMatrix(MaxFrames, FeatureWidth)
}
