package ai

import (
	"fmt"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"voicemood/media"
)

// ExtractionKind результат извлечения признаков
type ExtractionKind int

const (
	// ExtractionOK признаки посчитаны по сигналу
	ExtractionOK ExtractionKind = iota
	// ExtractionDegenerate пустой, короткий или тихий сигнал, нулевой тензор
	ExtractionDegenerate
	// ExtractionFailed сигнал не удалось прочитать или обработать, нулевой тензор
	ExtractionFailed
)

func (k ExtractionKind) String() string {
	switch k {
	case ExtractionOK:
		return "ok"
	case ExtractionDegenerate:
		return "degenerate"
	case ExtractionFailed:
		return "failed"
	default:
		return fmt.Sprintf("ExtractionKind(%d)", int(k))
	}
}

// Extraction тензор признаков и то, как он получен
type Extraction struct {
	Tensor Matrix
	Kind   ExtractionKind
	Reason string  // пусто для ExtractionOK
	Frames int     // число фреймов до приведения к фиксированной длине
	Tuning float64 // строй, по которому посчитана хрома
}

// Fallback сообщает, что тензор нулевой заглушкой
func (e Extraction) Fallback() bool {
	return e.Kind != ExtractionOK
}

// Extractor считает последовательность [MFCC | chroma | ZCR | RMS]
type Extractor struct {
	config      FeatureConfig
	melBasis    [][]float64
	dct         [][]float64
	chromaBases sync.Map // ключ: строй в тысячных долях класса
}

// NewExtractor создаёт экстрактор и заранее строит банки фильтров
func NewExtractor(config FeatureConfig) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}
	return &Extractor{
		config:   config,
		melBasis: createMelFilterbank(config.NFFT, config.NMels, config.SampleRate),
		dct:      createDCTMatrix(config.NMFCC, config.NMels),
	}, nil
}

// chromaBasis возвращает банк хромы для строя tuning, строит его один раз
func (e *Extractor) chromaBasis(tuning float64) [][]float64 {
	key := int(math.Round(tuning * 1000))
	if bank, ok := e.chromaBases.Load(key); ok {
		return bank.([][]float64)
	}
	bank := createChromaFilterbank(e.config.SampleRate, e.config.NFFT, e.config.NChroma, tuning)
	actual, _ := e.chromaBases.LoadOrStore(key, bank)
	return actual.([][]float64)
}

// tuning возвращает заданный строй или оценивает его по спектру
func (e *Extractor) tuning(power [][]float64) float64 {
	if e.config.Tuning != nil {
		return *e.config.Tuning
	}
	return estimateTuning(power, e.config.SampleRate, e.config.NFFT, e.config.NChroma)
}

// Config возвращает конфигурацию экстрактора
func (e *Extractor) Config() FeatureConfig {
	return e.config
}

func (e *Extractor) fallback(kind ExtractionKind, reason string) Extraction {
	return Extraction{
		Tensor: NewMatrix(e.config.MaxFrames, e.config.Width()),
		Kind:   kind,
		Reason: reason,
	}
}

// ExtractFile читает файл и извлекает признаки. Ошибки декодирования и
// обработки не пробрасываются: возвращается нулевой тензор с Kind=Failed.
func (e *Extractor) ExtractFile(path string) (result Extraction) {
	logger := log.WithField("path", path)

	defer func() {
		if r := recover(); r != nil {
			result = e.fallback(ExtractionFailed, fmt.Sprintf("panic: %v", r))
			logger.WithField("reason", result.Reason).Error("feature extraction crashed, using zero tensor")
		}
	}()

	w, err := media.LoadWith(e.config.FFmpegPath, path, e.config.SampleRate)
	if err != nil {
		result = e.fallback(ExtractionFailed, err.Error())
		logger.WithError(err).Warn("error extracting features, using zero tensor")
		return result
	}

	result = e.Extract(w)
	if result.Kind == ExtractionDegenerate {
		logger.WithField("reason", result.Reason).Info("skipped invalid or silent audio")
	}
	return result
}

// Extract извлекает признаки из сигнала
func (e *Extractor) Extract(w *media.Waveform) Extraction {
	cfg := e.config

	if w == nil || w.Len() == 0 {
		return e.fallback(ExtractionDegenerate, "empty waveform")
	}
	if w.SampleRate != cfg.SampleRate {
		samples, err := media.Resample(w.Samples, w.SampleRate, cfg.SampleRate)
		if err != nil {
			return e.fallback(ExtractionFailed, err.Error())
		}
		w = &media.Waveform{Samples: samples, SampleRate: cfg.SampleRate}
	}
	if w.Len() < cfg.MinSamples {
		return e.fallback(ExtractionDegenerate, fmt.Sprintf("too short: %d samples", w.Len()))
	}
	if peak := w.Peak(); peak < cfg.SilenceThreshold {
		return e.fallback(ExtractionDegenerate, fmt.Sprintf("silent: peak %.2e", peak))
	}

	rows, tuning := e.sequence(w.Samples)
	return Extraction{
		Tensor: FixLength(rows, cfg.MaxFrames, cfg.Width()),
		Kind:   ExtractionOK,
		Frames: len(rows),
		Tuning: tuning,
	}
}

// sequence считает четыре потока и склеивает их по минимальной длине
func (e *Extractor) sequence(samples []float32) (Matrix, float64) {
	cfg := e.config

	power := PowerSpectrogram(samples, STFTConfig{NFFT: cfg.NFFT, HopLength: cfg.HopLength, Center: true})
	mfcc := e.mfccFromPower(power)
	tuning := e.tuning(power)
	chroma := e.chromaFromPower(power, tuning)
	zcr := zeroCrossingRate(samples, cfg.NFFT, cfg.HopLength)
	rms := rmsEnergy(samples, cfg.NFFT, cfg.HopLength)

	frames := min(len(mfcc), len(chroma), len(zcr), len(rms))
	out := NewMatrix(frames, cfg.Width())
	for t := 0; t < frames; t++ {
		row := out[t]
		col := 0
		for _, v := range mfcc[t] {
			row[col] = float32(v)
			col++
		}
		for _, v := range chroma[t] {
			row[col] = float32(v)
			col++
		}
		row[col] = float32(zcr[t])
		row[col+1] = float32(rms[t])
	}
	return out, tuning
}
