package ai

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"voicemood/media"
)

// Artifacts пути к обученным артефактам
type Artifacts struct {
	ModelPath   string
	ScalerPath  string
	EncoderPath string
	ONNXLibrary string
	Threads     int
	FFmpegPath  string
}

// Context неизменяемое состояние классификатора: модель, скейлер, энкодер.
// Создаётся один раз при старте и передаётся явно.
type Context struct {
	normalizer *media.Normalizer
	extractor  *Extractor
	scaler     *Scaler
	encoder    *LabelEncoder
	predictor  *Predictor
}

// Result результат классификации одного файла
type Result struct {
	Path           string         `json:"path"`
	NormalizedPath string         `json:"normalized_path"`
	Label          string         `json:"label"`
	Index          int            `json:"index"`
	Scores         []float32      `json:"scores"`
	Extraction     ExtractionKind `json:"-"`
	Fallback       string         `json:"fallback,omitempty"`
	Frames         int            `json:"frames"`
	Elapsed        time.Duration  `json:"elapsed"`
}

// LoadContext загружает артефакты. Любая ошибка фатальна для старта.
func LoadContext(a Artifacts) (*Context, error) {
	scaler, err := LoadScaler(a.ScalerPath)
	if err != nil {
		return nil, err
	}
	encoder, err := LoadLabelEncoder(a.EncoderPath)
	if err != nil {
		return nil, err
	}

	model, err := NewONNXModel(ONNXModelConfig{
		ModelPath:   a.ModelPath,
		LibraryPath: a.ONNXLibrary,
		Threads:     a.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if err := model.CheckInputShape(MaxFrames, FeatureWidth); err != nil {
		model.Close()
		return nil, fmt.Errorf("load model %s: %w", a.ModelPath, err)
	}
	if err := model.CheckOutputClasses(encoder.Len()); err != nil {
		model.Close()
		return nil, fmt.Errorf("load model %s: %w", a.ModelPath, err)
	}

	ctx, err := NewContext(model, scaler, encoder, a.FFmpegPath)
	if err != nil {
		model.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"model":   a.ModelPath,
		"scaler":  a.ScalerPath,
		"encoder": a.EncoderPath,
		"labels":  encoder.Categories,
	}).Info("classifier context loaded")
	return ctx, nil
}

// NewContext собирает контекст из готовых компонентов (в т.ч. тестовых)
func NewContext(model Model, scaler *Scaler, encoder *LabelEncoder, ffmpegPath string) (*Context, error) {
	if model == nil || scaler == nil || encoder == nil {
		return nil, errors.New("model, scaler and encoder are required")
	}
	if err := scaler.Validate(FeatureWidth); err != nil {
		return nil, err
	}
	if encoder.Len() == 0 {
		return nil, fmt.Errorf("%w: encoder has no categories", ErrInvalidArtifact)
	}

	encoder = &LabelEncoder{Categories: append([]string(nil), encoder.Categories...)}

	features := DefaultFeatureConfig()
	features.FFmpegPath = ffmpegPath
	extractor, err := NewExtractor(features)
	if err != nil {
		return nil, err
	}

	return &Context{
		normalizer: media.NewNormalizer(SampleRate, ffmpegPath),
		extractor:  extractor,
		scaler:     scaler.Normalized(),
		encoder:    encoder,
		predictor:  NewPredictor(model, encoder, MaxFrames, FeatureWidth),
	}, nil
}

// Labels возвращает словарь меток в порядке обучения
func (c *Context) Labels() []string {
	out := make([]string, len(c.encoder.Categories))
	copy(out, c.encoder.Categories)
	return out
}

// Extractor возвращает экстрактор признаков
func (c *Context) Extractor() *Extractor {
	return c.extractor
}

// Normalizer возвращает нормализатор аудио
func (c *Context) Normalizer() *media.Normalizer {
	return c.normalizer
}

// Classify: нормализация -> признаки -> скейлер -> модель -> метка.
// Признаки считаются из нормализованного файла.
func (c *Context) Classify(path string) (*Result, error) {
	start := time.Now()

	normalized, err := c.normalizer.Normalize(path)
	if err != nil {
		return nil, err
	}

	extraction := c.extractor.ExtractFile(normalized)
	prediction, err := c.PredictTensor(extraction.Tensor)
	if err != nil {
		return nil, err
	}

	return &Result{
		Path:           path,
		NormalizedPath: normalized,
		Label:          prediction.Label,
		Index:          prediction.Index,
		Scores:         prediction.Scores,
		Extraction:     extraction.Kind,
		Fallback:       extraction.Reason,
		Frames:         extraction.Frames,
		Elapsed:        time.Since(start),
	}, nil
}

// PredictTensor масштабирует тензор признаков и классифицирует его
func (c *Context) PredictTensor(tensor Matrix) (*Prediction, error) {
	batch, err := c.scaler.Transform(tensor)
	if err != nil {
		return nil, err
	}
	return c.predictor.Predict(batch)
}

// Close освобождает модель
func (c *Context) Close() error {
	return c.predictor.Close()
}
