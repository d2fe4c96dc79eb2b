package ai

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Model обученная модель классификации последовательностей
type Model interface {
	// Predict возвращает вектор оценок по классам для батча (1, T, F)
	Predict(batch *Batch) ([]float32, error)
	Close() error
}

// Prediction результат классификации
type Prediction struct {
	Label  string    `json:"label"`
	Index  int       `json:"index"`
	Scores []float32 `json:"scores"`
}

// Argmax индекс максимальной оценки, при равенстве наименьший; -1 для пустого
func Argmax(scores []float32) int {
	if len(scores) == 0 {
		return -1
	}
	values := make([]float64, len(scores))
	for i, v := range scores {
		values[i] = float64(v)
	}
	return floats.MaxIdx(values)
}

// Predictor прогоняет батч через модель и декодирует метку
type Predictor struct {
	model   Model
	encoder *LabelEncoder
	frames  int
	width   int
}

// NewPredictor создаёт предиктор для входа формы (1, frames, width)
func NewPredictor(model Model, encoder *LabelEncoder, frames, width int) *Predictor {
	return &Predictor{model: model, encoder: encoder, frames: frames, width: width}
}

// Predict выполняет прямой проход и возвращает метку в нижнем регистре
func (p *Predictor) Predict(batch *Batch) (*Prediction, error) {
	if batch == nil || len(batch.Shape) != 3 ||
		batch.Shape[1] != int64(p.frames) || batch.Shape[2] != int64(p.width) ||
		int64(len(batch.Data)) != batch.Shape[0]*batch.Shape[1]*batch.Shape[2] {
		var shape []int64
		if batch != nil {
			shape = batch.Shape
		}
		return nil, fmt.Errorf("%w: got %v, expected [1 %d %d]", ErrShapeMismatch, shape, p.frames, p.width)
	}

	scores, err := p.model.Predict(batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelExecution, err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: empty model output", ErrModelExecution)
	}

	index := Argmax(scores)
	label, err := p.encoder.Label(index)
	if err != nil {
		return nil, err
	}

	return &Prediction{
		Label:  strings.ToLower(label),
		Index:  index,
		Scores: scores,
	}, nil
}

// Close освобождает модель
func (p *Predictor) Close() error {
	return p.model.Close()
}
