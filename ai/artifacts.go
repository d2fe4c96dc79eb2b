package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeArtifact читает JSON или YAML в зависимости от расширения
func decodeArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, path, err)
	}
	return nil
}

// Scaler обученные параметры z-нормализации по столбцам
type Scaler struct {
	Mean  []float64 `json:"mean" yaml:"mean"`
	Scale []float64 `json:"scale" yaml:"scale"`
}

// LoadScaler загружает параметры скейлера из JSON/YAML
func LoadScaler(path string) (*Scaler, error) {
	var s Scaler
	if err := decodeArtifact(path, &s); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	if err := s.Validate(FeatureWidth); err != nil {
		return nil, fmt.Errorf("load scaler %s: %w", path, err)
	}
	return s.Normalized(), nil
}

// Width число столбцов, на которых обучен скейлер
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Validate проверяет ширину скейлера
func (s *Scaler) Validate(width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("%w: scaler has mean=%d scale=%d, expected %d",
			ErrShapeMismatch, len(s.Mean), len(s.Scale), width)
	}
	return nil
}

// Normalized возвращает копию, в которой нулевой масштаб заменён на 1.
// Исходный скейлер не меняется.
func (s *Scaler) Normalized() *Scaler {
	out := &Scaler{
		Mean:  append([]float64(nil), s.Mean...),
		Scale: append([]float64(nil), s.Scale...),
	}
	for i, v := range out.Scale {
		if v == 0 {
			out.Scale[i] = 1
		}
	}
	return out
}

// Batch плоский float32 тензор формы [batch, frames, features]
type Batch struct {
	Data  []float32
	Shape []int64
}

// Transform применяет (v - mean[col]) / scale[col] к каждой строке и
// возвращает батч формы (1, rows, width)
func (s *Scaler) Transform(m Matrix) (*Batch, error) {
	width := s.Width()
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrShapeMismatch)
	}

	data := make([]float32, 0, len(m)*width)
	for r, row := range m {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d",
				ErrShapeMismatch, r, len(row), width)
		}
		for c, v := range row {
			data = append(data, float32((float64(v)-s.Mean[c])/s.Scale[c]))
		}
	}

	return &Batch{
		Data:  data,
		Shape: []int64{1, int64(len(m)), int64(width)},
	}, nil
}

// LabelEncoder порядок категорий, использованный при обучении
type LabelEncoder struct {
	Categories []string `json:"categories" yaml:"categories"`
}

// LoadLabelEncoder загружает категории из JSON/YAML
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	var e LabelEncoder
	if err := decodeArtifact(path, &e); err != nil {
		return nil, fmt.Errorf("load encoder: %w", err)
	}
	if len(e.Categories) == 0 {
		return nil, fmt.Errorf("load encoder %s: %w: no categories", path, ErrInvalidArtifact)
	}
	return &e, nil
}

// Label возвращает метку по индексу класса
func (e *LabelEncoder) Label(index int) (string, error) {
	if index < 0 || index >= len(e.Categories) {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrUnknownIndex, index, len(e.Categories))
	}
	return e.Categories[index], nil
}

// Len количество категорий
func (e *LabelEncoder) Len() int {
	return len(e.Categories)
}
