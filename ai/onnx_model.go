package ai

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXModelConfig конфигурация ONNX модели классификатора
type ONNXModelConfig struct {
	ModelPath   string
	LibraryPath string // путь к libonnxruntime, пусто = автопоиск
	Threads     int    // intra-op потоки, 0 = по умолчанию
}

// ONNXModel классификатор эмоций на ONNX Runtime.
// Вход [1, T, F] float32, выход [1, numClasses].
type ONNXModel struct {
	config      ONNXModelConfig
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputShape  ort.Shape
	outputShape ort.Shape
	mu          sync.Mutex
}

// NewONNXModel загружает модель и создаёт сессию
func NewONNXModel(config ONNXModelConfig) (*ONNXModel, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: model file not found: %s", ErrArtifactMissing, config.ModelPath)
	}

	if err := InitONNXRuntime(config.LibraryPath); err != nil {
		return nil, err
	}

	m := &ONNXModel{config: config}
	if err := m.loadModel(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ONNXModel) loadModel() error {
	inputInfo, outputInfo, err := ort.GetInputOutputInfo(m.config.ModelPath)
	if err != nil {
		return fmt.Errorf("%w: failed to get model info: %v", ErrInvalidArtifact, err)
	}
	if len(inputInfo) != 1 || len(outputInfo) < 1 {
		return fmt.Errorf("%w: expected 1 input and at least 1 output, got %d/%d",
			ErrInvalidArtifact, len(inputInfo), len(outputInfo))
	}

	m.inputName = inputInfo[0].Name
	m.outputName = outputInfo[0].Name
	m.inputShape = inputInfo[0].Dimensions
	m.outputShape = outputInfo[0].Dimensions

	log.WithFields(log.Fields{
		"input":  m.inputName,
		"shape":  m.inputShape,
		"output": m.outputName,
		"scores": m.outputShape,
	}).Debug("onnx model info")

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if m.config.Threads > 0 {
		if err := options.SetIntraOpNumThreads(m.config.Threads); err != nil {
			return fmt.Errorf("failed to set threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		m.config.ModelPath,
		[]string{m.inputName},
		[]string{m.outputName},
		options,
	)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	m.session = session
	return nil
}

// CheckInputShape сверяет объявленную форму входа с (?, frames, width).
// Динамические измерения (<= 0) пропускаются.
func (m *ONNXModel) CheckInputShape(frames, width int) error {
	shape := m.inputShape
	if len(shape) == 0 {
		return nil
	}
	if len(shape) != 3 {
		return fmt.Errorf("%w: model input rank %d, expected 3", ErrShapeMismatch, len(shape))
	}
	if (shape[1] > 0 && shape[1] != int64(frames)) || (shape[2] > 0 && shape[2] != int64(width)) {
		return fmt.Errorf("%w: model input %v, expected [? %d %d]", ErrShapeMismatch, shape, frames, width)
	}
	return nil
}

// CheckOutputClasses сверяет число классов на выходе модели со словарём меток
func (m *ONNXModel) CheckOutputClasses(classes int) error {
	return checkOutputClasses(m.outputShape, classes)
}

func checkOutputClasses(shape ort.Shape, classes int) error {
	if len(shape) == 0 {
		return nil
	}
	if last := shape[len(shape)-1]; last > 0 && last != int64(classes) {
		return fmt.Errorf("%w: model output %v, encoder has %d classes", ErrShapeMismatch, shape, classes)
	}
	return nil
}

// Predict выполняет прямой проход
func (m *ONNXModel) Predict(batch *Batch) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, fmt.Errorf("model is closed")
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(batch.Shape...), batch.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}

	// Копируем, так как outputTensor будет уничтожен
	data := outputTensor.GetData()
	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

// Close освобождает сессию
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
