package ai

import "errors"

var (
	// ErrShapeMismatch тензор не совпадает с ожидаемой формой (…, 300, 54)
	ErrShapeMismatch = errors.New("feature shape mismatch")
	// ErrModelExecution ошибка прямого прохода модели
	ErrModelExecution = errors.New("model execution failed")
	// ErrUnknownIndex индекс класса вне словаря энкодера меток
	ErrUnknownIndex = errors.New("label index out of range")
	// ErrArtifactMissing файл модели, скейлера или энкодера не найден
	ErrArtifactMissing = errors.New("artifact not found")
	// ErrInvalidArtifact файл артефакта не разобран или несовместим
	ErrInvalidArtifact = errors.New("invalid artifact")
)
