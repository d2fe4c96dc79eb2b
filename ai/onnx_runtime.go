package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxInitMu      sync.Mutex
	onnxInitialized bool
)

// onnxLibraryNames имена разделяемой библиотеки ONNX Runtime по платформам
func onnxLibraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libonnxruntime.dylib"}
	case "windows":
		return []string{"onnxruntime.dll"}
	default:
		return []string{"libonnxruntime.so", "libonnxruntime.so.1"}
	}
}

// findONNXRuntime ищет библиотеку: явный путь, переменная окружения,
// рядом с исполняемым файлом, текущая директория, lib/
func findONNXRuntime(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); env != "" {
		return env
	}

	var dirs []string
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	dirs = append(dirs, ".", "lib", "/usr/local/lib", "/usr/lib")

	for _, dir := range dirs {
		for _, name := range onnxLibraryNames() {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// InitONNXRuntime инициализирует окружение ONNX Runtime один раз на процесс
func InitONNXRuntime(libPath string) error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	libPath = findONNXRuntime(libPath)
	if libPath == "" {
		return fmt.Errorf("ONNX Runtime library not found, set ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}

	log.WithField("path", libPath).Debug("using ONNX Runtime library")
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	onnxInitialized = true
	log.Info("ONNX Runtime initialized")
	return nil
}

// ShutdownONNXRuntime освобождает окружение ONNX Runtime
func ShutdownONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if !onnxInitialized {
		return nil
	}
	onnxInitialized = false
	return ort.DestroyEnvironment()
}
