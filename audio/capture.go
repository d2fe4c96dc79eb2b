package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	log "github.com/sirupsen/logrus"

	"voicemood/media"
)

// AudioDevice представляет устройство захвата
type AudioDevice struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	IsDefault bool   `json:"isDefault" yaml:"is_default"`
}

// LevelCallback получает RMS уровень каждого принятого блока
type LevelCallback func(level float64)

// Recorder записывает моно сигнал с микрофона через malgo
type Recorder struct {
	ctx        *malgo.AllocatedContext
	sampleRate int
	deviceID   *malgo.DeviceID
	mu         sync.Mutex

	OnLevel LevelCallback
}

// NewRecorder инициализирует аудио контекст
func NewRecorder(sampleRate int) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	return &Recorder{ctx: ctx, sampleRate: sampleRate}, nil
}

// ListDevices возвращает список устройств захвата
func (r *Recorder) ListDevices() ([]AudioDevice, error) {
	captureDevices, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]AudioDevice, 0, len(captureDevices))
	for _, dev := range captureDevices {
		devices = append(devices, AudioDevice{
			ID:        deviceIDToString(dev.ID),
			Name:      dev.Name(),
			IsDefault: dev.IsDefault != 0,
		})
	}
	return devices, nil
}

// SetDevice выбирает устройство по имени (частичное совпадение).
// Пустое имя или "default" = устройство по умолчанию.
func (r *Recorder) SetDevice(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || name == "default" {
		r.deviceID = nil
		return nil
	}

	devices, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	nameLower := strings.ToLower(name)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name()), nameLower) {
			id := dev.ID
			r.deviceID = &id
			log.WithField("device", dev.Name()).Info("capture device selected")
			return nil
		}
	}
	return fmt.Errorf("device not found: %s", name)
}

// Record записывает duration секунд (или до отмены ctx) и возвращает сигнал
func (r *Recorder) Record(ctx context.Context, duration time.Duration) (*media.Waveform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := int(duration.Seconds() * float64(r.sampleRate))
	if want <= 0 {
		return nil, fmt.Errorf("invalid duration: %v", duration)
	}
	buf := newCollector(want, r.OnLevel)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(r.sampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if r.deviceID != nil {
		deviceConfig.Capture.DeviceID = r.deviceID.Pointer()
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if len(pInputSamples) != int(framecount)*4 {
			return
		}
		buf.add(decodeF32LE(pInputSamples))
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}
	log.WithField("duration", duration).Info("microphone capture started")

	select {
	case <-buf.done:
	case <-ctx.Done():
	}
	device.Stop()

	samples := buf.samples()
	log.WithField("samples", len(samples)).Info("microphone capture stopped")
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio captured")
	}
	return &media.Waveform{Samples: samples, SampleRate: r.sampleRate}, nil
}

// Close освобождает ресурсы
func (r *Recorder) Close() {
	if r.ctx != nil {
		r.ctx.Uninit()
		r.ctx.Free()
		r.ctx = nil
	}
}

// collector копит сэмплы до нужного количества и закрывает done
type collector struct {
	mu      sync.Mutex
	buf     []float32
	want    int
	done    chan struct{}
	closed  bool
	onLevel LevelCallback
}

func newCollector(want int, onLevel LevelCallback) *collector {
	return &collector{
		buf:     make([]float32, 0, want),
		want:    want,
		done:    make(chan struct{}),
		onLevel: onLevel,
	}
}

func (c *collector) add(samples []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	room := c.want - len(c.buf)
	if len(samples) > room {
		samples = samples[:room]
	}
	c.buf = append(c.buf, samples...)
	if c.onLevel != nil {
		c.onLevel(rms(samples))
	}
	if len(c.buf) >= c.want {
		c.closed = true
		close(c.done)
	}
}

func (c *collector) samples() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float32, len(c.buf))
	copy(out, c.buf)
	return out
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func decodeF32LE(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}

// Вспомогательные функции для конвертации DeviceID
func deviceIDToString(id malgo.DeviceID) string {
	var result strings.Builder
	for _, b := range id[:32] {
		if b == 0 {
			break
		}
		result.WriteByte(b)
	}
	return result.String()
}
