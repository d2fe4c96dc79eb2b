package media

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM код формата PCM в заголовке WAV
const wavFormatPCM = 1

// ReadWAV декодирует WAV файл в моно сигнал с исходной частотой
func ReadWAV(path string) (*Waveform, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open file: %v", ErrDecode, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file: %s", ErrDecode, path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: could not read PCM buffer: %v", ErrDecode, err)
	}

	channels := int(decoder.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: WAV without channels: %s", ErrDecode, path)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = int(buf.SourceBitDepth)
	}

	interleaved := intsToFloat32(buf.Data, bitDepth)
	return &Waveform{
		Samples:    Downmix(interleaved, channels),
		SampleRate: int(decoder.SampleRate),
	}, nil
}

// intsToFloat32 нормализует целые PCM сэмплы в [-1, 1].
// 8-bit WAV беззнаковый, остальные знаковые.
func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	if bitDepth == 8 {
		for i, v := range data {
			out[i] = float32(v-128) / 128.0
		}
		return out
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << uint(bitDepth-1))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}

// WriteWAV записывает моно сигнал как 16-bit PCM WAV
func WriteWAV(path string, w *Waveform) error {
	if w == nil || w.SampleRate <= 0 {
		return fmt.Errorf("invalid waveform")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output file creation error: %w", err)
	}

	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		data[i] = int(toInt16(s))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	encoder := wav.NewEncoder(file, w.SampleRate, 16, 1, wavFormatPCM)
	if err := encoder.Write(buf); err != nil {
		encoder.Close()
		file.Close()
		return fmt.Errorf("data writing error: %w", err)
	}
	// Close дописывает размеры в заголовок
	if err := encoder.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return file.Close()
}
