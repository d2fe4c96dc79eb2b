package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Reader читает MP3 файлы используя чистый Go (без FFmpeg)
type MP3Reader struct {
	decoder    *mp3.Decoder
	file       *os.File
	sampleRate int
	length     int64 // длина в байтах (signed 16-bit PCM, стерео)
}

// NewMP3Reader открывает MP3 файл для чтения
func NewMP3Reader(filePath string) (*MP3Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open MP3 file: %v", ErrDecode, err)
	}

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: failed to create MP3 decoder: %v", ErrDecode, err)
	}

	return &MP3Reader{
		decoder:    decoder,
		file:       file,
		sampleRate: decoder.SampleRate(),
		length:     decoder.Length(),
	}, nil
}

// SampleRate возвращает частоту дискретизации
func (r *MP3Reader) SampleRate() int {
	return r.sampleRate
}

// ReadAllMono читает весь файл и возвращает моно (среднее каналов).
// go-mp3 всегда отдаёт 16-bit стерео, 4 байта на фрейм.
func (r *MP3Reader) ReadAllMono() ([]float32, error) {
	size := r.length
	if size < 0 {
		// длина неизвестна (поток без seek)
		data, err := io.ReadAll(r.decoder)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read PCM data: %v", ErrDecode, err)
		}
		return pcm16StereoToMono(data), nil
	}

	pcmData := make([]byte, size)
	n, err := io.ReadFull(r.decoder, pcmData)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: failed to read PCM data: %v", ErrDecode, err)
	}
	return pcm16StereoToMono(pcmData[:n]), nil
}

// Close закрывает файл
func (r *MP3Reader) Close() error {
	return r.file.Close()
}

func pcm16StereoToMono(pcm []byte) []float32 {
	numFrames := len(pcm) / 4
	mono := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		mono[i] = (float32(left)/32768.0 + float32(right)/32768.0) / 2.0
	}
	return mono
}

// DecodeMP3 декодирует MP3 в моно сигнал с исходной частотой
func DecodeMP3(path string) (*Waveform, error) {
	reader, err := NewMP3Reader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	samples, err := reader.ReadAllMono()
	if err != nil {
		return nil, err
	}
	return &Waveform{Samples: samples, SampleRate: reader.SampleRate()}, nil
}
