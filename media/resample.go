package media

import (
	"fmt"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
	"gonum.org/v1/gonum/floats"
)

// minResamplePad нижняя граница нулевого поля вокруг сигнала (во входных сэмплах)
const minResamplePad = 2048

// resampleOffsets кэш сдвига выхода для пары частот
var resampleOffsets sync.Map

type ratePair struct{ src, dst int }

// Resample меняет частоту дискретизации моно сигнала (SoX-подобный
// полифазный фильтр, качество High). Выход выровнен так, что сэмпл i
// выхода соответствует моменту i/dstRate, длина ceil(n*dst/src).
func Resample(samples []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	offset, err := resampleOffset(srcRate, dstRate)
	if err != nil {
		return nil, err
	}

	pad := resamplePad(srcRate)
	input := make([]float64, pad+len(samples)+pad)
	for i, s := range samples {
		input[pad+i] = float64(s)
	}

	output, err := runResampler(input, srcRate, dstRate)
	if err != nil {
		return nil, err
	}

	expected := int((int64(len(samples))*int64(dstRate) + int64(srcRate) - 1) / int64(srcRate))
	out := make([]float32, expected)
	for i := range out {
		if j := offset + i; j < len(output) {
			out[i] = float32(output[j])
		}
	}
	return out, nil
}

func resamplePad(srcRate int) int {
	return max(srcRate/10, minResamplePad)
}

// runResampler прогоняет весь сигнал и сбрасывает хвост фильтра
func runResampler(input []float64, srcRate, dstRate int) ([]float64, error) {
	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	output, err := resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := resampler.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}
	return append(output, tail...), nil
}

// resampleOffset индекс выходного сэмпла, в который попадает первый
// сэмпл сигнала после нулевого поля. Фильтр начинает с пустой истории,
// поэтому сдвиг меряется по импульсу, а не берётся из GetLatency.
func resampleOffset(srcRate, dstRate int) (int, error) {
	key := ratePair{srcRate, dstRate}
	if v, ok := resampleOffsets.Load(key); ok {
		return v.(int), nil
	}

	pad := resamplePad(srcRate)
	impulse := make([]float64, 2*pad)
	impulse[pad] = 1

	output, err := runResampler(impulse, srcRate, dstRate)
	if err != nil {
		return 0, err
	}
	if len(output) == 0 {
		return 0, fmt.Errorf("resampler produced no output for %d -> %d", srcRate, dstRate)
	}

	offset := floats.MaxIdx(output)
	resampleOffsets.Store(key, offset)
	return offset, nil
}
