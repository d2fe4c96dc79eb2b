package ai

import (
	"math"
	"sort"
)

// Параметры piptrack и pitch_tuning (librosa defaults)
const (
	pitchFMin        = 150.0
	pitchFMax        = 4000.0
	pitchThreshold   = 0.1
	tuningResolution = 0.01
)

// piptrack находит спектральные пики в каждом фрейме и уточняет их
// параболической интерполяцией. Возвращает частоты и амплитуды пиков.
// Пиком считается локальный максимум выше pitchThreshold от максимума
// фрейма в диапазоне [pitchFMin, pitchFMax).
func piptrack(spec [][]float64, sampleRate, nFFT int) (pitches, mags []float64) {
	fMax := math.Min(pitchFMax, float64(sampleRate)/2)
	binHz := float64(sampleRate) / float64(nFFT)

	for _, frame := range spec {
		n := len(frame)
		if n < 3 {
			continue
		}
		var peak float64
		for _, v := range frame {
			peak = math.Max(peak, math.Abs(v))
		}
		ref := pitchThreshold * peak
		gated := func(k int) float64 {
			if v := math.Abs(frame[k]); v > ref {
				return v
			}
			return 0
		}

		for k := 1; k < n-1; k++ {
			freq := float64(k) * binHz
			if freq < pitchFMin || freq >= fMax {
				continue
			}
			cur := gated(k)
			if !(cur > gated(k-1) && cur >= gated(k+1)) {
				continue
			}

			prev, s, next := math.Abs(frame[k-1]), math.Abs(frame[k]), math.Abs(frame[k+1])
			a := next + prev - 2*s
			b := (next - prev) / 2
			var shift float64
			if math.Abs(b) < math.Abs(a) {
				shift = -b / a
			}

			pitches = append(pitches, (float64(k)+shift)*binHz)
			mags = append(mags, s+0.5*b*shift)
		}
	}
	return pitches, mags
}

// estimateTuning оценивает отклонение строя от A440 в долях класса высоты
// по спектру мощности (librosa.estimate_tuning): берутся пики не слабее
// медианной амплитуды, результат в [-0.5, 0.5) с шагом tuningResolution.
func estimateTuning(spec [][]float64, sampleRate, nFFT, binsPerOctave int) float64 {
	pitches, mags := piptrack(spec, sampleRate, nFFT)
	if len(pitches) == 0 {
		return 0
	}

	threshold := median(mags)
	selected := make([]float64, 0, len(pitches))
	for i, p := range pitches {
		if mags[i] >= threshold {
			selected = append(selected, p)
		}
	}
	return pitchTuning(selected, tuningResolution, binsPerOctave)
}

// pitchTuning строит гистограмму дробных отклонений частот от ближайшего
// класса высоты и возвращает левую границу самого частого интервала
func pitchTuning(frequencies []float64, resolution float64, binsPerOctave int) float64 {
	nBins := int(math.Ceil(1.0 / resolution))
	edges := make([]float64, nBins+1)
	step := 1.0 / float64(nBins)
	for i := range edges {
		edges[i] = float64(i)*step - 0.5
	}
	edges[nBins] = 0.5

	counts := make([]int, nBins)
	seen := false
	for _, f := range frequencies {
		if f <= 0 {
			continue
		}
		octs := math.Log2(f / (440.0 / 16))
		residual := pyMod(float64(binsPerOctave)*octs, 1.0)
		if residual >= 0.5 {
			residual -= 1.0
		}
		if residual < edges[0] || residual > edges[nBins] {
			continue
		}

		idx := int(math.Floor((residual - edges[0]) * float64(nBins)))
		idx = min(max(idx, 0), nBins-1)
		if residual < edges[idx] && idx > 0 {
			idx--
		} else if idx < nBins-1 && residual >= edges[idx+1] {
			idx++
		}
		counts[idx]++
		seen = true
	}
	if !seen {
		return 0
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return edges[best]
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
