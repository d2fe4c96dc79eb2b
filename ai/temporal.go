package ai

import (
	"math"
)

// zcrThreshold значения по модулю не больше порога считаются нулём
const zcrThreshold = 1e-10

// frameCount количество фреймов при center=true
func frameCount(n, hop int) int {
	return n/hop + 1
}

// zeroCrossingRate доля смен знака в каждом фрейме.
// Края дополняются крайними значениями (mode="edge"), ноль считается
// положительным, делится на длину фрейма.
func zeroCrossingRate(samples []float32, frameLength, hop int) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}
	half := frameLength / 2
	at := func(i int) bool {
		idx := i - half
		if idx < 0 {
			idx = 0
		} else if idx >= n {
			idx = n - 1
		}
		v := float64(samples[idx])
		if math.Abs(v) <= zcrThreshold {
			return false
		}
		return v < 0
	}

	numFrames := frameCount(n, hop)
	out := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		start := f * hop
		crossings := 0
		prev := at(start)
		for i := 1; i < frameLength; i++ {
			cur := at(start + i)
			if cur != prev {
				crossings++
			}
			prev = cur
		}
		out[f] = float64(crossings) / float64(frameLength)
	}
	return out
}

// rmsEnergy среднеквадратичная амплитуда фрейма, края дополнены нулями
func rmsEnergy(samples []float32, frameLength, hop int) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}
	half := frameLength / 2

	numFrames := frameCount(n, hop)
	out := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		start := f*hop - half
		var sum float64
		for i := 0; i < frameLength; i++ {
			idx := start + i
			if idx >= 0 && idx < n {
				v := float64(samples[idx])
				sum += v * v
			}
		}
		out[f] = math.Sqrt(sum / float64(frameLength))
	}
	return out
}
