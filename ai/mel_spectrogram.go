package ai

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// STFTConfig параметры кратковременного преобразования Фурье
type STFTConfig struct {
	NFFT      int
	HopLength int
	Center    bool // true = фреймы центрированы, края дополняются нулями (librosa default)
}

// PowerSpectrogram вычисляет |STFT|^2, результат [numFrames][NFFT/2+1].
// Окно Ханна периодическое, длина окна равна NFFT.
func PowerSpectrogram(samples []float32, cfg STFTConfig) [][]float64 {
	nfft := cfg.NFFT
	hop := cfg.HopLength

	var numFrames int
	if cfg.Center {
		// center=true: 1 + len/hop фреймов
		numFrames = len(samples)/hop + 1
	} else if len(samples) >= nfft {
		numFrames = (len(samples)-nfft)/hop + 1
	}

	window := hannWindow(nfft)
	// FFT держит рабочие буферы, поэтому отдельный экземпляр на вызов
	fft := fourier.NewFFT(nfft)
	frameData := make([]float64, nfft)
	coeffs := make([]complex128, nfft/2+1)

	spec := make([][]float64, numFrames)
	for frame := 0; frame < numFrames; frame++ {
		frameStart := frame * hop
		if cfg.Center {
			frameStart -= nfft / 2
		}

		// Извлекаем фрейм, вне сигнала нули (pad_mode=constant)
		for i := 0; i < nfft; i++ {
			idx := frameStart + i
			if idx >= 0 && idx < len(samples) {
				frameData[i] = float64(samples[idx]) * window[i]
			} else {
				frameData[i] = 0
			}
		}

		coeffs = fft.Coefficients(coeffs, frameData)

		power := make([]float64, nfft/2+1)
		for i := range power {
			re := real(coeffs[i])
			im := imag(coeffs[i])
			power[i] = re*re + im*im
		}
		spec[frame] = power
	}

	return spec
}

// applyFilterbank проецирует каждый фрейм спектра на строки банка фильтров
func applyFilterbank(spec [][]float64, bank [][]float64) [][]float64 {
	out := make([][]float64, len(spec))
	for t, frame := range spec {
		row := make([]float64, len(bank))
		for m, filter := range bank {
			row[m] = floats.Dot(filter, frame)
		}
		out[t] = row
	}
	return out
}

// Slaney mel scale: линейная до 1 кГц, логарифмическая выше
const (
	slaneyFSp       = 200.0 / 3
	slaneyMinLogHz  = 1000.0
	slaneyMinLogMel = slaneyMinLogHz / slaneyFSp
)

var slaneyLogStep = math.Log(6.4) / 27.0

func hzToMelSlaney(hz float64) float64 {
	if hz >= slaneyMinLogHz {
		return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
	}
	return hz / slaneyFSp
}

func melToHzSlaney(mel float64) float64 {
	if mel >= slaneyMinLogMel {
		return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
	}
	return mel * slaneyFSp
}

// createMelFilterbank создаёт mel-фильтры [nMels][nFFT/2+1].
// Шкала Slaney, треугольники нормированы по площади (norm="slaney"),
// fmin=0, fmax=sampleRate/2 как в librosa.filters.mel.
func createMelFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	numBins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2.0

	// Частоты для каждого FFT bin
	allFreqs := make([]float64, numBins)
	for i := 0; i < numBins; i++ {
		allFreqs[i] = float64(i) * float64(sampleRate) / float64(nFFT)
	}

	// Mel points (nMels + 2 точек: left edge, centers, right edge)
	mMin := hzToMelSlaney(0)
	mMax := hzToMelSlaney(fMax)
	fPts := make([]float64, nMels+2)
	for i := 0; i < nMels+2; i++ {
		mel := mMin + float64(i)*(mMax-mMin)/float64(nMels+1)
		fPts[i] = melToHzSlaney(mel)
	}

	fDiff := make([]float64, nMels+1)
	for i := 0; i < nMels+1; i++ {
		fDiff[i] = fPts[i+1] - fPts[i]
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, numBins)
		enorm := 2.0 / (fPts[m+2] - fPts[m])

		for k := 0; k < numBins; k++ {
			freq := allFreqs[k]
			lower := (freq - fPts[m]) / fDiff[m]
			upper := (fPts[m+2] - freq) / fDiff[m+1]

			val := math.Min(lower, upper)
			if val < 0 {
				val = 0
			}
			filters[m][k] = val * enorm
		}
	}

	return filters
}

// hannWindow создаёт периодическое окно Ханна (scipy fftbins=True)
func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return window
}
