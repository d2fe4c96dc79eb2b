package ai

import (
	"math"
)

// Параметры хромы librosa.filters.chroma
const (
	chromaCenterOctave = 5.0
	chromaOctaveWidth  = 2.0
)

// float32Tiny наименьшее нормальное float32, порог нормализации в librosa
const float32Tiny = 1.1754943508222875e-38

// createChromaFilterbank создаёт банк фильтров [nChroma][nFFT/2+1].
// Гауссовы фильтры вокруг каждого класса высоты, L2-нормировка по столбцам,
// октавное взвешивание вокруг C5 и сдвиг так, что первый класс это C.
func createChromaFilterbank(sampleRate, nFFT, nChroma int, tuning float64) [][]float64 {
	fn := float64(nChroma)

	// frqbins: позиция каждого FFT bin в единицах классов высоты
	a440 := 440.0 * math.Pow(2.0, tuning/fn)
	frqbins := make([]float64, nFFT)
	for k := 1; k < nFFT; k++ {
		freq := float64(k) * float64(sampleRate) / float64(nFFT)
		frqbins[k] = fn * math.Log2(freq/(a440/16))
	}
	// DC bin: полторы октавы ниже первого
	frqbins[0] = frqbins[1] - 1.5*fn

	binwidth := make([]float64, nFFT)
	for k := 0; k < nFFT-1; k++ {
		binwidth[k] = math.Max(frqbins[k+1]-frqbins[k], 1.0)
	}
	binwidth[nFFT-1] = 1

	half := math.Round(fn / 2)
	wts := make([][]float64, nChroma)
	for c := 0; c < nChroma; c++ {
		wts[c] = make([]float64, nFFT)
		for k := 0; k < nFFT; k++ {
			d := pyMod(frqbins[k]-float64(c)+half+10*fn, fn) - half
			x := 2 * d / binwidth[k]
			wts[c][k] = math.Exp(-0.5 * x * x)
		}
	}

	// L2-нормировка каждого столбца
	for k := 0; k < nFFT; k++ {
		var sum float64
		for c := 0; c < nChroma; c++ {
			sum += wts[c][k] * wts[c][k]
		}
		norm := math.Sqrt(sum)
		if norm < float32Tiny {
			continue
		}
		for c := 0; c < nChroma; c++ {
			wts[c][k] /= norm
		}
	}

	// Октавное взвешивание
	for k := 0; k < nFFT; k++ {
		x := (frqbins[k]/fn - chromaCenterOctave) / chromaOctaveWidth
		w := math.Exp(-0.5 * x * x)
		for c := 0; c < nChroma; c++ {
			wts[c][k] *= w
		}
	}

	// base_c: roll на -3 (A -> C)
	shift := 3 * (nChroma / 12)
	numBins := nFFT/2 + 1
	bank := make([][]float64, nChroma)
	for c := 0; c < nChroma; c++ {
		src := wts[(c+shift)%nChroma]
		bank[c] = make([]float64, numBins)
		copy(bank[c], src[:numBins])
	}
	return bank
}

// pyMod остаток с знаком делителя (как numpy.remainder)
func pyMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}

// chromaFromPower считает хрому для строя tuning и нормирует каждый фрейм по максимуму
func (e *Extractor) chromaFromPower(power [][]float64, tuning float64) [][]float64 {
	raw := applyFilterbank(power, e.chromaBasis(tuning))
	for _, frame := range raw {
		var peak float64
		for _, v := range frame {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		if peak < float32Tiny {
			continue
		}
		for i := range frame {
			frame[i] /= peak
		}
	}
	return raw
}
