package ai

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	dbAmin = 1e-10
	dbRef  = 1.0
)

// powerToDB переводит mel-спектр в децибелы (librosa.power_to_db):
// 10*log10(max(amin, S)) с порогом topDB от глобального максимума.
func powerToDB(spec [][]float64, topDB float64) [][]float64 {
	refDB := 10 * math.Log10(math.Max(dbAmin, dbRef))

	out := make([][]float64, len(spec))
	maxDB := math.Inf(-1)
	for t, frame := range spec {
		row := make([]float64, len(frame))
		for i, v := range frame {
			row[i] = 10*math.Log10(math.Max(dbAmin, v)) - refDB
		}
		if len(row) > 0 {
			maxDB = math.Max(maxDB, floats.Max(row))
		}
		out[t] = row
	}

	if topDB > 0 && !math.IsInf(maxDB, -1) {
		floor := maxDB - topDB
		for _, row := range out {
			for i, v := range row {
				if v < floor {
					row[i] = floor
				}
			}
		}
	}
	return out
}

// createDCTMatrix строит ортонормированную DCT-II [nOut][nIn]
func createDCTMatrix(nOut, nIn int) [][]float64 {
	table := make([][]float64, nOut)
	for k := 0; k < nOut; k++ {
		scale := math.Sqrt(2.0 / float64(nIn))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(nIn))
		}
		table[k] = make([]float64, nIn)
		for n := 0; n < nIn; n++ {
			table[k][n] = scale * math.Cos(math.Pi*float64(k)*(2*float64(n)+1)/(2*float64(nIn)))
		}
	}
	return table
}

// mfccFromPower считает MFCC из спектра мощности: mel -> dB -> DCT
func (e *Extractor) mfccFromPower(power [][]float64) [][]float64 {
	melSpec := applyFilterbank(power, e.melBasis)
	logMel := powerToDB(melSpec, e.config.TopDB)
	return applyFilterbank(logMel, e.dct)
}
