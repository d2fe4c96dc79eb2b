package ai

import (
	"math"
	"testing"
)

func sine(freq float64, sampleRate, n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestHannWindowPeriodic(t *testing.T) {
	w := hannWindow(8)
	if w[0] != 0 {
		t.Errorf("expected w[0]=0, got %f", w[0])
	}
	if math.Abs(w[4]-1) > 1e-12 {
		t.Errorf("expected peak 1 at N/2, got %f", w[4])
	}
	// периодическое окно: w[1] == w[7], последний элемент не ноль
	if math.Abs(w[1]-w[7]) > 1e-12 || w[7] == 0 {
		t.Errorf("window is not periodic: %v", w)
	}
}

func TestMelConversion(t *testing.T) {
	tests := []struct {
		hz  float64
		mel float64
	}{
		{0, 0},
		{200, 3},
		{1000, 15},
		{6400, 42},
	}
	for _, tt := range tests {
		if got := hzToMelSlaney(tt.hz); math.Abs(got-tt.mel) > 1e-9 {
			t.Errorf("hzToMel(%f): expected %f, got %f", tt.hz, tt.mel, got)
		}
		if got := melToHzSlaney(tt.mel); math.Abs(got-tt.hz) > 1e-6 {
			t.Errorf("melToHz(%f): expected %f, got %f", tt.mel, tt.hz, got)
		}
	}
}

func TestMelFilterbank(t *testing.T) {
	bank := createMelFilterbank(NFFT, NMels, SampleRate)
	if len(bank) != NMels {
		t.Fatalf("expected %d filters, got %d", NMels, len(bank))
	}
	for m, filter := range bank {
		if len(filter) != NFFT/2+1 {
			t.Fatalf("filter %d: expected %d bins, got %d", m, NFFT/2+1, len(filter))
		}
		var sum float64
		for _, v := range filter {
			if v < 0 {
				t.Fatalf("filter %d has negative weight", m)
			}
			sum += v
		}
		if sum == 0 {
			t.Errorf("filter %d is empty", m)
		}
	}
}

func TestDCTOrthonormal(t *testing.T) {
	dct := createDCTMatrix(NMFCC, NMels)
	for i := 0; i < NMFCC; i++ {
		for j := i; j < NMFCC; j++ {
			var dot float64
			for n := 0; n < NMels; n++ {
				dot += dct[i][n] * dct[j][n]
			}
			expected := 0.0
			if i == j {
				expected = 1
			}
			if math.Abs(dot-expected) > 1e-9 {
				t.Fatalf("rows %d,%d: expected %f, got %f", i, j, expected, dot)
			}
		}
	}
}

func TestPowerToDB(t *testing.T) {
	spec := [][]float64{{1, 1e-3}, {1e-20, 10}}
	db := powerToDB(spec, 80)

	if math.Abs(db[0][0]-0) > 1e-9 {
		t.Errorf("expected 0 dB, got %f", db[0][0])
	}
	if math.Abs(db[0][1]+30) > 1e-9 {
		t.Errorf("expected -30 dB, got %f", db[0][1])
	}
	// max = 10 dB, порог 10-80 = -70
	if math.Abs(db[1][0]+70) > 1e-9 {
		t.Errorf("expected clamp to -70 dB, got %f", db[1][0])
	}
}

func TestPowerSpectrogramFrames(t *testing.T) {
	samples := sine(1000, SampleRate, 22050, 0.5)
	spec := PowerSpectrogram(samples, STFTConfig{NFFT: NFFT, HopLength: HopLength, Center: true})

	if expected := 22050/HopLength + 1; len(spec) != expected {
		t.Fatalf("expected %d frames, got %d", expected, len(spec))
	}

	// пик в бине ближайшем к 1 кГц
	frame := spec[len(spec)/2]
	peak := 0
	for k := range frame {
		if frame[k] > frame[peak] {
			peak = k
		}
	}
	expectedBin := int(math.Round(1000.0 * NFFT / SampleRate))
	if peak < expectedBin-1 || peak > expectedBin+1 {
		t.Errorf("expected peak near bin %d, got %d", expectedBin, peak)
	}
}

func TestChromaA440(t *testing.T) {
	e, err := NewExtractor(DefaultFeatureConfig())
	if err != nil {
		t.Fatal(err)
	}

	samples := sine(440, SampleRate, SampleRate, 0.5)
	power := PowerSpectrogram(samples, STFTConfig{NFFT: NFFT, HopLength: HopLength, Center: true})
	chroma := e.chromaFromPower(power, 0)

	frame := chroma[len(chroma)/2]
	best := 0
	for c := range frame {
		if frame[c] > frame[best] {
			best = c
		}
	}
	// C=0, ..., A=9
	if best != 9 {
		t.Errorf("expected pitch class A (9), got %d: %v", best, frame)
	}
	if math.Abs(frame[best]-1) > 1e-9 {
		t.Errorf("expected max-normalized frame, got peak %f", frame[best])
	}
}

func TestZeroCrossingRate(t *testing.T) {
	n := 4096
	alternating := make([]float32, n)
	constant := make([]float32, n)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 0.5
		} else {
			alternating[i] = -0.5
		}
		constant[i] = 0.3
	}

	zcr := zeroCrossingRate(alternating, NFFT, HopLength)
	if len(zcr) != n/HopLength+1 {
		t.Fatalf("expected %d frames, got %d", n/HopLength+1, len(zcr))
	}
	// средний фрейм полностью внутри сигнала: 2047 смен на 2048 сэмплов
	if mid := zcr[len(zcr)/2]; math.Abs(mid-2047.0/2048.0) > 1e-12 {
		t.Errorf("expected 2047/2048, got %f", mid)
	}

	for i, v := range zeroCrossingRate(constant, NFFT, HopLength) {
		if v != 0 {
			t.Fatalf("frame %d: expected 0 for constant signal, got %f", i, v)
		}
	}
}

func TestRMSEnergy(t *testing.T) {
	n := 8192
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5
	}

	rms := rmsEnergy(samples, NFFT, HopLength)
	if len(rms) != n/HopLength+1 {
		t.Fatalf("expected %d frames, got %d", n/HopLength+1, len(rms))
	}
	if mid := rms[len(rms)/2]; math.Abs(mid-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %f", mid)
	}
	// первый фрейм наполовину в нулевом паддинге
	if first := rms[0]; math.Abs(first-0.5*math.Sqrt(0.5)) > 1e-9 {
		t.Errorf("expected %f, got %f", 0.5*math.Sqrt(0.5), first)
	}
}
