package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns the magnitudes of the real FFT of series with its
// mean removed, for frequencies 0..n/2 in units of 1/n per iterate.
func PowerSpectrum(series []float64) []float64 {
	n := len(series)
	if n == 0 {
		return nil
	}
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-floats.Sum(series)/float64(n), centered)

	coeffs := fourier.NewFFT(n).Coefficients(nil, centered)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod is n/k for the strongest non-zero frequency k, or 0 when
// the series carries no oscillation.
func DominantPeriod(series []float64) float64 {
	ps := PowerSpectrum(series)
	if len(ps) < 2 {
		return 0
	}
	k := floats.MaxIdx(ps[1:]) + 1
	if ps[k] < 1e-12*float64(len(series)) {
		return 0
	}
	return float64(len(series)) / float64(k)
}
