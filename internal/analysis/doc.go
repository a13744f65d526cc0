// Package analysis characterizes orbits of discrete maps.
//
// The package includes:
//
//   - [LyapunovSpectrum]: Lyapunov exponents by QR reorthonormalization
//   - [AnalyzeFixedPoint]: Newton refinement and eigenvalue classification
//   - [BifurcationDiagram]: parameter sweep for period-doubling cascades
//   - [NewPhasePortrait]: 2D projection of an orbit
//   - [PowerSpectrum]: FFT of one coordinate series
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	spectrum, err := analysis.LyapunovSpectrum(sys, 1, x0, 100, 10000)
//	if err == nil && spectrum[0] > 0 {
//	    // orbit is chaotic
//	}
package analysis
