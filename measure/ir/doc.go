// Package ir derives room acoustic parameters (ISO 3382 style) from an
// impulse response through its Schroeder energy decay curve:
//
//   - RT60, T20, T30: reverberation time from the decay slope
//   - EDT: early decay time (0 to -10 dB)
//   - C80: clarity, early-to-late energy at 80 ms
//   - D50: definition, early energy fraction at 50 ms
//   - CenterTime: energy centroid
//
// Usage:
//
//	m, err := ir.NewAnalyzer(48000).Analyze(samples)
//	fmt.Printf("RT60 = %.2f s, C80 = %.1f dB\n", m.RT60, m.C80)
package ir
