package ir

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-irplayer/dsp/audiofile"
)

// Errors returned by the analyzer.
var (
	ErrEmptyIR           = errors.New("ir: impulse response is empty")
	ErrInvalidSampleRate = errors.New("ir: sample rate must be positive")
	ErrNoDecay           = errors.New("ir: insufficient decay for RT calculation")
)

// schroederFloorDB is reported where no energy remains.
const schroederFloorDB = -200.0

// Metrics holds room acoustic parameters of one IR channel.
type Metrics struct {
	RT60       float64 // seconds, from T30, falling back to T20
	EDT        float64 // seconds, 0 to -10 dB slope
	T20        float64 // seconds, -5 to -25 dB slope
	T30        float64 // seconds, -5 to -35 dB slope
	C80        float64 // dB
	D50        float64 // ratio 0..1
	CenterTime float64 // seconds
	PeakIndex  int
}

// Analyzer computes IR metrics at a fixed sample rate.
type Analyzer struct {
	SampleRate float64
}

// NewAnalyzer returns an analyzer for sampleRate.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{SampleRate: sampleRate}
}

// Analyze computes metrics for ir, measured from its absolute peak.
func (a *Analyzer) Analyze(ir []float64) (Metrics, error) {
	if len(ir) == 0 {
		return Metrics{}, ErrEmptyIR
	}
	if a.SampleRate <= 0 {
		return Metrics{}, ErrInvalidSampleRate
	}

	peak := peakIndex(ir)
	d := newDecay(ir[peak:])
	if d.total <= 0 {
		return Metrics{PeakIndex: peak}, nil
	}

	m := Metrics{
		PeakIndex:  peak,
		EDT:        a.reverbTime(d.curve, 0, -10),
		T20:        a.reverbTime(d.curve, -5, -25),
		T30:        a.reverbTime(d.curve, -5, -35),
		C80:        d.clarity(a.samples(80)),
		D50:        d.definition(a.samples(50)),
		CenterTime: d.centroid / d.total / a.SampleRate,
	}

	m.RT60 = m.T30
	if m.RT60 == 0 {
		m.RT60 = m.T20
	}

	return m, nil
}

// AnalyzeAudio analyses every channel of a.
func AnalyzeAudio(a *audiofile.Audio) ([]Metrics, error) {
	if a == nil || a.Length() == 0 {
		return nil, ErrEmptyIR
	}

	an := NewAnalyzer(a.SampleRate)
	out := make([]Metrics, a.NumChannels())
	for ch, samples := range a.Channels {
		m, err := an.Analyze(samples)
		if err != nil {
			return nil, fmt.Errorf("ir: channel %d: %w", ch, err)
		}
		out[ch] = m
	}

	return out, nil
}

// RT60 returns the reverberation time of ir or ErrNoDecay when neither T30
// nor T20 can be fitted.
func (a *Analyzer) RT60(ir []float64) (float64, error) {
	m, err := a.Analyze(ir)
	if err != nil {
		return 0, err
	}
	if m.RT60 <= 0 {
		return 0, ErrNoDecay
	}
	return m.RT60, nil
}

// SchroederIntegral returns the backward-integrated energy decay curve of
// ir in dB relative to the total energy.
func (a *Analyzer) SchroederIntegral(ir []float64) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}
	return newDecay(ir).curve, nil
}

func (a *Analyzer) samples(ms float64) int {
	return int(math.Round(ms * 0.001 * a.SampleRate))
}

// decay holds the energy bookkeeping shared by all metrics.
type decay struct {
	remaining []float64 // energy from index i to the end
	curve     []float64 // remaining in dB re total
	total     float64
	centroid  float64 // sum of i*h[i]^2
}

func newDecay(ir []float64) decay {
	d := decay{
		remaining: make([]float64, len(ir)),
		curve:     make([]float64, len(ir)),
	}

	for i := len(ir) - 1; i >= 0; i-- {
		e := ir[i] * ir[i]
		d.total += e
		d.centroid += float64(i) * e
		d.remaining[i] = d.total
	}

	for i, r := range d.remaining {
		switch {
		case d.total <= 0:
			d.curve[i] = 0
		case r <= 0:
			d.curve[i] = schroederFloorDB
		default:
			d.curve[i] = 10 * math.Log10(r/d.total)
		}
	}

	return d
}

// early returns the energy before sample n.
func (d decay) early(n int) float64 {
	if n >= len(d.remaining) {
		return d.total
	}
	return d.total - d.remaining[n]
}

func (d decay) definition(n int) float64 {
	if n <= 0 {
		return 0
	}
	return d.early(n) / d.total
}

func (d decay) clarity(n int) float64 {
	early := d.early(max(n, 0))
	late := d.total - early
	switch {
	case early <= 0:
		return math.Inf(-1)
	case late <= 0:
		return math.Inf(1)
	default:
		return 10 * math.Log10(early/late)
	}
}

// reverbTime fits a line to curve between startDB and endDB and
// extrapolates it to -60 dB. It returns 0 when the range is not reached.
func (a *Analyzer) reverbTime(curve []float64, startDB, endDB float64) float64 {
	start, end := -1, -1
	for i, v := range curve {
		if start < 0 && v <= startDB {
			start = i
		}
		if start >= 0 && v <= endDB {
			end = i
			break
		}
	}
	if start < 0 || end <= start {
		return 0
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start + 1)
	for i := start; i <= end; i++ {
		x := float64(i - start)
		sx += x
		sy += curve[i]
		sxx += x * x
		sxy += x * curve[i]
	}

	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}

	slope := (n*sxy - sx*sy) / den // dB per sample
	if slope >= 0 {
		return 0
	}

	return -60 / (slope * a.SampleRate)
}

func peakIndex(ir []float64) int {
	idx, peak := 0, 0.0
	for i, v := range ir {
		if av := math.Abs(v); av > peak {
			idx, peak = i, av
		}
	}
	return idx
}
