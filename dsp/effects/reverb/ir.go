package reverb

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-irplayer/dsp/audiofile"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// TrimThresholdDB is the level below which leading and trailing IR
	// samples are removed.
	TrimThresholdDB = -80.0

	// normalizeTarget is the channel energy target, as a square root.
	normalizeTarget = 0.125
)

// ErrSilentImpulseResponse is returned when no IR sample exceeds the trim
// threshold.
var ErrSilentImpulseResponse = errors.New("reverb: impulse response is silent")

// TrimImpulseResponse returns views of channels with leading and trailing
// samples below thresholdDB removed. The cut points are shared by all
// channels so their relative timing is kept.
func TrimImpulseResponse(channels [][]float64, thresholdDB float64) ([][]float64, error) {
	threshold := core.DBToLinear(thresholdDB)

	first, last := math.MaxInt, -1
	for _, samples := range channels {
		for i, v := range samples {
			if math.Abs(v) > threshold {
				first = min(first, i)
				break
			}
		}
		for i := len(samples) - 1; i >= 0; i-- {
			if math.Abs(samples[i]) > threshold {
				last = max(last, i)
				break
			}
		}
	}

	if last < 0 {
		return nil, ErrSilentImpulseResponse
	}

	out := make([][]float64, len(channels))
	for ch, samples := range channels {
		out[ch] = samples[first : last+1]
	}

	return out, nil
}

// NormalizeImpulseResponse scales all channels in place by one common gain
// so the loudest channel has energy normalizeTarget².
func NormalizeImpulseResponse(channels [][]float64) {
	maxEnergy := 0.0
	for _, samples := range channels {
		maxEnergy = math.Max(maxEnergy, core.Energy(samples))
	}
	if maxEnergy == 0 {
		return
	}

	gain := normalizeTarget / math.Sqrt(maxEnergy)
	for _, samples := range channels {
		vecmath.ScaleBlock(samples, samples, gain)
	}
}

// conditionImpulseResponse copies ir and applies the enabled conditioning
// steps.
func conditionImpulseResponse(ir *audiofile.Audio, trim, normalize bool) ([][]float64, error) {
	channels := ir.Channels
	if trim {
		var err error
		if channels, err = TrimImpulseResponse(channels, TrimThresholdDB); err != nil {
			return nil, err
		}
	}

	out := make([][]float64, len(channels))
	for ch, samples := range channels {
		out[ch] = append([]float64(nil), samples...)
	}

	if normalize {
		NormalizeImpulseResponse(out)
	}

	return out, nil
}
