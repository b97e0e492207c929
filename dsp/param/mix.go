package param

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-irplayer/dsp/core"
)

// DefaultMix is the value a MixParameter starts with when none is given.
const DefaultMix = 1.0

// MixParameter is a single-producer/single-consumer dry/wet control cell.
//
// The control goroutine calls Set at arbitrary times; the audio goroutine
// calls Load once per block. The value is stored as float64 bits in one
// atomic word, so neither side ever blocks.
type MixParameter struct {
	bits atomic.Uint64
}

// NewMixParameter returns a cell holding initial, clamped to [0, 1].
// NaN falls back to DefaultMix.
func NewMixParameter(initial float64) *MixParameter {
	p := &MixParameter{}
	if math.IsNaN(initial) {
		initial = DefaultMix
	}
	p.Set(initial)
	return p
}

// Set stores v clamped to [0, 1]. NaN is ignored.
func (p *MixParameter) Set(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = core.Clamp(v, 0, 1)
	p.bits.Store(math.Float64bits(v))
}

// Load returns the current value. A zero MixParameter reads as 0 (dry).
func (p *MixParameter) Load() float64 {
	return math.Float64frombits(p.bits.Load())
}
