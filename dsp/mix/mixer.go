package mix

import (
	"fmt"

	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/dsp/param"
	"github.com/cwbudde/algo-vecmath"
)

// Hard routing thresholds, evaluated independently for every block.
const (
	FullyDryThreshold = 0.01
	FullyWetThreshold = 0.99
)

// Path is the routing chosen for one block.
type Path int

const (
	PathDry Path = iota
	PathWet
	PathBlend
)

// String returns the path name used in logs and metric labels.
func (p Path) String() string {
	switch p {
	case PathDry:
		return "dry"
	case PathWet:
		return "wet"
	case PathBlend:
		return "blend"
	default:
		return fmt.Sprintf("Path(%d)", int(p))
	}
}

// Classify maps a mix value to its routing path.
func Classify(mix float64) Path {
	switch {
	case mix < FullyDryThreshold:
		return PathDry
	case mix > FullyWetThreshold:
		return PathWet
	default:
		return PathBlend
	}
}

// WetProcessor produces the wet signal in place.
type WetProcessor interface {
	Process(block *buffer.Block)
	Loaded() bool
}

// DryWetMixer routes each block through the wet processor, around it, or
// both with a linear crossfade, depending on the shared mix value.
//
// Process reads the mix once per block. It does not allocate, block or
// lock; all scratch memory is allocated in Prepare.
type DryWetMixer struct {
	wet WetProcessor
	mix *param.MixParameter

	dry  *buffer.Block
	view buffer.Block
	spec core.ProcessSpec
}

// NewDryWetMixer returns a mixer reading mix and feeding wet.
func NewDryWetMixer(wet WetProcessor, mix *param.MixParameter) *DryWetMixer {
	if wet == nil {
		panic("mix: nil wet processor")
	}
	if mix == nil {
		panic("mix: nil mix parameter")
	}

	return &DryWetMixer{wet: wet, mix: mix}
}

// Prepare allocates the dry buffer for spec. Calling it again replaces the
// buffer.
func (m *DryWetMixer) Prepare(spec core.ProcessSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("mix: prepare: %w", err)
	}

	m.spec = spec
	m.dry = buffer.New(spec.NumChannels, spec.MaxBlockSize)

	return nil
}

// Release drops the dry buffer. Prepare must be called before the next
// Process.
func (m *DryWetMixer) Release() {
	m.dry = nil
}

// Prepared reports whether Process may be called.
func (m *DryWetMixer) Prepared() bool {
	return m.dry != nil
}

// Process mixes block in place. Channels at index inputChannels and above
// carry no input and are cleared. It returns the path taken.
//
// Calling Process before Prepare, or with more input channels or samples
// than prepared, panics.
func (m *DryWetMixer) Process(block *buffer.Block, inputChannels int) Path {
	if m.dry == nil {
		panic("mix: process called before prepare")
	}

	inputChannels = max(0, min(inputChannels, block.NumChannels()))
	for ch := inputChannels; ch < block.NumChannels(); ch++ {
		block.ClearChannel(ch)
	}

	if inputChannels > m.spec.NumChannels || block.NumSamples() > m.spec.MaxBlockSize {
		panic(fmt.Sprintf("mix: block %dx%d exceeds prepared %dx%d",
			inputChannels, block.NumSamples(), m.spec.NumChannels, m.spec.MaxBlockSize))
	}

	mix := m.mix.Load()
	path := Classify(mix)
	if path == PathDry || inputChannels == 0 || !m.wet.Loaded() {
		return PathDry
	}

	m.view.Alias(block, inputChannels)

	if path == PathWet {
		m.wet.Process(&m.view)
		return PathWet
	}

	m.dry.CopyFrom(&m.view)
	m.wet.Process(&m.view)

	// mix*wet + (1-mix)*dry as (wet + dry*(1-mix)/mix) * mix; mix >= FullyDryThreshold here.
	dryGain := (1 - mix) / mix
	for ch := range inputChannels {
		wet := m.view.Channel(ch)
		dry := m.dry.Channel(ch)
		vecmath.ScaleBlockInPlace(dry, dryGain)
		vecmath.AddMulBlock(wet, wet, dry, mix)
	}

	return PathBlend
}
