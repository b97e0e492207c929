package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-irplayer/dsp/audiofile"
	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/dsp/param"
	"github.com/cwbudde/algo-irplayer/internal/testutil"
	"github.com/stretchr/testify/require"
)

// gainProcessor multiplies every input channel by the current mix and
// records what the host asked of it.
type gainProcessor struct {
	mix *param.MixParameter

	spec       core.ProcessSpec
	prepared   int
	released   int
	blockSizes []int
	inputs     []int
	gains      []float64
}

func newGainProcessor(mix *param.MixParameter) *gainProcessor {
	return &gainProcessor{mix: mix}
}

func (g *gainProcessor) Prepare(spec core.ProcessSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	g.spec = spec
	g.prepared++
	return nil
}

func (g *gainProcessor) Process(block *buffer.Block, inputChannels int) {
	gain := g.mix.Load()
	g.blockSizes = append(g.blockSizes, block.NumSamples())
	g.inputs = append(g.inputs, inputChannels)
	g.gains = append(g.gains, gain)

	for ch := range block.NumChannels() {
		samples := block.Channel(ch)
		if ch >= inputChannels {
			clear(samples)
			continue
		}
		for i := range samples {
			samples[i] *= gain
		}
	}
}

func (g *gainProcessor) ReleaseResources()          { g.released++ }
func (g *gainProcessor) LatencySamples() int        { return 0 }
func (g *gainProcessor) TailLengthSeconds() float64 { return 0.01 }

func irWAV(t *testing.T, channels int) []byte {
	t.Helper()

	ir := &audiofile.Audio{
		SampleRate: 8000,
		Channels:   testutil.SyntheticIR(channels, 4000, 8000, 0.4, 5),
	}

	path := filepath.Join(t.TempDir(), "ir.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, audiofile.EncodeWAV(f, ir, 24))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

type passthrough struct{}

func (passthrough) Prepare(core.ProcessSpec) error { return nil }
func (passthrough) Process(*buffer.Block, int)     {}
func (passthrough) ReleaseResources()              {}
func (passthrough) LatencySamples() int            { return 0 }
func (passthrough) TailLengthSeconds() float64     { return 0 }
