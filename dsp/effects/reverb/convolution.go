package reverb

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-irplayer/dsp/audiofile"
	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/conv"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/sirupsen/logrus"
)

// DefaultPartitionSize is the FFT partition size and reported latency.
const DefaultPartitionSize = 1024

// ErrEmptyImpulseResponse is returned by Load for nil or empty input.
var ErrEmptyImpulseResponse = errors.New("reverb: empty impulse response")

// EngineOption configures a ConvolutionEngine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	partitionSize int
	trim          bool
	normalize     bool
}

// WithPartitionSize sets the partition size. Values that are not a power
// of two >= 2 are ignored.
func WithPartitionSize(n int) EngineOption {
	return func(cfg *engineConfig) {
		if n >= 2 && n&(n-1) == 0 {
			cfg.partitionSize = n
		}
	}
}

// WithTrim enables or disables removal of near-silent IR edges.
func WithTrim(enabled bool) EngineOption {
	return func(cfg *engineConfig) {
		cfg.trim = enabled
	}
}

// WithNormalize enables or disables IR energy normalisation.
func WithNormalize(enabled bool) EngineOption {
	return func(cfg *engineConfig) {
		cfg.normalize = enabled
	}
}

// ConvolutionEngine convolves multichannel blocks with a loaded impulse
// response, in place and without allocating.
//
// Processing channel c uses IR channel c % IRChannels(), so a mono IR is
// applied to every channel and a stereo IR maps left to left and right to
// right. Until an IR has been loaded Process leaves blocks untouched.
//
// The engine itself adds no algorithmic delay; Latency reports the
// partition size as the fixed value hosts compensate for.
type ConvolutionEngine struct {
	cfg engineConfig

	kernels    [][]float64
	sampleRate float64

	convs    []*conv.UniformPartitioned
	spec     core.ProcessSpec
	prepared bool
}

// NewConvolutionEngine returns an unloaded engine. Trim and normalisation
// are enabled by default.
func NewConvolutionEngine(opts ...EngineOption) *ConvolutionEngine {
	cfg := engineConfig{
		partitionSize: DefaultPartitionSize,
		trim:          true,
		normalize:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &ConvolutionEngine{cfg: cfg}
}

// Load decodes ir (WAV, FLAC or IRLB) and installs it. On failure the
// previously loaded IR, if any, stays active.
func (e *ConvolutionEngine) Load(ir []byte) error {
	if len(ir) == 0 {
		return ErrEmptyImpulseResponse
	}

	decoded, err := audiofile.Decode(ir)
	if err != nil {
		return fmt.Errorf("reverb: decoding impulse response: %w", err)
	}

	return e.LoadAudio(decoded)
}

// LoadAudio installs an already decoded IR. The samples are copied.
func (e *ConvolutionEngine) LoadAudio(ir *audiofile.Audio) error {
	if ir == nil || ir.NumChannels() == 0 || ir.Length() == 0 {
		return ErrEmptyImpulseResponse
	}

	kernels, err := conditionImpulseResponse(ir, e.cfg.trim, e.cfg.normalize)
	if err != nil {
		return err
	}

	e.kernels = kernels
	e.sampleRate = ir.SampleRate

	logrus.WithFields(logrus.Fields{
		"function":    "ConvolutionEngine.LoadAudio",
		"name":        ir.Name,
		"channels":    len(kernels),
		"length":      len(kernels[0]),
		"source_len":  ir.Length(),
		"sample_rate": ir.SampleRate,
	}).Info("Impulse response loaded")

	if e.prepared {
		return e.Prepare(e.spec)
	}

	return nil
}

// Prepare allocates one convolver per channel of spec and clears all
// history. It must be called before Process and whenever the block size or
// channel count changes.
func (e *ConvolutionEngine) Prepare(spec core.ProcessSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("reverb: prepare: %w", err)
	}

	e.spec = spec
	e.convs = e.convs[:0]

	if e.Loaded() {
		for ch := range spec.NumChannels {
			c, err := conv.NewUniformPartitioned(e.kernels[ch%len(e.kernels)], e.cfg.partitionSize)
			if err != nil {
				e.prepared = false
				return fmt.Errorf("reverb: prepare channel %d: %w", ch, err)
			}
			e.convs = append(e.convs, c)
		}
	}

	e.prepared = true

	logrus.WithFields(logrus.Fields{
		"function": "ConvolutionEngine.Prepare",
		"spec":     spec.String(),
		"loaded":   e.Loaded(),
		"latency":  e.Latency(),
	}).Debug("Convolution engine prepared")

	return nil
}

// Process replaces block with the wet signal. Blocks larger than the
// prepared spec are a programming error and panic.
func (e *ConvolutionEngine) Process(block *buffer.Block) {
	if !e.prepared {
		panic("reverb: process called before prepare")
	}
	if block.NumChannels() > e.spec.NumChannels || block.NumSamples() > e.spec.MaxBlockSize {
		panic(fmt.Sprintf("reverb: block %dx%d exceeds prepared %dx%d",
			block.NumChannels(), block.NumSamples(), e.spec.NumChannels, e.spec.MaxBlockSize))
	}
	if len(e.convs) == 0 {
		return
	}

	for ch := range block.NumChannels() {
		samples := block.Channel(ch)
		if err := e.convs[ch].ProcessBlock(samples, samples); err != nil {
			panic(err)
		}
	}
}

// Reset clears convolution history. The loaded IR is kept.
func (e *ConvolutionEngine) Reset() {
	for _, c := range e.convs {
		c.Reset()
	}
}

// Latency returns the reported latency in samples, the partition size.
func (e *ConvolutionEngine) Latency() int {
	return e.cfg.partitionSize
}

// Loaded reports whether an impulse response is installed.
func (e *ConvolutionEngine) Loaded() bool {
	return len(e.kernels) > 0
}

// IRChannels returns the number of IR channels, 0 when unloaded.
func (e *ConvolutionEngine) IRChannels() int {
	return len(e.kernels)
}

// IRLength returns the conditioned IR length in samples.
func (e *ConvolutionEngine) IRLength() int {
	if len(e.kernels) == 0 {
		return 0
	}
	return len(e.kernels[0])
}

// IRSampleRate returns the sample rate the IR was recorded at.
func (e *ConvolutionEngine) IRSampleRate() float64 {
	return e.sampleRate
}

// Kernel returns the conditioned IR for channel ch. The slice must not be
// modified.
func (e *ConvolutionEngine) Kernel(ch int) []float64 {
	if len(e.kernels) == 0 {
		return nil
	}
	return e.kernels[ch%len(e.kernels)]
}
