package plugin

import (
	"fmt"

	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/dsp/effects/reverb"
	"github.com/cwbudde/algo-irplayer/dsp/mix"
	"github.com/cwbudde/algo-irplayer/dsp/param"
	"github.com/sirupsen/logrus"
)

const (
	// Name is the processor's display name.
	Name = "IR Player"

	// TailLength is the fixed reported tail in seconds.
	TailLength = 2.0
)

// Observer receives per-block routing decisions and load failures.
// ObserveBlock runs on the audio goroutine and must not allocate or block.
type Observer interface {
	ObserveBlock(path mix.Path, numSamples int)
	ObserveLoadFailure(err error)
}

// Option configures an IRPlayer.
type Option func(*IRPlayer)

// WithEngineOptions passes options to the convolution engine.
func WithEngineOptions(opts ...reverb.EngineOption) Option {
	return func(p *IRPlayer) {
		p.engineOpts = append(p.engineOpts, opts...)
	}
}

// WithObserver installs an observer, typically a metrics recorder.
func WithObserver(o Observer) Option {
	return func(p *IRPlayer) {
		p.observer = o
	}
}

// IRPlayer convolves its input with an impulse response and blends the
// result with the dry signal according to a shared mix parameter.
//
// The IR bytes are decoded once, at the first Prepare or an earlier
// LoadImpulseResponse. A load failure is logged and reported to the
// observer; the player then passes audio through dry.
type IRPlayer struct {
	irData     []byte
	engineOpts []reverb.EngineOption

	engine   *reverb.ConvolutionEngine
	mixer    *mix.DryWetMixer
	mix      *param.MixParameter
	observer Observer

	lastPath mix.Path

	loadDone bool
	loadErr  error
}

var _ Processor = (*IRPlayer)(nil)

// NewIRPlayer returns a player for irData controlled by mixParam. A nil
// mixParam gets a private parameter at param.DefaultMix.
func NewIRPlayer(irData []byte, mixParam *param.MixParameter, opts ...Option) *IRPlayer {
	if mixParam == nil {
		mixParam = param.NewMixParameter(param.DefaultMix)
	}

	p := &IRPlayer{irData: irData, mix: mixParam}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.engine = reverb.NewConvolutionEngine(p.engineOpts...)
	p.mixer = mix.NewDryWetMixer(p.engine, p.mix)

	return p
}

// Prepare loads the IR if it is not loaded yet, then prepares the engine
// and the mixer for spec.
func (p *IRPlayer) Prepare(spec core.ProcessSpec) error {
	p.engine.Reset()

	// A load failure leaves the player on the dry path.
	_ = p.LoadImpulseResponse()

	if err := p.engine.Prepare(spec); err != nil {
		return fmt.Errorf("plugin: %w", err)
	}
	if err := p.mixer.Prepare(spec); err != nil {
		return fmt.Errorf("plugin: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "IRPlayer.Prepare",
		"spec":      spec.String(),
		"ir_loaded": p.engine.Loaded(),
		"latency":   p.LatencySamples(),
	}).Info("Prepared")

	return nil
}

// LoadImpulseResponse decodes and conditions the IR. Only the first call
// does any work; later calls return its result. Prepare calls it, so hosts
// need it only to inspect the IR before preparing.
func (p *IRPlayer) LoadImpulseResponse() error {
	if p.loadDone {
		return p.loadErr
	}
	p.loadDone = true

	if err := p.engine.Load(p.irData); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "IRPlayer.LoadImpulseResponse",
			"ir_bytes": len(p.irData),
			"error":    err.Error(),
		}).Warn("Impulse response failed to load, processing dry")

		if p.observer != nil {
			p.observer.ObserveLoadFailure(err)
		}
		p.loadErr = err
	}

	return p.loadErr
}

// Process renders one block in place.
func (p *IRPlayer) Process(block *buffer.Block, inputChannels int) {
	p.lastPath = p.mixer.Process(block, inputChannels)

	if p.observer != nil {
		p.observer.ObserveBlock(p.lastPath, block.NumSamples())
	}
}

// ReleaseResources clears the convolution tail and drops the dry buffer.
func (p *IRPlayer) ReleaseResources() {
	p.engine.Reset()
	p.mixer.Release()

	logrus.WithFields(logrus.Fields{
		"function": "IRPlayer.ReleaseResources",
	}).Debug("Released")
}

// LatencySamples returns the engine partition size.
func (p *IRPlayer) LatencySamples() int {
	return p.engine.Latency()
}

// TailLengthSeconds returns TailLength.
func (p *IRPlayer) TailLengthSeconds() float64 {
	return TailLength
}

// Name returns the display name.
func (p *IRPlayer) Name() string {
	return Name
}

// Mix returns the shared mix parameter.
func (p *IRPlayer) Mix() *param.MixParameter {
	return p.mix
}

// Loaded reports whether the wet path is available.
func (p *IRPlayer) Loaded() bool {
	return p.engine.Loaded()
}

// LastPath returns the routing chosen for the most recent block.
func (p *IRPlayer) LastPath() mix.Path {
	return p.lastPath
}

// Engine exposes the convolution engine for inspection.
func (p *IRPlayer) Engine() *reverb.ConvolutionEngine {
	return p.engine
}

// IRChannels returns the channel count of the loaded IR, or 0 when no IR
// is loaded.
func (p *IRPlayer) IRChannels() int {
	return p.engine.IRChannels()
}
