package host

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/algo-irplayer/dsp/audiofile"
	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/dsp/param"
	"github.com/cwbudde/algo-irplayer/dsp/plugin"
	"github.com/sirupsen/logrus"
)

// ErrEmptyInput is returned when Render receives no audio.
var ErrEmptyInput = errors.New("host: empty input")

// OfflineOption configures an Offline renderer.
type OfflineOption func(*Offline)

// WithBlockSizes sets the repeating block-size schedule.
func WithBlockSizes(sizes ...int) OfflineOption {
	return func(o *Offline) {
		if len(sizes) > 0 {
			o.blockSizes = slices.Clone(sizes)
		}
	}
}

// WithAutomation applies a mix envelope at block boundaries.
func WithAutomation(a Automation) OfflineOption {
	return func(o *Offline) {
		o.automation = a
	}
}

// WithTail appends the processor's tail after the input.
func WithTail(enabled bool) OfflineOption {
	return func(o *Offline) {
		o.tail = enabled
	}
}

// WithOutputChannels sets the output channel count. Channels beyond the
// input's are rendered from the processor with no input signal.
func WithOutputChannels(n int) OfflineOption {
	return func(o *Offline) {
		o.outputChannels = n
	}
}

// WithMixHook is called with every mix value written by the automation.
func WithMixHook(fn func(float64)) OfflineOption {
	return func(o *Offline) {
		o.onMix = fn
	}
}

// Offline renders decoded audio through a processor in blocks, acting as
// both the audio and the control thread.
type Offline struct {
	proc plugin.Processor
	mix  *param.MixParameter

	blockSizes     []int
	automation     Automation
	tail           bool
	outputChannels int
	onMix          func(float64)
}

// NewOffline returns a renderer for proc. mixParam is the parameter the
// automation writes to and may be nil when no automation is used.
func NewOffline(proc plugin.Processor, mixParam *param.MixParameter, opts ...OfflineOption) *Offline {
	o := &Offline{
		proc:       proc,
		mix:        mixParam,
		blockSizes: []int{512},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Render processes in and returns the rendered audio. The processor is
// prepared at the input's sample rate and released afterwards.
func (o *Offline) Render(ctx context.Context, in *audiofile.Audio) (*audiofile.Audio, error) {
	if in == nil || in.NumChannels() == 0 || in.Length() == 0 {
		return nil, ErrEmptyInput
	}

	inChannels := in.NumChannels()
	outChannels := max(o.outputChannels, inChannels)

	spec := core.ProcessSpec{
		SampleRate:   in.SampleRate,
		MaxBlockSize: slices.Max(o.blockSizes),
		NumChannels:  outChannels,
	}
	if err := o.proc.Prepare(spec); err != nil {
		return nil, fmt.Errorf("host: prepare: %w", err)
	}
	defer o.proc.ReleaseResources()

	inLen := in.Length()
	total := inLen
	if o.tail {
		total += int(math.Ceil(o.proc.TailLengthSeconds() * in.SampleRate))
	}

	out := &audiofile.Audio{
		Name:       in.Name,
		SampleRate: in.SampleRate,
		Channels:   make([][]float64, outChannels),
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, total)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Render",
		"samples":  total,
		"channels": outChannels,
		"blocks":   o.blockSizes,
	}).Debug("Rendering offline")

	block := buffer.New(outChannels, spec.MaxBlockSize)

	for pos, i := 0, 0; pos < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := min(o.blockSizes[i%len(o.blockSizes)], total-pos)
		block.SetSize(outChannels, n)

		for ch := range outChannels {
			dst := block.Channel(ch)
			clear(dst)
			if ch < inChannels && pos < inLen {
				copy(dst, in.Channels[ch][pos:min(pos+n, inLen)])
			}
		}

		o.applyAutomation(float64(pos) / in.SampleRate)
		o.proc.Process(block, inChannels)

		for ch := range outChannels {
			copy(out.Channels[ch][pos:pos+n], block.Channel(ch))
		}
		pos += n
	}

	return out, nil
}

func (o *Offline) applyAutomation(t float64) {
	if o.mix == nil {
		return
	}
	v, ok := o.automation.At(t)
	if !ok {
		return
	}
	o.mix.Set(v)
	if o.onMix != nil {
		o.onMix(o.mix.Load())
	}
}
