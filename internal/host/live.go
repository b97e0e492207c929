package host

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/dsp/param"
	"github.com/cwbudde/algo-irplayer/dsp/plugin"
	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("host: unknown audio backend")

	// ErrDeviceStopped is returned by Run when the device stops before
	// the context is cancelled, for example after a disconnect.
	ErrDeviceStopped = errors.New("host: audio device stopped")
)

const bytesPerSample = 4

// Live runs a processor on a full-duplex audio device. Input frames are
// converted to a planar block, processed in the device callback and
// written back to the output.
type Live struct {
	proc    plugin.Processor
	mix     *param.MixParameter
	spec    core.ProcessSpec
	backend string
	onMix   func(float64)

	block   *buffer.Block
	scratch []float32
}

// NewLive returns a live host for proc. Blocks larger than
// spec.MaxBlockSize are processed in several passes.
func NewLive(proc plugin.Processor, mixParam *param.MixParameter, spec core.ProcessSpec, backend string) *Live {
	return &Live{
		proc:    proc,
		mix:     mixParam,
		spec:    spec,
		backend: backend,
	}
}

// OnMix installs a hook called after each accepted control value.
func (l *Live) OnMix(fn func(float64)) {
	l.onMix = fn
}

// Prepare prepares the processor and allocates the conversion buffers.
func (l *Live) Prepare() error {
	if err := l.proc.Prepare(l.spec); err != nil {
		return fmt.Errorf("host: prepare: %w", err)
	}
	l.block = buffer.New(l.spec.NumChannels, l.spec.MaxBlockSize)
	l.scratch = make([]float32, l.spec.NumChannels*l.spec.MaxBlockSize)
	return nil
}

// renderFrames is the device data callback. out and in hold interleaved
// little-endian float32 frames with spec.NumChannels channels.
func (l *Live) renderFrames(out, in []byte, frames uint32) {
	numChannels := l.spec.NumChannels
	frameBytes := numChannels * bytesPerSample

	for done := 0; done < int(frames); {
		n := min(int(frames)-done, l.spec.MaxBlockSize)
		samples := l.scratch[:n*numChannels]

		src := in[done*frameBytes:]
		for i := range samples {
			if (i+1)*bytesPerSample > len(src) {
				samples[i] = 0
				continue
			}
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*bytesPerSample:]))
		}

		l.block.Deinterleave(samples, numChannels)
		l.proc.Process(l.block, numChannels)
		l.block.Interleave(samples)

		dst := out[done*frameBytes:]
		for i, v := range samples {
			if (i+1)*bytesPerSample > len(dst) {
				break
			}
			binary.LittleEndian.PutUint32(dst[i*bytesPerSample:], math.Float32bits(v))
		}

		done += n
	}
}

// Run opens the device, processes audio until ctx is cancelled, then
// stops the device and releases the processor. If the device stops on its
// own Run returns ErrDeviceStopped.
func (l *Live) Run(ctx context.Context) error {
	backend, err := resolveBackend(l.backend)
	if err != nil {
		return err
	}

	if err := l.Prepare(); err != nil {
		return err
	}
	defer l.proc.ReleaseResources()

	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		logrus.WithFields(logrus.Fields{
			"function": "Run",
		}).Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return fmt.Errorf("host: init audio context: %w", err)
	}
	defer func() { _ = malgoCtx.Uninit() }()

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(l.spec.NumChannels)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(l.spec.NumChannels)
	cfg.SampleRate = uint32(l.spec.SampleRate)
	cfg.PeriodSizeInFrames = uint32(l.spec.MaxBlockSize)
	cfg.Alsa.NoMMap = 1

	stopped := make(chan struct{}, 1)
	callbacks := malgo.DeviceCallbacks{
		Data: l.renderFrames,
		Stop: func() {
			select {
			case stopped <- struct{}{}:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("host: init device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("host: start device: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Run",
		"backend":     l.backend,
		"sample_rate": l.spec.SampleRate,
		"channels":    l.spec.NumChannels,
		"period":      l.spec.MaxBlockSize,
		"latency":     l.proc.LatencySamples(),
	}).Info("Audio device started")

	if err := waitDevice(ctx, stopped); err != nil {
		return err
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("host: stop device: %w", err)
	}

	return nil
}

// waitDevice blocks until ctx is cancelled, returning nil, or until the
// device reports a stop, returning ErrDeviceStopped.
func waitDevice(ctx context.Context, stopped <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return nil
	case <-stopped:
		logrus.WithFields(logrus.Fields{
			"function": "Run",
		}).Warn("Audio device stopped unexpectedly")
		return ErrDeviceStopped
	}
}

// ControlLoop reads one mix value per line from r and writes it to the
// mix parameter. It returns nil at EOF or when ctx is cancelled.
// Unparseable lines are logged and skipped.
func (l *Live) ControlLoop(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			l.applyControl(line)
		}
	}
}

func (l *Live) applyControl(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	v, err := strconv.ParseFloat(line, 64)
	if err != nil || math.IsNaN(v) {
		logrus.WithFields(logrus.Fields{
			"function": "ControlLoop",
			"input":    line,
		}).Warn("Ignoring invalid mix value")
		return
	}

	l.mix.Set(v)
	if l.onMix != nil {
		l.onMix(l.mix.Load())
	}
}

func resolveBackend(name string) (malgo.Backend, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		switch runtime.GOOS {
		case "linux":
			return malgo.BackendAlsa, nil
		case "windows":
			return malgo.BackendWasapi, nil
		case "darwin":
			return malgo.BackendCoreaudio, nil
		}
		return malgo.BackendNull, nil
	case "alsa":
		return malgo.BackendAlsa, nil
	case "pulse", "pulseaudio":
		return malgo.BackendPulseaudio, nil
	case "jack":
		return malgo.BackendJack, nil
	case "wasapi":
		return malgo.BackendWasapi, nil
	case "coreaudio":
		return malgo.BackendCoreaudio, nil
	case "null":
		return malgo.BackendNull, nil
	}
	return malgo.BackendNull, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}
