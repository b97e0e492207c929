package core

import (
	"errors"
	"fmt"
)

// Errors returned by ProcessSpec validation.
var (
	ErrInvalidSampleRate = errors.New("core: sample rate must be positive")
	ErrInvalidBlockSize  = errors.New("core: max block size must be positive")
	ErrInvalidChannels   = errors.New("core: channel count must be positive")
)

// ProcessSpec describes the processing session negotiated with a host.
// Every block handed to Process must fit inside these maxima.
type ProcessSpec struct {
	SampleRate   float64
	MaxBlockSize int
	NumChannels  int
}

// SpecOption mutates a ProcessSpec.
type SpecOption func(*ProcessSpec)

// DefaultProcessSpec returns a stereo 48 kHz session with 512-sample blocks.
func DefaultProcessSpec() ProcessSpec {
	return ProcessSpec{
		SampleRate:   48000,
		MaxBlockSize: 512,
		NumChannels:  2,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) SpecOption {
	return func(spec *ProcessSpec) {
		if sampleRate > 0 {
			spec.SampleRate = sampleRate
		}
	}
}

// WithMaxBlockSize sets the largest block the host will deliver.
func WithMaxBlockSize(blockSize int) SpecOption {
	return func(spec *ProcessSpec) {
		if blockSize > 0 {
			spec.MaxBlockSize = blockSize
		}
	}
}

// WithChannels sets the maximum channel count.
func WithChannels(channels int) SpecOption {
	return func(spec *ProcessSpec) {
		if channels > 0 {
			spec.NumChannels = channels
		}
	}
}

// ApplySpecOptions applies zero or more options to the default spec.
func ApplySpecOptions(opts ...SpecOption) ProcessSpec {
	spec := DefaultProcessSpec()
	for _, opt := range opts {
		if opt != nil {
			opt(&spec)
		}
	}
	return spec
}

// Validate reports whether s can be used to prepare a processor.
func (s ProcessSpec) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, s.SampleRate)
	}
	if s.MaxBlockSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBlockSize, s.MaxBlockSize)
	}
	if s.NumChannels <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChannels, s.NumChannels)
	}
	return nil
}

// String implements fmt.Stringer.
func (s ProcessSpec) String() string {
	return fmt.Sprintf("%.0f Hz, %d samples, %d channels", s.SampleRate, s.MaxBlockSize, s.NumChannels)
}
