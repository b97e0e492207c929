package audiofile

import (
	"bytes"
	"errors"
	"fmt"
)

// Errors returned by the decoders.
var (
	ErrEmptyInput        = errors.New("audiofile: empty input")
	ErrUnknownFormat     = errors.New("audiofile: unknown container format")
	ErrUnsupportedFormat = errors.New("audiofile: unsupported sample format")
	ErrNoAudio           = errors.New("audiofile: no audio data")
)

// Audio is decoded planar audio. Channels[ch][i] is sample i of channel ch,
// normalised to [-1, 1).
type Audio struct {
	Name       string
	SampleRate float64
	Channels   [][]float64
}

// NumChannels returns the number of channels.
func (a *Audio) NumChannels() int {
	return len(a.Channels)
}

// Length returns the number of samples per channel.
func (a *Audio) Length() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Duration returns the length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Length()) / a.SampleRate
}

// Format identifies a container.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatFLAC
	FormatIRLib
)

// String returns a short lowercase name.
func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatFLAC:
		return "flac"
	case FormatIRLib:
		return "irlib"
	default:
		return "unknown"
	}
}

// Sniff detects the container format from the leading magic bytes.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte(irlibMagic)):
		return FormatIRLib
	default:
		return FormatUnknown
	}
}

// Decode decodes WAV, FLAC or IRLB data. For IR libraries the first entry
// is returned.
func Decode(data []byte) (*Audio, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	switch f := Sniff(data); f {
	case FormatWAV:
		return DecodeWAV(data)
	case FormatFLAC:
		return DecodeFLAC(data)
	case FormatIRLib:
		return DecodeIRLib(data, "")
	default:
		head := data[:min(len(data), 4)]
		return nil, fmt.Errorf("%w: leading bytes %q", ErrUnknownFormat, head)
	}
}

// pcmScale returns the full-scale divisor for signed integer PCM.
func pcmScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return float64(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, bitDepth)
	}
}
