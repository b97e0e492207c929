package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// cbSize, valid bits, channel mask and the SubFormat GUID follow the
	// 16 byte base fmt body.
	wavExtensibleFmtSize = 40
)

// ksDataFormatTail is the part of a KSDATAFORMAT_SUBTYPE_* GUID after its
// leading format code.
var ksDataFormatTail = []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

// DecodeWAV decodes 16, 24 or 32-bit integer PCM WAV data, including
// WAVE_FORMAT_EXTENSIBLE files with a PCM sub-format.
func DecodeWAV(data []byte) (*Audio, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	dec.ReadInfo()

	if !dec.IsValidFile() {
		return nil, errors.New("audiofile: invalid WAV file")
	}
	switch dec.WavAudioFormat {
	case wavFormatPCM:
	case wavFormatExtensible:
		sub, ok := extensibleSubFormat(data)
		if !ok {
			return nil, fmt.Errorf("%w: WAV extensible header without a sub-format", ErrUnsupportedFormat)
		}
		if sub != wavFormatPCM {
			return nil, fmt.Errorf("%w: WAV extensible sub-format %d", ErrUnsupportedFormat, sub)
		}
	default:
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	scale, err := pcmScale(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audiofile: reading WAV samples: %w", err)
	}

	numChannels := int(dec.NumChans)
	if numChannels == 0 || len(buf.Data) < numChannels {
		return nil, ErrNoAudio
	}

	frames := len(buf.Data) / numChannels
	out := &Audio{
		SampleRate: float64(dec.SampleRate),
		Channels:   make([][]float64, numChannels),
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, frames)
	}
	for i := range frames * numChannels {
		out.Channels[i%numChannels][i/numChannels] = float64(buf.Data[i]) / scale
	}

	return out, nil
}

// extensibleSubFormat returns the format code carried by the SubFormat GUID
// of the first fmt chunk. The wav decoder skips these bytes, so the RIFF
// chunk list is walked directly.
func extensibleSubFormat(data []byte) (uint16, bool) {
	const riffHeaderSize = 12

	for pos := uint64(riffHeaderSize); pos+8 <= uint64(len(data)); {
		id := string(data[pos : pos+4])
		size := uint64(binary.LittleEndian.Uint32(data[pos+4:]))
		body := data[pos+8:]

		if id == "fmt " {
			if size < wavExtensibleFmtSize || len(body) < wavExtensibleFmtSize {
				return 0, false
			}
			if !bytes.Equal(body[26:wavExtensibleFmtSize], ksDataFormatTail) {
				return 0, false
			}
			return binary.LittleEndian.Uint16(body[24:]), true
		}

		pos += 8 + size + size&1
	}

	return 0, false
}

// EncodeWAV writes a as integer PCM with the given bit depth (16, 24 or
// 32). Samples outside [-1, 1] are clipped.
func EncodeWAV(w io.WriteSeeker, a *Audio, bitDepth int) error {
	scale, err := pcmScale(bitDepth)
	if err != nil {
		return err
	}
	if a.NumChannels() == 0 {
		return ErrNoAudio
	}

	numChannels := a.NumChannels()
	frames := a.Length()
	data := make([]int, frames*numChannels)
	peak := scale - 1

	for i := range frames {
		for ch := range numChannels {
			v := math.Round(a.Channels[ch][i] * scale)
			data[i*numChannels+ch] = int(math.Max(-scale, math.Min(peak, v)))
		}
	}

	rate := int(math.Round(a.SampleRate))
	enc := wav.NewEncoder(w, rate, bitDepth, numChannels, wavFormatPCM)

	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: numChannels},
		SourceBitDepth: bitDepth,
	})
	if err != nil {
		return fmt.Errorf("audiofile: writing WAV samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("audiofile: finalising WAV: %w", err)
	}

	return nil
}
