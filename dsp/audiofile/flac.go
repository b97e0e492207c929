package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

// DecodeFLAC decodes 16 or 24-bit FLAC data. The decoder rejects other
// sample sizes when reading the stream header.
func DecodeFLAC(data []byte) (*Audio, error) {
	dec, err := flac.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("audiofile: opening FLAC stream: %w", err)
	}

	scale, err := pcmScale(dec.BitsPerSample)
	if err != nil {
		return nil, err
	}

	numChannels := dec.NChannels
	if numChannels <= 0 {
		return nil, ErrNoAudio
	}

	bytesPerSample := dec.BitsPerSample / 8
	frameSize := bytesPerSample * numChannels

	out := &Audio{
		SampleRate: float64(dec.SampleRate),
		Channels:   make([][]float64, numChannels),
	}
	// TotalSamples comes from the header; the input size bounds the hint.
	if hint := min(dec.TotalSamples, int64(len(data))); hint > 0 {
		for ch := range out.Channels {
			out.Channels[ch] = make([]float64, 0, hint)
		}
	}

	for {
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("audiofile: decoding FLAC frame: %w", err)
		}

		for i := 0; i+frameSize <= len(frame); i += frameSize {
			for ch := range numChannels {
				s := frame[i+ch*bytesPerSample:]

				var sample int32
				switch bytesPerSample {
				case 2:
					sample = int32(int16(binary.LittleEndian.Uint16(s)))
				case 3:
					sample = int32(s[0]) | int32(s[1])<<8 | int32(s[2])<<16
					sample = sample << 8 >> 8 // sign-extend 24-bit
				}

				out.Channels[ch] = append(out.Channels[ch], float64(sample)/scale)
			}
		}
	}

	if out.Length() == 0 {
		return nil, ErrNoAudio
	}

	return out, nil
}
