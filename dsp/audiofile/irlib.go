package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// IR library (IRLB) container layout, little endian:
//
//	header  "IRLB" version:u16 count:u32 indexOffset:u64
//	chunk   "IR--" size:u64 { "META" size:u32 meta | "AUDI" size:u32 f16... }
//	index   "INDX" size:u64 { offset:u64 rate:f64 channels:u32 length:u32 name category }
//
// Strings are u16 length-prefixed UTF-8. AUDI holds interleaved
// half-precision samples.
const (
	irlibMagic   = "IRLB"
	irlibVersion = 1

	chunkIR    = "IR--"
	chunkIndex = "INDX"
	chunkMeta  = "META"
	chunkAudio = "AUDI"

	// offset, rate, channels, length and two empty strings
	minIndexEntrySize = 8 + 8 + 4 + 4 + 2 + 2
)

// ErrIRNotFound is returned when a named entry is not in the library.
var ErrIRNotFound = errors.New("audiofile: impulse response not found in library")

// LibraryEntry is the index record of one IR in an IRLB library.
type LibraryEntry struct {
	Name       string
	Category   string
	SampleRate float64
	Channels   int
	Length     int

	offset uint64
}

// LibraryIR is an IR to be written with EncodeIRLib.
type LibraryIR struct {
	Audio
	Category    string
	Description string
	Tags        []string
}

// leReader reads little-endian values and keeps the first error.
type leReader struct {
	r   *bytes.Reader
	err error
}

func (lr *leReader) read(what string, v any) {
	if lr.err != nil {
		return
	}
	if err := binary.Read(lr.r, binary.LittleEndian, v); err != nil {
		lr.err = fmt.Errorf("audiofile: irlib %s: %w", what, err)
	}
}

func (lr *leReader) tag(what string) string {
	var b [4]byte
	lr.read(what, &b)
	return string(b[:])
}

func (lr *leReader) str(what string) string {
	var n uint16
	lr.read(what+" length", &n)
	if lr.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(lr.r, b); err != nil {
		lr.err = fmt.Errorf("audiofile: irlib %s: %w", what, err)
		return ""
	}
	return string(b)
}

func (lr *leReader) seek(off int64, whence int) {
	if lr.err != nil {
		return
	}
	if _, err := lr.r.Seek(off, whence); err != nil {
		lr.err = fmt.Errorf("audiofile: irlib seek: %w", err)
	}
}

// ListIRLib returns the index of an IRLB library without decoding audio.
func ListIRLib(data []byte) ([]LibraryEntry, error) {
	lr := &leReader{r: bytes.NewReader(data)}

	if magic := lr.tag("magic"); lr.err == nil && magic != irlibMagic {
		return nil, fmt.Errorf("%w: irlib magic %q", ErrUnknownFormat, magic)
	}

	var (
		version     uint16
		count       uint32
		indexOffset uint64
	)
	lr.read("version", &version)
	lr.read("count", &count)
	lr.read("index offset", &indexOffset)
	if lr.err != nil {
		return nil, lr.err
	}
	if version != irlibVersion {
		return nil, fmt.Errorf("%w: irlib version %d", ErrUnsupportedFormat, version)
	}

	lr.seek(int64(indexOffset), io.SeekStart)
	if id := lr.tag("index id"); lr.err == nil && id != chunkIndex {
		return nil, fmt.Errorf("audiofile: irlib expected %s chunk, got %q", chunkIndex, id)
	}

	var size uint64
	lr.read("index size", &size)
	if lr.err != nil {
		return nil, lr.err
	}
	remaining := uint64(lr.r.Len())
	if size > remaining {
		return nil, fmt.Errorf("audiofile: irlib index size %d exceeds %d remaining bytes: %w",
			size, remaining, io.ErrUnexpectedEOF)
	}

	end := int64(len(data)) - int64(lr.r.Len()) + int64(size)
	entries := make([]LibraryEntry, 0, min(uint64(count), size/minIndexEntrySize))

	for lr.err == nil && int64(len(data))-int64(lr.r.Len()) < end {
		var (
			e        LibraryEntry
			channels uint32
			length   uint32
		)
		lr.read("entry offset", &e.offset)
		lr.read("entry sample rate", &e.SampleRate)
		lr.read("entry channels", &channels)
		lr.read("entry length", &length)
		e.Name = lr.str("entry name")
		e.Category = lr.str("entry category")
		e.Channels = int(channels)
		e.Length = int(length)

		if lr.err == nil {
			entries = append(entries, e)
		}
	}

	if lr.err != nil {
		return nil, lr.err
	}

	return entries, nil
}

// DecodeIRLib decodes the IR called name from an IRLB library. An empty
// name selects the first entry.
func DecodeIRLib(data []byte, name string) (*Audio, error) {
	entries, err := ListIRLib(data)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoAudio
	}

	idx := -1
	for i, e := range entries {
		if name == "" || e.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrIRNotFound, name)
	}

	return decodeIRChunk(data, entries[idx])
}

func decodeIRChunk(data []byte, entry LibraryEntry) (*Audio, error) {
	lr := &leReader{r: bytes.NewReader(data)}
	lr.seek(int64(entry.offset), io.SeekStart)

	if id := lr.tag("chunk id"); lr.err == nil && id != chunkIR {
		return nil, fmt.Errorf("audiofile: irlib expected %s at offset %d, got %q", chunkIR, entry.offset, id)
	}

	var size uint64
	lr.read("chunk size", &size)

	out := &Audio{Name: entry.Name, SampleRate: entry.SampleRate}
	channels := entry.Channels

	var consumed uint64
	for lr.err == nil && consumed < size {
		id := lr.tag("sub-chunk id")

		var subSize uint32
		lr.read("sub-chunk size", &subSize)
		if lr.err != nil {
			break
		}
		if int64(subSize) > int64(lr.r.Len()) {
			return nil, fmt.Errorf("audiofile: irlib %s size %d exceeds %d remaining bytes: %w",
				id, subSize, lr.r.Len(), io.ErrUnexpectedEOF)
		}

		switch id {
		case chunkMeta:
			var ch, length uint32
			lr.read("meta sample rate", &out.SampleRate)
			lr.read("meta channels", &ch)
			lr.read("meta length", &length)
			out.Name = lr.str("meta name")
			lr.str("meta description")
			lr.str("meta category")

			var tags uint16
			lr.read("meta tag count", &tags)
			for range tags {
				lr.str("meta tag")
			}
			channels = int(ch)

		case chunkAudio:
			raw := make([]byte, subSize)
			if _, err := io.ReadFull(lr.r, raw); err != nil {
				return nil, fmt.Errorf("audiofile: irlib audio data: %w", err)
			}
			if channels <= 0 || channels > len(raw)/2 {
				return nil, fmt.Errorf("audiofile: irlib %q has %d channels for %d audio bytes", entry.Name, channels, len(raw))
			}
			out.Channels = deinterleaveF16(raw, channels)

		default:
			lr.seek(int64(subSize), io.SeekCurrent)
		}

		consumed += 8 + uint64(subSize)
	}

	if lr.err != nil {
		return nil, lr.err
	}
	if out.Length() == 0 {
		return nil, fmt.Errorf("%w: irlib entry %q", ErrNoAudio, entry.Name)
	}

	return out, nil
}

func deinterleaveF16(raw []byte, channels int) [][]float64 {
	frames := len(raw) / 2 / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := range frames * channels {
		h := binary.LittleEndian.Uint16(raw[2*i:])
		out[i%channels][i/channels] = float64(f16ToFloat32(h))
	}
	return out
}

// EncodeIRLib writes irs as an IRLB library.
func EncodeIRLib(w io.Writer, irs []LibraryIR) error {
	var body bytes.Buffer
	offsets := make([]uint64, len(irs))

	const headerSize = 18
	for i := range irs {
		ir := &irs[i]
		if ir.NumChannels() == 0 {
			return fmt.Errorf("%w: library entry %d", ErrNoAudio, i)
		}
		offsets[i] = uint64(headerSize + body.Len())

		var meta bytes.Buffer
		writeLE(&meta, ir.SampleRate, uint32(ir.NumChannels()), uint32(ir.Length()))
		writeStrings(&meta, ir.Name, ir.Description, ir.Category)
		writeLE(&meta, uint16(len(ir.Tags)))
		writeStrings(&meta, ir.Tags...)

		audio := make([]byte, 0, 2*ir.NumChannels()*ir.Length())
		for n := range ir.Length() {
			for ch := range ir.NumChannels() {
				audio = binary.LittleEndian.AppendUint16(audio, float32ToF16(float32(ir.Channels[ch][n])))
			}
		}

		body.WriteString(chunkIR)
		writeLE(&body, uint64(8+meta.Len()+8+len(audio)))
		body.WriteString(chunkMeta)
		writeLE(&body, uint32(meta.Len()))
		body.Write(meta.Bytes())
		body.WriteString(chunkAudio)
		writeLE(&body, uint32(len(audio)))
		body.Write(audio)
	}

	var index bytes.Buffer
	for i := range irs {
		ir := &irs[i]
		writeLE(&index, offsets[i], ir.SampleRate, uint32(ir.NumChannels()), uint32(ir.Length()))
		writeStrings(&index, ir.Name, ir.Category)
	}

	var out bytes.Buffer
	out.WriteString(irlibMagic)
	writeLE(&out, uint16(irlibVersion), uint32(len(irs)), uint64(headerSize+body.Len()))
	out.Write(body.Bytes())
	out.WriteString(chunkIndex)
	writeLE(&out, uint64(index.Len()))
	out.Write(index.Bytes())

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("audiofile: writing irlib: %w", err)
	}

	return nil
}

// writeLE writes fixed-size values to an in-memory buffer, which cannot fail.
func writeLE(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
}

func writeStrings(buf *bytes.Buffer, values ...string) {
	for _, s := range values {
		writeLE(buf, uint16(len(s)))
		buf.WriteString(s)
	}
}

// f16ToFloat32 converts an IEEE 754 binary16 value to float32.
func f16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch {
	case exp == 0 && frac == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal: value = frac * 2^-24
		v := float32(frac) * (1.0 / (1 << 24))
		if sign != 0 {
			v = -v
		}
		return v
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | frac<<13)
	}
}

// float32ToF16 converts f to IEEE 754 binary16 with round-to-nearest.
// Values beyond the half range saturate to infinity.
func float32ToF16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case bits&0x7fffffff == 0:
		return sign
	case bits>>23&0xff == 0xff:
		if frac != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		m := frac | 0x800000
		shift := uint32(14 - exp)
		half := uint16(m >> shift)
		if m>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(frac>>13)
		if frac&0x1000 != 0 {
			half++
		}
		return half
	}
}
