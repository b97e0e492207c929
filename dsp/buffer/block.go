package buffer

import "fmt"

// Block is a planar multichannel sample buffer. Storage is allocated once
// up to a channel/sample capacity; the active size can then be changed
// with SetSize without allocating, which makes a Block usable inside an
// audio callback.
type Block struct {
	data       [][]float64 // full-capacity storage, one slice per channel
	channels   [][]float64 // active view, len = NumChannels
	numSamples int
	maxSamples int
	view       bool
}

// New returns a zero-filled Block with the given capacity. The active size
// equals the capacity.
func New(numChannels, numSamples int) *Block {
	numChannels = max(numChannels, 0)
	numSamples = max(numSamples, 0)

	data := make([][]float64, numChannels)
	for ch := range data {
		data[ch] = make([]float64, numSamples)
	}

	b := &Block{
		data:       data,
		channels:   make([][]float64, numChannels),
		maxSamples: numSamples,
	}
	b.SetSize(numChannels, numSamples)
	return b
}

// FromChannels wraps existing per-channel slices without copying.
// All channels must have the same length.
func FromChannels(channels [][]float64) *Block {
	numSamples := 0
	if len(channels) > 0 {
		numSamples = len(channels[0])
	}
	for ch, samples := range channels {
		if len(samples) != numSamples {
			panic(fmt.Sprintf("buffer: channel %d has %d samples, want %d", ch, len(samples), numSamples))
		}
	}

	b := &Block{
		data:       channels,
		channels:   make([][]float64, len(channels)),
		maxSamples: numSamples,
	}
	b.SetSize(len(channels), numSamples)
	return b
}

// NumChannels returns the active channel count.
func (b *Block) NumChannels() int {
	return len(b.channels)
}

// NumSamples returns the active number of samples per channel.
func (b *Block) NumSamples() int {
	return b.numSamples
}

// MaxChannels returns the channel capacity.
func (b *Block) MaxChannels() int {
	return len(b.data)
}

// MaxSamples returns the per-channel sample capacity.
func (b *Block) MaxSamples() int {
	return b.maxSamples
}

// Channel returns the active samples of channel ch.
func (b *Block) Channel(ch int) []float64 {
	return b.channels[ch]
}

// Channels returns the active channel slices. The returned slice must not
// be retained across SetSize calls.
func (b *Block) Channels() [][]float64 {
	return b.channels
}

// SetSize changes the active dimensions within the allocated capacity.
// It never allocates and panics when the request exceeds the capacity.
func (b *Block) SetSize(numChannels, numSamples int) {
	if b.view {
		panic("buffer: cannot resize an aliased block")
	}
	if numChannels < 0 || numChannels > b.MaxChannels() {
		panic(fmt.Sprintf("buffer: %d channels exceeds capacity %d", numChannels, b.MaxChannels()))
	}
	if numSamples < 0 || numSamples > b.MaxSamples() {
		panic(fmt.Sprintf("buffer: %d samples exceeds capacity %d", numSamples, b.MaxSamples()))
	}

	b.channels = b.channels[:numChannels]
	for ch := range b.channels {
		b.channels[ch] = b.data[ch][:numSamples]
	}
	b.numSamples = numSamples
}

// Alias points b at the first numChannels channels of src without copying.
// Writes through b are visible in src. An aliased block cannot be resized.
func (b *Block) Alias(src *Block, numChannels int) {
	if numChannels < 0 || numChannels > src.NumChannels() {
		panic(fmt.Sprintf("buffer: alias of %d channels, source has %d", numChannels, src.NumChannels()))
	}

	b.data = src.data
	b.channels = src.channels[:numChannels]
	b.numSamples = src.numSamples
	b.maxSamples = src.maxSamples
	b.view = true
}

// Clear zeroes all active samples.
func (b *Block) Clear() {
	for _, samples := range b.channels {
		clear(samples)
	}
}

// ClearChannel zeroes the active samples of channel ch.
func (b *Block) ClearChannel(ch int) {
	clear(b.channels[ch])
}

// CopyFrom resizes b to the dimensions of src and deep-copies its samples.
// It panics if src does not fit in b's capacity.
func (b *Block) CopyFrom(src *Block) {
	b.SetSize(src.NumChannels(), src.NumSamples())
	for ch, samples := range src.channels {
		copy(b.channels[ch], samples)
	}
}

// Deinterleave resizes b to numChannels x len(src)/numChannels and fills it
// from interleaved float32 frames.
func (b *Block) Deinterleave(src []float32, numChannels int) {
	if numChannels <= 0 {
		b.SetSize(0, 0)
		return
	}

	frames := len(src) / numChannels
	b.SetSize(numChannels, frames)
	for ch, samples := range b.channels {
		for i := range samples {
			samples[i] = float64(src[i*numChannels+ch])
		}
	}
}

// Interleave writes the active samples into dst as interleaved float32
// frames. dst must hold at least NumChannels*NumSamples values.
func (b *Block) Interleave(dst []float32) {
	numChannels := len(b.channels)
	if len(dst) < numChannels*b.numSamples {
		panic(fmt.Sprintf("buffer: interleave target holds %d values, need %d", len(dst), numChannels*b.numSamples))
	}

	for ch, samples := range b.channels {
		for i, v := range samples {
			dst[i*numChannels+ch] = float32(v)
		}
	}
}
