package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-irplayer/dsp/buffer"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// SyntheticIR returns a room-like impulse response: a direct sound at
// sample 0 followed by exponentially decaying noise reaching -60 dB after
// rt60 seconds. Each channel gets its own noise seed.
func SyntheticIR(channels, length int, sampleRate, rt60 float64, seed uint64) [][]float64 {
	decay := math.Log(1e-3) / (rt60 * sampleRate)

	out := make([][]float64, channels)
	for ch := range out {
		noise := DeterministicNoise(seed+uint64(ch), 0.5, length)
		for i := range noise {
			noise[i] *= math.Exp(decay * float64(i))
		}
		if length > 0 {
			noise[0] = 1
		}
		out[ch] = noise
	}
	return out
}

// BlockOf returns a Block holding deep copies of channels.
func BlockOf(channels ...[]float64) *buffer.Block {
	cp := make([][]float64, len(channels))
	for ch, samples := range channels {
		cp[ch] = append([]float64(nil), samples...)
	}
	return buffer.FromChannels(cp)
}
