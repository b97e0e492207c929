package plugin

import (
	"github.com/cwbudde/algo-irplayer/dsp/buffer"
	"github.com/cwbudde/algo-irplayer/dsp/core"
)

// Processor is the lifecycle a host drives.
//
// Prepare, Process and ReleaseResources are called sequentially from the
// audio goroutine. Process must not allocate, block or lock.
type Processor interface {
	// Prepare allocates processing state for spec and clears history.
	Prepare(spec core.ProcessSpec) error

	// Process renders block in place. Channels at index inputChannels and
	// above carry no input.
	Process(block *buffer.Block, inputChannels int)

	// ReleaseResources clears history and frees scratch buffers.
	ReleaseResources()

	// LatencySamples is the delay the host should compensate for. It is
	// constant once Prepare has returned.
	LatencySamples() int

	// TailLengthSeconds is how long output may continue after the input
	// falls silent.
	TailLengthSeconds() float64
}
