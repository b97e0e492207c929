// Package reverb provides the convolution engine behind the impulse
// response player.
//
// ConvolutionEngine loads an impulse response (WAV, FLAC or IRLB), trims
// its silent edges, normalises its energy and convolves multichannel
// blocks in place with one zero-delay uniformly partitioned convolver per
// channel:
//
//	e := reverb.NewConvolutionEngine()
//	if err := e.Load(irBytes); err != nil {
//		// non-fatal: the engine stays unloaded and Process is a no-op
//	}
//	_ = e.Prepare(core.DefaultProcessSpec())
//	e.Process(block)
package reverb
