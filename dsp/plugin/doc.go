// Package plugin assembles the convolution engine and the dry/wet mixer
// into a host-facing Processor.
//
//	mix := param.NewMixParameter(0.35)
//	p := plugin.NewIRPlayer(irBytes, mix)
//	if err := p.Prepare(core.DefaultProcessSpec()); err != nil { ... }
//	p.Process(block, block.NumChannels())
//	mix.Set(0.8) // from any goroutine
package plugin
