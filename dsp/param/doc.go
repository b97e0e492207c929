// Package param holds control-rate parameters shared between a control
// goroutine and the audio goroutine.
package param
