// Package host drives a plugin.Processor the way an audio host would.
//
// [Offline] renders decoded files in a configurable block-size schedule
// and applies mix automation at block boundaries. [Live] runs the
// processor inside a full-duplex malgo device callback while a control
// goroutine feeds mix values from a reader.
package host
