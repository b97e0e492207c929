// Package audiofile decodes impulse responses and test signals from WAV,
// FLAC and IRLB library containers into planar float64 audio, and writes
// WAV and IRLB.
//
// Decode sniffs the container from its magic bytes:
//
//	a, err := audiofile.Decode(data)
//	fmt.Println(a.NumChannels(), a.Length(), a.SampleRate)
package audiofile
