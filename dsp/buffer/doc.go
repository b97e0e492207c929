// Package buffer provides the planar multichannel Block used as the audio
// block and as pre-allocated scratch storage. Capacity is fixed at
// construction so that resizing, copying and clearing inside an audio
// callback never allocate.
package buffer
