// Package mix implements the dry/wet routing stage of the impulse
// response player.
//
// For each block the mixer takes one snapshot of the shared mix value and
// picks a path:
//
//	mix < 0.01   dry    block untouched, wet processor not called
//	mix > 0.99   wet    wet processor runs in place, no dry copy
//	otherwise    blend  out = wet*mix + dry*(1-mix)
//
// Output channels beyond the input channel count are always cleared. The
// thresholds have no hysteresis and path changes are not smoothed.
package mix
