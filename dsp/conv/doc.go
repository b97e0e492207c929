// Package conv provides the block convolution primitive used by the
// impulse-response player.
//
// [UniformPartitioned] splits a kernel into equal partitions and convolves
// streaming input of arbitrary block lengths without algorithmic delay:
//
//	c, err := conv.NewUniformPartitioned(kernel, 1024)
//	err = c.ProcessBlock(block, block) // in place
//
// [Direct] is the O(N*M) time-domain reference:
//
//	full, err := conv.Direct(signal, kernel)
package conv
