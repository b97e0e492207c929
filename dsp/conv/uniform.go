package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// UniformPartitioned is a zero-delay uniformly partitioned overlap-add
// convolver with a frequency-domain delay line (FDL).
//
// The kernel is split into segments of partSize samples, each zero-padded
// to fftSize = 2*partSize and transformed once at construction. Input is
// collected into a partSize accumulation block; on every call the partial
// block is transformed and multiplied with the first kernel segment, so
// output is available immediately instead of after a full partition. The
// products of older input blocks with the remaining segments are summed
// once per partition, at the first call that touches a new block.
//
// ProcessBlock accepts any block length and never allocates.
type UniformPartitioned struct {
	kernelLen int
	partSize  int
	fftSize   int

	plan *algofft.Plan[complex128]

	irSpectra [][]complex128 // one spectrum per kernel segment
	fdl       [][]complex128 // input spectra ring, same length as irSpectra
	current   int            // fdl slot of the block being filled

	input    []float64    // current input block, partSize
	inputPos int          // samples collected in input
	tailSum  []complex128 // sum of older-block products for the current block
	spectrum []complex128 // per-call product / IFFT scratch
	overlap  []float64    // second half of the previous block's result
}

// NewUniformPartitioned creates a convolver for kernel with the given
// partition size. partSize must be a power of two.
func NewUniformPartitioned(kernel []float64, partSize int) (*UniformPartitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if partSize < 2 || !isPowerOf2(partSize) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPartition, partSize)
	}

	fftSize := 2 * partSize
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	segments := (len(kernel) + partSize - 1) / partSize

	c := &UniformPartitioned{
		kernelLen: len(kernel),
		partSize:  partSize,
		fftSize:   fftSize,
		plan:      plan,
		irSpectra: make([][]complex128, segments),
		fdl:       make([][]complex128, segments),
		input:     make([]float64, partSize),
		tailSum:   make([]complex128, fftSize),
		spectrum:  make([]complex128, fftSize),
		overlap:   make([]float64, partSize),
	}

	for seg := range segments {
		c.fdl[seg] = make([]complex128, fftSize)
		c.irSpectra[seg] = make([]complex128, fftSize)

		chunk := kernel[seg*partSize : min((seg+1)*partSize, len(kernel))]
		for i, v := range chunk {
			c.irSpectra[seg][i] = complex(v, 0)
		}

		if err := plan.Forward(c.irSpectra[seg], c.irSpectra[seg]); err != nil {
			return nil, fmt.Errorf("conv: failed to compute kernel segment %d FFT: %w", seg, err)
		}
	}

	return c, nil
}

// ProcessBlock convolves input into output. Both must have the same length,
// which may differ from call to call. input and output may be the same
// slice.
func (c *UniformPartitioned) ProcessBlock(input, output []float64) error {
	if len(input) != len(output) {
		return fmt.Errorf("%w: input length %d != output length %d",
			ErrLengthMismatch, len(input), len(output))
	}

	done := 0
	for done < len(input) {
		n := min(len(input)-done, c.partSize-c.inputPos)
		blockStart := c.inputPos == 0

		copy(c.input[c.inputPos:], input[done:done+n])

		seg := c.fdl[c.current]
		for i, v := range c.input {
			seg[i] = complex(v, 0)
		}
		clear(seg[c.partSize:])

		if err := c.plan.Forward(seg, seg); err != nil {
			return fmt.Errorf("conv: forward FFT failed: %w", err)
		}

		if blockStart {
			c.accumulateTail()
		}

		head := c.irSpectra[0]
		for i := range c.spectrum {
			c.spectrum[i] = c.tailSum[i] + seg[i]*head[i]
		}

		if err := c.plan.Inverse(c.spectrum, c.spectrum); err != nil {
			return fmt.Errorf("conv: inverse FFT failed: %w", err)
		}

		pos := c.inputPos
		for i := range n {
			output[done+i] = real(c.spectrum[pos+i]) + c.overlap[pos+i]
		}

		c.inputPos += n
		done += n

		if c.inputPos == c.partSize {
			for i := range c.overlap {
				c.overlap[i] = real(c.spectrum[c.partSize+i])
			}

			clear(c.input)
			c.inputPos = 0

			c.current--
			if c.current < 0 {
				c.current = len(c.fdl) - 1
			}
		}
	}

	return nil
}

// accumulateTail sums the products of the previous input blocks with
// kernel segments 1..N-1 into tailSum. Older blocks sit after current in
// the FDL ring.
func (c *UniformPartitioned) accumulateTail() {
	clear(c.tailSum)

	idx := c.current
	for seg := 1; seg < len(c.irSpectra); seg++ {
		idx++
		if idx == len(c.fdl) {
			idx = 0
		}

		x := c.fdl[idx]
		h := c.irSpectra[seg]
		for i := range c.tailSum {
			c.tailSum[i] += x[i] * h[i]
		}
	}
}

// Reset clears all convolution history. The kernel is kept.
func (c *UniformPartitioned) Reset() {
	for _, seg := range c.fdl {
		clear(seg)
	}
	clear(c.input)
	clear(c.tailSum)
	clear(c.spectrum)
	clear(c.overlap)
	c.inputPos = 0
	c.current = 0
}

// PartitionSize returns the kernel partition size in samples.
func (c *UniformPartitioned) PartitionSize() int {
	return c.partSize
}

// FFTSize returns the FFT size used internally.
func (c *UniformPartitioned) FFTSize() int {
	return c.fftSize
}

// KernelLen returns the kernel length.
func (c *UniformPartitioned) KernelLen() int {
	return c.kernelLen
}

// Segments returns the number of kernel partitions.
func (c *UniformPartitioned) Segments() int {
	return len(c.irSpectra)
}
