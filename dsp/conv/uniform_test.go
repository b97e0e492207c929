package conv

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-irplayer/internal/testutil"
)

// makeDecayKernel creates a kernel that is an exponential decay with a
// sign flip every few samples so that segment boundaries matter.
func makeDecayKernel(n int) []float64 {
	k := make([]float64, n)
	v := 1.0
	for i := range k {
		k[i] = v
		if i%7 == 3 {
			k[i] = -v
		}
		v *= 0.995
	}
	return k
}

// makeTestSignal creates a deterministic signal using a fixed-seed generator.
func makeTestSignal(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = rng.Float64()*2 - 1
	}
	return sig
}

// runChunked streams signal through c using the given repeating chunk
// schedule and returns the concatenated output.
func runChunked(t *testing.T, c *UniformPartitioned, signal []float64, chunks []int) []float64 {
	t.Helper()

	out := make([]float64, len(signal))
	pos := 0
	for i := 0; pos < len(signal); i++ {
		n := min(chunks[i%len(chunks)], len(signal)-pos)
		if err := c.ProcessBlock(signal[pos:pos+n], out[pos:pos+n]); err != nil {
			t.Fatalf("ProcessBlock: %v", err)
		}
		pos += n
	}
	return out
}

func maxAbsDiff(t *testing.T, a, b []float64) float64 {
	t.Helper()

	d, err := testutil.MaxAbsDiff(a, b)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestUniformPartitionedMatchesDirect(t *testing.T) {
	tests := []struct {
		name      string
		kernelLen int
		partSize  int
		chunks    []int
	}{
		{name: "single segment", kernelLen: 50, partSize: 64, chunks: []int{64}},
		{name: "multi segment aligned", kernelLen: 700, partSize: 128, chunks: []int{128}},
		{name: "small chunks", kernelLen: 300, partSize: 64, chunks: []int{1, 7, 13}},
		{name: "chunks larger than partition", kernelLen: 513, partSize: 32, chunks: []int{100, 3, 250}},
		{name: "kernel shorter than partition", kernelLen: 5, partSize: 256, chunks: []int{17}},
		{name: "host sized blocks", kernelLen: 4096, partSize: 1024, chunks: []int{512, 480, 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kernel := makeDecayKernel(tt.kernelLen)
			signal := makeTestSignal(3000, 42)

			want, err := Direct(signal, kernel)
			if err != nil {
				t.Fatalf("Direct: %v", err)
			}

			c, err := NewUniformPartitioned(kernel, tt.partSize)
			if err != nil {
				t.Fatalf("NewUniformPartitioned: %v", err)
			}

			got := runChunked(t, c, signal, tt.chunks)
			if d := maxAbsDiff(t, got, want[:len(signal)]); d > 1e-9 {
				t.Fatalf("max diff vs direct = %g", d)
			}
		})
	}
}

func TestUniformPartitionedInPlace(t *testing.T) {
	kernel := makeDecayKernel(400)
	signal := makeTestSignal(1000, 7)

	want, err := Direct(signal, kernel)
	if err != nil {
		t.Fatalf("Direct: %v", err)
	}

	c, err := NewUniformPartitioned(kernel, 128)
	if err != nil {
		t.Fatalf("NewUniformPartitioned: %v", err)
	}

	buf := append([]float64(nil), signal...)
	for pos := 0; pos < len(buf); pos += 90 {
		end := min(pos+90, len(buf))
		if err := c.ProcessBlock(buf[pos:end], buf[pos:end]); err != nil {
			t.Fatalf("ProcessBlock: %v", err)
		}
	}

	if d := maxAbsDiff(t, buf, want[:len(buf)]); d > 1e-9 {
		t.Fatalf("in-place max diff = %g", d)
	}
}

func TestUniformPartitionedImpulseIsZeroDelay(t *testing.T) {
	kernel := makeDecayKernel(200)
	c, err := NewUniformPartitioned(kernel, 64)
	if err != nil {
		t.Fatalf("NewUniformPartitioned: %v", err)
	}

	in := make([]float64, 256)
	in[0] = 1
	out := make([]float64, 256)
	if err := c.ProcessBlock(in, out); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	for i := range kernel {
		if math.Abs(out[i]-kernel[i]) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], kernel[i])
		}
	}
	for i := len(kernel); i < len(out); i++ {
		if math.Abs(out[i]) > 1e-12 {
			t.Fatalf("out[%d] = %v, want 0 past the kernel", i, out[i])
		}
	}
}

func TestUniformPartitionedReset(t *testing.T) {
	c, err := NewUniformPartitioned(makeDecayKernel(500), 64)
	if err != nil {
		t.Fatalf("NewUniformPartitioned: %v", err)
	}

	noise := makeTestSignal(100, 3)
	if err := c.ProcessBlock(noise, make([]float64, len(noise))); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}

	c.Reset()

	silence := make([]float64, 600)
	out := make([]float64, len(silence))
	if err := c.ProcessBlock(silence, out); err != nil {
		t.Fatalf("ProcessBlock: %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v after Reset, want 0", i, v)
		}
	}
}

func TestUniformPartitionedAccessors(t *testing.T) {
	c, err := NewUniformPartitioned(makeDecayKernel(1000), 256)
	if err != nil {
		t.Fatalf("NewUniformPartitioned: %v", err)
	}
	if c.PartitionSize() != 256 {
		t.Fatalf("PartitionSize() = %d, want 256", c.PartitionSize())
	}
	if c.FFTSize() != 512 {
		t.Fatalf("FFTSize() = %d, want 512", c.FFTSize())
	}
	if c.KernelLen() != 1000 {
		t.Fatalf("KernelLen() = %d, want 1000", c.KernelLen())
	}
	if c.Segments() != 4 {
		t.Fatalf("Segments() = %d, want 4", c.Segments())
	}
}

func TestUniformPartitionedErrors(t *testing.T) {
	if _, err := NewUniformPartitioned(nil, 64); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("empty kernel: err = %v, want ErrEmptyKernel", err)
	}
	for _, size := range []int{0, 1, 48, -64} {
		if _, err := NewUniformPartitioned([]float64{1}, size); !errors.Is(err, ErrInvalidPartition) {
			t.Fatalf("partSize %d: err = %v, want ErrInvalidPartition", size, err)
		}
	}

	c, err := NewUniformPartitioned([]float64{1}, 64)
	if err != nil {
		t.Fatalf("NewUniformPartitioned: %v", err)
	}
	if err := c.ProcessBlock(make([]float64, 4), make([]float64, 5)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("ProcessBlock mismatch: err = %v, want ErrLengthMismatch", err)
	}
}

func TestUniformPartitionedZeroAlloc(t *testing.T) {
	c, err := NewUniformPartitioned(makeDecayKernel(2048), 256)
	if err != nil {
		t.Fatalf("NewUniformPartitioned: %v", err)
	}
	buf := makeTestSignal(300, 9)

	allocs := testing.AllocsPerRun(50, func() {
		_ = c.ProcessBlock(buf, buf)
	})
	if allocs != 0 {
		t.Fatalf("ProcessBlock allocated %v times per run, want 0", allocs)
	}
}

func TestDirect(t *testing.T) {
	got, err := Direct([]float64{1, 2, 3}, []float64{0, 1, 0.5})
	if err != nil {
		t.Fatalf("Direct: %v", err)
	}
	want := []float64{0, 1, 2.5, 4, 1.5}
	if maxAbsDiff(t, got, want) > 1e-15 {
		t.Fatalf("Direct = %v, want %v", got, want)
	}

	if _, err := Direct(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if _, err := Direct([]float64{1}, nil); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("err = %v, want ErrEmptyKernel", err)
	}
}

func BenchmarkUniformPartitioned512(b *testing.B) {
	c, err := NewUniformPartitioned(makeDecayKernel(44100), 1024)
	if err != nil {
		b.Fatalf("NewUniformPartitioned: %v", err)
	}
	buf := makeTestSignal(512, 1)

	b.ReportAllocs()
	b.SetBytes(int64(len(buf) * 8))
	for b.Loop() {
		_ = c.ProcessBlock(buf, buf)
	}
}
