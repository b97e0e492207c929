package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	// First sample of a sine at phase 0 should be 0.
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	// All values in [-1, 1].
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
}

func TestDeterministicNoiseDifferentSeeds(t *testing.T) {
	a := DeterministicNoise(1, 1.0, 16)
	b := DeterministicNoise(2, 1.0, 16)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestImpulse(t *testing.T) {
	imp := Impulse(8, 3)
	if len(imp) != 8 {
		t.Fatalf("len = %d, want 8", len(imp))
	}
	for i, v := range imp {
		if i == 3 {
			if v != 1 {
				t.Fatalf("imp[3] = %v, want 1", v)
			}
		} else if v != 0 {
			t.Fatalf("imp[%d] = %v, want 0", i, v)
		}
	}
}

func TestImpulseOutOfBounds(t *testing.T) {
	imp := Impulse(4, 10)
	for i, v := range imp {
		if v != 0 {
			t.Fatalf("imp[%d] = %v, want all zeros for out-of-bounds pos", i, v)
		}
	}
}

func TestDC(t *testing.T) {
	d := DC(0.5, 4)
	for i, v := range d {
		if v != 0.5 {
			t.Fatalf("DC[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestSyntheticIRDecays(t *testing.T) {
	ir := SyntheticIR(2, 48000, 48000, 0.5, 7)
	if len(ir) != 2 || len(ir[0]) != 48000 {
		t.Fatalf("shape = %dx%d, want 2x48000", len(ir), len(ir[0]))
	}
	if ir[0][0] != 1 || ir[1][0] != 1 {
		t.Fatal("direct sound missing at sample 0")
	}

	// Beyond rt60 the envelope is below -60 dB of the 0.5 noise amplitude.
	for ch := range ir {
		for i := 24000; i < len(ir[ch]); i++ {
			if math.Abs(ir[ch][i]) > 0.5e-3 {
				t.Fatalf("ir[%d][%d] = %v, want below -60 dB", ch, i, ir[ch][i])
			}
		}
	}

	same := true
	for i := 1; i < 100; i++ {
		if ir[0][i] != ir[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("channels share the same noise")
	}
}

func TestBlockOfCopies(t *testing.T) {
	left := []float64{1, 2}
	b := BlockOf(left, []float64{3, 4})
	if b.NumChannels() != 2 || b.NumSamples() != 2 {
		t.Fatalf("size = %dx%d, want 2x2", b.NumChannels(), b.NumSamples())
	}
	b.Channel(0)[0] = 9
	if left[0] != 1 {
		t.Fatal("BlockOf aliased its input")
	}
}
