package buffer

import "testing"

func TestNewZeroFilled(t *testing.T) {
	b := New(2, 8)
	if b.NumChannels() != 2 || b.NumSamples() != 8 {
		t.Fatalf("size = %dx%d, want 2x8", b.NumChannels(), b.NumSamples())
	}
	for ch := range b.NumChannels() {
		for i, v := range b.Channel(ch) {
			if v != 0 {
				t.Fatalf("Channel(%d)[%d] = %v, want 0", ch, i, v)
			}
		}
	}
}

func TestNewNegativeDimensions(t *testing.T) {
	b := New(-1, -4)
	if b.NumChannels() != 0 || b.NumSamples() != 0 {
		t.Fatalf("size = %dx%d, want 0x0", b.NumChannels(), b.NumSamples())
	}
}

func TestFromChannelsSharesMemory(t *testing.T) {
	left := []float64{1, 2, 3}
	right := []float64{4, 5, 6}
	b := FromChannels([][]float64{left, right})
	b.Channel(1)[0] = 99
	if right[0] != 99 {
		t.Fatal("FromChannels should share underlying memory")
	}
}

func TestFromChannelsRaggedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for ragged channels")
		}
	}()
	FromChannels([][]float64{{1, 2}, {1}})
}

func TestSetSizeWithinCapacity(t *testing.T) {
	b := New(4, 16)
	b.Channel(3)[15] = 7

	b.SetSize(2, 8)
	if b.NumChannels() != 2 || b.NumSamples() != 8 {
		t.Fatalf("size = %dx%d, want 2x8", b.NumChannels(), b.NumSamples())
	}
	if len(b.Channel(1)) != 8 {
		t.Fatalf("len(Channel(1)) = %d, want 8", len(b.Channel(1)))
	}

	b.SetSize(4, 16)
	if b.Channel(3)[15] != 7 {
		t.Fatal("SetSize lost data outside the active view")
	}
}

func TestSetSizeDoesNotAllocate(t *testing.T) {
	b := New(2, 512)
	allocs := testing.AllocsPerRun(100, func() {
		b.SetSize(1, 100)
		b.SetSize(2, 512)
	})
	if allocs != 0 {
		t.Fatalf("SetSize allocated %v times, want 0", allocs)
	}
}

func TestSetSizeBeyondCapacityPanics(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		samples  int
	}{
		{name: "channels", channels: 3, samples: 4},
		{name: "samples", channels: 1, samples: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(2, 4)
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			b.SetSize(tt.channels, tt.samples)
		})
	}
}

func TestCopyFromIsDeep(t *testing.T) {
	src := FromChannels([][]float64{{1, 2}, {3, 4}})
	dst := New(4, 8)

	dst.CopyFrom(src)
	if dst.NumChannels() != 2 || dst.NumSamples() != 2 {
		t.Fatalf("size = %dx%d, want 2x2", dst.NumChannels(), dst.NumSamples())
	}

	src.Channel(0)[0] = 100
	if dst.Channel(0)[0] != 1 {
		t.Fatal("CopyFrom aliased the source")
	}
	if dst.Channel(1)[1] != 4 {
		t.Fatalf("Channel(1)[1] = %v, want 4", dst.Channel(1)[1])
	}
}

func TestAliasSharesChannels(t *testing.T) {
	src := FromChannels([][]float64{{1, 2}, {3, 4}, {5, 6}})

	var view Block
	view.Alias(src, 2)
	if view.NumChannels() != 2 || view.NumSamples() != 2 {
		t.Fatalf("view size = %dx%d, want 2x2", view.NumChannels(), view.NumSamples())
	}

	view.Channel(1)[0] = -3
	if src.Channel(1)[0] != -3 {
		t.Fatal("write through alias not visible in source")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic resizing an alias")
		}
	}()
	view.SetSize(1, 1)
}

func TestClearChannel(t *testing.T) {
	b := FromChannels([][]float64{{1, 2}, {3, 4}})
	b.ClearChannel(1)
	if b.Channel(0)[1] != 2 {
		t.Fatal("ClearChannel touched another channel")
	}
	if b.Channel(1)[0] != 0 || b.Channel(1)[1] != 0 {
		t.Fatalf("Channel(1) = %v, want zeros", b.Channel(1))
	}

	b.Clear()
	if b.Channel(0)[0] != 0 {
		t.Fatal("Clear left data behind")
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	frames := []float32{0.5, -0.5, 0.25, -0.25, 1, -1}
	b := New(2, 8)

	b.Deinterleave(frames, 2)
	if b.NumSamples() != 3 {
		t.Fatalf("NumSamples() = %d, want 3", b.NumSamples())
	}
	if b.Channel(0)[1] != 0.25 || b.Channel(1)[2] != -1 {
		t.Fatalf("unexpected planar data: %v", b.Channels())
	}

	out := make([]float32, len(frames))
	b.Interleave(out)
	for i := range frames {
		if out[i] != frames[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], frames[i])
		}
	}
}
