package allocator

import (
	"testing"
	"unsafe"
)

// TestAllocZeroTreatedAsOne checks property 4 of §8: allocate(0) behaves
// like allocate(1).
func TestAllocZeroTreatedAsOne(t *testing.T) {
	p := New()

	ptr := p.Alloc(0)
	if ptr == nil {
		t.Fatal("Alloc(0) returned nil")
	}

	// The block must be usable for at least one byte.
	*(*byte)(ptr) = 0x42
	if got := *(*byte)(ptr); got != 0x42 {
		t.Fatalf("byte round-trip failed: got %#x", got)
	}
}

func TestAllocNegativePanics(t *testing.T) {
	p := New()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative size")
		}
	}()

	p.Alloc(-1)
}

// TestAllocLargePassthrough checks scenario S3: a request above MaxBytes
// goes straight to the backend and never touches the reserve.
func TestAllocLargePassthrough(t *testing.T) {
	be := newScriptedBackend()
	p := New(WithBackend(be))

	ptr := p.Alloc(200)
	if ptr == nil {
		t.Fatal("Alloc(200) returned nil")
	}

	if len(be.calls) != 1 || be.calls[0] != 200 {
		t.Fatalf("backend calls = %v, want [200]", be.calls)
	}

	if p.reserveStart != 0 || p.reserveEnd != 0 {
		t.Fatalf("reserve mutated by a large request: start=%d end=%d", p.reserveStart, p.reserveEnd)
	}

	p.Free(ptr, 200)
}

// TestAllocColdRefillThenSameClassReuse checks scenarios S1 and S2: the
// first small allocation of a cold pool refills from the backend with the
// spec's sizing formula, and a subsequent same-class allocation is served
// from the free list with no further backend call, returning blocks in
// LIFO order.
func TestAllocColdRefillThenSameClassReuse(t *testing.T) {
	be := newScriptedBackend()
	p := New(WithBackend(be))

	first := p.Alloc(7) // class 0, size 8
	if first == nil {
		t.Fatal("Alloc(7) returned nil")
	}

	if len(be.calls) != 1 {
		t.Fatalf("backend called %d times, want 1", len(be.calls))
	}

	wantBytes := uintptr(2 * Align * DefaultRefillBlocks)
	if be.calls[0] != wantBytes {
		t.Fatalf("system request = %d, want %d", be.calls[0], wantBytes)
	}

	if got := p.reserveEnd - p.reserveStart; got != wantBytes-uintptr(DefaultRefillBlocks)*Align {
		t.Fatalf("reserve remaining = %d, want %d", got, wantBytes-uintptr(DefaultRefillBlocks)*Align)
	}

	class0 := freelistIndex(7)
	if p.freeLists[class0].len != DefaultRefillBlocks-1 {
		t.Fatalf("class 0 free list depth = %d, want %d", p.freeLists[class0].len, DefaultRefillBlocks-1)
	}

	lastPushed := p.freeLists[class0].head

	second := p.Alloc(1) // same class as 7
	if len(be.calls) != 1 {
		t.Fatalf("backend called again on same-class reuse: %d calls", len(be.calls))
	}

	if second != lastPushed {
		t.Fatalf("Alloc(1) = %p, want the most recently freed/threaded block %p", second, lastPushed)
	}

	if p.freeLists[class0].len != DefaultRefillBlocks-2 {
		t.Fatalf("class 0 free list depth after reuse = %d, want %d", p.freeLists[class0].len, DefaultRefillBlocks-2)
	}
}

// TestReleaseThenAllocLIFO checks property 7 of §8: releasing a block and
// then allocating the same class returns the just-released pointer.
func TestReleaseThenAllocLIFO(t *testing.T) {
	p := New()

	ptr := p.Alloc(16)
	p.Free(ptr, 16)

	got := p.Alloc(16)
	if got != ptr {
		t.Fatalf("Alloc after Free = %p, want the released pointer %p", got, ptr)
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	p := New()
	p.Free(nil, 16) // must not panic
}

func TestFreeNegativePanics(t *testing.T) {
	p := New()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative size")
		}
	}()

	p.Free(unsafe.Pointer(&struct{}{}), -1)
}

func TestFreeZeroSizeRejected(t *testing.T) {
	p := New()
	ptr := p.Alloc(8)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for size-0 release (Open Question 3: rejected, not aliased to size 1)")
		}
	}()

	p.Free(ptr, 0)
}

func TestFreeLargeDoubleFreeDetected(t *testing.T) {
	p := New()
	ptr := p.Alloc(4096)
	p.Free(ptr, 4096)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free of a large block")
		}
	}()

	p.Free(ptr, 4096)
}

// TestNonOverlappingAllocations checks property 5 of §8 over a batch of
// concurrently live small allocations: their byte ranges never overlap.
func TestNonOverlappingAllocations(t *testing.T) {
	p := New()

	const n = 500

	type span struct {
		start, end uintptr
	}

	spans := make([]span, 0, n)

	for i := 0; i < n; i++ {
		size := (i % MaxBytes) + 1
		ptr := p.Alloc(size)
		start := uintptr(ptr)
		spans = append(spans, span{start: start, end: start + roundUp(uintptr(size))})
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.start < b.end && b.start < a.end {
				t.Fatalf("overlapping spans: [%d,%d) and [%d,%d)", a.start, a.end, b.start, b.end)
			}
		}
	}
}

// TestTerminalOOMViaAllocAndRun checks scenario S6 end-to-end through the
// public façade and the Run boundary.
func TestTerminalOOMViaAllocAndRun(t *testing.T) {
	be := newScriptedBackend()
	be.failNext = 1 // fails the only backend attempt; every free list starts empty
	p := New(WithBackend(be))

	exitCode := Run(func() {
		p.Alloc(8)
	})

	if exitCode != ExitOOM {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitOOM)
	}
}

func TestResetClearsState(t *testing.T) {
	p := New()
	p.Alloc(8)
	p.Reset()

	s := p.Stats()
	if s.TotalUsed != 0 || s.ReserveStart != 0 || s.ReserveEnd != 0 {
		t.Fatalf("Reset left non-zero state: %+v", s)
	}

	for i, depth := range s.FreeListDepth {
		if depth != 0 {
			t.Fatalf("Reset left class %d with depth %d", i, depth)
		}
	}
}

func TestNilPoolPanics(t *testing.T) {
	var p *Pool

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Alloc on a nil pool")
		}
	}()

	p.Alloc(8)
}
