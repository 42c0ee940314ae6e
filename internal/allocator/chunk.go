package allocator

import (
	"unsafe"

	styerrors "github.com/sty-lang/sty/internal/errors"
)

// chunkAlloc implements §4.3. Caller must hold p.mu. size is an
// already-aligned class size; nblocks is the desired batch count. On
// success it returns a contiguous run of the returned count of back-to-back
// blocks of size bytes (the count may be lower than requested, but never
// below 1) and never returns a nil pointer — irrecoverable exhaustion
// panics with oomSignal instead.
func (p *Pool) chunkAlloc(size uintptr, nblocks int) (unsafe.Pointer, int) {
	want := size * uintptr(nblocks)
	avail := p.reserveEnd - p.reserveStart

	switch {
	case avail >= want:
		// C1: reserve fully covers the request.
		ptr := p.reserveStart
		p.reserveStart += want

		return addrToPtr(ptr), nblocks

	case avail >= size:
		// C2: reserve covers at least one block but not the full batch.
		// Prefer partial service over touching the system allocator: the
		// caller may not need the whole batch, and the free list is about
		// to absorb the surplus anyway.
		n := int(avail / size)
		ptr := p.reserveStart
		p.reserveStart += uintptr(n) * size

		return addrToPtr(ptr), n

	default:
		return p.escalate(size, nblocks, want, avail)
	}
}

// escalate implements C3: salvage the leftover, try the system allocator,
// and fall back to recycling a larger free-list block, in that order,
// before giving up. Each successful step reinstalls the reserve and
// recurses into chunkAlloc, which resolves to C1 or C2 — recursion depth
// from the original chunkAlloc call is therefore never more than 2.
func (p *Pool) escalate(size uintptr, nblocks int, want, avail uintptr) (unsafe.Pointer, int) {
	// 1. Salvage the leftover: avail is guaranteed a multiple of Align by
	// invariant §3-1, so it is safe to thread as one free block of its own
	// class.
	if avail > 0 {
		j := freelistIndex(avail)
		p.freeLists[j].push(addrToPtr(p.reserveStart))
	}

	p.reserveStart = 0
	p.reserveEnd = 0

	// 2. Request from the system: double the batch for headroom, plus a
	// slack term that grows with cumulative usage so later escalations
	// become rarer.
	bytesToAlloc := 2*want + roundUp(p.totalUsed>>4)

	if ptr, ok := p.ensureBackend().alloc(bytesToAlloc); ok {
		p.reserveStart = uintptr(ptr)
		p.reserveEnd = p.reserveStart + bytesToAlloc
		p.totalUsed += bytesToAlloc

		return p.chunkAlloc(size, nblocks)
	}

	// 3. Recycle from a larger free list: the first non-empty class at or
	// above size's own class wins.
	for c := freelistIndex(size); c < FreeLists; c++ {
		if block := p.freeLists[c].pop(); block != nil {
			p.reserveStart = uintptr(block)
			p.reserveEnd = p.reserveStart + classSize(c)

			return p.chunkAlloc(size, nblocks)
		}
	}

	// 4. Give up.
	p.reserveEnd = 0

	panic(oomSignal{err: styerrors.OutOfMemory(want)})
}

// addrToPtr is the single narrow reinterpretation the union-coded block
// representation needs (Design Notes, "Union-coded blocks"): a raw reserve
// address becomes a pointer only here, at the moment it is carved off for a
// caller or threaded onto a free list. Safe because reserve memory is
// either off-heap (mmap backend) or anchored against collection in the
// owning backend's side table (slice fallback) — see sysalloc_unix.go and
// sysalloc_fallback.go.
func addrToPtr(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet
}
