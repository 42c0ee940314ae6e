package allocator

import (
	"sync"
	"unsafe"

	styerrors "github.com/sty-lang/sty/internal/errors"
)

// Pool is the small-object pool allocator of §3. Its zero value is already
// a valid, empty pool: reserveStart/reserveEnd are both zero (an empty
// reserve) and every free list starts empty, exactly as §3's "Lifecycle"
// requires. New only exists to let callers override the backend or the
// refill batch size up front.
type Pool struct {
	mu sync.Mutex

	reserveStart uintptr // pool_start
	reserveEnd   uintptr // pool_end
	totalUsed    uintptr // total_used

	freeLists [FreeLists]freeList

	backend      backend
	refillBlocks int
}

// New constructs a Pool with the given options applied. A Pool obtained as
// a bare `allocator.Pool{}` (or the zero value embedded in a larger struct)
// is equally valid; New is only useful to set a non-default refill batch
// size or inject a test backend before first use.
func New(opts ...Option) *Pool {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	return &Pool{
		backend:      cfg.backend,
		refillBlocks: cfg.refillBlocks,
	}
}

// ensureBackend lazily constructs the default system-memory backend the
// first time a zero-value Pool needs one. Caller must hold p.mu.
func (p *Pool) ensureBackend() backend {
	if p.backend == nil {
		p.backend = newDefaultBackend()
	}

	return p.backend
}

// largePathBackend hands back the backend under the pool's lock just long
// enough to read (and lazily construct) it, without holding that lock across
// the backend call itself. §5 requires large requests to "bypass the pool
// entirely and rely on the system allocator's own thread-safety" — they
// touch no reserve or free-list state, so serializing them behind the same
// critical section as small-object Alloc/Free would couple two paths the
// spec deliberately keeps independent.
func (p *Pool) largePathBackend() backend {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ensureBackend()
}

func (p *Pool) refillBatch() int {
	if p.refillBlocks < 1 {
		return DefaultRefillBlocks
	}

	return p.refillBlocks
}

// Alloc implements §4.4 allocate. A zero-byte request is treated as a
// one-byte request, so Alloc never returns nil for b >= 0 — it either
// returns a usable pointer or an OOM panic (caught by Run) unwinds the
// call, matching the spec's "returns a usable pointer or the process dies"
// contract (§7 Propagation policy).
func (p *Pool) Alloc(b int) unsafe.Pointer {
	if p == nil {
		panic(styerrors.NilPool("Alloc"))
	}

	if b < 0 {
		panic(styerrors.InvalidSize(uintptr(b), "Alloc"))
	}

	if b == 0 {
		b = 1
	}

	if b > MaxBytes {
		return sysAlloc(p.largePathBackend(), uintptr(b))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := freelistIndex(uintptr(b))
	if ptr := p.freeLists[i].pop(); ptr != nil {
		return ptr
	}

	return p.refill(roundUp(uintptr(b)))
}

// refill implements §4.4 refill: ask the chunk allocator for a batch, keep
// one block for the caller, and thread the rest onto the matching free
// list as a single pre-built chain rather than via repeated pushes — this
// walks the batch contiguously and writes only the linkage word of each
// surplus block, exactly as §4.4 describes.
func (p *Pool) refill(size uintptr) unsafe.Pointer {
	base, got := p.chunkAlloc(size, p.refillBatch())
	if got == 1 {
		return base
	}

	baseAddr := uintptr(base)

	for k := 1; k < got-1; k++ {
		block := addrToPtr(baseAddr + uintptr(k)*size)
		next := addrToPtr(baseAddr + uintptr(k+1)*size)
		*(*unsafe.Pointer)(block) = next
	}

	last := addrToPtr(baseAddr + uintptr(got-1)*size)
	*(*unsafe.Pointer)(last) = nil

	i := freelistIndex(size)
	p.freeLists[i].head = addrToPtr(baseAddr + size)
	p.freeLists[i].len += got - 1

	return base
}

// Free implements §4.4 release. Precondition: size >= 0 and ptr originated
// from this pool with the same size. A nil ptr is a no-op; size 0 is
// rejected rather than silently treated as size 1 (Open Question 3: the
// source leaves size-0 release unspecified, this chooses rejection over
// the asymmetric alternative of silently mapping it to size 1, since a
// caller that forgot its size is a bug worth surfacing on the free path
// specifically).
func (p *Pool) Free(ptr unsafe.Pointer, size int) {
	if p == nil {
		panic(styerrors.NilPool("Free"))
	}

	if ptr == nil {
		return
	}

	if size < 0 {
		panic(styerrors.InvalidSize(uintptr(size), "Free"))
	}

	if size > MaxBytes {
		p.largePathBackend().free(ptr, uintptr(size))
		return
	}

	if size == 0 {
		panic(styerrors.WrongReleaseSize(0))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.freeLists[freelistIndex(uintptr(size))].push(ptr)
}

// Stats is the read-only snapshot of §10.8: a strict superset of what §6's
// contract requires, never consulted on the allocate/release hot path.
type Stats struct {
	TotalUsed     uintptr
	ReserveStart  uintptr
	ReserveEnd    uintptr
	FreeListDepth [FreeLists]int
}

// Stats returns a snapshot of the pool's bookkeeping, taken under the same
// lock as Alloc/Free so it never observes a torn state.
func (p *Pool) Stats() Stats {
	if p == nil {
		panic(styerrors.NilPool("Stats"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var s Stats

	s.TotalUsed = p.totalUsed
	s.ReserveStart = p.reserveStart
	s.ReserveEnd = p.reserveEnd

	for i := range p.freeLists {
		s.FreeListDepth[i] = p.freeLists[i].len
	}

	return s
}

// Reset returns a Pool to its zero-value state. Not one of the spec's
// operations — it exists only so table-driven tests can reuse a Pool
// between cases without reconstructing its backend (§10.8); production
// code never calls it, since §3's Lifecycle has the pool live for the
// remainder of the process.
func (p *Pool) Reset() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.reserveStart = 0
	p.reserveEnd = 0
	p.totalUsed = 0

	for i := range p.freeLists {
		p.freeLists[i] = freeList{}
	}
}
