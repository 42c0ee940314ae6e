package allocator

import (
	"sync"
	"unsafe"
)

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide default pool, constructing it on first
// use. Grounded on the teacher's package-level GlobalAllocator plus
// Initialize; unlike the teacher, initialization here is implicit and
// lazy, since §3's Lifecycle already guarantees a zero-initialized pool is
// valid — there is nothing an explicit Initialize call would need to set
// up beyond what New's zero value provides.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New()
	})

	return defaultPool
}

// Alloc allocates from the default pool. See (*Pool).Alloc.
func Alloc(b int) unsafe.Pointer { return Default().Alloc(b) }

// Free releases to the default pool. See (*Pool).Free.
func Free(ptr unsafe.Pointer, size int) { Default().Free(ptr, size) }

// GetStats returns the default pool's statistics. See (*Pool).Stats.
func GetStats() Stats { return Default().Stats() }

// Registry holds additional named pools, separate from the package-level
// default (Design Notes, "Global mutable pool": "Allow multiple named
// pools; the public façade binds to the default one").
type Registry struct {
	mu    sync.Mutex
	pools map[string]*Pool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*Pool)}
}

// Named returns the pool registered under name, constructing it with opts
// the first time name is seen. Later calls ignore opts and return the
// already-constructed pool.
func (r *Registry) Named(name string, opts ...Option) *Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pools[name]; ok {
		return p
	}

	p := New(opts...)
	r.pools[name] = p

	return p
}
