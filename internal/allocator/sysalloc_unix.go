//go:build unix

package allocator

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	styerrors "github.com/sty-lang/sty/internal/errors"
)

// mmapBackend services sys_alloc/sys_free (§6) with anonymous mmap regions.
// Memory handed out this way is never tracked by the Go garbage collector,
// so the pool's raw uintptr arithmetic over pool_start/pool_end (§3) stays
// valid for the lifetime of the process — exactly invariant §3-4, "never
// returned to [the system allocator] during the pool's lifetime", applied
// to the reserve rather than to individual pages.
type mmapBackend struct {
	mu   sync.Mutex
	live map[uintptr]uintptr // addr -> length, to catch a mismatched large free
}

func newDefaultBackend() backend {
	return &mmapBackend{live: make(map[uintptr]uintptr)}
}

func (m *mmapBackend) alloc(n uintptr) (unsafe.Pointer, bool) {
	if n == 0 {
		return nil, false
	}

	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, false
	}

	ptr := unsafe.Pointer(&b[0])

	m.mu.Lock()
	m.live[uintptr(ptr)] = n
	m.mu.Unlock()

	return ptr, true
}

func (m *mmapBackend) free(ptr unsafe.Pointer, n uintptr) {
	if ptr == nil {
		return
	}

	addr := uintptr(ptr)

	m.mu.Lock()
	length, tracked := m.live[addr]
	if tracked {
		delete(m.live, addr)
	}
	m.mu.Unlock()

	if !tracked || length != n {
		panic(styerrors.WrongReleaseSize(n))
	}

	_ = unix.Munmap(unsafe.Slice((*byte)(ptr), int(length)))
}
