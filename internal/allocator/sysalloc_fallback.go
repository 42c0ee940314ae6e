//go:build !unix

package allocator

import (
	"runtime"
	"sync"
	"unsafe"

	styerrors "github.com/sty-lang/sty/internal/errors"
)

// sliceBackend is the non-unix fallback for sys_alloc/sys_free (§6):
// ordinary Go-heap byte slices, retained in a side table so the garbage
// collector never reclaims memory the pool still references by raw
// uintptr arithmetic (the teacher's own comment on systemAlloc notes this
// would use VirtualAlloc on Windows or mmap on Linux in a production
// build; this is the bootstrap equivalent for platforms without mmap).
type sliceBackend struct {
	mu   sync.Mutex
	live map[uintptr][]byte
}

func newDefaultBackend() backend {
	return &sliceBackend{live: make(map[uintptr][]byte)}
}

func (s *sliceBackend) alloc(n uintptr) (unsafe.Pointer, bool) {
	if n == 0 {
		return nil, false
	}

	buf := make([]byte, n)
	ptr := unsafe.Pointer(&buf[0])

	s.mu.Lock()
	s.live[uintptr(ptr)] = buf
	s.mu.Unlock()

	runtime.KeepAlive(buf)

	return ptr, true
}

func (s *sliceBackend) free(ptr unsafe.Pointer, n uintptr) {
	if ptr == nil {
		return
	}

	addr := uintptr(ptr)

	s.mu.Lock()
	buf, tracked := s.live[addr]
	if tracked {
		delete(s.live, addr)
	}
	s.mu.Unlock()

	if !tracked || uintptr(len(buf)) != n {
		panic(styerrors.WrongReleaseSize(n))
	}
}
