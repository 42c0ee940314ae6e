package allocator

import (
	"unsafe"

	styerrors "github.com/sty-lang/sty/internal/errors"
)

// ExitOOM is the process exit status used on irrecoverable exhaustion
// (§6 STY_ALLOC_OOM — the source defines it as -1).
const ExitOOM = -1

// backend abstracts the system memory source behind the sys_alloc/sys_free
// passthroughs of §6. alloc is fallible (ok=false on failure) so the chunk
// allocator's escalation (§4.3 C3 step 2) can fall through to recycling
// instead of the process dying on the first failed request — the external,
// never-null sys_alloc contract is layered on top of this in sysAlloc,
// rather than the other way around (Design Notes, "Fatal-on-failure
// policy", option (b)).
type backend interface {
	alloc(n uintptr) (ptr unsafe.Pointer, ok bool)
	free(ptr unsafe.Pointer, n uintptr)
}

// oomSignal is the panic payload carried from an exhausted chunk allocator
// (or a failed large-request passthrough) up to Run's recovery boundary.
type oomSignal struct {
	err error
}

// sysAlloc is the external sys_alloc passthrough of §6: it never returns
// nil. A backend failure here is fatal, because this path is only used by
// the unconditional large-request passthrough (§4.4 allocate, b > MaxBytes),
// which has no escalation strategy of its own.
func sysAlloc(b backend, n uintptr) unsafe.Pointer {
	ptr, ok := b.alloc(n)
	if !ok {
		panic(oomSignal{err: styerrors.OutOfMemory(n)})
	}
	return ptr
}

// Run executes fn, converting the pool's internal OOM panic into the spec's
// process-exit contract: the returned exitCode is ExitOOM if fn (or
// anything it calls) hit irrecoverable exhaustion, 0 otherwise. Any other
// panic is not ours to interpret and propagates unchanged.
func Run(fn func()) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(oomSignal); ok {
				exitCode = ExitOOM
				return
			}
			panic(r)
		}
	}()
	fn()
	return 0
}
