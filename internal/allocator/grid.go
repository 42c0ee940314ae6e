// Package allocator implements the sty small-object pool allocator: a
// second-level sub-allocator that services allocation requests of at most
// MaxBytes bytes from segregated, fixed-size free lists refilled from a
// contiguous reserve carved out of the system heap, and delegates anything
// larger straight through to the system allocator.
package allocator

// Constants fixed by design (§3) — never runtime-tunable. A Config/Option
// only ever changes which backend or how large a refill batch is; it never
// touches these.
const (
	// Align is the grid quantum: every small block served by the pool is a
	// multiple of this many bytes.
	Align = 8
	// MaxBytes is the largest request served from the pool. Anything above
	// this is delegated unchanged to the system allocator.
	MaxBytes = 128
	// FreeLists is the number of size classes, one per multiple of Align up
	// to MaxBytes.
	FreeLists = MaxBytes / Align
	// DefaultRefillBlocks is the desired batch size when refilling a free
	// list from the chunk allocator.
	DefaultRefillBlocks = 20
)

// roundUp returns the smallest multiple of Align that is >= b.
func roundUp(b uintptr) uintptr {
	return (b + Align - 1) &^ (Align - 1)
}

// freelistIndex returns the class index holding a block of size roundUp(b).
// Precondition: 1 <= b <= MaxBytes.
func freelistIndex(b uintptr) int {
	return int(roundUp(b)/Align) - 1
}

// classSize returns the block size of class i (0-based): (i+1) * Align.
func classSize(i int) uintptr {
	return uintptr(i+1) * Align
}
