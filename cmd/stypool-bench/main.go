// Command stypool-bench drives a sty pool through a synthetic
// allocate/release workload and prints its bookkeeping stats, in the
// teacher's plain-flag, no-framework cmd/ style.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"unsafe"

	"github.com/sty-lang/sty/internal/allocator"
)

func main() {
	ops := flag.Int("ops", 200000, "number of allocate/release operations to run")
	seed := flag.Int64("seed", 1, "PRNG seed for the synthetic workload")
	refill := flag.Int("refill-blocks", allocator.DefaultRefillBlocks, "desired refill batch size")
	largeFrac := flag.Int("large-every", 20, "emit one large (>MaxBytes) request every N operations")
	flag.Parse()

	pool := allocator.New(allocator.WithRefillBlocks(*refill))
	rng := rand.New(rand.NewSource(*seed))

	exitCode := allocator.Run(func() {
		runWorkload(pool, rng, *ops, *largeFrac)
	})
	if exitCode != 0 {
		log.Printf("pool exhausted: an allocation could not be satisfied")
		os.Exit(exitCode)
	}

	printStats(pool, *ops)
}

type liveBlock struct {
	ptr  unsafe.Pointer
	size int
}

func runWorkload(pool *allocator.Pool, rng *rand.Rand, ops, largeFrac int) {
	var outstanding []liveBlock

	for i := 0; i < ops; i++ {
		if len(outstanding) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(outstanding))
			b := outstanding[idx]
			pool.Free(b.ptr, b.size)
			outstanding[idx] = outstanding[len(outstanding)-1]
			outstanding = outstanding[:len(outstanding)-1]

			continue
		}

		size := rng.Intn(allocator.MaxBytes) + 1
		if largeFrac > 0 && i%largeFrac == 0 {
			size = allocator.MaxBytes + 1 + rng.Intn(4096)
		}

		ptr := pool.Alloc(size)
		outstanding = append(outstanding, liveBlock{ptr: ptr, size: size})
	}

	for _, b := range outstanding {
		pool.Free(b.ptr, b.size)
	}
}

func printStats(pool *allocator.Pool, ops int) {
	stats := pool.Stats()

	fmt.Println("=== sty pool bench ===")
	fmt.Printf("operations:   %d\n", ops)
	fmt.Printf("system bytes: %d\n", stats.TotalUsed)
	fmt.Printf("reserve span: %d\n", stats.ReserveEnd-stats.ReserveStart)

	for i, depth := range stats.FreeListDepth {
		if depth > 0 {
			fmt.Printf("  class %2d (%3d bytes): %d free\n", i, (i+1)*allocator.Align, depth)
		}
	}
}
