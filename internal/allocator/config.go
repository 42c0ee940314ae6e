package allocator

// Config configures how a Pool sources system memory and how large a
// refill batch it asks the chunk allocator for. It never changes Align,
// MaxBytes, FreeLists, or DefaultRefillBlocks — those are fixed by §3 and
// are not runtime-tunable (§6 "Configuration").
type Config struct {
	backend      backend
	refillBlocks int
}

// Option mutates a Config. Grounded on the teacher's functional-options
// pattern (allocator.go's Option/WithTracking/WithArenaSize/...).
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		refillBlocks: DefaultRefillBlocks,
	}
}

// WithRefillBlocks overrides the desired batch size refill passes to
// chunkAlloc (§4.3's nblocks in/out parameter is explicitly configurable;
// the grid constants it is measured against are not). Values below 1 are
// clamped to 1, since chunkAlloc's contract never lowers a batch below 1.
func WithRefillBlocks(n int) Option {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}

		c.refillBlocks = n
	}
}

// WithBackend overrides the system-memory backend behind sys_alloc/
// sys_free (§6). Exposed for tests that need to force allocation failure
// (scenarios S5, S6) or observe every backend call.
func WithBackend(b backend) Option {
	return func(c *Config) { c.backend = b }
}
