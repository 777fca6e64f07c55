package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of recorded ids. The oldest record is evicted
// when the bound is reached, even if that entrant is still waiting, and a
// later duplicate of an evicted id is accepted. Size the bound above the
// number of entrants expected to wait at once; maxSize <= 0 disables
// eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
