package multisig

import (
	"context"
	"sync"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/errors"
)

// SequenceCache tracks the next usable personal sequence per identity so a
// burst of submissions does not require a ledger round trip for each one.
// Next hands out the current value and optimistically advances the cache;
// after a failed submission the caller must Invalidate the identity so the
// next call re-reads the authoritative value from the ledger.
//
// Safe for concurrent use.
type SequenceCache struct {
	mu   sync.Mutex
	next map[string]int64
}

// NewSequenceCache returns an empty cache.
func NewSequenceCache() *SequenceCache {
	return &SequenceCache{next: make(map[string]int64)}
}

// Next returns the sequence to sign the next submission of addr with. A
// cache miss is filled from the ledger. The cache is advanced before the
// submission outcome is known, which is why Invalidate exists.
func (c *SequenceCache) Next(ctx context.Context, ledger Ledger, addr quorumsig.Address) (int64, error) {
	key := addr.String()

	c.mu.Lock()
	if seq, ok := c.next[key]; ok {
		c.next[key] = seq + 1
		c.mu.Unlock()
		return seq, nil
	}
	c.mu.Unlock()

	seq, err := ledger.NextSequence(ctx, addr)
	if err != nil {
		return 0, errors.Wrap(err, "fetch sequence")
	}

	c.mu.Lock()
	// Another goroutine may have filled the entry while we were fetching.
	// Its value is at least as fresh as ours, so prefer it.
	if cached, ok := c.next[key]; ok {
		c.next[key] = cached + 1
		c.mu.Unlock()
		return cached, nil
	}
	c.next[key] = seq + 1
	c.mu.Unlock()
	return seq, nil
}

// Invalidate drops the cached sequence of addr. Call it whenever a
// submission signed with a value from this cache failed, no matter the
// reason: the ledger's view is then unknown and must be re-fetched.
func (c *SequenceCache) Invalidate(addr quorumsig.Address) {
	c.mu.Lock()
	delete(c.next, addr.String())
	c.mu.Unlock()
}
