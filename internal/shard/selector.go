package shard

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Selector hands out shard indices in round-robin order across a fixed
// count. With count == 1 it always returns 0.
type Selector struct {
	count   int
	counter atomic.Uint64
}

// NewSelector creates a selector over count shards (count must be >= 1).
func NewSelector(count int) (*Selector, error) {
	if count < 1 {
		return nil, errors.Newf("shard: count must be >= 1, got %d", count)
	}
	return &Selector{count: count}, nil
}

// Next advances the counter and returns the shard index to use for the next
// new key.
func (s *Selector) Next() int {
	n := s.counter.Add(1) - 1
	return int(n % uint64(s.count))
}

// Count returns the configured shard count, used by the `info` command for
// diagnostics.
func (s *Selector) Count() int {
	return s.count
}

// Phase returns the selector's current rotation position without advancing
// it - the shard index the *next* call to Next will hand out.
func (s *Selector) Phase() int {
	return int(s.counter.Load() % uint64(s.count))
}

// SeedAfter advances the internal counter so the next call to Next resumes
// round-robin rotation immediately after the given shard index. Used by
// recovery to keep shard distribution continuous across a restart instead
// of always resuming at shard 0.
func (s *Selector) SeedAfter(lastShard int) {
	next := uint64(lastShard + 1)
	s.counter.Store(next)
}
