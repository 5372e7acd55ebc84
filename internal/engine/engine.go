package engine

import (
	"strings"
	"sync"
	"unicode"

	"github.com/finnegan-hale/meidkv/internal/aol"
	"github.com/finnegan-hale/meidkv/internal/codec"
	"github.com/finnegan-hale/meidkv/internal/logx"
	"github.com/finnegan-hale/meidkv/internal/lookup"
	"github.com/finnegan-hale/meidkv/internal/metrics"
	"github.com/finnegan-hale/meidkv/internal/shard"
	"github.com/finnegan-hale/meidkv/internal/value"
)

// SetResult tells the caller what a Set call actually did, so the set
// command can count inserted, updated and rejected entries.
type SetResult int

const (
	SetRejected SetResult = iota
	SetUpdated
	SetInserted
)

// Options configures a new Engine. Zero MaxEntrySize or MaxMemory means
// unlimited.
type Options struct {
	ShardCount      int
	MaxEntrySize    int
	MaxMemory       int64
	DigestCacheSize int

	AOL     *aol.Log
	Metrics *metrics.Registry
	Logger  *logx.Logger
}

// Engine is the core key/value API: sanitize, set, get, remove, exist, plus
// the stats operation the shell's info command builds on and a snapshot
// operation for comparing engine state. Mutations are serialized through mu so the
// lookup tables, shard selector and AOL enqueue observe a single consistent
// order, the same "one mutex over the state, not a goroutine-owned channel"
// shape lib/store/lstore/store.go uses around its KVDB.
type Engine struct {
	tables   *lookup.Tables
	selector *shard.Selector
	aolLog   *aol.Log

	maxEntrySize int
	maxMemory    int64

	mu      sync.Mutex
	memUsed int64

	metrics *metrics.Registry
	logger  *logx.Logger
}

// New constructs an Engine over a fresh set of lookup tables and a shard
// selector sized by opts.ShardCount. opts.AOL may be nil for tests that
// don't care about durability.
func New(opts Options) (*Engine, error) {
	shardCount := opts.ShardCount
	if shardCount < 1 {
		shardCount = 1
	}
	selector, err := shard.NewSelector(shardCount)
	if err != nil {
		return nil, err
	}

	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logx.New("engine")
	}

	return &Engine{
		tables:       lookup.New(opts.DigestCacheSize),
		selector:     selector,
		aolLog:       opts.AOL,
		maxEntrySize: opts.MaxEntrySize,
		maxMemory:    opts.MaxMemory,
		metrics:      reg,
		logger:       logger,
	}, nil
}

// SanitizeKey normalizes a raw key: each whitespace character becomes an
// underscore, anything outside [A-Za-z0-9_-] is dropped outright, and with
// trim set leading/trailing underscores are stripped. The function is
// idempotent - sanitizing an already-sanitized key is a no-op - since its
// output alphabet is a subset of its accepted input.
func SanitizeKey(raw string, trim bool) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case isKeyRune(r):
			b.WriteRune(r)
		}
	}
	out := b.String()
	if trim {
		out = strings.Trim(out, "_")
	}
	return out
}

func isKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// SanitizeValue is the extension point for future value-side normalization
// (e.g. rejecting NaN floats); today every value is accepted as-is.
func SanitizeValue(v value.Value) value.Value {
	return v
}

// Set sanitizes key, enforces the per-entry and memory caps, installs v and
// enqueues the mutation to the AOL. The AOL write is fire-and-forget: a
// dropped enqueue under backpressure does not fail the call, since the
// in-memory state is already authoritative and AOL durability is best
// effort by design.
func (e *Engine) Set(key string, v value.Value) (SetResult, error) {
	return e.set(key, v, false)
}

// SetReplay installs v exactly like Set but without re-enqueueing to the
// AOL, since recovery is replaying entries that already live in an AOL
// file - re-logging them would duplicate work on every future restart.
func (e *Engine) SetReplay(key string, v value.Value) (SetResult, error) {
	return e.set(key, v, true)
}

func (e *Engine) set(key string, v value.Value, suppressLog bool) (SetResult, error) {
	sanitizedKey := SanitizeKey(key, false)
	if sanitizedKey == "" {
		return SetRejected, nil
	}
	v = SanitizeValue(v)

	encoded, err := codec.EncodedSize(v)
	if err != nil {
		e.metrics.SetErrors.Inc(1)
		return SetRejected, err
	}
	if e.maxEntrySize > 0 && encoded > e.maxEntrySize {
		return SetRejected, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, exists := e.tables.Meta(sanitizedKey)
	var delta int64
	if exists {
		delta = int64(encoded) - int64(existing.Size)
	} else {
		delta = int64(encoded)
	}
	if e.maxMemory > 0 && e.memUsed+delta > e.maxMemory {
		return SetRejected, nil
	}

	digestHex, digestBytes := e.digestFor(sanitizedKey)

	shardIdx := 0
	if exists {
		shardIdx = existing.Shard
	} else {
		shardIdx = e.selector.Next()
	}

	meta, inserted := e.tables.Put(sanitizedKey, digestBytes, digestHex, shardIdx, encoded)
	e.tables.SetValue(meta.DigestHex, v)
	e.memUsed += delta

	if !suppressLog && e.aolLog != nil {
		e.aolLog.Set(sanitizedKey, v)
	}

	e.metrics.SetOps.Inc(1)
	if inserted {
		return SetInserted, nil
	}
	return SetUpdated, nil
}

// digestFor resolves key's digest, consulting the memoization cache first so
// a repeated Set on the same key (an overwrite of a hot key, the common
// case) skips the hash entirely. A cache hit without a surviving byKey entry
// falls through to a fresh hash - the key was removed since the digest was
// cached, so the remembered digest can't be trusted without re-deriving it.
func (e *Engine) digestFor(key string) (string, [32]byte) {
	if hex, ok := e.tables.CachedDigest(key); ok {
		if meta, ok := e.tables.Meta(key); ok {
			return hex, meta.Digest
		}
	}
	digest := codec.Digest([]byte(key))
	hex := codec.DigestHex(digest)
	e.tables.RememberDigest(key, hex)
	return hex, digest
}

// Get resolves key to its current value, or def if key has no live entry.
func (e *Engine) Get(key string, def value.Value) value.Value {
	sanitizedKey := SanitizeKey(key, false)
	v, ok := e.tables.Get(sanitizedKey)
	e.metrics.GetOps.Inc(1)
	if !ok {
		return def
	}
	return v
}

// Exist reports whether key has a live entry.
func (e *Engine) Exist(key string) bool {
	return e.tables.Exist(SanitizeKey(key, false))
}

// Remove deletes key's entry, pushes its slot onto the free list and
// enqueues a removal to the AOL. Reports whether key had a live entry.
func (e *Engine) Remove(key string) bool {
	return e.remove(key, false)
}

// RemoveReplay deletes key's entry like Remove but without touching the
// AOL, for the same reason SetReplay skips it during recovery.
func (e *Engine) RemoveReplay(key string) bool {
	return e.remove(key, true)
}

func (e *Engine) remove(key string, suppressLog bool) bool {
	sanitizedKey := SanitizeKey(key, false)
	if sanitizedKey == "" {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	meta, ok := e.tables.Remove(sanitizedKey)
	if !ok {
		return false
	}
	e.tables.ForgetDigest(sanitizedKey)
	e.memUsed -= int64(meta.Size)

	if !suppressLog && e.aolLog != nil {
		e.aolLog.Remove(sanitizedKey)
	}
	e.metrics.RemoveOps.Inc(1)
	return true
}

// Selector exposes the shard selector so recovery can re-seed it after
// replaying every AOL file.
func (e *Engine) Selector() *shard.Selector {
	return e.selector
}

// AOLPending reports the number of ops queued but not yet absorbed by the
// AOL's flush loop, or 0 if durability is disabled.
func (e *Engine) AOLPending() int64 {
	if e.aolLog == nil {
		return 0
	}
	return e.aolLog.Pending()
}

// Snapshot is an immutable point-in-time copy of every live key's value,
// comparable with Equal (for example before and after a replay) and never
// written to disk. Recovery does not call it.
type Snapshot map[string]value.Value

// Snapshot copies the current key set. The copy is taken under the same
// mutex as every mutation, so it reflects a single consistent instant.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := make(Snapshot, e.tables.Len())
	e.tables.Range(func(key string, meta *lookup.SlotMeta) bool {
		if v, ok := e.tables.Get(key); ok {
			snap[key] = v
		}
		return true
	})
	return snap
}

// Equal reports whether two snapshots hold exactly the same keys and
// values.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || !value.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Stats is a point-in-time rollup of engine state, rendered by the shell's
// info command.
type Stats struct {
	EntryCount    int
	TotalBytes    int64
	ShardCounts   map[int]int
	FreeSlotCount int
	SizeHistogram *SizeHistogram
}

// Stats computes a fresh rollup by walking the live key set once. Callers
// that only want the entry count should use Len instead of paying for a
// full walk.
func (e *Engine) Stats() Stats {
	shardCounts := make(map[int]int)
	hist := NewSizeHistogram()
	var total int64

	e.tables.Range(func(key string, meta *lookup.SlotMeta) bool {
		shardCounts[meta.Shard]++
		total += int64(meta.Size)
		hist.AddSample(meta.Size)
		return true
	})

	return Stats{
		EntryCount:    e.tables.Len(),
		TotalBytes:    total,
		ShardCounts:   shardCounts,
		FreeSlotCount: e.tables.FreeList().Len(),
		SizeHistogram: hist,
	}
}

// Len returns the live key count without walking the table.
func (e *Engine) Len() int {
	return e.tables.Len()
}
