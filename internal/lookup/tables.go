package lookup

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/finnegan-hale/meidkv/internal/value"
)

// SlotMeta is the per-live-key metadata: where the entry would live on disk
// once compacted, and how big its encoded record is.
type SlotMeta struct {
	Shard    int
	Digest   [32]byte
	DigestHex string
	Size     int // value length in bytes
	Position int64 // -1 until compaction assigns a real file offset
	Length   int   // full encoded record length: 32 + 4 + Size
}

// FreeSlot is the metadata pushed onto the free list when a key is removed.
type FreeSlot struct {
	Shard    int
	Size     int
	Position int64
	Length   int
}

// Tables bundles the three lookup structures behind one type so the engine
// only has to thread a single value through its mutation path.
type Tables struct {
	byKey     *xsync.MapOf[string, *SlotMeta]
	byDigest  *xsync.MapOf[string, value.Value]
	freeList  *FreeList
	digestLRU *lru.Cache // key -> digest hex, bounded memoization cache
}

// New constructs an empty set of lookup tables. digestCacheSize bounds the
// key->digest memoization cache; a size <= 0 falls back to a sane default
// rather than disabling the cache, since the cache's whole purpose is
// avoiding a re-hash on every lookup.
func New(digestCacheSize int) *Tables {
	if digestCacheSize <= 0 {
		digestCacheSize = 4096
	}
	cache, _ := lru.New(digestCacheSize)
	return &Tables{
		byKey:     xsync.NewMapOf[string, *SlotMeta](),
		byDigest:  xsync.NewMapOf[string, value.Value](),
		freeList:  NewFreeList(),
		digestLRU: cache,
	}
}

// Exist reports whether key currently has a live entry: byKey.contains(key).
func (t *Tables) Exist(key string) bool {
	_, ok := t.byKey.Load(key)
	return ok
}

// Meta returns the slot metadata for a live key.
func (t *Tables) Meta(key string) (*SlotMeta, bool) {
	return t.byKey.Load(key)
}

// Get resolves a live key to its current value via the cached digest.
func (t *Tables) Get(key string) (value.Value, bool) {
	meta, ok := t.byKey.Load(key)
	if !ok {
		return value.Value{}, false
	}
	return t.byDigest.Load(meta.DigestHex)
}

// Put installs or replaces the value for key, creating slot metadata on
// first insert and reusing it (except size/length) on update.
func (t *Tables) Put(key string, digest [32]byte, digestHex string, shardIdx int, encodedSize int) (meta *SlotMeta, inserted bool) {
	if existing, ok := t.byKey.Load(key); ok {
		existing.Size = encodedSize
		existing.Length = 32 + 4 + encodedSize
		return existing, false
	}
	newMeta := &SlotMeta{
		Shard:     shardIdx,
		Digest:    digest,
		DigestHex: digestHex,
		Size:      encodedSize,
		Position:  -1,
		Length:    32 + 4 + encodedSize,
	}
	t.byKey.Store(key, newMeta)
	return newMeta, true
}

// SetValue stores v under the given digest hex in byDigest.
func (t *Tables) SetValue(digestHex string, v value.Value) {
	t.byDigest.Store(digestHex, v)
}

// Remove clears a live key's entries from both tables and pushes its slot
// onto the free list; pointers are nulled by removing the map entries
// outright rather than zeroing fields in place.
func (t *Tables) Remove(key string) (*SlotMeta, bool) {
	meta, ok := t.byKey.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	t.byDigest.Delete(meta.DigestHex)
	t.freeList.Push(FreeSlot{
		Shard:    meta.Shard,
		Size:     meta.Size,
		Position: meta.Position,
		Length:   meta.Length,
	})
	return meta, true
}

// CachedDigest returns a memoized digest for key if one was recorded via
// RememberDigest, avoiding a re-hash on lookup.
func (t *Tables) CachedDigest(key string) (string, bool) {
	v, ok := t.digestLRU.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// RememberDigest records key's digest in the memoization cache.
func (t *Tables) RememberDigest(key, digestHex string) {
	t.digestLRU.Add(key, digestHex)
}

// ForgetDigest evicts key from the memoization cache, used on remove so a
// re-set of the same key can't serve a stale cache hit bound to state that
// no longer exists.
func (t *Tables) ForgetDigest(key string) {
	t.digestLRU.Remove(key)
}

// FreeList exposes the free-slot list for diagnostics (`info`) and for the
// as-yet-unimplemented compaction extension point.
func (t *Tables) FreeList() *FreeList {
	return t.freeList
}

// Len returns the number of live keys, used by `info` and EngineStats.
func (t *Tables) Len() int {
	return t.byKey.Size()
}

// Range iterates every live key's slot metadata. fn returning false stops
// iteration early.
func (t *Tables) Range(fn func(key string, meta *SlotMeta) bool) {
	t.byKey.Range(func(key string, meta *SlotMeta) bool {
		return fn(key, meta)
	})
}
