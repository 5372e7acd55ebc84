package lookup

import (
	"sync"

	"github.com/google/btree"
)

// freeListDegree is the B-tree branching factor; 32 is the value the
// package's own documentation recommends for in-memory workloads of this
// size.
const freeListDegree = 32

// freeSlotItem adapts a FreeSlot into a btree.Item ordered by size first,
// then by insertion sequence so two slots of equal size both survive as
// distinct items instead of one overwriting the other.
type freeSlotItem struct {
	slot FreeSlot
	seq  uint64
}

func (a freeSlotItem) Less(than btree.Item) bool {
	b := than.(freeSlotItem)
	if a.slot.Size != b.slot.Size {
		return a.slot.Size < b.slot.Size
	}
	return a.seq < b.seq
}

// FreeList is the size-ordered index of slots reclaimed from deleted
// entries: a range-query helper that sorts by slot size and binary-searches
// for the smallest fit, anticipating future compaction that reuses holes.
// Insertion is append-only today; no write path reuses a free slot yet, so
// SmallestFitAtLeast is a read-only query that no write path calls, held
// ready for that extension point.
type FreeList struct {
	mu   sync.Mutex
	tree *btree.BTree
	next uint64
}

func NewFreeList() *FreeList {
	return &FreeList{tree: btree.New(freeListDegree)}
}

// Push inserts a newly freed slot.
func (f *FreeList) Push(slot FreeSlot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := freeSlotItem{slot: slot, seq: f.next}
	f.next++
	f.tree.ReplaceOrInsert(item)
}

// SmallestFitAtLeast returns the smallest free slot whose Size is >= n, or
// ok=false if none exists.
func (f *FreeList) SmallestFitAtLeast(n int) (slot FreeSlot, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pivot := freeSlotItem{slot: FreeSlot{Size: n}, seq: 0}
	var found freeSlotItem
	hasFound := false
	f.tree.AscendGreaterOrEqual(pivot, func(item btree.Item) bool {
		found = item.(freeSlotItem)
		hasFound = true
		return false // first match is the smallest fit
	})
	if !hasFound {
		return FreeSlot{}, false
	}
	return found.slot, true
}

// Len returns the number of free slots currently tracked.
func (f *FreeList) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tree.Len()
}
