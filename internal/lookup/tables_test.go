package lookup

import (
	"testing"

	"github.com/finnegan-hale/meidkv/internal/value"
)

func TestPutGetRemove(t *testing.T) {
	tbl := New(0)

	digest := [32]byte{1, 2, 3}
	meta, inserted := tbl.Put("k1", digest, "deadbeef", 0, 5)
	if !inserted {
		t.Fatal("expected first Put to insert")
	}
	tbl.SetValue(meta.DigestHex, value.Str("hello"))

	if !tbl.Exist("k1") {
		t.Fatal("expected k1 to exist")
	}
	got, ok := tbl.Get("k1")
	if !ok || got.Str != "hello" {
		t.Fatalf("expected hello, got %+v ok=%v", got, ok)
	}

	_, inserted = tbl.Put("k1", digest, "deadbeef", 0, 7)
	if inserted {
		t.Fatal("expected second Put on same key to update, not insert")
	}

	removed, ok := tbl.Remove("k1")
	if !ok || removed.DigestHex != "deadbeef" {
		t.Fatalf("expected removal of k1, got %+v ok=%v", removed, ok)
	}
	if tbl.Exist("k1") {
		t.Fatal("k1 should no longer exist after remove")
	}
	if _, ok := tbl.Get("k1"); ok {
		t.Fatal("Get should miss after remove")
	}
	if tbl.FreeList().Len() != 1 {
		t.Fatalf("expected one free slot after remove, got %d", tbl.FreeList().Len())
	}
}

func TestDigestMemoization(t *testing.T) {
	tbl := New(0)
	if _, ok := tbl.CachedDigest("k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	tbl.RememberDigest("k", "abc123")
	got, ok := tbl.CachedDigest("k")
	if !ok || got != "abc123" {
		t.Fatalf("expected cache hit abc123, got %q ok=%v", got, ok)
	}
	tbl.ForgetDigest("k")
	if _, ok := tbl.CachedDigest("k"); ok {
		t.Fatal("expected miss after forget")
	}
}

func TestFreeListSmallestFit(t *testing.T) {
	fl := NewFreeList()
	fl.Push(FreeSlot{Size: 100})
	fl.Push(FreeSlot{Size: 10})
	fl.Push(FreeSlot{Size: 50})

	got, ok := fl.SmallestFitAtLeast(20)
	if !ok || got.Size != 50 {
		t.Fatalf("expected smallest fit >= 20 to be 50, got %+v ok=%v", got, ok)
	}

	got, ok = fl.SmallestFitAtLeast(1000)
	if ok {
		t.Fatalf("expected no fit for 1000, got %+v", got)
	}
}
