package shard

import "testing"

func TestRoundRobinDistinctShards(t *testing.T) {
	const n = 4
	sel, err := NewSelector(n)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		seen[sel.Next()] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct shards after %d inserts, got %d", n, n, len(seen))
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			t.Errorf("shard %d never selected", i)
		}
	}
}

func TestSingleShardAlwaysZero(t *testing.T) {
	sel, err := NewSelector(1)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	for i := 0; i < 5; i++ {
		if got := sel.Next(); got != 0 {
			t.Fatalf("expected shard 0, got %d", got)
		}
	}
}

func TestSeedAfterContinuesRotation(t *testing.T) {
	sel, err := NewSelector(3)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	sel.SeedAfter(1) // last key landed on shard 1
	if got := sel.Next(); got != 2 {
		t.Fatalf("expected shard 2 after seeding past 1, got %d", got)
	}
}

func TestInvalidCount(t *testing.T) {
	if _, err := NewSelector(0); err == nil {
		t.Fatal("expected error for count 0")
	}
}
