package recovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/value"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRunMissingDirIsNotAnError(t *testing.T) {
	eng, err := engine.New(engine.Options{ShardCount: 2})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	result, err := Run(filepath.Join(t.TempDir(), "does-not-exist"), eng, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesReplayed != 0 {
		t.Fatalf("expected 0 files replayed, got %d", result.FilesReplayed)
	}
}

func TestRunReplaysSetsAndRemovesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "100.sfb", "a<1\nb<2\n")
	writeFile(t, dir, "200.sfb", "#a\nc<3\n")

	eng, err := engine.New(engine.Options{ShardCount: 2})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	result, err := Run(dir, eng, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesReplayed != 2 {
		t.Fatalf("expected 2 files replayed, got %d", result.FilesReplayed)
	}
	if len(result.FilesFailed) != 0 {
		t.Fatalf("expected no failed files, got %v", result.FilesFailed)
	}

	if eng.Exist("a") {
		t.Fatalf("expected a to be removed by the second file")
	}
	if got := eng.Get("b", value.Nil()); !value.Equal(got, value.Int(2)) {
		t.Fatalf("expected b=2, got %+v", got)
	}
	if got := eng.Get("c", value.Nil()); !value.Equal(got, value.Int(3)) {
		t.Fatalf("expected c=3, got %+v", got)
	}
}

func TestRunIgnoresUnterminatedTrailingLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "100.sfb", "a<1\nb<2") // no trailing newline on the second line

	eng, err := engine.New(engine.Options{ShardCount: 1})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if _, err := Run(dir, eng, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !eng.Exist("a") {
		t.Fatalf("expected the terminated line to be applied")
	}
	if eng.Exist("b") {
		t.Fatalf("expected the unterminated trailing line to be discarded")
	}
}

func TestRunSkipsUnreadableFileButContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "100.sfb", "a<1\n")
	// A directory named like an .sfb file can never be opened as one.
	if err := os.Mkdir(filepath.Join(dir, "999.sfb"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	eng, err := engine.New(engine.Options{ShardCount: 1})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	result, err := Run(dir, eng, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesReplayed != 1 {
		t.Fatalf("expected 1 file replayed, got %d", result.FilesReplayed)
	}
	if !eng.Exist("a") {
		t.Fatalf("expected a to be replayed despite the unreadable entry")
	}
}

func TestRunIgnoresCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "100.sfb", "; a comment\n\na<1\n")

	eng, err := engine.New(engine.Options{ShardCount: 1})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if _, err := Run(dir, eng, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !eng.Exist("a") {
		t.Fatalf("expected a to be applied")
	}
}

func TestRunReseedsShardSelectorPastHighestObservedShard(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "100.sfb", "a<1\nb<2\nc<3\n")

	eng, err := engine.New(engine.Options{ShardCount: 3})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if _, err := Run(dir, eng, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Three live keys spread across 3 shards means every shard index 0..2
	// has been used; the next Set should not collide with an existing
	// key's shard-selection expectations by winding back to shard 0
	// unconditionally - it just needs to keep advancing.
	before := eng.Selector().Phase()
	if _, err := eng.Set("d", value.Int(4)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	after := eng.Selector().Phase()
	if before == after {
		t.Fatalf("expected the selector to advance after a new insert")
	}
}
