package aol

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/finnegan-hale/meidkv/internal/value"
)

func TestStringifyRoundTrip(t *testing.T) {
	cases := []value.Value{
		value.Nil(),
		value.Bool(true),
		value.Bool(false),
		value.Int(-42),
		value.Uint(42),
		value.Float(3.5),
		value.Str("hello world"),
		value.Str("a<b>c"),
		value.Seq([]value.Value{value.Str("x"), value.Str("y")}),
		value.Map(map[string]value.Value{"a": value.Str("1")}),
	}

	for _, v := range cases {
		s, err := Stringify(v)
		if err != nil {
			t.Fatalf("Stringify(%+v): %v", v, err)
		}
		got, err := ParseValue(s)
		if err != nil {
			t.Fatalf("ParseValue(%q): %v", s, err)
		}
		if !value.Equal(v, got) {
			t.Fatalf("round trip mismatch: %+v -> %q -> %+v", v, s, got)
		}
	}
}

func TestSetLineGrouping(t *testing.T) {
	line, err := StringifySetLine([]string{"k1", "k2"}, value.Str("shared"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseSetLine(line)
	if err != nil {
		t.Fatalf("ParseSetLine(%q): %v", line, err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(got))
	}
	for _, k := range []string{"k1", "k2"} {
		v, ok := got[k]
		if !ok || v.Str != "shared" {
			t.Fatalf("expected %s -> shared, got %+v ok=%v", k, v, ok)
		}
	}
}

func TestSetLineWithAngleBracketInValue(t *testing.T) {
	line, err := StringifySetLine([]string{"mykey"}, value.Str("a<b>"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseSetLine(line)
	if err != nil {
		t.Fatalf("ParseSetLine(%q): %v", line, err)
	}
	v, ok := got["mykey"]
	if !ok || v.Str != "a<b>" {
		t.Fatalf("expected mykey -> a<b>, got %+v ok=%v", v, ok)
	}
}

func TestRemoveLineRoundTrip(t *testing.T) {
	line, err := StringifyRemoveLine([]string{"k1", "k2", "k3"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseRemoveLine(line)
	if err != nil {
		t.Fatalf("ParseRemoveLine(%q): %v", line, err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 keys, got %v", got)
	}
}

func TestCommentAndBlankDetection(t *testing.T) {
	if !IsComment("") {
		t.Fatal("empty line should be a comment")
	}
	if !IsComment("; a note") {
		t.Fatal("semicolon-prefixed line should be a comment")
	}
	if IsComment("k1<v") {
		t.Fatal("set line should not be a comment")
	}
	if !IsRemoveLine("#k1 #k2") {
		t.Fatal("expected remove line to be detected")
	}
	if !IsSetLine("k1<v") {
		t.Fatal("expected set line to be detected")
	}
}

func TestLogCoalescesWithinFlushInterval(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Set("k", value.Int(1))
	l.Set("k", value.Int(2))
	l.Set("k", value.Int(3))

	// Give the queue consumer goroutine a moment to absorb before flushing
	// directly, bypassing the 5-second ticker for the test.
	time.Sleep(20 * time.Millisecond)
	l.flush()

	entries := readLines(t, dir)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one coalesced line, got %v", entries)
	}
	if entries[0] != "k<3" {
		t.Fatalf("expected latest value to win, got %q", entries[0])
	}
}

func TestLogRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	// Rotation is keyed off wall-clock seconds in the filename, so this
	// exercises the rotate/reopen mechanics directly rather than relying on
	// two flushes landing in different seconds.
	l, err := Open(Options{Dir: dir, RotateBytes: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Set("k1", value.Str("first"))
	time.Sleep(20 * time.Millisecond)
	l.flush()

	if l.file != nil {
		t.Fatal("expected file to be closed by rotation once the byte limit was crossed")
	}

	entries := readLines(t, dir)
	if len(entries) != 1 || entries[0] != `k1<"first"` {
		t.Fatalf("expected one line for k1, got %v", entries)
	}
}

func readLines(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.sfb"))
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range splitNonEmptyLines(string(b)) {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
