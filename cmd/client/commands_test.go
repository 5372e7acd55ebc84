package client

import "testing"

func TestQuoteTokenWrapsWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plainkey", "plainkey"},
		{"two words", `"two words"`},
		{"tab\tseparated", "\"tab\tseparated\""},
		{`already "quoted"`, `already "quoted"`},
	}
	for _, c := range cases {
		if got := quoteToken(c.in); got != c.want {
			t.Fatalf("quoteToken(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestQuoteTokensPreservesOrder(t *testing.T) {
	got := quoteTokens([]string{"a", "b c", "d"})
	want := []string{"a", `"b c"`, "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
