package command

import (
	"strings"
	"testing"

	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/metrics"
	"github.com/finnegan-hale/meidkv/internal/value"
)

func TestTokenizeQuotesAndFlags(t *testing.T) {
	tokens, err := Tokenize(`set "hello world" 'a b' --json --name=value -x`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"set", "hello world", "a b", "--json", "--name=value", "-x"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		if tokens[i] != w {
			t.Fatalf("token %d: expected %q, got %q", i, w, tokens[i])
		}
	}
}

func TestTokenizeUnterminatedQuoteErrors(t *testing.T) {
	if _, err := Tokenize(`set "unterminated`); err == nil {
		t.Fatalf("expected an error for an unterminated quote")
	}
}

func TestParseSeparatesFlagsAndPositional(t *testing.T) {
	p, err := Parse(`sanitize key foo bar --trim`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "sanitize" {
		t.Fatalf("expected name sanitize, got %q", p.Name)
	}
	if len(p.Positional) != 3 {
		t.Fatalf("expected 3 positional args, got %v", p.Positional)
	}
	if !p.Bool("trim") {
		t.Fatalf("expected --trim to be recognized as a boolean flag")
	}
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	e, err := engine.New(engine.Options{ShardCount: 2})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return &Context{Engine: e, Metrics: metrics.New(), ShardCount: 2}
}

func TestDispatchUnknownCommand(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	result := reg.Dispatch("nope", ctx)
	if result.Status != StatusCommandNotFound {
		t.Fatalf("expected StatusCommandNotFound, got %v", result.Status)
	}
}

func TestDispatchValidatorMismatch(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	result := reg.Dispatch("get", ctx)
	if result.Status != StatusCommandMismatch {
		t.Fatalf("expected StatusCommandMismatch, got %v", result.Status)
	}
}

func TestDispatchSetThenGet(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)

	result := reg.Dispatch("set k1 v1", ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v: %s", result.Status, result.Message)
	}

	result = reg.Dispatch("get k1", ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v", result.Status)
	}
	if !value.Equal(result.Value, value.Str("v1")) {
		t.Fatalf("expected v1, got %+v", result.Value)
	}
}

func TestDispatchSetJSON(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)

	result := reg.Dispatch(`set --json {"a":1,"b":2}`, ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v: %s", result.Status, result.Message)
	}

	got := ctx.Engine.Get("a", value.Nil())
	if !value.Equal(got, value.Int(1)) {
		t.Fatalf("expected a=1, got %+v", got)
	}
	got = ctx.Engine.Get("b", value.Nil())
	if !value.Equal(got, value.Int(2)) {
		t.Fatalf("expected b=2, got %+v", got)
	}
}

func TestDispatchSetShortJSONFlag(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)

	result := reg.Dispatch(`set -j {"a":1,"b":2}`, ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v: %s", result.Status, result.Message)
	}
	if !value.Equal(result.Value, value.Map(map[string]value.Value{
		"inserted": value.Int(2),
		"updated":  value.Int(0),
		"rejected": value.Int(0),
		"total":    value.Int(2),
	})) {
		t.Fatalf("expected 2 entries inserted, got %+v: %s", result.Value, result.Message)
	}
}

func TestDispatchInfoSessionsFilter(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	ctx.Sessions = []SessionSnapshot{
		{ID: "s1", RemoteIP: "127.0.0.1", Alias: "guest", Authenticated: true},
	}

	result := reg.Dispatch("info sessions", ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v: %s", result.Status, result.Message)
	}
	if !strings.Contains(result.Message, "sessions: 1 active") {
		t.Fatalf("expected a sessions summary line, got %q", result.Message)
	}
	sessions, ok := result.Value.Map["sessions"]
	if !ok || sessions.Kind != value.KindSeq || len(sessions.Seq) != 1 {
		t.Fatalf("expected one session in the sessions section, got %+v", result.Value)
	}
}

func TestDispatchInfoDefaultFiltersOmitSessions(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	ctx.Sessions = []SessionSnapshot{{ID: "s1"}}

	result := reg.Dispatch("info", ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v: %s", result.Status, result.Message)
	}
	if _, ok := result.Value.Map["sessions"]; ok {
		t.Fatalf("expected the default info output to omit sessions, got %+v", result.Value)
	}
	for _, key := range []string{"entries", "size", "shards", "aol"} {
		if _, ok := result.Value.Map[key]; !ok {
			t.Fatalf("expected default info output to include %q, got %+v", key, result.Value)
		}
	}
}

func TestDispatchGetMissingKeyReturnsKeyNotExist(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	result := reg.Dispatch("get nope", ctx)
	if result.Status != StatusKeyNotExist {
		t.Fatalf("expected StatusKeyNotExist, got %v", result.Status)
	}
}

func TestDispatchDeleteReportsCount(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	reg.Dispatch("set a 1 b 2", ctx)

	result := reg.Dispatch("delete a b c", ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v", result.Status)
	}
	if !value.Equal(result.Value, value.Int(2)) {
		t.Fatalf("expected 2 items deleted, got %+v", result.Value)
	}
}

func TestDispatchExit(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	result := reg.Dispatch("exit 3", ctx)
	if result.Status != StatusExit {
		t.Fatalf("expected StatusExit, got %v", result.Status)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestDispatchClearSetsClearScreen(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	result := reg.Dispatch("clear", ctx)
	if !result.ClearScreen {
		t.Fatalf("expected ClearScreen to be set")
	}
}

func TestDispatchSanitizeKeyTrim(t *testing.T) {
	reg := NewRegistry()
	ctx := newTestContext(t)
	result := reg.Dispatch("sanitize key '  hello world  ' --trim", ctx)
	if result.Status != StatusResponse {
		t.Fatalf("expected StatusResponse, got %v: %s", result.Status, result.Message)
	}
	m := result.Value
	if m.Kind != value.KindMap {
		t.Fatalf("expected a map result, got %+v", m)
	}
}

func TestExecutorPanicYieldsUnexpectedError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name: "boom",
		Execute: func(p *Parsed, ctx *Context) Result {
			panic("kaboom")
		},
	})
	ctx := newTestContext(t)
	result := reg.Dispatch("boom", ctx)
	if result.Status != StatusUnexpectedError {
		t.Fatalf("expected StatusUnexpectedError, got %v", result.Status)
	}
}
