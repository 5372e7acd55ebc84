package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/value"
)

func registerBuiltins(r *Registry) {
	r.Register(helpCommand(r))
	r.Register(clearCommand())
	r.Register(exitCommand())
	r.Register(infoCommand())
	r.Register(getCommand())
	r.Register(setCommand())
	r.Register(deleteCommand())
	r.Register(sanitizeCommand())
}

// literalToValue infers a Value's kind from a bare CLI token: booleans and
// numbers get their natural type, everything else is a string. Tokenizer
// quote-stripping has already removed any quotes the user typed, so a
// quoted "42" arrives indistinguishable from a bare 42 - callers that need
// to force a string should route through --json instead.
func literalToValue(s string) value.Value {
	switch s {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.Str(s)
}

func helpCommand(r *Registry) *Command {
	return &Command{
		Name:  "help",
		Usage: "help [command...]",
		Help:  "List available commands, or describe the named ones.",
		Execute: func(p *Parsed, ctx *Context) Result {
			if len(p.Positional) == 0 {
				var names []string
				for _, cmd := range r.Commands() {
					names = append(names, cmd.Name)
				}
				sort.Strings(names)
				return Result{
					Status:  StatusResponse,
					Message: "available commands: " + strings.Join(names, ", "),
				}
			}

			var lines []string
			for _, name := range p.Positional {
				cmd, ok := r.Lookup(name)
				if !ok {
					lines = append(lines, fmt.Sprintf("%s: no such command", name))
					continue
				}
				line := cmd.Name
				if cmd.Usage != "" {
					line += " - " + cmd.Usage
				}
				if cmd.Help != "" {
					line += ": " + cmd.Help
				}
				lines = append(lines, line)
			}
			return Result{Status: StatusResponse, Message: strings.Join(lines, "\n")}
		},
	}
}

func clearCommand() *Command {
	return &Command{
		Name:    "clear",
		Aliases: []string{"cls"},
		Help:    "Clear the terminal screen.",
		Execute: func(p *Parsed, ctx *Context) Result {
			return Result{Status: StatusResponse, ClearScreen: true}
		},
	}
}

func exitCommand() *Command {
	return &Command{
		Name:  "exit",
		Usage: "exit [status]",
		Help:  "Close the connection.",
		Execute: func(p *Parsed, ctx *Context) Result {
			code := 0
			if len(p.Positional) > 0 {
				if n, err := strconv.Atoi(p.Positional[0]); err == nil {
					code = n
				}
			}
			return Result{Status: StatusExit, ExitCode: code, Message: "goodbye"}
		},
	}
}

// infoDefaultFilters is what plain `info`, with no filter arguments, reports:
// entry count, approximate byte size, shard count, and AOL queue depth.
// Sessions is deliberately not part of the default - it's additive, shown
// only when asked for by name.
var infoDefaultFilters = []string{"entries", "size", "shards", "aol"}

func infoCommand() *Command {
	return &Command{
		Name:  "info",
		Usage: "info [entries|size|shards|aol|sessions]...",
		Help:  "Report entry count, size, shard, AOL and session statistics.",
		Execute: func(p *Parsed, ctx *Context) Result {
			filters := p.Positional
			if len(filters) == 0 {
				filters = infoDefaultFilters
			}
			show := func(name string) bool {
				for _, f := range filters {
					if strings.EqualFold(f, name) {
						return true
					}
				}
				return false
			}

			var stats engine.Stats
			haveStats := false
			engineStats := func() engine.Stats {
				if !haveStats {
					stats = ctx.Engine.Stats()
					haveStats = true
				}
				return stats
			}

			sections := make(map[string]value.Value)
			var lines []string

			if show("entries") && ctx.Engine != nil {
				s := engineStats()
				lines = append(lines, fmt.Sprintf("entries: %d", s.EntryCount))
				sections["entries"] = value.Int(int64(s.EntryCount))
			}
			if show("size") && ctx.Engine != nil {
				s := engineStats()
				lines = append(lines, fmt.Sprintf("size: %d bytes", s.TotalBytes))
				sections["size"] = value.Int(s.TotalBytes)
			}
			if show("shards") && ctx.Engine != nil {
				s := engineStats()
				shardMap := make(map[string]value.Value, len(s.ShardCounts))
				for shard, count := range s.ShardCounts {
					shardMap[strconv.Itoa(shard)] = value.Int(int64(count))
				}
				lines = append(lines, fmt.Sprintf("shards: %d configured", ctx.ShardCount))
				sections["shards"] = value.Map(shardMap)
			}
			if show("aol") && ctx.Metrics != nil {
				snap := ctx.Metrics.Snapshot()
				lines = append(lines, fmt.Sprintf(
					"aol: %d ops dropped, %d flushes (avg %.2fms), %d pending",
					snap.AOLDropped, snap.AOLFlushCount, snap.AOLFlushMeanMs, ctx.AOLPending))
				sections["aol"] = value.Map(map[string]value.Value{
					"dropped":        value.Int(snap.AOLDropped),
					"flush_count":    value.Int(snap.AOLFlushCount),
					"flush_mean_ms":  value.Float(snap.AOLFlushMeanMs),
					"pending":        value.Int(ctx.AOLPending),
					"files_replayed": value.Int(int64(ctx.LastRecovery.FilesReplayed)),
					"lines_replayed": value.Int(int64(ctx.LastRecovery.LinesApplied)),
				})
			}
			if show("sessions") {
				sessionList := make([]value.Value, 0, len(ctx.Sessions))
				for _, sess := range ctx.Sessions {
					sessionList = append(sessionList, value.Map(map[string]value.Value{
						"id":            value.Str(sess.ID),
						"remote_ip":     value.Str(sess.RemoteIP),
						"alias":         value.Str(sess.Alias),
						"authenticated": value.Bool(sess.Authenticated),
					}))
				}
				lines = append(lines, fmt.Sprintf("sessions: %d active", len(ctx.Sessions)))
				sections["sessions"] = value.Seq(sessionList)
			}

			return Result{
				Status:     StatusResponse,
				Message:    strings.Join(lines, "\n"),
				Value:      value.Map(sections),
				PrintValue: true,
			}
		},
	}
}

func getCommand() *Command {
	return &Command{
		Name:  "get",
		Usage: "get key...",
		Help:  "Fetch one or more values by key.",
		Validate: func(p *Parsed) bool {
			return len(p.Positional) >= 1
		},
		Execute: func(p *Parsed, ctx *Context) Result {
			if len(p.Positional) == 1 {
				key := p.Positional[0]
				if !ctx.Engine.Exist(key) {
					return Result{Status: StatusKeyNotExist, Message: "key doesn't exist"}
				}
				v := ctx.Engine.Get(key, value.Nil())
				return Result{Status: StatusResponse, Value: v, PrintValue: true, Message: "1 entry found"}
			}

			out := make(map[string]value.Value, len(p.Positional))
			found := 0
			for _, key := range p.Positional {
				if ctx.Engine.Exist(key) {
					out[key] = ctx.Engine.Get(key, value.Nil())
					found++
				} else {
					out[key] = value.Nil()
				}
			}
			return Result{
				Status:     StatusResponse,
				Message:    fmt.Sprintf("%d of %d keys found", found, len(p.Positional)),
				Value:      value.Map(out),
				PrintValue: true,
			}
		},
	}
}

func setCommand() *Command {
	return &Command{
		Name:  "set",
		Usage: "set (key value)... | --json object...",
		Help:  "Insert or update one or more entries.",
		Validate: func(p *Parsed) bool {
			if p.Bool("json") {
				return len(p.Positional) >= 1
			}
			return len(p.Positional) >= 2 && len(p.Positional)%2 == 0
		},
		Execute: func(p *Parsed, ctx *Context) Result {
			inserted, updated, rejected := 0, 0, 0

			apply := func(key string, v value.Value) {
				result, err := ctx.Engine.Set(key, v)
				if err != nil {
					rejected++
					return
				}
				switch result {
				case engine.SetInserted:
					inserted++
				case engine.SetUpdated:
					updated++
				default:
					rejected++
				}
			}

			if p.Bool("json") {
				for _, raw := range p.Positional {
					dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
					dec.UseNumber()
					var native map[string]interface{}
					if err := dec.Decode(&native); err != nil {
						rejected++
						continue
					}
					for k, nv := range native {
						cv, err := value.FromNative(nv)
						if err != nil {
							rejected++
							continue
						}
						apply(k, cv)
					}
				}
			} else {
				for i := 0; i+1 < len(p.Positional); i += 2 {
					apply(p.Positional[i], literalToValue(p.Positional[i+1]))
				}
			}

			total := inserted + updated
			return Result{
				Status: StatusResponse,
				Message: fmt.Sprintf("%d entries inserted, %d updated, %d rejected",
					inserted, updated, rejected),
				Value: value.Map(map[string]value.Value{
					"inserted": value.Int(int64(inserted)),
					"updated":  value.Int(int64(updated)),
					"rejected": value.Int(int64(rejected)),
					"total":    value.Int(int64(total)),
				}),
			}
		},
	}
}

func deleteCommand() *Command {
	return &Command{
		Name:    "delete",
		Aliases: []string{"remove"},
		Usage:   "delete key...",
		Help:    "Remove one or more entries.",
		Validate: func(p *Parsed) bool {
			return len(p.Positional) >= 1
		},
		Execute: func(p *Parsed, ctx *Context) Result {
			deleted := 0
			for _, key := range p.Positional {
				if ctx.Engine.Remove(key) {
					deleted++
				}
			}
			return Result{
				Status:  StatusResponse,
				Message: fmt.Sprintf("%d item(s) deleted", deleted),
				Value:   value.Int(int64(deleted)),
			}
		},
	}
}

func sanitizeCommand() *Command {
	return &Command{
		Name:  "sanitize",
		Usage: "sanitize (key|value) input... [--trim]",
		Help:  "Preview what sanitization would do to a key or value.",
		Validate: func(p *Parsed) bool {
			if len(p.Positional) < 2 {
				return false
			}
			mode := p.Positional[0]
			return mode == "key" || mode == "value"
		},
		Execute: func(p *Parsed, ctx *Context) Result {
			mode := p.Positional[0]
			inputs := p.Positional[1:]
			trim := p.Bool("trim")

			out := make(map[string]value.Value, len(inputs))
			switch mode {
			case "key":
				for _, in := range inputs {
					out[in] = value.Str(engine.SanitizeKey(in, trim))
				}
			case "value":
				for _, in := range inputs {
					out[in] = engine.SanitizeValue(literalToValue(in))
				}
			}

			return Result{
				Status:     StatusResponse,
				Message:    fmt.Sprintf("sanitized %d input(s)", len(inputs)),
				Value:      value.Map(out),
				PrintValue: true,
			}
		},
	}
}
