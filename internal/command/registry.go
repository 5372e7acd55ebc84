package command

import (
	"fmt"
	"strings"

	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/lockdown"
	"github.com/finnegan-hale/meidkv/internal/metrics"
	"github.com/finnegan-hale/meidkv/internal/recovery"
	"github.com/finnegan-hale/meidkv/internal/value"
)

// Status is a command dispatch outcome, sharing its numbering with the
// session-level status codes so the shell can render both through one
// switch.
type Status int

const (
	StatusResponse        Status = 0
	StatusCommandNotFound Status = 3
	StatusCommandMismatch Status = 4
	StatusUnexpectedError Status = 5
	StatusKeyNotExist     Status = 6
	StatusExit            Status = 7
	StatusSizeLimit       Status = 9
)

// Result is what an executor hands back to the shell: a human-readable
// message, an optional structured value, a status code, and whether the
// value should be rendered alongside the message.
type Result struct {
	Message     string
	Value       value.Value
	Status      Status
	PrintValue  bool
	ClearScreen bool
	ExitCode    int
}

// SessionSnapshot is a read-only view of one connected session, built by the
// shell's session registry and handed to info sessions. It carries no
// shell or network types of its own, preserving Context's decoupling from
// the shell below.
type SessionSnapshot struct {
	ID            string
	RemoteIP      string
	Alias         string
	Authenticated bool
}

// Context bundles everything a command executor needs, decoupled from any
// particular session or transport so the command package has no import
// dependency on the shell.
type Context struct {
	Engine       *engine.Engine
	Metrics      *metrics.Registry
	Lockdown     *lockdown.Tracker
	LastRecovery recovery.Result
	ShardCount   int
	SessionAlias string
	Sessions     []SessionSnapshot
	AOLPending   int64
}

// Command is one registered built-in: a name, its aliases, an optional
// validator, and an executor.
type Command struct {
	Name     string
	Aliases  []string
	Usage    string
	Help     string
	Validate func(p *Parsed) bool
	Execute  func(p *Parsed, ctx *Context) Result
}

// Registry maps command names (and aliases) to their Command, dispatching
// parsed input lines to the right executor.
type Registry struct {
	byName map[string]*Command
	order  []*Command
}

// NewRegistry returns an empty registry with the built-in commands
// registered.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Command)}
	registerBuiltins(r)
	return r
}

// Register adds cmd under its name and every alias.
func (r *Registry) Register(cmd *Command) {
	r.byName[strings.ToLower(cmd.Name)] = cmd
	for _, alias := range cmd.Aliases {
		r.byName[strings.ToLower(alias)] = cmd
	}
	r.order = append(r.order, cmd)
}

// Commands returns every registered command in registration order, used by
// the help command.
func (r *Registry) Commands() []*Command {
	return r.order
}

// Lookup finds a command by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.byName[strings.ToLower(name)]
	return cmd, ok
}

// Dispatch parses line and runs the matching command, translating an
// unknown name, a failed validator, or an executor panic into the
// corresponding status code rather than propagating an error to the
// caller.
func (r *Registry) Dispatch(line string, ctx *Context) Result {
	parsed, err := Parse(line)
	if err != nil {
		return Result{Status: StatusCommandNotFound, Message: err.Error()}
	}
	if parsed.Name == "" {
		return Result{Status: StatusCommandNotFound, Message: "no command given"}
	}

	cmd, ok := r.Lookup(parsed.Name)
	if !ok {
		return Result{Status: StatusCommandNotFound, Message: fmt.Sprintf("command not found: %s", parsed.Name)}
	}

	if cmd.Validate != nil && !cmd.Validate(parsed) {
		msg := fmt.Sprintf("usage: %s", cmd.Usage)
		if cmd.Usage == "" {
			msg = fmt.Sprintf("invalid arguments for %s", cmd.Name)
		}
		return Result{Status: StatusCommandMismatch, Message: msg}
	}

	return r.safeExecute(cmd, parsed, ctx)
}

func (r *Registry) safeExecute(cmd *Command, parsed *Parsed, ctx *Context) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{
				Status:  StatusUnexpectedError,
				Message: fmt.Sprintf("%s: unexpected error: %v", cmd.Name, rec),
			}
		}
	}()
	return cmd.Execute(parsed, ctx)
}
