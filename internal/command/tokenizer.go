package command

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Tokenize splits a command line into tokens. It understands single- and
// double-quoted strings (no escape sequences inside them - a quote closes
// on the next matching quote character) and otherwise splits on
// unquoted whitespace. A quote opens a quoted string only at the start of
// a token; a quote character inside a bare token is kept literally, so an
// unquoted JSON object stays one token.
func Tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false
	var quote rune

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
			continue
		}

		switch {
		case (r == '\'' || r == '"') && !inToken:
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			flush()
		default:
			inToken = true
			current.WriteRune(r)
		}
	}

	if quote != 0 {
		return nil, errors.New("command: unterminated quoted string")
	}
	flush()
	return tokens, nil
}

// Parsed is a tokenized command line split into its name, positional
// arguments, and flags.
type Parsed struct {
	Name       string
	Positional []string
	Flags      map[string]string // --name=value
	Bools      map[string]bool   // --name or -x with no value
	Raw        string
}

// Parse tokenizes line and classifies every token after the first as
// either a positional argument, a `--name=value` flag, or a `--name`/`-x`
// boolean flag.
func Parse(line string) (*Parsed, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return nil, err
	}

	p := &Parsed{
		Flags: make(map[string]string),
		Bools: make(map[string]bool),
		Raw:   line,
	}
	if len(tokens) == 0 {
		return p, nil
	}

	p.Name = tokens[0]
	for _, tok := range tokens[1:] {
		switch {
		case strings.HasPrefix(tok, "--"):
			body := strings.TrimPrefix(tok, "--")
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				p.Flags[body[:eq]] = body[eq+1:]
			} else {
				p.Bools[body] = true
			}
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			p.Bools[strings.TrimPrefix(tok, "-")] = true
		default:
			p.Positional = append(p.Positional, tok)
		}
	}
	return p, nil
}

// Flag returns a --name=value flag's value and whether it was present.
func (p *Parsed) Flag(name string) (string, bool) {
	v, ok := p.Flags[name]
	return v, ok
}

// boolAliases maps a long flag name to the short forms that mean the same
// thing, so a command only has to check the long name through Bool.
var boolAliases = map[string][]string{
	"json": {"j"},
}

// Bool reports whether a boolean flag was present, under its long name, a
// --name=value flag of the same name, or any of its short aliases.
func (p *Parsed) Bool(name string) bool {
	if p.Bools[name] {
		return true
	}
	if _, ok := p.Flags[name]; ok {
		return true
	}
	for _, alias := range boolAliases[name] {
		if p.Bools[alias] {
			return true
		}
	}
	return false
}
