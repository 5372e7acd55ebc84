package aol

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/finnegan-hale/meidkv/internal/value"
)

// isSanitizedKeyChar mirrors the charset sanitizeKey produces: letters,
// digits, underscore, hyphen.
func isSanitizedKeyChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

func looksLikeKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isSanitizedKeyChar(r) {
			return false
		}
	}
	return true
}

// Stringify renders a Value using the AOL's textual grammar: N for nil,
// T/F for booleans, the natural decimal form for numbers, and JSON for
// everything else (strings, byte strings, sequences, mappings).
func Stringify(v value.Value) (string, error) {
	switch v.Kind {
	case value.KindNil:
		return "N", nil
	case value.KindBool:
		if v.Bool {
			return "T", nil
		}
		return "F", nil
	case value.KindInt:
		return strconv.FormatInt(v.Int, 10), nil
	case value.KindUint:
		return strconv.FormatUint(v.Uint, 10), nil
	case value.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), nil
	default:
		b, err := json.Marshal(v.ToNative())
		if err != nil {
			return "", errors.Wrap(err, "aol: stringify value")
		}
		return string(b), nil
	}
}

// ParseValue reverses Stringify. Note that a value nested inside a JSON
// sequence or mapping loses the Int/Uint/Float distinction on the way back
// (JSON has one number kind). A top-level number is written as a plain
// decimal, so it reads back as Int whenever it fits in int64 (a Uint up to
// math.MaxInt64 and a whole-number Float both come back as Int), as Uint
// only above that, and as Float otherwise.
func ParseValue(s string) (value.Value, error) {
	switch s {
	case "N":
		return value.Nil(), nil
	case "T":
		return value.Bool(true), nil
	case "F":
		return value.Bool(false), nil
	}

	if len(s) > 0 {
		switch s[0] {
		case '"', '[', '{':
			var native interface{}
			if err := json.Unmarshal([]byte(s), &native); err != nil {
				return value.Value{}, errors.Wrap(err, "aol: parse JSON value")
			}
			return value.FromNative(native)
		}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return value.Uint(u), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f), nil
	}

	return value.Value{}, errors.Newf("aol: cannot parse value %q", s)
}

// StringifySetLine renders a set line for keys that all share value v:
// "key1<key2<...<stringifiedValue".
func StringifySetLine(keys []string, v value.Value) (string, error) {
	if len(keys) == 0 {
		return "", errors.New("aol: set line needs at least one key")
	}
	sv, err := Stringify(v)
	if err != nil {
		return "", err
	}
	return strings.Join(keys, "<") + "<" + sv, nil
}

// ParseSetLine parses a set line back into the map of key -> value it
// represents. Because the stringified value can itself contain "<" (inside
// a JSON string, for instance), the split point between the leading keys
// and the trailing value isn't fixed; this tries the smallest possible
// value suffix first and grows it until the remaining prefix is entirely
// valid keys and the suffix parses as a value.
func ParseSetLine(line string) (map[string]value.Value, error) {
	parts := strings.Split(line, "<")
	for k := 1; k <= len(parts); k++ {
		keyParts := parts[:len(parts)-k]
		if len(keyParts) == 0 {
			continue
		}
		if !allLookLikeKeys(keyParts) {
			continue
		}
		valuePart := strings.Join(parts[len(parts)-k:], "<")
		v, err := ParseValue(valuePart)
		if err != nil {
			continue
		}
		result := make(map[string]value.Value, len(keyParts))
		for _, key := range keyParts {
			result[key] = v
		}
		return result, nil
	}
	return nil, errors.Newf("aol: cannot parse set line %q", line)
}

func allLookLikeKeys(parts []string) bool {
	for _, p := range parts {
		if !looksLikeKey(p) {
			return false
		}
	}
	return true
}

// StringifyRemoveLine renders a remove line: "#key1 #key2 ...".
func StringifyRemoveLine(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", errors.New("aol: remove line needs at least one key")
	}
	tokens := make([]string, len(keys))
	for i, k := range keys {
		tokens[i] = "#" + k
	}
	return strings.Join(tokens, " "), nil
}

// ParseRemoveLine parses a remove line back into its list of keys.
func ParseRemoveLine(line string) ([]string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("aol: empty remove line")
	}
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		if !strings.HasPrefix(f, "#") {
			return nil, errors.Newf("aol: malformed remove token %q", f)
		}
		keys = append(keys, strings.TrimPrefix(f, "#"))
	}
	return keys, nil
}

// IsSetLine reports whether line is a set line (as opposed to a remove line,
// a comment, or blank).
func IsSetLine(line string) bool {
	return line != "" && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, ";")
}

// IsRemoveLine reports whether line is a remove line.
func IsRemoveLine(line string) bool {
	return strings.HasPrefix(line, "#")
}

// IsComment reports whether line should be ignored by replay: blank, or
// starting with ";".
func IsComment(line string) bool {
	return line == "" || strings.HasPrefix(line, ";")
}
