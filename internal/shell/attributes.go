package shell

import "strings"

// isAttribute reports whether line is an @-prefixed attribute rather than a
// token or a command.
func isAttribute(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "@")
}

// applyAttribute mutates sess according to an @-prefixed line and reports
// whether it recognized the attribute. An unrecognized @-line still counts
// as "handled" from the caller's perspective - it was never a token or a
// command - but ok is false so the caller can surface a mismatch message.
func applyAttribute(sess *Session, line string) (message string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return "", false
	}

	switch strings.ToLower(fields[0]) {
	case "@echo":
		sess.Mode = ModeEcho
		return "mode set to echo", true
	case "@json":
		sess.Mode = ModeJSON
		return "mode set to json", true
	case "@timing":
		if len(fields) != 2 {
			return "usage: @timing on|off", false
		}
		switch strings.ToLower(fields[1]) {
		case "on":
			sess.Timing = true
			return "timing enabled", true
		case "off":
			sess.Timing = false
			return "timing disabled", true
		default:
			return "usage: @timing on|off", false
		}
	default:
		return "unrecognized attribute: " + fields[0], false
	}
}
