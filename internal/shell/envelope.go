package shell

import (
	"encoding/json"
	"fmt"

	"github.com/finnegan-hale/meidkv/internal/value"
)

// Envelope is the JSON-mode response shape, one per line.
type Envelope struct {
	Action      string      `json:"action"`
	MessageText string      `json:"message_text"`
	Value       interface{} `json:"value,omitempty"`
	StatusCode  int         `json:"status_code"`
	Status      string      `json:"status"`
	Success     bool        `json:"success"`
}

// renderJSON marshals action/message/value/status into one envelope line,
// falling back to a bare unexpected_error envelope if the value itself
// can't be marshaled (a Seq/Map cycle isn't possible given value.Value's
// shape, but a future Kind addition shouldn't be able to crash a session).
func renderJSON(action, message string, v value.Value, hasValue bool, status Status) string {
	env := Envelope{
		Action:      action,
		MessageText: message,
		StatusCode:  int(status),
		Status:      status.Symbol(),
		Success:     status.Success(),
	}
	if hasValue {
		env.Value = v.ToNative()
	}
	data, err := json.Marshal(env)
	if err != nil {
		fallback := Envelope{
			Action:      action,
			MessageText: fmt.Sprintf("failed to render response: %v", err),
			StatusCode:  int(StatusUnexpectedError),
			Status:      StatusUnexpectedError.Symbol(),
			Success:     false,
		}
		data, _ = json.Marshal(fallback)
	}
	return string(data)
}

// renderEcho formats an echo-mode line: just the message text, with an
// optional JSON-rendered value appended, since the echo mode is meant to
// be read by a human at a raw socket rather than parsed.
func renderEcho(message string, v value.Value, hasValue bool) string {
	if !hasValue {
		return message
	}
	data, err := json.Marshal(v.ToNative())
	if err != nil {
		return message
	}
	if message == "" {
		return string(data)
	}
	return message + " " + string(data)
}
