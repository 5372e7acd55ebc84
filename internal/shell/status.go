package shell

// Status is the full session-level status code space. Codes 0, 3, 4, 5, 6,
// 7 and 9 overlap exactly with internal/command.Status's numbering - both
// packages share one code table, split across two layers: this package
// owns the negative auth/mode codes plus 1, 2 and 8, command.Registry owns
// the rest.
type Status int

const (
	StatusModeChanged    Status = -3
	StatusAuthorized     Status = -2
	StatusNotAuthorized  Status = -1
	StatusResponse       Status = 0
	StatusTimeout        Status = 1
	StatusAuthorizeAgain Status = 2
	StatusCommandNotFound Status = 3
	StatusCommandMismatch Status = 4
	StatusUnexpectedError Status = 5
	StatusKeyNotExist     Status = 6
	StatusExit            Status = 7
	StatusFullRoom        Status = 8
	StatusSizeLimit       Status = 9
)

var statusSymbols = map[Status]string{
	StatusModeChanged:     "mode_changed",
	StatusAuthorized:      "authorized",
	StatusNotAuthorized:   "not_authorized",
	StatusResponse:        "response",
	StatusTimeout:         "timeout",
	StatusAuthorizeAgain:  "authorize_again",
	StatusCommandNotFound: "command_not_found",
	StatusCommandMismatch: "command_mismatch",
	StatusUnexpectedError: "unexpected_error",
	StatusKeyNotExist:     "key_not_exist",
	StatusExit:            "exit",
	StatusFullRoom:        "full_room",
	StatusSizeLimit:       "size_limit",
}

var statusSuccess = map[Status]bool{
	StatusModeChanged:     true,
	StatusAuthorized:      true,
	StatusNotAuthorized:   true,
	StatusResponse:        true,
	StatusTimeout:         false,
	StatusAuthorizeAgain:  false,
	StatusCommandNotFound: false,
	StatusCommandMismatch: false,
	StatusUnexpectedError: false,
	StatusKeyNotExist:     false,
	StatusExit:            true,
	StatusFullRoom:        false,
	StatusSizeLimit:       false,
}

// Symbol returns a status code's symbolic name, or "unknown" for a code
// outside the table.
func (s Status) Symbol() string {
	if sym, ok := statusSymbols[s]; ok {
		return sym
	}
	return "unknown"
}

// Success reports whether a status code represents a successful outcome.
func (s Status) Success() bool {
	return statusSuccess[s]
}
