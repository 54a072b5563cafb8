package types

import "fmt"

// ErrorKind classifies every way an operation can fail. Callers branch on
// the kind, never on message text.
type ErrorKind string

const (
	// Policy failures; the command was rejected before any process spawned.
	KindBlocked ErrorKind = "blocked"

	// Scope failures from path validation.
	KindNotAbsolute   ErrorKind = "not_absolute"
	KindOutsideScope  ErrorKind = "outside_allowed_scope"
	KindNotAFile      ErrorKind = "not_a_file"
	KindParentMissing ErrorKind = "parent_missing"

	// Match and file failures.
	KindNotFound       ErrorKind = "not_found"
	KindAmbiguousMatch ErrorKind = "ambiguous_match"
	KindNotText        ErrorKind = "not_text"
	KindNotWritable    ErrorKind = "not_writable"

	// Runtime failures.
	KindStillRunning ErrorKind = "still_running"
	KindSpawnFailed  ErrorKind = "spawn_failed"
)

// Error is the typed failure returned by every fallible operation.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Matches is set for ambiguous_match: how many occurrences were found.
	Matches int `json:"matches,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError creates a typed error.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AmbiguousMatchError reports n matches where exactly one was expected.
func AmbiguousMatchError(n int) *Error {
	return &Error{
		Kind:    KindAmbiguousMatch,
		Message: fmt.Sprintf("found %d matches, expected exactly one; add surrounding context or set replaceAll", n),
		Matches: n,
	}
}

// KindOf returns the kind of a typed error, or "" for any other error.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
