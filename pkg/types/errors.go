package types

import "fmt"

// ValidationError reports a declared resource that violates a constraint.
// It is always returned before any mutating command is issued.
type ValidationError struct {
	Resource string // e.g. "Volume[vol1]", filled in by the caller when known
	Field    string
	Value    string
	Reason   string
	Err      error // underlying cause, if any
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		if e.Value != "" {
			msg = fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
		} else {
			msg = fmt.Sprintf("%s: %s", e.Field, e.Reason)
		}
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s", e.Resource, msg)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
