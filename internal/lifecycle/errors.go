package lifecycle

import "fmt"

// Kind tags a lifecycle error so the Control API can map it to a status
// code without inspecting the message (spec.md §7's error taxonomy).
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindNoPath           Kind = "no_path"
	KindAdmissionRefused Kind = "admission_refused"
	KindAlreadyActive    Kind = "already_active"
	KindNotActive        Kind = "not_active"
	KindDriverError      Kind = "driver_error"
)

// Error is the error type every Manager method returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, for DriverError; nil otherwise
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func errNoPath(format string, args ...any) *Error {
	return &Error{Kind: KindNoPath, Message: fmt.Sprintf(format, args...)}
}

func errAdmissionRefused(reason string) *Error {
	return &Error{Kind: KindAdmissionRefused, Message: reason}
}

func errAlreadyActive(name string) *Error {
	return &Error{Kind: KindAlreadyActive, Message: fmt.Sprintf("slice already active: %s", name)}
}

func errNotActive(name string) *Error {
	return &Error{Kind: KindNotActive, Message: fmt.Sprintf("slice not active: %s", name)}
}

func errDriver(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindDriverError, Message: fmt.Sprintf(format, args...), Err: cause}
}
