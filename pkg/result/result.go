// Package result defines the unified error taxonomy used across the data
// hub: every operation that can fail reports one of a small set of codes
// instead of an ad-hoc error string, so callers can branch on errors.Is
// against the sentinel values below.
package result

import "fmt"

// Code is one of the hub's unified result codes.
type Code string

const (
	// Ok is returned by helpers that return a Code directly instead of an
	// error (most operations instead return nil on success).
	Ok Code = "ok"

	// Duplicate indicates a type/units mismatch on an idempotent create, or
	// that a routing change would introduce a cycle.
	Duplicate Code = "duplicate"

	// NoMemory indicates an allocation failure during coercion or sample
	// construction.
	NoMemory Code = "no_memory"

	// BadParameter indicates a malformed path, malformed JSON, or other
	// invalid argument.
	BadParameter Code = "bad_parameter"

	// NotFound indicates a missing entry or a path outside the requested
	// base's subtree.
	NotFound Code = "not_found"

	// Unavailable indicates a resource has no current value.
	Unavailable Code = "unavailable"

	// Overflow indicates a fixed-size buffer could not hold its output.
	Overflow Code = "overflow"

	// NotPermitted indicates a namespace policy denial.
	NotPermitted Code = "not_permitted"

	// Fault is the generic internal-error code.
	Fault Code = "fault"
)

// Error is the error type carrying a Code plus optional context. Every
// fallible core operation returns either nil or an *Error.
type Error struct {
	Code      Code
	Message   string
	Path      string
	Operation string
	Err       error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with the given code, wrapping an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithPath annotates the error with the path being operated on.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithOperation annotates the error with the operation being performed.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Operation != "":
		return fmt.Sprintf("[%s] %s (path=%s, op=%s)%s", e.Code, e.Message, e.Path, e.Operation, e.suffix())
	case e.Path != "":
		return fmt.Sprintf("[%s] %s (path=%s)%s", e.Code, e.Message, e.Path, e.suffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Code, e.Message, e.suffix())
	}
}

func (e *Error) suffix() string {
	if e.Err == nil {
		return ""
	}
	return ": " + e.Err.Error()
}

// Unwrap returns the underlying error, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code. This lets
// callers write errors.Is(err, result.New(result.NotFound, "")) — or more
// idiomatically, use the Is* helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func is(err error, code Code) bool {
	var e *Error
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	_ = e
	return false
}

// IsDuplicate reports whether err is a Duplicate result.
func IsDuplicate(err error) bool { return is(err, Duplicate) }

// IsNotFound reports whether err is a NotFound result.
func IsNotFound(err error) bool { return is(err, NotFound) }

// IsNotPermitted reports whether err is a NotPermitted result.
func IsNotPermitted(err error) bool { return is(err, NotPermitted) }

// IsBadParameter reports whether err is a BadParameter result.
func IsBadParameter(err error) bool { return is(err, BadParameter) }

// IsOverflow reports whether err is an Overflow result.
func IsOverflow(err error) bool { return is(err, Overflow) }

// IsUnavailable reports whether err is an Unavailable result.
func IsUnavailable(err error) bool { return is(err, Unavailable) }
