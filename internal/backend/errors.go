package backend

import (
	"fmt"
)

// ErrorKind categorizes backend failures for handling at the call site.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindNotFound
	KindEmptyID
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindNotFound:
		return "conversation not found"
	case KindEmptyID:
		return "empty conversation id"
	}
	return "unknown error"
}

// Error is returned by every Client method. Status is the HTTP status code
// when the backend answered, zero for transport failures.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, backend.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Status == 0 && t.Err == nil
}

// Sentinel errors for errors.Is checks.
var (
	ErrNetwork  = &Error{Kind: KindNetwork}
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrEmptyID  = &Error{Kind: KindEmptyID}
)

func networkError(op string, status int, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Status: status, Err: err}
}
