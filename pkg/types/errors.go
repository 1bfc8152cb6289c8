package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a container record does not exist
var ErrNotFound = errors.New("container not found")

// Kind classifies an operational error for callers that need to branch
// on the failure class rather than the message.
type Kind string

const (
	KindConfig    Kind = "config"    // bundle missing, unparsable, or invalid
	KindSpawn     Kind = "spawn"     // workload executable could not be launched
	KindState     Kind = "state"     // container record or pid file missing/corrupt
	KindSignal    Kind = "signal"    // invalid signal or delivery failure
	KindNamespace Kind = "namespace" // unshare/mount/pivot/join failure
	KindLock      Kind = "lock"      // coordination lock could not be acquired
)

// Error is an operational error tagged with its failure class. The
// wrapped cause is preserved for errors.Is/As chains.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a failure class and the operation that failed
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is NewError with a formatted cause
func Errorf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether any error in err's chain carries the given class
func IsKind(err error, kind Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Err
		e = nil
	}
	return false
}
