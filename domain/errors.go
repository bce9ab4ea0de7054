// Package domain defines the error taxonomy shared by all services. Every
// failure a caller is expected to act on carries a machine-checkable kind
// next to its human-readable message.
package domain

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindValidation is malformed input, never retried.
	KindValidation Kind = iota + 1
	// KindNotFound is a missing referenced entity.
	KindNotFound
	// KindPreconditionFailed is an entity in a state that does not permit
	// the operation (no calibration data, forecast unavailable).
	KindPreconditionFailed
	// KindUnauthorized is a caller lacking the required relationship.
	KindUnauthorized
	// KindConflict is duplicate state (plant already in community).
	KindConflict
	// KindUpstream is a collaborator failure (forecast provider, notifier).
	KindUpstream
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func PreconditionFailed(msg string) error {
	return &Error{Kind: KindPreconditionFailed, Msg: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// KindOf extracts the kind from anywhere in the error chain, 0 when the
// error carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
