package core

import (
	"errors"
	"fmt"
)

// Kind classifies failures returned by the entry service.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Error is a failure of a known kind. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare kind sentinels (ErrNotFound, ErrAlreadyExists,
// ErrInvalidInput) against any Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
)

var (
	ErrEmptyDescription   = &Error{Kind: KindInvalidInput, Msg: "empty description"}
	ErrDescriptionTooLong = &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf("description too long (max %d characters)", maxDescriptionLen)}
	ErrInvalidAmount      = &Error{Kind: KindInvalidInput, Msg: "invalid amount"}
	ErrZeroDate           = &Error{Kind: KindInvalidInput, Msg: "date cannot be zero"}
)

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func AlreadyExists(op, msg string) error {
	return &Error{Kind: KindAlreadyExists, Op: op, Msg: msg}
}

func Invalid(op, msg string) error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
