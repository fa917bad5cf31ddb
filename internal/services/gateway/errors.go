package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindRejected    Kind = "rejected"
	KindMalformed   Kind = "malformed"
)

// Sentinels for errors.Is checks against *Error values.
var (
	ErrUnavailable = errors.New("payment gateway unavailable")
	ErrRejected    = errors.New("payment gateway rejected the request")
	ErrMalformed   = errors.New("payment gateway returned a malformed response")
)

// Error is returned by every Gateway call that fails.
type Error struct {
	Kind Kind
	// Message is the processor's own message when it sent one.
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

// MessageOf extracts the processor message carried by err, if any.
func MessageOf(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	return ""
}

func unavailable(err error) error {
	return &Error{Kind: KindUnavailable, Err: err}
}

func rejected(status int, message string) error {
	return &Error{Kind: KindRejected, Status: status, Message: message}
}

func malformed(message string, err error) error {
	return &Error{Kind: KindMalformed, Message: message, Err: err}
}
