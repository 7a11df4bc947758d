package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a scoring failure so callers can tell setup problems from
// transient network problems and from upstream contract drift.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfiguration  Kind = "configuration"
	KindNetwork        Kind = "network"
	KindResponseFormat Kind = "response_format"
	KindEvaluation     Kind = "evaluation"
)

// Error is the tagged error returned by every scorer and upstream client.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports caller input that is incomplete or malformed.
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ConfigurationError reports a deployment problem such as a missing credential.
func ConfigurationError(op, message string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: message}
}

// NetworkError reports a connection-level failure reaching a dependency.
func NetworkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "dependency unreachable", Err: err}
}

// ResponseFormatError reports an upstream response that could not be interpreted.
func ResponseFormatError(op string, status int, message string) *Error {
	return &Error{Kind: KindResponseFormat, Op: op, StatusCode: status, Message: message}
}

// EvaluationError wraps any other failure of a quality-estimation call.
func EvaluationError(op string, err error) *Error {
	return &Error{Kind: KindEvaluation, Op: op, Message: "evaluation failed", Err: err}
}

// KindOf returns the Kind carried by err, or an empty Kind for untagged errors.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// IsTransportError reports whether err came from the transport layer rather
// than from the upstream service itself.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
