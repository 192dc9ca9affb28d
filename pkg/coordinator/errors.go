package coordinator

import (
	"errors"
	"fmt"

	"github.com/zk-ceremony/coordinator/pkg/signature"
)

// Code is the error-code enum from spec.md §7.
type Code int

const (
	CodeNotRegistered Code = iota
	CodeAlreadyContributed
	CodeInvalidSignature
	CodeNotYourTurn
	CodeTimeout
	CodeBadRequest
	CodeUnexpected
)

func (c Code) String() string {
	switch c {
	case CodeNotRegistered:
		return "NotRegistered"
	case CodeAlreadyContributed:
		return "AlreadyContributed"
	case CodeInvalidSignature:
		return "InvalidSignature"
	case CodeNotYourTurn:
		return "NotYourTurn"
	case CodeTimeout:
		return "Timeout"
	case CodeBadRequest:
		return "BadRequest"
	default:
		return "Unexpected"
	}
}

// Error is the coordinator's typed response error (spec.md §7's error
// table, realized as a Go error rather than a response-only enum so
// every return path — logging included — shares one representation).
type Error struct {
	Code          Code
	ExpectedNonce *signature.Nonce
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("coordinator: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("coordinator: %s", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, err error) error {
	return &Error{Code: code, Err: err}
}

func newInvalidSignature(expected signature.Nonce, err error) error {
	return &Error{Code: CodeInvalidSignature, ExpectedNonce: &expected, Err: err}
}

// ErrNotRegistered, etc. are sentinels for errors.Is checks against the
// Code rather than a specific wrapped cause.
var (
	ErrNotRegistered      = errors.New("coordinator: participant not registered")
	ErrAlreadyContributed = errors.New("coordinator: participant already contributed")
	ErrAllNoncesUsed      = errors.New("coordinator: participant's nonce space is exhausted")
)
