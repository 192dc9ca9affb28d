package mpc

import "errors"

// ErrInvalidProof is returned by VerifyTransform for any failed check
// (spec.md §4.2: "Any check failure yields VerifyError::InvalidProof").
// It is fatal for the round: the coordinator rejects the contribution and
// the contributor loses their slot (spec.md §7).
var ErrInvalidProof = errors.New("mpc: invalid proof of contribution")

// VerifyError wraps ErrInvalidProof with the specific failed check, for
// logging; callers that only care about the outcome should compare with
// errors.Is(err, ErrInvalidProof).
type VerifyError struct {
	Check string
	Err   error
}

func (e *VerifyError) Error() string {
	return "mpc: invalid proof of contribution: " + e.Check + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() error {
	return ErrInvalidProof
}

func invalid(check string, err error) error {
	return &VerifyError{Check: check, Err: err}
}
