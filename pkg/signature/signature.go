// Package signature is the signed-request protocol collaborator (spec.md
// C2): signing and verifying (nonce, payload) pairs under a
// participant's verifying key, and the monotonic per-participant nonce
// that makes replay of an old signed message always stale.
package signature

import (
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/crypto/ed25519"
)

// Nonce is a strictly-increasing per-participant counter. The zero value
// is the first nonce a freshly registered participant expects.
type Nonce uint64

// IsValid reports whether the nonce has not saturated. Saturation is the
// AllNoncesUsed condition from spec.md §4.5 step 3.
func (n Nonce) IsValid() bool {
	return n != math.MaxUint64
}

// Next returns the next nonce after n. Callers must check IsValid first.
func (n Nonce) Next() Nonce {
	return n + 1
}

// VerifyingKey identifies a participant's public signing key.
type VerifyingKey = ed25519.PublicKey

// SigningKey is the private counterpart used by ceremony clients
// (contributors) to sign their requests; the coordinator never holds one.
type SigningKey = ed25519.PrivateKey

// Scheme is the signature-scheme collaborator: sign/verify over
// (nonce, message) under per-participant verifying keys.
type Scheme interface {
	// Sign produces a signature over the canonical encoding of (nonce,
	// payload) under key.
	Sign(key SigningKey, nonce Nonce, payload []byte) ([]byte, error)

	// Verify reports whether sig is a valid signature over (nonce,
	// payload) under key.
	Verify(key VerifyingKey, nonce Nonce, payload []byte, sig []byte) error
}

// Ed25519 is the default Scheme.
type Ed25519 struct{}

// signedPayload is the canonical byte string a participant signs: the
// nonce followed by the raw payload bytes, so that a signature over an
// empty Enqueue/Query payload still binds to a specific nonce.
func signedPayload(nonce Nonce, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	for i := 0; i < 8; i++ {
		buf[i] = byte(nonce >> (8 * (7 - i)))
	}
	copy(buf[8:], payload)
	return buf
}

func (Ed25519) Sign(key SigningKey, nonce Nonce, payload []byte) ([]byte, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signature: bad signing key size %d", len(key))
	}
	return ed25519.Sign(key, signedPayload(nonce, payload)), nil
}

func (Ed25519) Verify(key VerifyingKey, nonce Nonce, payload []byte, sig []byte) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("signature: bad verifying key size %d", len(key))
	}
	if !ed25519.Verify(key, signedPayload(nonce, payload), sig) {
		return fmt.Errorf("signature: verification failed")
	}
	return nil
}

// SignedMessage is the wire envelope for all three request kinds
// (Enqueue, Query, Contribute), per spec.md §6.
type SignedMessage struct {
	Identifier [32]byte `json:"identifier"`
	Nonce      Nonce    `json:"nonce"`
	Payload    []byte   `json:"payload"`
	Signature  []byte   `json:"signature"`
}

// Verify checks the message's signature against key using scheme,
// against the nonce the coordinator currently holds for this
// participant.
func (m *SignedMessage) Verify(scheme Scheme, key VerifyingKey, expected Nonce) error {
	if m.Nonce != expected {
		return fmt.Errorf("signature: nonce mismatch: have %d want %d", m.Nonce, expected)
	}
	return scheme.Verify(key, m.Nonce, m.Payload, m.Signature)
}

// MarshalEnvelope renders m as a single JSON object, with no trailing
// newline. cmd/ceremony-server's newline-delimited stdin/stdout transport
// carries a SignedMessage as the "message" field of each request line
// (spec.md's Non-goals exclude a production transport; see SPEC_FULL.md §5).
func (m *SignedMessage) MarshalEnvelope() ([]byte, error) {
	return json.Marshal(m)
}
