// Package transcript implements the deterministic challenge hash chain
// (spec.md C3 / §4.1) that binds each round's state transition into a
// single auditable digest.
package transcript

import (
	"github.com/zk-ceremony/coordinator/config"
	"golang.org/x/crypto/blake2b"
)

// Challenge is a 64-byte Blake2b-512 digest binding the prior challenge,
// the prior state, the new state, and the proof of contribution.
type Challenge [64]byte

// Hash is the transcript-hash collaborator.
type Hash interface {
	// Challenge computes challenge(prev_challenge, prev_state, next_state,
	// proof) over the already-canonically-encoded prevState/nextState/
	// proof byte strings.
	Challenge(prev Challenge, prevStateEnc, nextStateEnc, proofEnc []byte) Challenge

	// BatchScalar derives the public random linear-combination scalar
	// used to batch the h_query/l_query pairing checks (spec.md §4.2
	// step 7), domain-separated from Challenge so that an attacker who
	// controls a proof cannot steer the batching scalar via the same
	// randomness that authenticates the round.
	BatchScalar(prev Challenge, index int) []byte
}

// Blake2b512 is the default Hash, matching spec.md §4.1 exactly.
type Blake2b512 struct{}

func (Blake2b512) Challenge(prev Challenge, prevStateEnc, nextStateEnc, proofEnc []byte) Challenge {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic("transcript: blake2b-512 unavailable: " + err.Error())
	}
	h.Write(prev[:])
	h.Write(prevStateEnc)
	h.Write(nextStateEnc)
	h.Write(proofEnc)
	var out Challenge
	copy(out[:], h.Sum(nil))
	return out
}

func (Blake2b512) BatchScalar(prev Challenge, index int) []byte {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic("transcript: blake2b-512 unavailable: " + err.Error())
	}
	h.Write([]byte(config.BatchScalarDomain))
	h.Write(prev[:])
	h.Write([]byte{byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index)})
	return h.Sum(nil)
}

// Genesis returns Challenge₀, the published constant every transcript
// starts from, seeded by the circuit name list so that a ceremony
// configured with a different circuit set can never be confused with
// another's transcript (SPEC_FULL.md §6 Open Question 2).
func Genesis(circuitNames []string) Challenge {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic("transcript: blake2b-512 unavailable: " + err.Error())
	}
	h.Write([]byte(config.GenesisDomain))
	for _, name := range circuitNames {
		h.Write([]byte{0})
		h.Write([]byte(name))
	}
	var out Challenge
	copy(out[:], h.Sum(nil))
	return out
}
