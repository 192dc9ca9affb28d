package mpc

import (
	"bytes"
	"fmt"

	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// VerifyTransform checks proof against (prevChallenge, prevState,
// nextState) in the order spec.md §4.2 lists, and on success returns the
// next transcript challenge together with nextState (so the caller never
// needs to recompute either from parts it has already validated).
func VerifyTransform(
	eng engine.Engine,
	hasher transcript.Hash,
	prevChallenge transcript.Challenge,
	prevState, nextState ceremony.State,
	proof ceremony.Proof,
) (transcript.Challenge, ceremony.State, error) {
	// 1. on-curve / in-subgroup for every point in next_state and the proof.
	if err := nextState.Validate(eng); err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("subgroup-check", err)
	}
	if !eng.InSubgroupG1(proof.S) || !eng.InSubgroupG1(proof.SDelta) {
		return transcript.Challenge{}, ceremony.State{}, invalid("subgroup-check", fmt.Errorf("proof G1 elements"))
	}
	if !eng.InSubgroupG2(proof.RDelta) || !eng.InSubgroupG2(proof.TranscriptG2) {
		return transcript.Challenge{}, ceremony.State{}, invalid("subgroup-check", fmt.Errorf("proof G2 elements"))
	}
	if len(prevState.HQuery) != len(nextState.HQuery) || len(prevState.LQuery) != len(nextState.LQuery) {
		return transcript.Challenge{}, ceremony.State{}, invalid("shape-check", fmt.Errorf("query vector length changed"))
	}

	// 2. s, s_delta nonzero.
	if eng.IsIdentityG1(proof.S) || eng.IsIdentityG1(proof.SDelta) {
		return transcript.Challenge{}, ceremony.State{}, invalid("nonzero-check", fmt.Errorf("s or s_delta is the identity"))
	}

	// 3. recompute r.
	r, err := fiatShamirR(eng, prevChallenge, proof.S, proof.SDelta)
	if err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("fiat-shamir", err)
	}

	g2Gen := eng.G2Generator()

	// P1: e(s_delta, G2) == e(s, transcript_g2) — knowledge of δ s.t. s_delta = δ·s.
	ok, err := eng.PairingsEqual(proof.SDelta, g2Gen, proof.S, proof.TranscriptG2)
	if err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("P1", err)
	}
	if !ok {
		return transcript.Challenge{}, ceremony.State{}, invalid("P1", fmt.Errorf("pairing mismatch"))
	}

	// P2: e(r_delta, G2) == e(r, transcript_g2) — binds δ to the Fiat-Shamir challenge.
	ok, err = eng.PairingsEqual(proof.RDelta, g2Gen, r, proof.TranscriptG2)
	if err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("P2", err)
	}
	if !ok {
		return transcript.Challenge{}, ceremony.State{}, invalid("P2", fmt.Errorf("pairing mismatch"))
	}

	// P3: e(prev.delta_g1, transcript_g2) == e(next.delta_g1, G2) — delta consistently multiplied.
	ok, err = eng.PairingsEqual(prevState.DeltaG1, proof.TranscriptG2, nextState.DeltaG1, g2Gen)
	if err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("P3", err)
	}
	if !ok {
		return transcript.Challenge{}, ceremony.State{}, invalid("P3", fmt.Errorf("pairing mismatch"))
	}

	// 7. Batched check that h_query/l_query were scaled by δ⁻¹ uniformly:
	// e(next.q[i], next.delta_g2) == e(prev.q[i], prev.delta_g2) for every i,
	// batched into two pairing checks total via a random linear combination
	// of the G1 side (spec.md §4.2 step 7).
	if err := batchedQueryCheck(eng, hasher, prevChallenge, 0, prevState.HQuery, nextState.HQuery, prevState.DeltaG2, nextState.DeltaG2); err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("P-batch-h", err)
	}
	if err := batchedQueryCheck(eng, hasher, prevChallenge, 1, prevState.LQuery, nextState.LQuery, prevState.DeltaG2, nextState.DeltaG2); err != nil {
		return transcript.Challenge{}, ceremony.State{}, invalid("P-batch-l", err)
	}

	prevEnc := ceremony.EncodeState(eng, &prevState)
	nextEnc := ceremony.EncodeState(eng, &nextState)
	proofEnc := ceremony.EncodeProof(eng, &proof)
	nextChallenge := hasher.Challenge(prevChallenge, prevEnc, nextEnc, proofEnc)

	return nextChallenge, nextState, nil
}

// batchedQueryCheck verifies, for a single random linear combination
// coefficient per element, that
//
//	e(Σ rᵢ·nextQuery[i], nextDeltaG2) == e(Σ rᵢ·prevQuery[i], prevDeltaG2).
//
// batchTag distinguishes the h_query batch (0) from the l_query batch (1)
// so the two checks don't share a coefficient stream.
func batchedQueryCheck(
	eng engine.Engine,
	hasher transcript.Hash,
	prevChallenge transcript.Challenge,
	batchTag int,
	prevQuery, nextQuery []engine.G1,
	prevDeltaG2, nextDeltaG2 engine.G2,
) error {
	if len(prevQuery) == 0 {
		return nil
	}
	var accumPrev, accumNext engine.G1
	accumPrev = identityG1(eng)
	accumNext = identityG1(eng)

	for i := range prevQuery {
		seed := hasher.BatchScalar(prevChallenge, batchTag*1_000_000_000+i)
		coeff, err := eng.RandomScalar(bytes.NewReader(seed))
		if err != nil {
			return fmt.Errorf("derive batch coefficient %d: %w", i, err)
		}
		accumPrev = addG1(eng, accumPrev, eng.ScalarMulG1(prevQuery[i], coeff))
		accumNext = addG1(eng, accumNext, eng.ScalarMulG1(nextQuery[i], coeff))
	}

	ok, err := eng.PairingsEqual(accumNext, nextDeltaG2, accumPrev, prevDeltaG2)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pairing mismatch")
	}
	return nil
}

// identityG1 returns the G1 identity element via a zero scalar
// multiplication, so batch accumulation never depends on gnark-crypto
// exposing an explicit identity constructor.
func identityG1(eng engine.Engine) engine.G1 {
	var zero engine.Scalar
	return eng.ScalarMulG1(eng.G1Generator(), zero)
}

func addG1(eng engine.Engine, a, b engine.G1) engine.G1 {
	return eng.AddG1(a, b)
}
