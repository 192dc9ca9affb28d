package mpc

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

func genesis(t *testing.T, eng engine.Engine, queryLen int) (ceremony.State, transcript.Challenge) {
	t.Helper()
	state, err := ceremony.NewGenesisState(eng, queryLen, rand.Reader)
	if err != nil {
		t.Fatalf("NewGenesisState: %v", err)
	}
	return state, transcript.Genesis([]string{"to_private"})
}

func TestContributeThenVerifyTransformAccepts(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 3)

	next, proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	nextChallenge, verifiedState, err := VerifyTransform(eng, hasher, challenge, state, next, proof)
	if err != nil {
		t.Fatalf("VerifyTransform rejected an honest contribution: %v", err)
	}
	if verifiedState.DeltaG1 != next.DeltaG1 {
		t.Fatalf("verified state does not match the contributed state")
	}
	if nextChallenge == challenge {
		t.Fatalf("challenge did not advance across a round")
	}
}

func TestVerifyTransformRejectsDeltaG1Tamper(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 2)

	next, proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	next.DeltaG1 = eng.AddG1(next.DeltaG1, eng.G1Generator())

	if _, _, err := VerifyTransform(eng, hasher, challenge, state, next, proof); err == nil {
		t.Fatalf("VerifyTransform accepted a tampered delta_g1")
	} else if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestVerifyTransformRejectsHQueryTamper(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 4)

	next, proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	next.HQuery[1] = eng.AddG1(next.HQuery[1], eng.G1Generator())

	if _, _, err := VerifyTransform(eng, hasher, challenge, state, next, proof); err == nil {
		t.Fatalf("VerifyTransform accepted a tampered h_query element")
	}
}

func TestVerifyTransformRejectsLQueryTamper(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 4)

	next, proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	next.LQuery[0] = eng.AddG1(next.LQuery[0], eng.G1Generator())

	if _, _, err := VerifyTransform(eng, hasher, challenge, state, next, proof); err == nil {
		t.Fatalf("VerifyTransform accepted a tampered l_query element")
	}
}

func TestVerifyTransformRejectsReplayedProofAgainstWrongChallenge(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 2)

	next, proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	var otherChallenge transcript.Challenge
	otherChallenge[0] = 0xFF
	if _, _, err := VerifyTransform(eng, hasher, otherChallenge, state, next, proof); err == nil {
		t.Fatalf("VerifyTransform accepted a proof bound to a different challenge")
	}
}

func TestVerifyTransformRejectsQueryLengthChange(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 2)

	next, proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	next.HQuery = next.HQuery[:1]

	if _, _, err := VerifyTransform(eng, hasher, challenge, state, next, proof); err == nil {
		t.Fatalf("VerifyTransform accepted a changed query vector length")
	}
}

func TestContributeChainOfTwoRounds(t *testing.T) {
	eng := engine.New()
	hasher := transcript.Blake2b512{}
	state, challenge := genesis(t, eng, 2)

	round1State, round1Proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("round 1 Contribute: %v", err)
	}
	challenge, state, err = verifyAndAdvance(eng, hasher, challenge, state, round1State, round1Proof)
	if err != nil {
		t.Fatalf("round 1 VerifyTransform: %v", err)
	}

	round2State, round2Proof, err := Contribute(eng, state, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("round 2 Contribute: %v", err)
	}
	if _, _, err := VerifyTransform(eng, hasher, challenge, state, round2State, round2Proof); err != nil {
		t.Fatalf("round 2 VerifyTransform: %v", err)
	}
}

func verifyAndAdvance(eng engine.Engine, hasher transcript.Hash, challenge transcript.Challenge, state, next ceremony.State, proof ceremony.Proof) (transcript.Challenge, ceremony.State, error) {
	return VerifyTransform(eng, hasher, challenge, state, next, proof)
}
