// Package mpc implements the contribution engine (spec.md C5): the
// contribute and verify_transform primitives that rerandomize a
// circuit's SRS and check a successor state against its predecessor.
// The engine is pure; it never touches I/O, mirroring spec.md §4.2's
// "the engine is otherwise pure; it does not touch I/O."
package mpc

import (
	"fmt"
	"io"

	"github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// Contribute applies a fresh random contribution to state, returning the
// rerandomized successor state and a proof of knowledge of the scalar δ
// (spec.md §4.2).
func Contribute(eng engine.Engine, state ceremony.State, challenge transcript.Challenge, rng io.Reader) (ceremony.State, ceremony.Proof, error) {
	delta, err := eng.RandomScalar(rng)
	if err != nil {
		return ceremony.State{}, ceremony.Proof{}, fmt.Errorf("sample delta: %w", err)
	}
	deltaInv, err := eng.InvertScalar(delta)
	if err != nil {
		return ceremony.State{}, ceremony.Proof{}, fmt.Errorf("invert delta: %w", err)
	}

	next := ceremony.State{
		DeltaG1: eng.ScalarMulG1(state.DeltaG1, delta),
		DeltaG2: eng.ScalarMulG2(state.DeltaG2, delta),
		HQuery:  make([]engine.G1, len(state.HQuery)),
		LQuery:  make([]engine.G1, len(state.LQuery)),
	}
	for i, p := range state.HQuery {
		next.HQuery[i] = eng.ScalarMulG1(p, deltaInv)
	}
	for i, p := range state.LQuery {
		next.LQuery[i] = eng.ScalarMulG1(p, deltaInv)
	}

	s, err := eng.RandomScalar(rng)
	if err != nil {
		return ceremony.State{}, ceremony.Proof{}, fmt.Errorf("sample s: %w", err)
	}
	sPoint := eng.ScalarMulG1(eng.G1Generator(), s)
	sDelta := eng.ScalarMulG1(sPoint, delta)

	r, err := fiatShamirR(eng, challenge, sPoint, sDelta)
	if err != nil {
		return ceremony.State{}, ceremony.Proof{}, fmt.Errorf("derive r: %w", err)
	}
	rDelta := eng.ScalarMulG1(r, delta)

	proof := ceremony.Proof{
		S:            sPoint,
		SDelta:       sDelta,
		RDelta:       rDelta,
		TranscriptG2: next.DeltaG2,
	}
	return next, proof, nil
}

// fiatShamirR derives r = H_to_G1(challenge, s, s_delta) (spec.md §4.2),
// domain-separated per SPEC_FULL.md §6 Open Question 2.
func fiatShamirR(eng engine.Engine, challenge transcript.Challenge, s, sDelta engine.G1) (engine.G1, error) {
	sEnc := eng.EncodeG1(s)
	sDeltaEnc := eng.EncodeG1(sDelta)
	return eng.HashToG1(config.HashToG1Domain, challenge[:], sEnc[:], sDeltaEnc[:])
}
