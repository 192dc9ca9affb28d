// Package ceremony holds the per-circuit SRS state and proof-of-
// contribution types (spec.md C4) and their canonical byte encodings.
// The types here carry no behavior beyond encode/decode and structural
// validity; the transform and verification algorithms live in pkg/mpc.
package ceremony

import (
	"fmt"

	"github.com/zk-ceremony/coordinator/pkg/engine"
)

// State is the phase-2 structured reference string for one circuit: a
// shared delta pair and the h_query/l_query vectors it rerandomizes.
// Invariant: every element lies on the curve and in the prime-order
// subgroup (checked by Validate, not enforced by the type itself).
type State struct {
	DeltaG1 engine.G1
	DeltaG2 engine.G2
	HQuery  []engine.G1
	LQuery  []engine.G1
}

// Clone returns a deep copy of s, so that a snapshot handed to a client
// (spec.md §5: "Snapshots given to clients ... are deep copies") can
// never alias the coordinator's live state.
func (s *State) Clone() State {
	out := State{
		DeltaG1: s.DeltaG1,
		DeltaG2: s.DeltaG2,
		HQuery:  make([]engine.G1, len(s.HQuery)),
		LQuery:  make([]engine.G1, len(s.LQuery)),
	}
	copy(out.HQuery, s.HQuery)
	copy(out.LQuery, s.LQuery)
	return out
}

// Validate checks the on-curve/in-subgroup invariant for every element of
// s using eng.
func (s *State) Validate(eng engine.Engine) error {
	if !eng.InSubgroupG1(s.DeltaG1) {
		return fmt.Errorf("ceremony: delta_g1 not in prime-order subgroup")
	}
	if !eng.InSubgroupG2(s.DeltaG2) {
		return fmt.Errorf("ceremony: delta_g2 not in prime-order subgroup")
	}
	if len(s.HQuery) != len(s.LQuery) {
		return fmt.Errorf("ceremony: h_query/l_query length mismatch %d/%d", len(s.HQuery), len(s.LQuery))
	}
	for i, p := range s.HQuery {
		if !eng.InSubgroupG1(p) {
			return fmt.Errorf("ceremony: h_query[%d] not in prime-order subgroup", i)
		}
	}
	for i, p := range s.LQuery {
		if !eng.InSubgroupG1(p) {
			return fmt.Errorf("ceremony: l_query[%d] not in prime-order subgroup", i)
		}
	}
	return nil
}

// Proof is the proof of knowledge of the contribution scalar δ (spec.md
// §3): a fresh random G1 point s, its δ-scaling s_delta, the Fiat-Shamir
// response r_delta, and the new delta_g2 the proof is bound to.
type Proof struct {
	S            engine.G1
	SDelta       engine.G1
	RDelta       engine.G2
	TranscriptG2 engine.G2
}
