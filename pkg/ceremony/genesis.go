package ceremony

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/zk-ceremony/coordinator/pkg/engine"
)

// CircuitSize compiles circuit with gnark's R1CS builder and returns the
// vector length a Phase-2 SRS State for it needs: one h_query/l_query
// element per constraint plus per internal-and-secret wire. The
// coordinator never inspects circuit semantics beyond this (spec.md §1:
// "the coordinator treats circuits opaquely").
func CircuitSize(circuit frontend.Circuit) (int, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return 0, fmt.Errorf("compile circuit: %w", err)
	}
	size := ccs.GetNbConstraints() + ccs.GetNbInternalVariables() + ccs.GetNbSecretVariables()
	if size <= 0 {
		return 0, fmt.Errorf("circuit has no constraints")
	}
	return size, nil
}

// NewGenesisState builds round-0 state for a circuit with the given
// query-vector length. delta_g1/delta_g2 start at the group generators
// (an identity rerandomization factor); h_query/l_query start as
// independent random G1 points standing in for the circuit-specific
// cross terms a real phase-1/phase-2 powers-of-tau derivation would
// produce (out of scope per spec.md §1 — the contribution engine's
// subject is the rerandomization transform, not SRS derivation from an
// R1CS).
func NewGenesisState(eng engine.Engine, queryLen int, rng io.Reader) (State, error) {
	hQuery := make([]engine.G1, queryLen)
	lQuery := make([]engine.G1, queryLen)
	g1 := eng.G1Generator()
	for i := 0; i < queryLen; i++ {
		s, err := eng.RandomScalar(rng)
		if err != nil {
			return State{}, fmt.Errorf("sample h_query[%d]: %w", i, err)
		}
		hQuery[i] = eng.ScalarMulG1(g1, s)

		s2, err := eng.RandomScalar(rng)
		if err != nil {
			return State{}, fmt.Errorf("sample l_query[%d]: %w", i, err)
		}
		lQuery[i] = eng.ScalarMulG1(g1, s2)
	}
	return State{
		DeltaG1: g1,
		DeltaG2: eng.G2Generator(),
		HQuery:  hQuery,
		LQuery:  lQuery,
	}, nil
}
