package verifier

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/mpc"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

const testCircuit = "to_private"

func writeArtifact(t *testing.T, dir, circuit, kind string, round uint64, data []byte) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%d", circuit, kind, round))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func seedOneRoundTranscript(t *testing.T) (dir string, finalState ceremony.State) {
	t.Helper()
	eng := engine.New()
	dir = t.TempDir()

	genesis, err := ceremony.NewGenesisState(eng, 2, rand.Reader)
	if err != nil {
		t.Fatalf("NewGenesisState: %v", err)
	}
	challenge := transcript.Genesis([]string{testCircuit})

	writeArtifact(t, dir, testCircuit, "state", 0, ceremony.EncodeState(eng, &genesis))
	writeArtifact(t, dir, testCircuit, "challenge", 0, challenge[:])

	next, proof, err := mpc.Contribute(eng, genesis, challenge, rand.Reader)
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	writeArtifact(t, dir, testCircuit, "state", 1, ceremony.EncodeState(eng, &next))
	writeArtifact(t, dir, testCircuit, "proof", 1, ceremony.EncodeProof(eng, &proof))

	return dir, next
}

func TestVerifyCeremonyAcceptsHonestTranscript(t *testing.T) {
	eng := engine.New()
	dir, finalState := seedOneRoundTranscript(t)

	results, err := VerifyCeremony(eng, transcript.Blake2b512{}, dir, []string{testCircuit}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("VerifyCeremony: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	res := results[0]
	if res.FinalRound != 1 {
		t.Fatalf("FinalRound = %d, want 1", res.FinalRound)
	}
	if res.FinalState.DeltaG1 != finalState.DeltaG1 {
		t.Fatalf("FinalState does not match the contributed state")
	}
	if len(res.ComputedLines) != 1 {
		t.Fatalf("len(ComputedLines) = %d, want 1", len(res.ComputedLines))
	}

	if !fileExists(filepath.Join(dir, testCircuit+"_computed_challenges")) {
		t.Fatalf("VerifyCeremony did not write a computed-challenges file")
	}
	if !fileExists(filepath.Join(dir, "keys", testCircuit)) {
		t.Fatalf("VerifyCeremony did not write a key artifact")
	}
}

func TestVerifyCeremonyRejectsTamperedState(t *testing.T) {
	eng := engine.New()
	dir, finalState := seedOneRoundTranscript(t)

	tampered := finalState
	tampered.DeltaG1 = eng.AddG1(tampered.DeltaG1, eng.G1Generator())
	writeArtifact(t, dir, testCircuit, "state", 1, ceremony.EncodeState(eng, &tampered))

	if _, err := VerifyCeremony(eng, transcript.Blake2b512{}, dir, []string{testCircuit}, 0, zerolog.Nop()); err == nil {
		t.Fatalf("VerifyCeremony accepted a tampered round-1 state")
	}
}

func TestVerifyCeremonyStopsAtFirstMissingRound(t *testing.T) {
	eng := engine.New()
	dir, _ := seedOneRoundTranscript(t)

	results, err := VerifyCeremony(eng, transcript.Blake2b512{}, dir, []string{testCircuit}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("VerifyCeremony: %v", err)
	}
	// No round-2 artifacts exist, so replay must stop at round 1.
	if results[0].FinalRound != 1 {
		t.Fatalf("FinalRound = %d, want 1 (replay must not invent rounds)", results[0].FinalRound)
	}
}

func TestVerifyCeremonyErrorsOnMissingStartRound(t *testing.T) {
	eng := engine.New()
	dir := t.TempDir()

	if _, err := VerifyCeremony(eng, transcript.Blake2b512{}, dir, []string{testCircuit}, 0, zerolog.Nop()); err == nil {
		t.Fatalf("VerifyCeremony succeeded against an empty ceremony directory")
	}
}
