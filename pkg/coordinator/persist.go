package coordinator

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// artifactPath builds the on-disk round filename spec.md §6 specifies:
// "<circuit>_<kind>_<round>".
func artifactPath(dir, circuit, kind string, round uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%d", circuit, kind, round))
}

func writeStateFile(eng engine.Engine, dir, circuit string, round uint64, s ceremony.State) error {
	return writeFileAtomic(artifactPath(dir, circuit, "state", round), ceremony.EncodeState(eng, &s))
}

func writeChallengeFile(dir, circuit string, round uint64, c transcript.Challenge) error {
	return writeFileAtomic(artifactPath(dir, circuit, "challenge", round), c[:])
}

func writeProofFile(eng engine.Engine, dir, circuit string, round uint64, p ceremony.Proof) error {
	return writeFileAtomic(artifactPath(dir, circuit, "proof", round), ceremony.EncodeProof(eng, &p))
}

// writeFileAtomic writes to a temp file in the same directory and
// renames it into place, so a crash mid-write never leaves a
// half-written round artifact for crash recovery's completeness scan to
// mistake for a finished one (spec.md §7: "partial writes are detected
// by missing-companion-file heuristics and discarded").
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func readStateFile(eng engine.Engine, dir, circuit string, round uint64) (ceremony.State, error) {
	buf, err := os.ReadFile(artifactPath(dir, circuit, "state", round))
	if err != nil {
		return ceremony.State{}, err
	}
	return ceremony.DecodeState(eng, buf)
}

func readChallengeFile(dir, circuit string, round uint64) (transcript.Challenge, error) {
	buf, err := os.ReadFile(artifactPath(dir, circuit, "challenge", round))
	if err != nil {
		return transcript.Challenge{}, err
	}
	var c transcript.Challenge
	if len(buf) != len(c) {
		return transcript.Challenge{}, fmt.Errorf("challenge file has length %d, want %d", len(buf), len(c))
	}
	copy(c[:], buf)
	return c, nil
}

func readProofFile(eng engine.Engine, dir, circuit string, round uint64) (ceremony.Proof, error) {
	buf, err := os.ReadFile(artifactPath(dir, circuit, "proof", round))
	if err != nil {
		return ceremony.Proof{}, err
	}
	return ceremony.DecodeProof(eng, buf)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// highestCompleteRound scans dir for the highest round r such that
// every circuit has a complete {state_r, challenge_r} pair (and, for
// r >= 1, a proof_r), per spec.md §4.5: "crash recovery uses the
// on-disk artifacts: the highest contiguous round with complete files
// is adopted as the current round."
func highestCompleteRound(dir string, circuitNames []string) uint64 {
	var round uint64
	for r := uint64(0); ; r++ {
		complete := true
		for _, circuit := range circuitNames {
			if !fileExists(artifactPath(dir, circuit, "state", r)) {
				complete = false
				break
			}
			if !fileExists(artifactPath(dir, circuit, "challenge", r)) {
				complete = false
				break
			}
			if r >= 1 && !fileExists(artifactPath(dir, circuit, "proof", r)) {
				complete = false
				break
			}
		}
		if !complete {
			break
		}
		round = r
	}
	return round
}

// writeCircuitNames writes the circuit_names file (spec.md §6).
func writeCircuitNames(dir string, names []string) error {
	var buf []byte
	for _, n := range names {
		buf = append(buf, []byte(n)...)
		buf = append(buf, '\n')
	}
	return writeFileAtomic(filepath.Join(dir, "circuit_names"), buf)
}
