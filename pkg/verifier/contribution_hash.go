package verifier

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// circuitOrder is the fixed order spec.md §4.6 step 4 combines the three
// per-circuit challenges in: to_private, to_public, private_transfer.
// This is not the `State`/`CircuitNames` array's own index order
// (`to_private, private_transfer, to_public`) — a future circuit-count
// change must not silently reorder it, hence the explicit list here
// rather than deriving it from config.CircuitNames.
var circuitOrder = []string{"to_private", "to_public", "private_transfer"}

// roundChallenge is one line of a `<circuit>_computed_challenges` file:
// "<hex challenge> round <r>".
type roundChallenge struct {
	challenge []byte
	round     uint64
}

func readComputedChallenges(dir, circuit string) ([]roundChallenge, error) {
	f, err := os.Open(filepath.Join(dir, circuit+"_computed_challenges"))
	if err != nil {
		return nil, fmt.Errorf("open %s_computed_challenges: %w", circuit, err)
	}
	defer f.Close()

	var out []roundChallenge
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[1] != "round" {
			return nil, fmt.Errorf("malformed line in %s_computed_challenges: %q", circuit, line)
		}
		challenge, err := hex.DecodeString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("decode challenge in %s_computed_challenges: %w", circuit, err)
		}
		round, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse round in %s_computed_challenges: %w", circuit, err)
		}
		out = append(out, roundChallenge{challenge: challenge, round: round})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteContributionHashes reads every circuit's `<circuit>_computed_
// challenges` file out of dir, combines the three per-round challenges
// in circuitOrder for each matching round, and writes
// `contribution_hashes.txt` (spec.md §4.6 step 4 / §6): one
// "<hex hash> round <r>" line per round, where
// hash = Blake2b-512(challenge_to_private ‖ challenge_to_public ‖
// challenge_private_transfer).
func WriteContributionHashes(dir string) error {
	perCircuit := make([][]roundChallenge, len(circuitOrder))
	for i, circuit := range circuitOrder {
		lines, err := readComputedChallenges(dir, circuit)
		if err != nil {
			return fmt.Errorf("verifier: %w", err)
		}
		perCircuit[i] = lines
	}

	n := len(perCircuit[0])
	for i, lines := range perCircuit {
		if len(lines) != n {
			return fmt.Errorf("verifier: circuit %s has %d computed rounds, want %d", circuitOrder[i], len(lines), n)
		}
	}

	out, err := os.Create(filepath.Join(dir, "contribution_hashes.txt"))
	if err != nil {
		return fmt.Errorf("verifier: create contribution_hashes.txt: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	for idx := 0; idx < n; idx++ {
		round := perCircuit[0][idx].round
		for _, lines := range perCircuit[1:] {
			if lines[idx].round != round {
				return fmt.Errorf("verifier: round mismatch across circuits at index %d", idx)
			}
		}

		h, err := blake2b.New512(nil)
		if err != nil {
			return fmt.Errorf("verifier: new blake2b: %w", err)
		}
		for _, lines := range perCircuit {
			h.Write(lines[idx].challenge)
		}
		digest := h.Sum(nil)

		if _, err := fmt.Fprintf(w, "%x round %d\n", digest, round); err != nil {
			return fmt.Errorf("verifier: write contribution hash: %w", err)
		}
	}

	return w.Flush()
}
