package verifier

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

func writeComputedChallengesFile(t *testing.T, dir, circuit string, challenges [][32]byte) {
	t.Helper()
	path := filepath.Join(dir, circuit+"_computed_challenges")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i, c := range challenges {
		fmt.Fprintf(w, "%x round %d\n", c[:], i+1)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}
}

func randomChallenges(t *testing.T, n int) [][32]byte {
	t.Helper()
	out := make([][32]byte, n)
	for i := range out {
		if _, err := rand.Read(out[i][:]); err != nil {
			t.Fatalf("rand.Read: %v", err)
		}
	}
	return out
}

func TestWriteContributionHashesCombinesInFixedOrder(t *testing.T) {
	dir := t.TempDir()
	toPrivate := randomChallenges(t, 2)
	toPublic := randomChallenges(t, 2)
	privateTransfer := randomChallenges(t, 2)

	writeComputedChallengesFile(t, dir, "to_private", toPrivate)
	writeComputedChallengesFile(t, dir, "to_public", toPublic)
	writeComputedChallengesFile(t, dir, "private_transfer", privateTransfer)

	if err := WriteContributionHashes(dir); err != nil {
		t.Fatalf("WriteContributionHashes: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "contribution_hashes.txt"))
	if err != nil {
		t.Fatalf("read contribution_hashes.txt: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}

	h, err := blake2b.New512(nil)
	if err != nil {
		t.Fatalf("blake2b.New512: %v", err)
	}
	h.Write(toPrivate[0][:])
	h.Write(toPublic[0][:])
	h.Write(privateTransfer[0][:])
	wantDigest := fmt.Sprintf("%x round 1", h.Sum(nil))
	if lines[0] != wantDigest {
		t.Fatalf("round-1 line = %q, want %q", lines[0], wantDigest)
	}
}

func TestWriteContributionHashesRejectsMismatchedRoundCounts(t *testing.T) {
	dir := t.TempDir()
	writeComputedChallengesFile(t, dir, "to_private", randomChallenges(t, 2))
	writeComputedChallengesFile(t, dir, "to_public", randomChallenges(t, 1))
	writeComputedChallengesFile(t, dir, "private_transfer", randomChallenges(t, 2))

	if err := WriteContributionHashes(dir); err == nil {
		t.Fatalf("WriteContributionHashes accepted mismatched round counts across circuits")
	}
}

func TestWriteContributionHashesErrorsOnMissingCircuitFile(t *testing.T) {
	dir := t.TempDir()
	writeComputedChallengesFile(t, dir, "to_private", randomChallenges(t, 1))
	// to_public and private_transfer files are missing entirely.

	if err := WriteContributionHashes(dir); err == nil {
		t.Fatalf("WriteContributionHashes accepted a directory missing a circuit's computed-challenges file")
	}
}
