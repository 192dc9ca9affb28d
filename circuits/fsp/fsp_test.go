package fsp_test

import (
	"crypto/rand"
	"testing"

	"github.com/zk-ceremony/coordinator/circuits/fsp"
	"github.com/zk-ceremony/coordinator/pkg/crypto"
	"github.com/zk-ceremony/coordinator/pkg/merkle"

	"github.com/consensys/gnark-crypto/ecc"
	gnarktest "github.com/consensys/gnark/test"
)

// buildSMT is a test helper that splits data into chunks and builds a
// sparse Merkle tree with domain-separated leaf hashing.
func buildSMT(data []byte) (*merkle.SparseMerkleTree, [][]byte) {
	chunks := merkle.SplitIntoChunks(data, fsp.FileSize)
	zeroLeaf := crypto.ComputeZeroLeafHash(fsp.ElementSize, fsp.NumChunks)
	smt := merkle.GenerateSparseMerkleTree(chunks, fsp.MaxTreeDepth, fsp.HashChunk, zeroLeaf)
	return smt, chunks
}

// TestFSPCircuitIsSolved builds a real witness from random file data and
// checks the constraint system accepts it — the same Define()
// ceremony.CircuitSize compiles to size the private_transfer phase-2
// query vectors.
func TestFSPCircuitIsSolved(t *testing.T) {
	testFileSize := 8 * fsp.FileSize
	wholeFileData := make([]byte, testFileSize)
	if _, err := rand.Read(wholeFileData); err != nil {
		t.Fatalf("generate random data: %v", err)
	}
	smt, _ := buildSMT(wholeFileData)
	t.Logf("Generated %d bytes of random data (%d chunks), root 0x%x", testFileSize, smt.NumLeaves, smt.Root.Bytes())

	result, err := fsp.PrepareWitness(smt)
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}
	t.Logf("NumLeaves: %d", result.NumLeaves)

	if err := gnarktest.IsSolved(&fsp.FSPCircuit{}, &result.Assignment, ecc.BN254.ScalarField()); err != nil {
		t.Fatalf("circuit constraints not satisfied: %v", err)
	}
}

// TestFSPMultipleFileSizes verifies the circuit solves for various file sizes.
func TestFSPMultipleFileSizes(t *testing.T) {
	fileSizes := []struct {
		name       string
		chunkCount int
	}{
		{"1_chunk_16KB", 1},
		{"2_chunks_32KB", 2},
		{"4_chunks_64KB", 4},
		{"8_chunks_128KB", 8},
		{"16_chunks_256KB", 16},
	}

	for _, fs := range fileSizes {
		t.Run(fs.name, func(t *testing.T) {
			testFileSize := fs.chunkCount * fsp.FileSize
			wholeFileData := make([]byte, testFileSize)
			if _, err := rand.Read(wholeFileData); err != nil {
				t.Fatalf("generate random data: %v", err)
			}
			smt, _ := buildSMT(wholeFileData)
			t.Logf("Chunks: %d, NumLeaves: %d", fs.chunkCount, smt.NumLeaves)

			result, err := fsp.PrepareWitness(smt)
			if err != nil {
				t.Fatalf("prepare witness: %v", err)
			}
			t.Logf("NumLeaves: %d", result.NumLeaves)

			if err := gnarktest.IsSolved(&fsp.FSPCircuit{}, &result.Assignment, ecc.BN254.ScalarField()); err != nil {
				t.Fatalf("circuit constraints not satisfied: %v", err)
			}
		})
	}
}
