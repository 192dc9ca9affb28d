package poi_test

import (
	"crypto/rand"
	"testing"

	"github.com/zk-ceremony/coordinator/circuits/poi"
	"github.com/zk-ceremony/coordinator/pkg/crypto"
	"github.com/zk-ceremony/coordinator/pkg/merkle"

	"github.com/consensys/gnark-crypto/ecc"
	gnarktest "github.com/consensys/gnark/test"
)

// buildSMT is a test helper that splits data into chunks and builds a
// sparse Merkle tree with domain-separated leaf hashing.
func buildSMT(data []byte) (*merkle.SparseMerkleTree, [][]byte) {
	chunks := merkle.SplitIntoChunks(data, poi.FileSize)
	zeroLeaf := crypto.ComputeZeroLeafHash(poi.ElementSize, poi.NumChunks)
	smt := merkle.GenerateSparseMerkleTree(chunks, poi.MaxTreeDepth, poi.HashChunk, zeroLeaf)
	return smt, chunks
}

// TestPoICircuitIsSolved builds a real witness from random file data and
// checks the constraint system accepts it. This is the same Define()
// ceremony.CircuitSize compiles to size the to_private phase-2 query
// vectors, so a witness that fails to solve here means the ceremony was
// sized against the wrong circuit.
func TestPoICircuitIsSolved(t *testing.T) {
	testFileSize := 8 * poi.FileSize
	wholeFileData := make([]byte, testFileSize)
	if _, err := rand.Read(wholeFileData); err != nil {
		t.Fatalf("generate random data: %v", err)
	}
	smt, chunks := buildSMT(wholeFileData)
	t.Logf("Generated %d bytes of random data (%d chunks), root 0x%x", testFileSize, smt.NumLeaves, smt.Root.Bytes())

	randomness, err := rand.Int(rand.Reader, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("generate randomness: %v", err)
	}
	secretKey, err := crypto.GenerateSecretKey()
	if err != nil {
		t.Fatalf("generate secret key: %v", err)
	}

	result, err := poi.PrepareWitness(secretKey, randomness, chunks, smt)
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}
	t.Logf("Selected chunk indices: %v", result.ChunkIndices)

	if err := gnarktest.IsSolved(&poi.PoICircuit{}, &result.Assignment, ecc.BN254.ScalarField()); err != nil {
		t.Fatalf("circuit constraints not satisfied: %v", err)
	}
}

// TestPoIMultipleFileSizes verifies the circuit solves for various file sizes.
func TestPoIMultipleFileSizes(t *testing.T) {
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
			testFileSize := fs.chunkCount * poi.FileSize
			wholeFileData := make([]byte, testFileSize)
			if _, err := rand.Read(wholeFileData); err != nil {
				t.Fatalf("generate random data: %v", err)
			}
			smt, chunks := buildSMT(wholeFileData)
			t.Logf("Chunks: %d, NumLeaves: %d", len(chunks), smt.NumLeaves)

			randomness, err := rand.Int(rand.Reader, ecc.BN254.ScalarField())
			if err != nil {
				t.Fatalf("generate randomness: %v", err)
			}
			secretKey, err := crypto.GenerateSecretKey()
			if err != nil {
				t.Fatalf("generate secret key: %v", err)
			}

			result, err := poi.PrepareWitness(secretKey, randomness, chunks, smt)
			if err != nil {
				t.Fatalf("prepare witness: %v", err)
			}

			if err := gnarktest.IsSolved(&poi.PoICircuit{}, &result.Assignment, ecc.BN254.ScalarField()); err != nil {
				t.Fatalf("circuit constraints not satisfied: %v", err)
			}
		})
	}
}
