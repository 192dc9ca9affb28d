// Package engine adapts the pairing-friendly group collaborator (spec.md
// C1) that the contribution engine and offline verifier are built
// against. The ceremony's math (pkg/mpc) depends only on this interface,
// never on gnark-crypto directly, so an alternative curve backend could
// be substituted without touching the protocol logic.
package engine

import (
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Scalar is an element of the BN254 scalar field.
type Scalar = fr.Element

// G1 is an affine point on the BN254 G1 curve.
type G1 = bn254.G1Affine

// G2 is an affine point on the BN254 G2 curve.
type G2 = bn254.G2Affine

// EncodedG1 is the canonical little-endian compressed encoding of a G1
// point (spec.md §4.1: "Canonical encoding of group elements uses
// compressed point serialization in little-endian").
type EncodedG1 [bn254.SizeOfG1AffineCompressed]byte

// EncodedG2 is the canonical little-endian compressed encoding of a G2
// point.
type EncodedG2 [bn254.SizeOfG2AffineCompressed]byte

// Engine is the pairing-friendly group collaborator: scalar
// multiplication, pairing equality, canonical serialization, and the
// Fiat-Shamir point derivation used to bind a contribution's secret
// scalar to the transcript. All methods are pure; Engine never touches
// I/O or shared state.
type Engine interface {
	// G1Generator returns the canonical BN254 G1 generator.
	G1Generator() G1

	// G2Generator returns the canonical BN254 G2 generator.
	G2Generator() G2

	// RandomScalar samples a uniformly random nonzero scalar from rng.
	RandomScalar(rng io.Reader) (Scalar, error)

	// InvertScalar returns s⁻¹. s must be nonzero.
	InvertScalar(s Scalar) (Scalar, error)

	// ScalarMulG1 returns [s]·p.
	ScalarMulG1(p G1, s Scalar) G1

	// ScalarMulG2 returns [s]·p.
	ScalarMulG2(p G2, s Scalar) G2

	// AddG1 returns p+q. Used to accumulate the random linear combination
	// in the batched query-vector check (spec.md §4.2 step 7).
	AddG1(p, q G1) G1

	// IsIdentityG1 reports whether p is the G1 identity element.
	IsIdentityG1(p G1) bool

	// InSubgroupG1 reports whether p lies on the curve and in the
	// prime-order subgroup.
	InSubgroupG1(p G1) bool

	// InSubgroupG2 reports whether p lies on the curve and in the
	// prime-order subgroup.
	InSubgroupG2(p G2) bool

	// HashToG1 deterministically derives a G1 point from domain and the
	// concatenation of parts, used for the Fiat-Shamir challenge point r
	// in the proof of contribution (spec.md §4.2).
	HashToG1(domain string, parts ...[]byte) (G1, error)

	// PairingsEqual reports whether e(a1, a2) == e(b1, b2).
	PairingsEqual(a1 G1, a2 G2, b1 G1, b2 G2) (bool, error)

	// EncodeG1 / DecodeG1 / EncodeG2 / DecodeG2 implement the canonical
	// little-endian compressed codec (spec.md §4.1).
	EncodeG1(p G1) EncodedG1
	DecodeG1(b EncodedG1) (G1, error)
	EncodeG2(p G2) EncodedG2
	DecodeG2(b EncodedG2) (G2, error)
}
