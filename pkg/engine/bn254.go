package engine

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
)

// BN254 is the default Engine, backed by gnark-crypto's BN254 curve.
type BN254 struct{}

// New returns the default BN254-backed Engine.
func New() BN254 {
	return BN254{}
}

func (BN254) G1Generator() G1 {
	_, _, g1, _ := bn254.Generators()
	return g1
}

func (BN254) G2Generator() G2 {
	_, _, _, g2 := bn254.Generators()
	return g2
}

// RandomScalar reads 48 bytes from rng (enough to bias-reduce mod the
// ~254-bit scalar field order negligibly) and reduces them modulo the
// field order, retrying on the negligible-probability zero outcome.
func (BN254) RandomScalar(rng io.Reader) (Scalar, error) {
	modulus := fr.Modulus()
	buf := make([]byte, 48)
	for {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return Scalar{}, fmt.Errorf("read randomness: %w", err)
		}
		v := new(big.Int).SetBytes(buf)
		v.Mod(v, modulus)
		if v.Sign() == 0 {
			continue
		}
		var s Scalar
		s.SetBigInt(v)
		return s, nil
	}
}

func (BN254) InvertScalar(s Scalar) (Scalar, error) {
	if s.IsZero() {
		return Scalar{}, fmt.Errorf("invert: scalar is zero")
	}
	var inv Scalar
	inv.Inverse(&s)
	return inv, nil
}

func (BN254) ScalarMulG1(p G1, s Scalar) G1 {
	var out G1
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(&p, bi)
	return out
}

func (BN254) ScalarMulG2(p G2, s Scalar) G2 {
	var out G2
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(&p, bi)
	return out
}

// AddG1 returns p+q via Jacobian addition, converting back to affine.
func (BN254) AddG1(p, q G1) G1 {
	var pJac, qJac, outJac bn254.G1Jac
	pJac.FromAffine(&p)
	qJac.FromAffine(&q)
	outJac.Set(&pJac).AddAssign(&qJac)
	var out G1
	out.FromJacobian(&outJac)
	return out
}

func (BN254) IsIdentityG1(p G1) bool {
	return p.IsInfinity()
}

func (BN254) InSubgroupG1(p G1) bool {
	return p.IsOnCurve() && p.IsInSubGroup()
}

func (BN254) InSubgroupG2(p G2) bool {
	return p.IsOnCurve() && p.IsInSubGroup()
}

// HashToG1 derives a scalar from Blake2b-512(domain || parts...) and
// multiplies the G1 generator by it. This is used rather than a true
// hash-to-curve map because r only needs to be unpredictable to the prover before it commits
// to s and s_delta, and recomputable by the verifier; a deterministic
// scalar multiple of the known generator satisfies both.
func (e BN254) HashToG1(domain string, parts ...[]byte) (G1, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return G1{}, fmt.Errorf("new blake2b: %w", err)
	}
	h.Write([]byte(domain))
	for _, part := range parts {
		h.Write(part)
	}
	digest := h.Sum(nil)

	modulus := fr.Modulus()
	v := new(big.Int).SetBytes(digest)
	v.Mod(v, modulus)
	var s Scalar
	s.SetBigInt(v)
	return e.ScalarMulG1(e.G1Generator(), s), nil
}

func (BN254) PairingsEqual(a1 G1, a2 G2, b1 G1, b2 G2) (bool, error) {
	var negB1 G1
	negB1.Neg(&b1)
	return bn254.PairingCheck([]bn254.G1Affine{a1, negB1}, []bn254.G2Affine{a2, b2})
}

func (BN254) EncodeG1(p G1) EncodedG1 {
	be := p.Bytes()
	var out EncodedG1
	reverse(out[:], be[:])
	return out
}

func (BN254) DecodeG1(b EncodedG1) (G1, error) {
	var be [bn254.SizeOfG1AffineCompressed]byte
	reverse(be[:], b[:])
	var p G1
	if _, err := p.SetBytes(be[:]); err != nil {
		return G1{}, fmt.Errorf("decode G1: %w", err)
	}
	return p, nil
}

func (BN254) EncodeG2(p G2) EncodedG2 {
	be := p.Bytes()
	var out EncodedG2
	reverse(out[:], be[:])
	return out
}

func (BN254) DecodeG2(b EncodedG2) (G2, error) {
	var be [bn254.SizeOfG2AffineCompressed]byte
	reverse(be[:], b[:])
	var p G2
	if _, err := p.SetBytes(be[:]); err != nil {
		return G2{}, fmt.Errorf("decode G2: %w", err)
	}
	return p, nil
}

// reverse copies src into dst in reverse byte order. dst and src must be
// the same length.
func reverse(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}
