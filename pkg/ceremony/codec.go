package ceremony

import (
	"encoding/binary"
	"fmt"

	"github.com/zk-ceremony/coordinator/pkg/engine"
)

// EncodeState returns the canonical byte encoding of s: delta_g1,
// delta_g2, then h_query and l_query each as a little-endian uint32
// length prefix followed by their compressed points, in that order.
// This is the "canonical(state)" input to the transcript hash (spec.md
// §4.1) and the on-disk <circuit>_state_<r> format (spec.md §6).
func EncodeState(eng engine.Engine, s *State) []byte {
	g1 := eng.EncodeG1(s.DeltaG1)
	g2 := eng.EncodeG2(s.DeltaG2)
	buf := make([]byte, 0, len(g1)+len(g2)+8+len(s.HQuery)*len(g1)+len(s.LQuery)*len(g1))
	buf = append(buf, g1[:]...)
	buf = append(buf, g2[:]...)
	buf = appendVector(buf, eng, s.HQuery)
	buf = appendVector(buf, eng, s.LQuery)
	return buf
}

func appendVector(buf []byte, eng engine.Engine, v []engine.G1) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
	buf = append(buf, lenBuf[:]...)
	for _, p := range v {
		enc := eng.EncodeG1(p)
		buf = append(buf, enc[:]...)
	}
	return buf
}

// DecodeState parses the canonical encoding produced by EncodeState.
func DecodeState(eng engine.Engine, buf []byte) (State, error) {
	var g1enc engine.EncodedG1
	var g2enc engine.EncodedG2
	if len(buf) < len(g1enc)+len(g2enc) {
		return State{}, fmt.Errorf("ceremony: state buffer too short")
	}
	copy(g1enc[:], buf[:len(g1enc)])
	buf = buf[len(g1enc):]
	copy(g2enc[:], buf[:len(g2enc)])
	buf = buf[len(g2enc):]

	deltaG1, err := eng.DecodeG1(g1enc)
	if err != nil {
		return State{}, fmt.Errorf("decode delta_g1: %w", err)
	}
	deltaG2, err := eng.DecodeG2(g2enc)
	if err != nil {
		return State{}, fmt.Errorf("decode delta_g2: %w", err)
	}

	hQuery, buf, err := readVector(eng, buf)
	if err != nil {
		return State{}, fmt.Errorf("decode h_query: %w", err)
	}
	lQuery, _, err := readVector(eng, buf)
	if err != nil {
		return State{}, fmt.Errorf("decode l_query: %w", err)
	}

	return State{DeltaG1: deltaG1, DeltaG2: deltaG2, HQuery: hQuery, LQuery: lQuery}, nil
}

func readVector(eng engine.Engine, buf []byte) ([]engine.G1, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("buffer too short for length prefix")
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	var g1enc engine.EncodedG1
	elemSize := len(g1enc)
	out := make([]engine.G1, n)
	for i := uint32(0); i < n; i++ {
		if len(buf) < elemSize {
			return nil, nil, fmt.Errorf("buffer too short for element %d", i)
		}
		copy(g1enc[:], buf[:elemSize])
		buf = buf[elemSize:]
		p, err := eng.DecodeG1(g1enc)
		if err != nil {
			return nil, nil, fmt.Errorf("decode element %d: %w", i, err)
		}
		out[i] = p
	}
	return out, buf, nil
}

// EncodeProof returns the canonical byte encoding of p: s, s_delta,
// r_delta, transcript_g2, each as a compressed point.
func EncodeProof(eng engine.Engine, p *Proof) []byte {
	s := eng.EncodeG1(p.S)
	sDelta := eng.EncodeG1(p.SDelta)
	rDelta := eng.EncodeG2(p.RDelta)
	transcriptG2 := eng.EncodeG2(p.TranscriptG2)
	buf := make([]byte, 0, len(s)+len(sDelta)+len(rDelta)+len(transcriptG2))
	buf = append(buf, s[:]...)
	buf = append(buf, sDelta[:]...)
	buf = append(buf, rDelta[:]...)
	buf = append(buf, transcriptG2[:]...)
	return buf
}

// DecodeProof parses the canonical encoding produced by EncodeProof.
func DecodeProof(eng engine.Engine, buf []byte) (Proof, error) {
	var g1enc engine.EncodedG1
	var g2enc engine.EncodedG2
	want := 2*len(g1enc) + 2*len(g2enc)
	if len(buf) != want {
		return Proof{}, fmt.Errorf("ceremony: proof buffer has length %d, want %d", len(buf), want)
	}

	copy(g1enc[:], buf[:len(g1enc)])
	buf = buf[len(g1enc):]
	s, err := eng.DecodeG1(g1enc)
	if err != nil {
		return Proof{}, fmt.Errorf("decode s: %w", err)
	}

	copy(g1enc[:], buf[:len(g1enc)])
	buf = buf[len(g1enc):]
	sDelta, err := eng.DecodeG1(g1enc)
	if err != nil {
		return Proof{}, fmt.Errorf("decode s_delta: %w", err)
	}

	copy(g2enc[:], buf[:len(g2enc)])
	buf = buf[len(g2enc):]
	rDelta, err := eng.DecodeG2(g2enc)
	if err != nil {
		return Proof{}, fmt.Errorf("decode r_delta: %w", err)
	}

	copy(g2enc[:], buf[:len(g2enc)])
	transcriptG2, err := eng.DecodeG2(g2enc)
	if err != nil {
		return Proof{}, fmt.Errorf("decode transcript_g2: %w", err)
	}

	return Proof{S: s, SDelta: sDelta, RDelta: rDelta, TranscriptG2: transcriptG2}, nil
}
