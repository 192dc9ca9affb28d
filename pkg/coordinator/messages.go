package coordinator

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// Metadata accompanies EnqueueResponse so a client knows the shape of
// the ceremony it just joined (spec.md §6).
type Metadata struct {
	ContributionTimeLimit time.Duration
	CircuitCount          int
	CeremonySize          int
}

// EnqueueResponse is returned by Coordinator.Enqueue.
type EnqueueResponse struct {
	Position int
	Metadata Metadata
}

// QueryStatus discriminates the two QueryResponse shapes spec.md §6
// describes as an enum.
type QueryStatus int

const (
	QueryQueued QueryStatus = iota
	QueryYourTurn
)

// QueryResponse is returned by Coordinator.Query.
type QueryResponse struct {
	Status    QueryStatus
	Position  int                                          // valid when Status == QueryQueued
	State     [config.CircuitCount]ceremony.State           // valid when Status == QueryYourTurn
	Challenge [config.CircuitCount]transcript.Challenge     // valid when Status == QueryYourTurn
}

// ContributeResponse is returned by Coordinator.Update on success.
type ContributeResponse struct {
	Index     uint64
	Challenge [config.CircuitCount]transcript.Challenge
}

// ContributePayload is the decoded `Contribute` request payload: a new
// state and proof per circuit, in CircuitNames order.
type ContributePayload struct {
	State [config.CircuitCount]ceremony.State
	Proof [config.CircuitCount]ceremony.Proof
}

// EncodeContributePayload renders p using the same length-prefixed
// canonical codec ceremony.EncodeState/EncodeProof use for on-disk
// artifacts, so the wire format and the disk format never diverge.
func EncodeContributePayload(eng engine.Engine, p ContributePayload) []byte {
	var buf []byte
	for i := 0; i < config.CircuitCount; i++ {
		buf = appendLenPrefixed(buf, ceremony.EncodeState(eng, &p.State[i]))
	}
	for i := 0; i < config.CircuitCount; i++ {
		buf = appendLenPrefixed(buf, ceremony.EncodeProof(eng, &p.Proof[i]))
	}
	return buf
}

// DecodeContributePayload parses the format EncodeContributePayload
// produces.
func DecodeContributePayload(eng engine.Engine, buf []byte) (ContributePayload, error) {
	var out ContributePayload
	for i := 0; i < config.CircuitCount; i++ {
		chunk, rest, err := readLenPrefixed(buf)
		if err != nil {
			return ContributePayload{}, fmt.Errorf("decode state %d: %w", i, err)
		}
		state, err := ceremony.DecodeState(eng, chunk)
		if err != nil {
			return ContributePayload{}, fmt.Errorf("decode state %d: %w", i, err)
		}
		out.State[i] = state
		buf = rest
	}
	for i := 0; i < config.CircuitCount; i++ {
		chunk, rest, err := readLenPrefixed(buf)
		if err != nil {
			return ContributePayload{}, fmt.Errorf("decode proof %d: %w", i, err)
		}
		proof, err := ceremony.DecodeProof(eng, chunk)
		if err != nil {
			return ContributePayload{}, fmt.Errorf("decode proof %d: %w", i, err)
		}
		out.Proof[i] = proof
		buf = rest
	}
	return out, nil
}

func appendLenPrefixed(buf, chunk []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(chunk)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, chunk...)
}

func readLenPrefixed(buf []byte) (chunk, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("buffer too short for length prefix")
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, fmt.Errorf("buffer too short: want %d have %d", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}
