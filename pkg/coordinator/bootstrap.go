package coordinator

import (
	"fmt"
	"os"

	cfgpkg "github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// Bootstrap prepares cfg.CeremonyDir for a Coordinator and returns the
// round it should start from: round 0 with genesisStates freshly
// written to disk for a brand-new ceremony directory, or the highest
// complete round's persisted states and challenges when cfg.CeremonyDir
// already holds a transcript (spec.md §4.6: "on restart, the coordinator
// adopts the highest contiguous round with complete on-disk artifacts").
// genesisStates is indexed the same way as cfg.CircuitNames and is only
// used when no prior round exists.
func Bootstrap(eng engine.Engine, cfg Config, genesisStates [cfgpkg.CircuitCount]ceremony.State) ([cfgpkg.CircuitCount]ceremony.State, [cfgpkg.CircuitCount]transcript.Challenge, uint64, error) {
	var states [cfgpkg.CircuitCount]ceremony.State
	var challenges [cfgpkg.CircuitCount]transcript.Challenge

	if err := os.MkdirAll(cfg.CeremonyDir, 0o755); err != nil {
		return states, challenges, 0, fmt.Errorf("coordinator: create ceremony dir %s: %w", cfg.CeremonyDir, err)
	}

	round := highestCompleteRound(cfg.CeremonyDir, cfg.CircuitNames[:])
	if round == 0 && !fileExists(artifactPath(cfg.CeremonyDir, cfg.CircuitNames[0], "state", 0)) {
		genesis := transcript.Genesis(cfg.CircuitNames[:])
		for i, circuit := range cfg.CircuitNames {
			states[i] = genesisStates[i]
			challenges[i] = genesis
			if err := writeStateFile(eng, cfg.CeremonyDir, circuit, 0, states[i]); err != nil {
				return states, challenges, 0, fmt.Errorf("coordinator: write genesis state for %s: %w", circuit, err)
			}
			if err := writeChallengeFile(cfg.CeremonyDir, circuit, 0, challenges[i]); err != nil {
				return states, challenges, 0, fmt.Errorf("coordinator: write genesis challenge for %s: %w", circuit, err)
			}
		}
		if err := writeCircuitNames(cfg.CeremonyDir, cfg.CircuitNames[:]); err != nil {
			return states, challenges, 0, fmt.Errorf("coordinator: write circuit_names: %w", err)
		}
		return states, challenges, 0, nil
	}

	for i, circuit := range cfg.CircuitNames {
		st, err := readStateFile(eng, cfg.CeremonyDir, circuit, round)
		if err != nil {
			return states, challenges, 0, fmt.Errorf("coordinator: recover state round %d circuit %s: %w", round, circuit, err)
		}
		ch, err := readChallengeFile(cfg.CeremonyDir, circuit, round)
		if err != nil {
			return states, challenges, 0, fmt.Errorf("coordinator: recover challenge round %d circuit %s: %w", round, circuit, err)
		}
		states[i] = st
		challenges[i] = ch
	}
	return states, challenges, round, nil
}
