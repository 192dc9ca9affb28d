// Command ceremony-verifier replays a ceremony transcript from a
// starting round, independent of any running coordinator (spec.md §4.6
// / §6, grounded on
// manta-trusted-setup/src/bin/groth16_phase2_verifier.rs).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
	"github.com/zk-ceremony/coordinator/pkg/verifier"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "ceremony-verifier <path> <start_round>",
		Short: "Replay a ceremony transcript and write computed challenges and contribution hashes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parse start_round: %w", err)
			}
			return run(args[0], start, log)
		},
	}

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("ceremony-verifier failed")
	}
}

func run(path string, start uint64, log zerolog.Logger) error {
	eng := engine.New()
	hasher := transcript.Blake2b512{}

	results, err := verifier.VerifyCeremony(eng, hasher, path, config.CircuitNames[:], start, log)
	if err != nil {
		return err
	}
	for _, res := range results {
		log.Info().Str("circuit", res.Circuit).Uint64("final_round", res.FinalRound).Msg("circuit verified")
	}

	if err := verifier.WriteContributionHashes(path); err != nil {
		return fmt.Errorf("combine contribution hashes: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Verification complete. Contribution hashes written to %s/contribution_hashes.txt\n", path)
	return nil
}
