// Command process-registration ingests two registration-form CSV
// exports into one coordinator registry.csv (SPEC_FULL.md §4, grounded
// on manta-trusted-setup/src/bin/process_registration.rs, whose two
// differently-headered forms RegistrationInfoV1/V2 this mirrors as two
// ImportCSV passes over the same registry).
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/pkg/registry"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "process-registration <raw_csv_v1> <raw_csv_v2> <out_csv>",
		Short: "Merge two registration-form exports into one coordinator registry.csv",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], args[2], log)
		},
	}

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("process-registration failed")
	}
}

func run(v1Path, v2Path, outPath string, log zerolog.Logger) error {
	reg := registry.New()
	// No early-tester overrides in the default CLI invocation; a future
	// flag could thread a priority_list CSV through here the way the
	// original's extract_registry parameter allowed.
	overrides := map[registry.PID]uint8{}
	defaultPriority := uint8(config.MaxPriority)

	v1, err := os.Open(v1Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", v1Path, err)
	}
	ok1, bad1, err := registry.ImportCSV(reg, v1, overrides, defaultPriority)
	v1.Close()
	if err != nil {
		return fmt.Errorf("process %s: %w", v1Path, err)
	}
	log.Info().Str("file", v1Path).Int("successful", ok1).Int("malformed", bad1).Msg("registration form v1 processed")

	v2, err := os.Open(v2Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", v2Path, err)
	}
	ok2, bad2, err := registry.ImportCSV(reg, v2, overrides, defaultPriority)
	v2.Close()
	if err != nil {
		return fmt.Errorf("process %s: %w", v2Path, err)
	}
	log.Info().Str("file", v2Path).Int("successful", ok2).Int("malformed", bad2).Msg("registration form v2 processed")

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	if err := registry.ExportCSV(out, reg, reg.PIDs()); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Info().Str("out", outPath).Int("total", reg.Len()).Msg("registry written")
	return nil
}
