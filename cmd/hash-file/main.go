// Command hash-file streams a potentially large file through Blake2b-512
// in fixed-size chunks and writes the 64-byte digest next to it as
// "<path>_hash" (SPEC_FULL.md §4, grounded on
// manta-trusted-setup/src/bin/hash_file.rs). Useful for content-
// addressing a ceremony transcript artifact before publishing it.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"
)

// chunkSize mirrors the original's 1GB read granularity, so hashing a
// multi-gigabyte SRS file doesn't require reading it fully into memory.
const chunkSize = 1 << 30

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "hash-file <path>",
		Short: "Compute the Blake2b-512 digest of a file and write it to <path>_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return hashFile(args[0], log)
		},
	}

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("hash-file failed")
	}
}

func hashFile(path string, log zerolog.Logger) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	h, err := blake2b.New512(nil)
	if err != nil {
		return fmt.Errorf("new blake2b: %w", err)
	}

	buf := make([]byte, chunkSize)
	var gbRead int
	for {
		n, rerr := io.ReadFull(in, buf)
		if n > 0 {
			h.Write(buf[:n])
			gbRead++
			log.Info().Int("chunks_hashed", gbRead).Msg("hashed chunk")
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read %s: %w", path, rerr)
		}
	}

	digest := h.Sum(nil)
	target := path + "_hash"
	if err := os.WriteFile(target, digest, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	log.Info().Str("path", path).Str("hash", fmt.Sprintf("%x", digest)).Str("target", target).Msg("hash written")
	return nil
}
