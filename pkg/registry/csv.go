package registry

import (
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"

	"github.com/zk-ceremony/coordinator/pkg/signature"
)

// csvColumns are the header names this ingester looks for. Both of the
// original registration form's two header layouts ("v1" and "v2") carry
// these four literal column names among a much longer, form-specific
// list; everything else in a row is ignored (spec.md §1 treats CSV
// ingestion as an external collaborator — we only need these four
// fields to build a Record).
var csvColumns = []string{"twitter", "email", "verifying_key", "signature"}

// DerivePID computes the participant identifier from a verifying key:
// Blake2b-256 of the raw key bytes. PID is never supplied by the
// participant directly, so two different keys can never collide into
// the same identity by construction.
func DerivePID(verifyingKey []byte) PID {
	return PID(blake2b.Sum256(verifyingKey))
}

// ImportCSV reads one registration-form export, verifies each row's
// self-signed proof of verifying-key ownership, and inserts a new Record
// for every row that validates. priorityOverrides supplies a non-default
// starting priority for specific participants (e.g. early testers),
// looked up by the PID derived from their verifying key — the
// `priority_list` parameter the original ingester threads through
// `extract_registry`. defaultPriority is used for everyone else.
//
// Returns the count of rows inserted and the count of malformed or
// unverifiable rows, mirroring the original's
// "{successful} processed successfully, {malformed} malformed" summary.
func ImportCSV(reg *Registry, r io.Reader, priorityOverrides map[PID]uint8, defaultPriority uint8) (successful, malformed int, err error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("registry: read csv header: %w", err)
	}
	colIndex, err := columnIndex(header, csvColumns)
	if err != nil {
		return 0, 0, fmt.Errorf("registry: %w", err)
	}

	for {
		row, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return successful, malformed, fmt.Errorf("registry: read csv row: %w", rerr)
		}

		twitter := row[colIndex["twitter"]]
		email := row[colIndex["email"]]
		verifyingKeyHex := row[colIndex["verifying_key"]]
		signatureHex := row[colIndex["signature"]]

		verifyingKey, derr := hex.DecodeString(verifyingKeyHex)
		if derr != nil || len(verifyingKey) != ed25519.PublicKeySize {
			malformed++
			continue
		}
		sig, derr := hex.DecodeString(signatureHex)
		if derr != nil {
			malformed++
			continue
		}
		if !ed25519.Verify(ed25519.PublicKey(verifyingKey), verifyingKey, sig) {
			malformed++
			continue
		}

		pid := DerivePID(verifyingKey)
		priority := defaultPriority
		if p, ok := priorityOverrides[pid]; ok {
			priority = p
		}
		err := reg.Insert(pid, Record{
			VerifyingKey: verifyingKey,
			Nonce:        0,
			Priority:     priority,
			Contributed:  false,
			Twitter:      twitter,
			Email:        email,
		})
		if err != nil {
			malformed++
			continue
		}
		successful++
	}
	return successful, malformed, nil
}

func columnIndex(header []string, want []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	out := make(map[string]int, len(want))
	for _, w := range want {
		i, ok := idx[w]
		if !ok {
			return nil, fmt.Errorf("missing required column %q", w)
		}
		out[w] = i
	}
	return out, nil
}

// ExportCSV writes reg's records in registry.csv format (spec.md §6's
// on-disk `registry.csv`), one row per pid in the order given so the
// caller controls determinism (e.g. sorted by PID for reproducible
// diffs).
func ExportCSV(w io.Writer, reg *Registry, pids []PID) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"pid", "twitter", "email", "verifying_key", "nonce", "priority", "contributed"}); err != nil {
		return fmt.Errorf("registry: write header: %w", err)
	}
	for _, pid := range pids {
		rec, err := reg.Get(pid)
		if err != nil {
			return fmt.Errorf("registry: export %s: %w", pid, err)
		}
		row := []string{
			hex.EncodeToString(pid[:]),
			rec.Twitter,
			rec.Email,
			hex.EncodeToString(rec.VerifyingKey),
			strconv.FormatUint(uint64(rec.Nonce), 10),
			strconv.FormatUint(uint64(rec.Priority), 10),
			strconv.FormatBool(rec.Contributed),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("registry: write row for %s: %w", pid, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// registryCSVColumns are the columns ExportCSV writes and LoadCSV reads
// back — the coordinator's own on-disk registry.csv format (spec.md §6),
// distinct from the raw registration-form columns ImportCSV consumes.
var registryCSVColumns = []string{"pid", "twitter", "email", "verifying_key", "nonce", "priority", "contributed"}

// LoadCSV reads a registry.csv file previously produced by ExportCSV
// and inserts every row into reg, preserving each participant's nonce,
// priority, and contributed flag. This is how cmd/ceremony-server
// restores the registry across a restart, rather than re-deriving it
// from the raw registration forms (which carry none of that mutable
// state).
func LoadCSV(reg *Registry, r io.Reader) (int, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("registry: read csv header: %w", err)
	}
	idx, err := columnIndex(header, registryCSVColumns)
	if err != nil {
		return 0, fmt.Errorf("registry: %w", err)
	}

	n := 0
	for {
		row, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return n, fmt.Errorf("registry: read csv row: %w", rerr)
		}

		pidBytes, derr := hex.DecodeString(row[idx["pid"]])
		if derr != nil || len(pidBytes) != 32 {
			return n, fmt.Errorf("registry: bad pid %q", row[idx["pid"]])
		}
		var pid PID
		copy(pid[:], pidBytes)

		verifyingKey, derr := hex.DecodeString(row[idx["verifying_key"]])
		if derr != nil {
			return n, fmt.Errorf("registry: bad verifying_key for %x: %w", pidBytes, derr)
		}
		nonce, derr := strconv.ParseUint(row[idx["nonce"]], 10, 64)
		if derr != nil {
			return n, fmt.Errorf("registry: bad nonce for %x: %w", pidBytes, derr)
		}
		priority, derr := strconv.ParseUint(row[idx["priority"]], 10, 8)
		if derr != nil {
			return n, fmt.Errorf("registry: bad priority for %x: %w", pidBytes, derr)
		}
		contributed, derr := strconv.ParseBool(row[idx["contributed"]])
		if derr != nil {
			return n, fmt.Errorf("registry: bad contributed for %x: %w", pidBytes, derr)
		}

		if ierr := reg.Insert(pid, Record{
			VerifyingKey: verifyingKey,
			Nonce:        signature.Nonce(nonce),
			Priority:     uint8(priority),
			Contributed:  contributed,
			Twitter:      row[idx["twitter"]],
			Email:        row[idx["email"]],
		}); ierr != nil {
			return n, fmt.Errorf("registry: insert %x: %w", pidBytes, ierr)
		}
		n++
	}
	return n, nil
}
