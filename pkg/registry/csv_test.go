package registry

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"
)

func selfSignedRow(t *testing.T, twitter, email string) []string {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, pub)
	return []string{twitter, email, hex.EncodeToString(pub), hex.EncodeToString(sig)}
}

func writeCSV(t *testing.T, header string, rows [][]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(header + "\n")
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(rows))
	return &buf
}

func TestImportCSVAcceptsValidRows(t *testing.T) {
	row := selfSignedRow(t, "alice", "alice@example.com")
	buf := writeCSV(t, "twitter,email,verifying_key,signature", [][]string{row})

	reg := New()
	ok, malformed, err := ImportCSV(reg, buf, nil, 2)
	require.NoError(t, err)
	require.Equal(t, 1, ok)
	require.Equal(t, 0, malformed)
	require.Equal(t, 1, reg.Len())

	pubBytes, _ := hex.DecodeString(row[2])
	pid := DerivePID(pubBytes)
	rec, err := reg.Get(pid)
	require.NoError(t, err)
	require.Equal(t, "alice", rec.Twitter)
	require.Equal(t, uint8(2), rec.Priority)
}

func TestImportCSVRejectsBadSignature(t *testing.T) {
	row := selfSignedRow(t, "bob", "bob@example.com")
	row[3] = strings.Repeat("00", 64) // overwrite with an invalid signature
	buf := writeCSV(t, "twitter,email,verifying_key,signature", [][]string{row})

	reg := New()
	ok, malformed, err := ImportCSV(reg, buf, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 0, ok)
	require.Equal(t, 1, malformed)
}

func TestImportCSVAppliesPriorityOverride(t *testing.T) {
	row := selfSignedRow(t, "carol", "carol@example.com")
	buf := writeCSV(t, "twitter,email,verifying_key,signature", [][]string{row})

	pubBytes, _ := hex.DecodeString(row[2])
	pid := DerivePID(pubBytes)
	overrides := map[PID]uint8{pid: 0}

	reg := New()
	_, _, err := ImportCSV(reg, buf, overrides, 2)
	require.NoError(t, err)

	rec, err := reg.Get(pid)
	require.NoError(t, err)
	require.Equal(t, uint8(0), rec.Priority)
}

func TestExportThenLoadCSVRoundTrip(t *testing.T) {
	reg := New()
	row := selfSignedRow(t, "dave", "dave@example.com")
	pubBytes, _ := hex.DecodeString(row[2])
	pid := DerivePID(pubBytes)
	require.NoError(t, reg.Insert(pid, Record{
		VerifyingKey: pubBytes,
		Nonce:        5,
		Priority:     1,
		Contributed:  true,
		Twitter:      "dave",
		Email:        "dave@example.com",
	}))

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, reg, reg.PIDs()))

	loaded := New()
	n, err := LoadCSV(loaded, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec, err := loaded.Get(pid)
	require.NoError(t, err)
	require.Equal(t, uint8(1), rec.Priority)
	require.True(t, rec.Contributed)
	require.EqualValues(t, 5, rec.Nonce)
}
