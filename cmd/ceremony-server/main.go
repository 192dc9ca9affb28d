// Command ceremony-server runs the single-writer ceremony coordinator
// (spec.md C8) over a newline-delimited JSON request/response transport
// on stdin/stdout. A production deployment would put this behind a real
// network listener; spec.md's Non-goals explicitly exclude that layer,
// so this harness exists only to drive pkg/coordinator end to end
// (SPEC_FULL.md §5).
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/circuits/fsp"
	"github.com/zk-ceremony/coordinator/circuits/keyleak"
	"github.com/zk-ceremony/coordinator/circuits/poi"
	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/coordinator"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/registry"
	"github.com/zk-ceremony/coordinator/pkg/signature"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// circuitBuilders maps a canonical circuit tag (config.CircuitNames) to
// the concrete proving-system circuit whose constraint count sizes that
// circuit's phase-2 query vectors. Each bound circuit's Define uses no
// PLONK-only gadget, so all three compile cleanly under the R1CS
// builder ceremony.CircuitSize uses (spec.md §1: "the coordinator
// treats circuits opaquely", so which gnark circuit backs a tag is an
// implementation choice, not a protocol one).
var circuitBuilders = map[string]func() frontend.Circuit{
	"to_private":       func() frontend.Circuit { return &poi.PoICircuit{} },
	"private_transfer": func() frontend.Circuit { return &fsp.FSPCircuit{} },
	"to_public":        func() frontend.Circuit { return &keyleak.KeyLeakCircuit{} },
}

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	var configPath string
	root := &cobra.Command{
		Use:   "ceremony-server",
		Short: "Run the ceremony coordinator over a stdin/stdout JSON-lines transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, log)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML coordinator config file")

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("ceremony-server failed")
	}
}

func run(configPath string, log zerolog.Logger) error {
	cfg, err := coordinator.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng := engine.New()
	hasher := transcript.Blake2b512{}
	scheme := signature.Ed25519{}

	reg, err := loadRegistry(cfg.RegistryCSVPath, log)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	var genesisStates [cfgpkg.CircuitCount]ceremony.State
	for i, circuit := range cfg.CircuitNames {
		build, ok := circuitBuilders[circuit]
		if !ok {
			return fmt.Errorf("no circuit builder registered for %q", circuit)
		}
		size, err := ceremony.CircuitSize(build())
		if err != nil {
			return fmt.Errorf("size circuit %s: %w", circuit, err)
		}
		state, err := ceremony.NewGenesisState(eng, size, rand.Reader)
		if err != nil {
			return fmt.Errorf("genesis state for %s: %w", circuit, err)
		}
		genesisStates[i] = state
		log.Info().Str("circuit", circuit).Int("query_len", size).Msg("circuit sized")
	}

	states, challenges, round, err := coordinator.Bootstrap(eng, cfg, genesisStates)
	if err != nil {
		return fmt.Errorf("bootstrap ceremony dir: %w", err)
	}
	log.Info().Uint64("round", round).Str("dir", cfg.CeremonyDir).Msg("ceremony bootstrapped")

	coord := coordinator.New(cfg, eng, hasher, scheme, reg, round, states, challenges, log)

	return serve(coord, eng, os.Stdin, os.Stdout, log)
}

func loadRegistry(path string, log zerolog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("no registry.csv found, starting with an empty registry")
		return reg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := registry.LoadCSV(reg, f)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("participants", n).Msg("registry loaded")
	return reg, nil
}

// request is the stdin envelope: a signed message tagged with which
// coordinator operation it invokes. For a contribute request,
// Message.Payload carries coordinator.EncodeContributePayload's output
// (the same bytes the participant signed).
type request struct {
	Kind    string                  `json:"kind"`
	Message signature.SignedMessage `json:"message"`
}

type response struct {
	Kind       string           `json:"kind"`
	Error      *errorBody       `json:"error,omitempty"`
	Enqueue    *enqueueBody     `json:"enqueue,omitempty"`
	Query      *queryBody       `json:"query,omitempty"`
	Contribute *contributeBody  `json:"contribute,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type enqueueBody struct {
	Position              int     `json:"position"`
	ContributionTimeLimitS float64 `json:"contribution_time_limit_seconds"`
	CircuitCount           int     `json:"circuit_count"`
	CeremonySize           int     `json:"ceremony_size"`
}

type queryBody struct {
	Status    string   `json:"status"`
	Position  int      `json:"position,omitempty"`
	State     []string `json:"state,omitempty"`
	Challenge []string `json:"challenge,omitempty"`
}

type contributeBody struct {
	Round     uint64   `json:"round"`
	Challenge []string `json:"challenge"`
}

// serve reads one JSON request per line from in and writes one JSON
// response per line to out, dispatching to the Coordinator's three
// operations. Malformed lines and coordinator errors both produce an
// "error" response rather than terminating the loop, so one bad client
// request never takes the process down.
func serve(coord *coordinator.Coordinator, eng engine.Engine, in io.Reader, out io.Writer, log zerolog.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			writeError(enc, "BadRequest", fmt.Errorf("parse request: %w", err))
			continue
		}
		handleRequest(coord, eng, req, enc, log)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}

func handleRequest(coord *coordinator.Coordinator, eng engine.Engine, req request, enc *json.Encoder, log zerolog.Logger) {
	switch req.Kind {
	case "enqueue":
		resp, err := coord.Enqueue(&req.Message)
		if err != nil {
			writeCoordError(enc, err)
			return
		}
		enc.Encode(response{Kind: "enqueue", Enqueue: &enqueueBody{
			Position:              resp.Position,
			ContributionTimeLimitS: resp.Metadata.ContributionTimeLimit.Seconds(),
			CircuitCount:           resp.Metadata.CircuitCount,
			CeremonySize:           resp.Metadata.CeremonySize,
		}})

	case "query":
		resp, err := coord.Query(&req.Message)
		if err != nil {
			writeCoordError(enc, err)
			return
		}
		body := &queryBody{}
		if resp.Status == coordinator.QueryQueued {
			body.Status = "queued"
			body.Position = resp.Position
		} else {
			body.Status = "your_turn"
			for i := range resp.State {
				body.State = append(body.State, hex.EncodeToString(ceremony.EncodeState(eng, &resp.State[i])))
				body.Challenge = append(body.Challenge, hex.EncodeToString(resp.Challenge[i][:]))
			}
		}
		enc.Encode(response{Kind: "query", Query: body})

	case "contribute":
		payload, err := coordinator.DecodeContributePayload(eng, req.Message.Payload)
		if err != nil {
			writeError(enc, "BadRequest", fmt.Errorf("decode contribute payload: %w", err))
			return
		}
		resp, err := coord.Update(&req.Message, payload)
		if err != nil {
			writeCoordError(enc, err)
			return
		}
		body := &contributeBody{Round: resp.Index}
		for i := range resp.Challenge {
			body.Challenge = append(body.Challenge, hex.EncodeToString(resp.Challenge[i][:]))
		}
		enc.Encode(response{Kind: "contribute", Contribute: body})

	default:
		writeError(enc, "BadRequest", fmt.Errorf("unknown request kind %q", req.Kind))
	}
}

func writeCoordError(enc *json.Encoder, err error) {
	code := "Unexpected"
	var coordErr *coordinator.Error
	if errors.As(err, &coordErr) {
		code = coordErr.Code.String()
	}
	writeError(enc, code, err)
}

func writeError(enc *json.Encoder, code string, err error) {
	enc.Encode(response{Kind: "error", Error: &errorBody{Code: code, Message: err.Error()}})
}
