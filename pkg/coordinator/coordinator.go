// Package coordinator implements the single-writer ceremony server
// (spec.md C8): request preprocessing, the priority-queue lock,
// contribution verification, and round persistence.
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cfgpkg "github.com/zk-ceremony/coordinator/config"
	"github.com/zk-ceremony/coordinator/pkg/ceremony"
	"github.com/zk-ceremony/coordinator/pkg/engine"
	"github.com/zk-ceremony/coordinator/pkg/mpc"
	"github.com/zk-ceremony/coordinator/pkg/queue"
	"github.com/zk-ceremony/coordinator/pkg/registry"
	"github.com/zk-ceremony/coordinator/pkg/signature"
	"github.com/zk-ceremony/coordinator/pkg/transcript"
)

// Coordinator is the C8 collaborator. Per request it acquires, in this
// fixed order, (a) registryMu, (b) queueMu, (c) stateMu (spec.md §5);
// acquiring in any other order risks deadlock against a concurrent
// request doing the reverse, so every method below that needs more than
// one lock takes them in this exact order and never re-enters. Requests
// only need to serialize with each other up through preprocessing
// (spec.md §5: "request handlers may run concurrently up to the
// preprocessing stage; serialization occurs at the state mutex"), so
// registryMu is released as soon as preprocess returns rather than held
// for the rest of the method — Registry carries its own internal mutex
// (pkg/registry/registry.go), so a later Mutate call for the same
// request can safely reacquire registry-level safety without going
// through Coordinator's registryMu at all.
type Coordinator struct {
	registryMu sync.Mutex
	registry   *registry.Registry

	queueMu sync.Mutex
	queue   *queue.Queue
	lock    queue.Lock

	stateMu    sync.Mutex
	states     [cfgpkg.CircuitCount]ceremony.State
	challenges [cfgpkg.CircuitCount]transcript.Challenge

	round uint64 // read/written only under stateMu; round is also fine as an atomic per spec.md §5, but co-locating it with state keeps persistence a single critical section

	eng    engine.Engine
	hasher transcript.Hash
	scheme signature.Scheme
	cfg    Config
	log    zerolog.Logger
}

// New constructs a Coordinator starting from round startRound with
// states and challenges, both indexed the same way as cfg.CircuitNames.
// Callers building a fresh ceremony should pass round 0 with
// transcript.Genesis(cfg.CircuitNames[:]) repeated across challenges;
// Bootstrap does this (and the on-disk round-0 write it implies)
// automatically, and also covers resuming from a prior transcript.
func New(cfg Config, eng engine.Engine, hasher transcript.Hash, scheme signature.Scheme, reg *registry.Registry, startRound uint64, states [cfgpkg.CircuitCount]ceremony.State, challenges [cfgpkg.CircuitCount]transcript.Challenge, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry:   reg,
		queue:      queue.New(cfg.LevelCount),
		states:     states,
		challenges: challenges,
		round:      startRound,
		eng:        eng,
		hasher:     hasher,
		scheme:     scheme,
		cfg:        cfg,
		log:        log,
	}
}

// Round returns the current round index.
func (c *Coordinator) Round() uint64 {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.round
}

// preprocess implements spec.md §4.5's common request path: look up the
// registrant, reject already-contributed or nonce-exhausted
// participants, verify the signature, and advance the stored nonce
// before returning so a replay of this exact message is always stale.
// Must be called with registryMu held.
func (c *Coordinator) preprocess(msg *signature.SignedMessage) (registry.PID, error) {
	var pid registry.PID
	copy(pid[:], msg.Identifier[:])

	rec, err := c.registry.Get(pid)
	if err != nil {
		return pid, newError(CodeNotRegistered, ErrNotRegistered)
	}
	if rec.Contributed {
		return pid, newError(CodeAlreadyContributed, ErrAlreadyContributed)
	}
	if !rec.Nonce.IsValid() {
		return pid, newError(CodeUnexpected, ErrAllNoncesUsed)
	}
	if verr := msg.Verify(c.scheme, rec.VerifyingKey, rec.Nonce); verr != nil {
		return pid, newInvalidSignature(rec.Nonce, verr)
	}
	if merr := c.registry.Mutate(pid, func(r *registry.Record) {
		r.Nonce = r.Nonce.Next()
	}); merr != nil {
		return pid, newError(CodeUnexpected, merr)
	}
	return pid, nil
}

// Enqueue admits pid into the priority queue at its registered
// priority (spec.md §4.5: Enqueue path).
func (c *Coordinator) Enqueue(msg *signature.SignedMessage) (EnqueueResponse, error) {
	c.registryMu.Lock()
	pid, err := c.preprocess(msg)
	if err != nil {
		c.registryMu.Unlock()
		return EnqueueResponse{}, err
	}
	rec, err := c.registry.Get(pid)
	c.registryMu.Unlock()
	if err != nil {
		return EnqueueResponse{}, newError(CodeUnexpected, err)
	}

	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if err := c.queue.Push(pid, rec.Priority); err != nil {
		return EnqueueResponse{}, newError(CodeBadRequest, err)
	}
	c.rotateLockLocked()
	pos, _ := c.queue.Position(pid)

	return EnqueueResponse{
		Position: pos,
		Metadata: Metadata{
			ContributionTimeLimit: c.cfg.ContributionTimeLimit,
			CircuitCount:          cfgpkg.CircuitCount,
			CeremonySize:          c.registry.Len(),
		},
	}, nil
}

// Query reports pid's queue position, or hands over the current state
// and challenge if it is pid's turn (spec.md §4.5: Query path).
func (c *Coordinator) Query(msg *signature.SignedMessage) (QueryResponse, error) {
	c.registryMu.Lock()
	pid, err := c.preprocess(msg)
	c.registryMu.Unlock()
	if err != nil {
		return QueryResponse{}, err
	}

	c.queueMu.Lock()
	c.rotateLockLocked()
	holder, hasHolder := c.lock.Holder()
	isHolder := hasHolder && holder == pid
	var pos int
	if !isHolder {
		pos, _ = c.queue.Position(pid)
	}
	c.queueMu.Unlock()

	if !isHolder {
		return QueryResponse{Status: QueryQueued, Position: pos}, nil
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	resp := QueryResponse{Status: QueryYourTurn}
	for i := range c.states {
		resp.State[i] = c.states[i].Clone()
		resp.Challenge[i] = c.challenges[i]
	}
	return resp, nil
}

// rotateLockLocked applies the lock-update rules of spec.md §4.4: roll
// an expired lock over to the next queued participant, or fill an empty
// lock from the queue head. Callers must hold queueMu.
func (c *Coordinator) rotateLockLocked() {
	now := time.Now()
	if _, expired := c.lock.UpdateExpired(c.queue, c.registry, now, c.cfg.ContributionTimeLimit); expired {
		c.log.Info().Msg("lock rotated: prior holder timed out")
	}
	c.lock.Acquire(c.queue, now)
}

// checkLock implements spec.md §4.4's lock-update-rules table for an
// incoming Update request from pid. Callers must hold queueMu.
func (c *Coordinator) checkLock(pid registry.PID) error {
	now := time.Now()
	holder, ok := c.lock.Holder()
	if !ok {
		c.lock.Acquire(c.queue, now)
		holder, ok = c.lock.Holder()
		if !ok || holder != pid {
			return newError(CodeNotYourTurn, fmt.Errorf("lock: no holder, %s not next", pid))
		}
		return nil
	}
	if holder != pid {
		return newError(CodeNotYourTurn, fmt.Errorf("lock: held by another participant"))
	}
	if c.lock.HasExpired(now, c.cfg.ContributionTimeLimit) {
		c.lock.UpdateExpired(c.queue, c.registry, now, c.cfg.ContributionTimeLimit)
		return newError(CodeTimeout, fmt.Errorf("lock: %s's contribution window expired", pid))
	}
	return nil
}

// Update verifies and applies a contribution across every circuit, in
// this order: check lock -> verify all circuits -> persist and commit
// state, advancing the round counter in the same stateMu critical
// section -> release lock -> mark contributed. The round counter is
// therefore advanced before the lock is released and before the
// participant is marked as contributed, not after.
func (c *Coordinator) Update(msg *signature.SignedMessage, payload ContributePayload) (ContributeResponse, error) {
	c.registryMu.Lock()
	pid, err := c.preprocess(msg)
	c.registryMu.Unlock()
	if err != nil {
		return ContributeResponse{}, err
	}

	c.queueMu.Lock()
	lockErr := c.checkLock(pid)
	c.queueMu.Unlock()
	if lockErr != nil {
		return ContributeResponse{}, lockErr
	}

	// state mutex critical section: verify every circuit and, on
	// success, commit the new state/challenges and persist them. This
	// block never acquires queueMu or registryMu while stateMu is held,
	// so the mandated registry -> queue -> state acquisition order is
	// never inverted against a concurrent Query/Enqueue call.
	nextStates := payload.State
	nextChallenges := c.challenges
	round, verifyErr := func() (uint64, error) {
		c.stateMu.Lock()
		defer c.stateMu.Unlock()

		for i := 0; i < cfgpkg.CircuitCount; i++ {
			nextChallenge, nextState, verr := mpc.VerifyTransform(c.eng, c.hasher, c.challenges[i], c.states[i], nextStates[i], payload.Proof[i])
			if verr != nil {
				c.log.Error().Err(verr).Str("circuit", c.cfg.CircuitNames[i]).Msg("contribution rejected")
				return 0, newError(CodeBadRequest, verr)
			}
			nextStates[i] = nextState
			nextChallenges[i] = nextChallenge
		}

		r := c.round + 1
		for i := 0; i < cfgpkg.CircuitCount; i++ {
			circuit := c.cfg.CircuitNames[i]
			if err := writeStateFile(c.eng, c.cfg.CeremonyDir, circuit, r, nextStates[i]); err != nil {
				c.log.Fatal().Err(err).Msg("persist state: disk write failure, coordinator must fail-stop")
			}
			if err := writeChallengeFile(c.cfg.CeremonyDir, circuit, r, nextChallenges[i]); err != nil {
				c.log.Fatal().Err(err).Msg("persist challenge: disk write failure, coordinator must fail-stop")
			}
			if err := writeProofFile(c.eng, c.cfg.CeremonyDir, circuit, r, payload.Proof[i]); err != nil {
				c.log.Fatal().Err(err).Msg("persist proof: disk write failure, coordinator must fail-stop")
			}
		}

		c.states = nextStates
		c.challenges = nextChallenges
		c.round = r
		return r, nil
	}()

	c.queueMu.Lock()
	c.releaseLock()
	c.queueMu.Unlock()

	if verifyErr != nil {
		// A bad proof still releases the lock to the next participant
		// (spec.md §7: "lock released, next participant served").
		return ContributeResponse{}, verifyErr
	}

	if err := c.registry.Mutate(pid, func(r *registry.Record) {
		r.Contributed = true
	}); err != nil {
		c.log.Error().Err(err).Str("pid", pid.String()).Msg("mark contributed failed after successful round")
	}

	c.log.Info().Uint64("round", round).Str("pid", pid.String()).Msg("contribution accepted")
	return ContributeResponse{Index: round, Challenge: nextChallenges}, nil
}

// releaseLock releases the contributor lock and fills it from the queue
// head. Callers must hold queueMu.
func (c *Coordinator) releaseLock() {
	c.lock.Release(c.queue, time.Now())
}
