package config

import "time"

// Ceremony-wide compile-time constants. CircuitCount and LevelCount are
// fixed for the lifetime of a ceremony; changing either requires a new
// ceremony directory (mixing transcripts of different shapes is not
// supported).
const (
	// CircuitCount is the number of circuits processed per round. The
	// canonical configuration carries the three circuits of a shielded
	// transfer protocol's proving system.
	CircuitCount = 3

	// LevelCount is the number of priority queue buckets. Level 0 is
	// drained strictly before level 1, which is drained strictly before
	// level 2.
	LevelCount = 3

	// MaxPriority is the lowest-priority (highest numeric) level.
	MaxPriority = LevelCount - 1
)

// CircuitNames are the on-disk tags for each circuit slot, in State/Round
// array order. This order also determines <circuit>_state_<r> /
// <circuit>_challenge_<r> / <circuit>_proof_<r> filenames.
var CircuitNames = [CircuitCount]string{"to_private", "private_transfer", "to_public"}

// DefaultContributionTimeLimit is the wall-clock duration a participant
// holds the contributor lock before it is considered expired and rotated
// to the next queued participant.
const DefaultContributionTimeLimit = 30 * time.Minute

// HashToG1Domain is the Fiat-Shamir domain-separation tag for deriving the
// proof-of-contribution's r = H_to_G1(challenge, s, s_delta) point (spec.md
// §4.2). Fixed per SPEC_FULL.md §6 Open Question 2.
const HashToG1Domain = "groth16-ceremony-v1-r-delta"

// BatchScalarDomain domain-separates the random linear-combination scalar
// used to batch the per-element h_query/l_query pairing checks (spec.md
// §4.2 step 7) from the main transcript hash, so the batching scalar is
// not derived from the same randomness that authenticates the round.
const BatchScalarDomain = "groth16-ceremony-v1-batch-scalar"

// GenesisDomain seeds Challenge₀, the published constant every ceremony
// transcript starts from.
const GenesisDomain = "groth16-ceremony-v1-genesis"
