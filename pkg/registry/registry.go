// Package registry implements the participant registry (spec.md C6): the
// mapping from participant identifier to registration record that the
// coordinator consults on every request.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zk-ceremony/coordinator/pkg/signature"
)

// PID is a participant identifier: the Blake2b-256 digest of a verifying
// key, computed by DerivePID during CSV import. Registry itself never
// derives it; it is handed a PID on Insert.
type PID [32]byte

func (p PID) String() string {
	return fmt.Sprintf("%x", p[:8])
}

// ErrNotFound is returned by Get/GetMut for an unregistered PID.
var ErrNotFound = errors.New("registry: participant not registered")

// ErrAlreadyRegistered is returned by Insert for a PID already present.
var ErrAlreadyRegistered = errors.New("registry: participant already registered")

// Record is one participant's registration entry (spec.md §3). Once
// Contributed is set the record is frozen except that Priority may still
// decrement due to a lock timeout observed before the freeze (spec.md
// §3: "nonce monotonically non-decreasing; once contributed=true, record
// is frozen except that priority may still decrement").
type Record struct {
	VerifyingKey signature.VerifyingKey
	Nonce        signature.Nonce
	Priority     uint8
	Contributed  bool
	Twitter      string
	Email        string
}

// Registry is the C6 collaborator: get/insert/has-contributed over the
// PID -> Record map. The coordinator mutates it while holding its own
// registry mutex (spec.md §5); Registry's own mutex exists so the type
// is safe to use standalone (e.g. from cmd/process-registration, which
// never touches a coordinator).
type Registry struct {
	mu      sync.RWMutex
	records map[PID]*Record
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{records: make(map[PID]*Record)}
}

// Insert adds a new record for pid. Returns ErrAlreadyRegistered if pid
// is already present — registration is a one-time event per identifier.
func (r *Registry) Insert(pid PID, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[pid]; ok {
		return ErrAlreadyRegistered
	}
	cp := rec
	r.records[pid] = &cp
	return nil
}

// Get returns a copy of pid's record.
func (r *Registry) Get(pid PID) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[pid]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// HasContributed reports whether pid's record is marked contributed.
// Returns ErrNotFound if pid is unregistered.
func (r *Registry) HasContributed(pid PID) (bool, error) {
	rec, err := r.Get(pid)
	if err != nil {
		return false, err
	}
	return rec.Contributed, nil
}

// Mutate applies fn to pid's record in place, under the registry's write
// lock. fn must not retain the pointer past its call. This is the
// registry's "get_mut" (spec.md §4.3); nonce increments, priority
// decrements, and the contributed flag all go through it so the registry
// is never caught with a half-updated record.
func (r *Registry) Mutate(pid PID, fn func(rec *Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pid]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	return nil
}

// Len reports the number of registered participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// PIDs returns every registered identifier, in unspecified order. Used
// by CSV export and offline tooling, never by the coordinator's request
// path.
func (r *Registry) PIDs() []PID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PID, 0, len(r.records))
	for pid := range r.records {
		out = append(out, pid)
	}
	return out
}
