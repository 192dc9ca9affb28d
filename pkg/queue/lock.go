package queue

import (
	"time"

	"github.com/zk-ceremony/coordinator/pkg/registry"
)

// Lock is the single-slot contributor reservation, `Timed<Option<PID>>`
// in spec.md §3: at most one identifier holds it, and it carries the
// wall-clock time it was last acquired.
type Lock struct {
	holder     *registry.PID
	acquiredAt time.Time
}

// Holder returns the current lock holder, if any.
func (l *Lock) Holder() (registry.PID, bool) {
	if l.holder == nil {
		return registry.PID{}, false
	}
	return *l.holder, true
}

// Acquire fills an empty lock from q's head bucket (spec.md §4.4:
// "acquire(): if lock is empty, set(pop_front())"). Returns the holder
// after the attempt, which may still be empty if the queue was empty.
func (l *Lock) Acquire(q *Queue, now time.Time) (registry.PID, bool) {
	if l.holder != nil {
		return *l.holder, true
	}
	pid, ok := q.PopFront()
	if !ok {
		return registry.PID{}, false
	}
	l.holder = &pid
	l.acquiredAt = now
	return pid, true
}

// HasExpired reports whether the lock has been held longer than timeout
// as of now.
func (l *Lock) HasExpired(now time.Time, timeout time.Duration) bool {
	if l.holder == nil {
		return false
	}
	return now.Sub(l.acquiredAt) > timeout
}

// UpdateExpired rotates an expired lock: the previous holder's priority
// is reduced by one level (floor at 0), the lock is reassigned via
// q.PopFront, and the previous holder is returned so the caller can
// re-enqueue them at their new (lower) priority (spec.md §4.4).
func (l *Lock) UpdateExpired(q *Queue, reg *registry.Registry, now time.Time, timeout time.Duration) (registry.PID, bool) {
	if l.holder == nil || !l.HasExpired(now, timeout) {
		return registry.PID{}, false
	}
	prev := *l.holder
	_ = reg.Mutate(prev, func(rec *registry.Record) {
		if rec.Priority > 0 {
			rec.Priority--
		}
	})
	l.holder = nil
	l.acquiredAt = time.Time{}
	if pid, ok := q.PopFront(); ok {
		l.holder = &pid
		l.acquiredAt = now
	}
	return prev, true
}

// Release empties the lock unconditionally (used after a successful
// update, spec.md §4.5 step 9: "release the lock (pop next)").
func (l *Lock) Release(q *Queue, now time.Time) {
	l.holder = nil
	l.acquiredAt = time.Time{}
	if pid, ok := q.PopFront(); ok {
		l.holder = &pid
		l.acquiredAt = now
	}
}
