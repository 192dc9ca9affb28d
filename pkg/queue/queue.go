// Package queue implements the multi-level priority queue and the
// single-slot contributor lock (spec.md C7) that together decide who
// holds the coordinator's write turn.
package queue

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/zk-ceremony/coordinator/pkg/registry"
)

// Queue holds LevelCount FIFO buckets, lower index is higher priority
// (spec.md §3: "lower number = higher priority"). Push is idempotent: a
// pid already present in some bucket is never added twice (P-Queue).
// Membership is tracked in a bitset keyed by a dense per-pid slot index
// assigned on first sight, since registry.PID itself is a 32-byte value
// with no dense ordering to index a bitset by directly.
type Queue struct {
	levelCount uint8
	buckets    [][]registry.PID
	slot       map[registry.PID]uint
	nextSlot   uint
	queued     *bitset.BitSet
}

// New returns an empty Queue with levelCount priority buckets.
func New(levelCount uint8) *Queue {
	return &Queue{
		levelCount: levelCount,
		buckets:    make([][]registry.PID, levelCount),
		slot:       make(map[registry.PID]uint),
		queued:     bitset.New(0),
	}
}

func (q *Queue) slotFor(pid registry.PID) uint {
	if s, ok := q.slot[pid]; ok {
		return s
	}
	s := q.nextSlot
	q.nextSlot++
	q.slot[pid] = s
	return s
}

// Push appends pid to its priority bucket, doing nothing if pid is
// already queued at any level.
func (q *Queue) Push(pid registry.PID, priority uint8) error {
	if priority >= q.levelCount {
		return fmt.Errorf("queue: priority %d out of range [0,%d)", priority, q.levelCount)
	}
	s := q.slotFor(pid)
	if q.queued.Test(s) {
		return nil
	}
	q.buckets[priority] = append(q.buckets[priority], pid)
	q.queued.Set(s)
	return nil
}

// PopFront removes and returns the head of the lowest non-empty bucket.
func (q *Queue) PopFront() (registry.PID, bool) {
	for level := uint8(0); level < q.levelCount; level++ {
		bucket := q.buckets[level]
		if len(bucket) == 0 {
			continue
		}
		pid := bucket[0]
		q.buckets[level] = bucket[1:]
		q.queued.Clear(q.slot[pid])
		return pid, true
	}
	return registry.PID{}, false
}

// Position returns pid's total position across all buckets (0 = next to
// be served), for client progress reporting. Buckets ahead of pid's own
// count in full; in pid's own bucket only the entries ahead of pid count.
func (q *Queue) Position(pid registry.PID) (int, bool) {
	s, ok := q.slot[pid]
	if !ok || !q.queued.Test(s) {
		return 0, false
	}
	pos := 0
	for level := uint8(0); level < q.levelCount; level++ {
		for _, p := range q.buckets[level] {
			if p == pid {
				return pos, true
			}
			pos++
		}
	}
	return 0, false
}

// Len returns the total number of queued participants across all
// buckets.
func (q *Queue) Len() int {
	total := 0
	for _, bucket := range q.buckets {
		total += len(bucket)
	}
	return total
}
