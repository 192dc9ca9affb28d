package queue

import (
	"testing"
	"time"

	"github.com/zk-ceremony/coordinator/pkg/registry"
)

func TestAcquireFillsFromQueueHead(t *testing.T) {
	q := New(1)
	_ = q.Push(pid(1), 0)

	var l Lock
	now := time.Now()
	holder, ok := l.Acquire(q, now)
	if !ok || holder != pid(1) {
		t.Fatalf("Acquire = %v, %v, want pid(1), true", holder, ok)
	}
	if got, ok := l.Holder(); !ok || got != pid(1) {
		t.Fatalf("Holder = %v, %v, want pid(1), true", got, ok)
	}
}

func TestAcquireOnEmptyQueueLeavesLockEmpty(t *testing.T) {
	q := New(1)
	var l Lock
	if _, ok := l.Acquire(q, time.Now()); ok {
		t.Fatalf("Acquire succeeded against an empty queue")
	}
	if _, ok := l.Holder(); ok {
		t.Fatalf("Holder reports a holder after a failed Acquire")
	}
}

func TestAcquireIsIdempotentWhileHeld(t *testing.T) {
	q := New(1)
	_ = q.Push(pid(1), 0)
	_ = q.Push(pid(2), 0)

	var l Lock
	now := time.Now()
	if _, ok := l.Acquire(q, now); !ok {
		t.Fatalf("first Acquire failed")
	}
	holder, ok := l.Acquire(q, now.Add(time.Second))
	if !ok || holder != pid(1) {
		t.Fatalf("second Acquire = %v, %v, want pid(1) unchanged", holder, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("second Acquire consumed the queue, Len = %d, want 1", q.Len())
	}
}

func TestHasExpired(t *testing.T) {
	q := New(1)
	_ = q.Push(pid(1), 0)

	var l Lock
	start := time.Now()
	l.Acquire(q, start)

	if l.HasExpired(start.Add(time.Second), time.Minute) {
		t.Fatalf("lock reported expired before the timeout elapsed")
	}
	if !l.HasExpired(start.Add(time.Hour), time.Minute) {
		t.Fatalf("lock did not report expired after the timeout elapsed")
	}
}

func TestHasExpiredWithNoHolderIsFalse(t *testing.T) {
	var l Lock
	if l.HasExpired(time.Now(), time.Nanosecond) {
		t.Fatalf("an empty lock reported expired")
	}
}

func TestUpdateExpiredRotatesAndDemotesPriority(t *testing.T) {
	q := New(3)
	reg := registry.New()
	if err := reg.Insert(pid(1), registry.Record{Priority: 2}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_ = q.Push(pid(1), 2)
	_ = q.Push(pid(2), 0)

	var l Lock
	start := time.Now()
	l.Acquire(q, start)

	prev, ok := l.UpdateExpired(q, reg, start.Add(time.Hour), time.Minute)
	if !ok || prev != pid(1) {
		t.Fatalf("UpdateExpired = %v, %v, want pid(1), true", prev, ok)
	}

	rec, err := reg.Get(pid(1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Priority != 1 {
		t.Fatalf("demoted priority = %d, want 1", rec.Priority)
	}

	newHolder, ok := l.Holder()
	if !ok || newHolder != pid(2) {
		t.Fatalf("Holder after rotation = %v, %v, want pid(2), true", newHolder, ok)
	}
}

func TestUpdateExpiredNoopWhenNotExpired(t *testing.T) {
	q := New(1)
	reg := registry.New()
	_ = reg.Insert(pid(1), registry.Record{Priority: 2})
	_ = q.Push(pid(1), 0)

	var l Lock
	now := time.Now()
	l.Acquire(q, now)

	if _, ok := l.UpdateExpired(q, reg, now.Add(time.Second), time.Hour); ok {
		t.Fatalf("UpdateExpired rotated a lock that had not expired")
	}
}

func TestReleasePromotesNextInQueue(t *testing.T) {
	q := New(1)
	_ = q.Push(pid(1), 0)
	_ = q.Push(pid(2), 0)

	var l Lock
	now := time.Now()
	l.Acquire(q, now)
	l.Release(q, now)

	holder, ok := l.Holder()
	if !ok || holder != pid(2) {
		t.Fatalf("Holder after Release = %v, %v, want pid(2), true", holder, ok)
	}
}

func TestReleaseOnEmptyQueueLeavesLockEmpty(t *testing.T) {
	q := New(1)
	_ = q.Push(pid(1), 0)

	var l Lock
	now := time.Now()
	l.Acquire(q, now)
	l.Release(q, now)

	if _, ok := l.Holder(); ok {
		t.Fatalf("Holder reports a holder after Release drained the queue")
	}
}
