package queue

import (
	"testing"

	"github.com/zk-ceremony/coordinator/pkg/registry"
)

func pid(b byte) registry.PID {
	var p registry.PID
	p[0] = b
	return p
}

func TestPushThenPopFrontFIFOWithinLevel(t *testing.T) {
	q := New(3)
	if err := q.Push(pid(1), 0); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(pid(2), 0); err != nil {
		t.Fatalf("Push: %v", err)
	}

	first, ok := q.PopFront()
	if !ok || first != pid(1) {
		t.Fatalf("PopFront = %v, %v, want pid(1), true", first, ok)
	}
	second, ok := q.PopFront()
	if !ok || second != pid(2) {
		t.Fatalf("PopFront = %v, %v, want pid(2), true", second, ok)
	}
}

func TestPushIsIdempotent(t *testing.T) {
	q := New(2)
	if err := q.Push(pid(1), 1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(pid(1), 1); err != nil {
		t.Fatalf("second Push: %v", err)
	}
	if got := q.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
}

func TestPushRejectsOutOfRangePriority(t *testing.T) {
	q := New(2)
	if err := q.Push(pid(1), 2); err == nil {
		t.Fatalf("Push accepted an out-of-range priority")
	}
}

func TestLowerPriorityNumberServedFirst(t *testing.T) {
	q := New(3)
	if err := q.Push(pid(1), 2); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(pid(2), 0); err != nil {
		t.Fatalf("Push: %v", err)
	}

	first, ok := q.PopFront()
	if !ok || first != pid(2) {
		t.Fatalf("PopFront = %v, %v, want pid(2) (priority 0), true", first, ok)
	}
}

func TestPositionReportsRankAcrossLevels(t *testing.T) {
	q := New(2)
	if err := q.Push(pid(1), 0); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(pid(2), 0); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(pid(3), 1); err != nil {
		t.Fatalf("Push: %v", err)
	}

	pos, ok := q.Position(pid(3))
	if !ok || pos != 2 {
		t.Fatalf("Position(pid(3)) = %d, %v, want 2, true", pos, ok)
	}
}

func TestPositionUnknownPIDReturnsFalse(t *testing.T) {
	q := New(1)
	if _, ok := q.Position(pid(9)); ok {
		t.Fatalf("Position reported a PID never pushed")
	}
}

func TestPopFrontEmptyQueueReturnsFalse(t *testing.T) {
	q := New(1)
	if _, ok := q.PopFront(); ok {
		t.Fatalf("PopFront succeeded on an empty queue")
	}
}

func TestLenCountsAcrossAllLevels(t *testing.T) {
	q := New(2)
	_ = q.Push(pid(1), 0)
	_ = q.Push(pid(2), 1)
	if got := q.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}
