package queue

import (
	"context"
	"testing"
	"time"

	"github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/session"
)

func descs(indices ...int) []session.SegmentDescriptor {
	out := make([]session.SegmentDescriptor, len(indices))
	for i, idx := range indices {
		out[i] = session.SegmentDescriptor{Index: idx}
	}
	return out
}

func TestOrderForDispatchZeroFirst(t *testing.T) {
	ordered := OrderForDispatch(descs(3, 1, 0, 2))

	want := []int{0, 1, 2, 3}
	for i, desc := range ordered {
		if desc.Index != want[i] {
			t.Errorf("position %d: got index %d, want %d", i, desc.Index, want[i])
		}
	}
}

func TestOrderForDispatchWithoutZero(t *testing.T) {
	ordered := OrderForDispatch(descs(4, 2, 3))

	want := []int{2, 3, 4}
	for i, desc := range ordered {
		if desc.Index != want[i] {
			t.Errorf("position %d: got index %d, want %d", i, desc.Index, want[i])
		}
	}
}

func TestEnqueueSessionOrdering(t *testing.T) {
	q := New(Config{Capacity: 10, PutTimeout: time.Second}, logger.Nop())
	ctx := context.Background()

	queued, err := q.EnqueueSession(ctx, "s1", descs(2, 0, 1))
	if err != nil {
		t.Fatalf("EnqueueSession: %v", err)
	}
	if queued != 3 {
		t.Fatalf("expected 3 queued, got %d", queued)
	}

	want := []int{0, 1, 2}
	for _, idx := range want {
		job, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatal("unexpected queue close")
		}
		if job.Segment.Index != idx {
			t.Errorf("dequeued index %d, want %d", job.Segment.Index, idx)
		}
		if job.SessionID != "s1" {
			t.Errorf("unexpected session %s", job.SessionID)
		}
	}
}

func TestEnqueueFullQueueTimesOut(t *testing.T) {
	q := New(Config{Capacity: 1, PutTimeout: 10 * time.Millisecond, PutAttempts: 2, PutBackoff: time.Millisecond}, logger.Nop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{SessionID: "s1", Segment: session.SegmentDescriptor{Index: 0}}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}

	// Retries are expected, then QUEUE_FULL; the job must not be dropped into
	// the queue partially.
	err := q.Enqueue(ctx, Job{SessionID: "s1", Segment: session.SegmentDescriptor{Index: 1}})
	if !errors.IsCode(err, errors.ErrCodeQueueFull) {
		t.Errorf("expected QUEUE_FULL, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 job in queue, got %d", q.Len())
	}
}

func TestEnqueueUnblocksWhenDrained(t *testing.T) {
	q := New(Config{Capacity: 1, PutTimeout: 2 * time.Second, PutAttempts: 1}, logger.Nop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{SessionID: "s1", Segment: session.SegmentDescriptor{Index: 0}}); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Dequeue(ctx)
	}()

	if err := q.Enqueue(ctx, Job{SessionID: "s1", Segment: session.SegmentDescriptor{Index: 1}}); err != nil {
		t.Errorf("enqueue should succeed once a slot frees: %v", err)
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	q := New(Config{Capacity: 1, PutTimeout: time.Second}, logger.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, ok := q.Dequeue(ctx); ok {
		t.Error("expected Dequeue to give up on context cancellation")
	}
}
