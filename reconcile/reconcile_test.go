package reconcile

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/queue"
	"github.com/plenumlabs/scribe/session"
	"github.com/plenumlabs/scribe/store"
)

func newTestReconciler(t *testing.T) (*Reconciler, *store.Store, *queue.Queue) {
	t.Helper()
	st, err := store.New(store.Config{DataDir: t.TempDir()}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	q := queue.New(queue.Config{Capacity: 16}, logger.Nop())
	r := New(Config{Interval: time.Minute, MaxCycles: 30}, st, q, logger.Nop())
	return r, st, q
}

func descriptors(n int) []session.SegmentDescriptor {
	descs := make([]session.SegmentDescriptor, n)
	for i := range descs {
		descs[i] = session.SegmentDescriptor{
			Index:     i,
			StartTime: float64(i * 900),
			EndTime:   float64(i*900 + 900),
			Duration:  900,
		}
	}
	return descs
}

func transcript(index int) session.TranscriptSegment {
	return session.TranscriptSegment{
		SegmentIndex: index,
		Text:         "text",
		Phrases:      []session.PhraseSpan{{Text: "text"}},
	}
}

// writeRecord bypasses the store's invariant checks to plant a corrupted
// state on disk, the way a crashed or buggy writer would leave it.
func writeRecord(t *testing.T, st *store.Store, rec *session.Record) {
	t.Helper()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(st.RecordPath(rec.SessionID), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAuditDowngradesFalseCompleted(t *testing.T) {
	r, st, q := newTestReconciler(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-gaps"); err != nil {
		t.Fatal(err)
	}
	rec := session.NewRecord("sess-gaps")
	rec.Status = session.StatusCompleted
	rec.Segments = descriptors(5)
	rec.SegmentsTotal = 5
	rec.SegmentsCompleted = 5
	rec.Progress = 1.0
	for i := 0; i < 4; i++ {
		rec.Transcript = append(rec.Transcript, transcript(i))
	}
	writeRecord(t, st, rec)

	audited, err := r.Audit(ctx, "sess-gaps")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if audited.Status == session.StatusCompleted {
		t.Error("session with gaps left completed")
	}
	if audited.Status != session.StatusTranscribing {
		t.Errorf("status = %q, want transcribing", audited.Status)
	}
	if len(audited.MissingSegments) != 1 || audited.MissingSegments[0] != 4 {
		t.Errorf("missing = %v, want [4]", audited.MissingSegments)
	}
	if audited.SegmentsCompleted != 4 {
		t.Errorf("completed = %d, want recomputed 4", audited.SegmentsCompleted)
	}

	// The gap is re-enqueued.
	if q.Len() != 1 {
		t.Fatalf("queue depth = %d, want 1", q.Len())
	}
	job, _ := q.Dequeue(ctx)
	if job.SessionID != "sess-gaps" || job.Segment.Index != 4 {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestAuditFinalizesCompleteSession(t *testing.T) {
	r, st, q := newTestReconciler(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-done"); err != nil {
		t.Fatal(err)
	}
	status := session.StatusTranscribing
	if _, err := st.Update(ctx, "sess-done", &status,
		store.WithSegments(descriptors(2)),
		store.WithTranscriptDelta(transcript(0), transcript(1))); err != nil {
		t.Fatal(err)
	}

	audited, err := r.Audit(ctx, "sess-done")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if audited.Status != session.StatusCompleted {
		t.Errorf("status = %q, want completed", audited.Status)
	}
	if audited.CompletionTime == nil {
		t.Error("completion time not set")
	}
	if q.Len() != 0 {
		t.Errorf("queue depth = %d, want 0", q.Len())
	}
}

func TestAuditRecoversMissingFirstSegment(t *testing.T) {
	r, st, q := newTestReconciler(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-first"); err != nil {
		t.Fatal(err)
	}
	status := session.StatusTranscribing
	if _, err := st.Update(ctx, "sess-first", &status,
		store.WithSegments(descriptors(2)),
		store.WithTranscriptDelta(transcript(1))); err != nil {
		t.Fatal(err)
	}

	audited, err := r.Audit(ctx, "sess-first")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	// The returned record carries the post-recovery state, so the sweep
	// drops the session the cycle recovery completes it.
	if audited.Status != session.StatusCompleted {
		t.Errorf("audited status = %q, want completed after recovery", audited.Status)
	}

	rec, err := st.Get(ctx, "sess-first")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.HasSegment(0) {
		t.Fatal("segment 0 not recovered")
	}
	for _, e := range rec.Transcript {
		if e.SegmentIndex == 0 && !e.Synthetic {
			t.Error("recovered segment 0 not flagged synthetic")
		}
	}
	if rec.Status != session.StatusCompleted {
		t.Errorf("status = %q, want completed after recovery", rec.Status)
	}

	// The placeholder does not end the story: segment 0 is still
	// dispatched so a real decode can replace the synthetic text.
	if q.Len() != 1 {
		t.Fatalf("queue depth = %d, want segment 0 re-enqueued", q.Len())
	}
	job, _ := q.Dequeue(ctx)
	if job.Segment.Index != 0 {
		t.Errorf("re-enqueued index = %d, want 0", job.Segment.Index)
	}
}

func TestSweepDropsSessionCompletedByRecovery(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-first-drop"); err != nil {
		t.Fatal(err)
	}
	status := session.StatusTranscribing
	if _, err := st.Update(ctx, "sess-first-drop", &status,
		store.WithSegments(descriptors(2)),
		store.WithTranscriptDelta(transcript(1))); err != nil {
		t.Fatal(err)
	}

	r.Track("sess-first-drop")
	r.sweep()
	if r.Tracked() != 0 {
		t.Errorf("session completed by recovery still tracked after the sweep")
	}
}

func TestReprocessMissing(t *testing.T) {
	r, st, q := newTestReconciler(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-re"); err != nil {
		t.Fatal(err)
	}
	status := session.StatusTranscribing
	if _, err := st.Update(ctx, "sess-re", &status,
		store.WithSegments(descriptors(4)),
		store.WithTranscriptDelta(transcript(1), transcript(3))); err != nil {
		t.Fatal(err)
	}

	missing, queued, err := r.ReprocessMissing(ctx, "sess-re")
	if err != nil {
		t.Fatalf("ReprocessMissing: %v", err)
	}
	if len(missing) != 2 || missing[0] != 0 || missing[1] != 2 {
		t.Errorf("missing = %v, want [0 2]", missing)
	}
	if queued != 2 {
		t.Errorf("queued = %d, want 2", queued)
	}

	// Index 0 dispatches ahead of the other gap.
	first, _ := q.Dequeue(ctx)
	if first.Segment.Index != 0 {
		t.Errorf("first re-enqueued index = %d, want 0", first.Segment.Index)
	}
}

func TestSweepDropsSessionsAfterMaxCycles(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	r.cfg.MaxCycles = 2
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-cycles"); err != nil {
		t.Fatal(err)
	}
	status := session.StatusTranscribing
	if _, err := st.Update(ctx, "sess-cycles", &status,
		store.WithSegments(descriptors(3)),
		store.WithTranscriptDelta(transcript(1))); err != nil {
		t.Fatal(err)
	}

	r.Track("sess-cycles")
	r.Track("sess-cycles") // re-tracking must not reset the cycle count

	r.sweep()
	if r.Tracked() != 1 {
		t.Fatalf("session dropped after one cycle")
	}
	r.sweep()
	if r.Tracked() != 0 {
		t.Errorf("session still tracked after max cycles")
	}
}

func TestSweepDropsCompletedSessions(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, "sess-ok"); err != nil {
		t.Fatal(err)
	}
	status := session.StatusTranscribing
	if _, err := st.Update(ctx, "sess-ok", &status,
		store.WithSegments(descriptors(1)),
		store.WithTranscriptDelta(transcript(0))); err != nil {
		t.Fatal(err)
	}

	r.Track("sess-ok")
	r.sweep()
	if r.Tracked() != 0 {
		t.Errorf("completed session still tracked")
	}
}
