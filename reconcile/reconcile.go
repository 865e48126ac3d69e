package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/queue"
	"github.com/plenumlabs/scribe/session"
	"github.com/plenumlabs/scribe/store"
)

// Config holds reconciler configuration.
type Config struct {
	// Interval is the audit period.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// MaxCycles bounds how many audits a session receives before it is
	// dropped from tracking. The final state stays visible on the record.
	MaxCycles int `json:"max_cycles" yaml:"max_cycles" mapstructure:"max_cycles" validate:"gte=0"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.MaxCycles == 0 {
		c.MaxCycles = 30
	}
}

// Reconciler periodically audits tracked sessions, correcting records that
// claim completion with gaps and re-enqueueing missing segments.
type Reconciler struct {
	cfg   Config
	store *store.Store
	queue *queue.Queue
	log   *logger.Logger

	cron *cron.Cron

	mu      sync.Mutex
	tracked map[string]int
}

// New creates a reconciler. Call Start to begin the periodic sweep.
func New(cfg Config, st *store.Store, q *queue.Queue, log *logger.Logger) *Reconciler {
	cfg.ApplyDefaults()
	return &Reconciler{
		cfg:     cfg,
		store:   st,
		queue:   q,
		log:     log.WithComponent("reconciler"),
		cron:    cron.New(),
		tracked: make(map[string]int),
	}
}

// Start schedules the periodic sweep.
func (r *Reconciler) Start() error {
	schedule := fmt.Sprintf("@every %s", r.cfg.Interval)
	if _, err := r.cron.AddFunc(schedule, r.sweep); err != nil {
		return fmt.Errorf("schedule reconciler: %w", err)
	}
	r.cron.Start()
	r.log.Info("reconciler started", logger.Fields("interval", r.cfg.Interval.String()))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// Track registers a session for periodic auditing. Sessions register when
// transcription starts and are dropped once complete or after MaxCycles.
func (r *Reconciler) Track(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracked[sessionID]; !ok {
		r.tracked[sessionID] = 0
	}
}

// Untrack removes a session from the audit set.
func (r *Reconciler) Untrack(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracked, sessionID)
}

// Tracked returns the number of sessions currently under audit.
func (r *Reconciler) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracked)
}

// sweep audits every tracked session once.
func (r *Reconciler) sweep() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.tracked))
	for id := range r.tracked {
		r.tracked[id]++
		ids = append(ids, id)
	}
	r.mu.Unlock()

	ctx := context.Background()
	for _, id := range ids {
		rec, err := r.Audit(ctx, id)
		if err != nil {
			r.log.Error("audit failed", logger.ErrorFields("audit", err))
			continue
		}
		r.mu.Lock()
		if rec.Status == session.StatusCompleted || r.tracked[id] >= r.cfg.MaxCycles {
			delete(r.tracked, id)
		}
		r.mu.Unlock()
	}
}

// Audit compares the expected segment set with the transcript. Gaps
// downgrade a falsely-completed record, persist the missing set, and
// re-enqueue the missing descriptors; segment-0 absence triggers recovery
// independently. A gap-free record is finalized as completed. The session
// lock is never held across enqueues.
func (r *Reconciler) Audit(ctx context.Context, sessionID string) (*session.Record, error) {
	log := r.log.WithSession(sessionID)

	// The no-op update re-runs the status reconciliation under the lock:
	// a completed claim with gaps is downgraded, a record that is in fact
	// complete is finalized with its completion time.
	rec, err := r.store.Update(ctx, sessionID, nil)
	if err != nil {
		return nil, err
	}

	missing := rec.MissingIndices()
	if len(missing) == 0 {
		log.Info("session complete", logger.Fields(
			"segments", rec.SegmentsTotal,
			logger.FieldStatus, string(rec.Status),
		))
		return rec, nil
	}

	log.Warn("session has missing segments", logger.Fields(
		logger.FieldMissing, missing,
		"completed", rec.SegmentsCompleted,
		"total", rec.SegmentsTotal,
	))

	if !rec.HasSegment(0) {
		if ok, err := r.RecoverFirstSegment(ctx, sessionID); err != nil {
			log.Error("first-segment recovery failed", logger.ErrorFields("recover_first", err))
		} else if ok {
			// The placeholder may have been the last gap; re-read so the
			// caller sees the post-recovery status and a completed session
			// leaves the audit set this cycle, not the next.
			if fresh, gErr := r.store.Get(ctx, sessionID); gErr == nil {
				rec = fresh
			}
		}
	}

	// Segment 0 stays in the re-enqueue set even after recovery: workers
	// re-process synthetic entries, so a real decode can still replace the
	// placeholder text.
	if _, err := r.enqueueMissing(ctx, rec, missing); err != nil {
		log.Error("re-enqueue failed", logger.ErrorFields("enqueue", err))
	}
	return rec, nil
}

// ReprocessMissing audits a session on demand and re-enqueues its gaps.
// It returns the missing indices and how many jobs were queued.
func (r *Reconciler) ReprocessMissing(ctx context.Context, sessionID string) (missing []int, queued int, err error) {
	rec, err := r.store.Update(ctx, sessionID, nil)
	if err != nil {
		return nil, 0, err
	}
	missing = rec.MissingIndices()
	if len(missing) == 0 {
		return missing, 0, nil
	}
	queued, err = r.enqueueMissing(ctx, rec, missing)
	return missing, queued, err
}

// RecoverFirstSegment merges the flagged synthetic entry for segment 0.
// Returns false when the record has no descriptor for index 0 or already
// carries an entry.
func (r *Reconciler) RecoverFirstSegment(ctx context.Context, sessionID string) (bool, error) {
	rec, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if rec.HasSegment(0) {
		return false, nil
	}
	desc, ok := rec.Descriptor(0)
	if !ok {
		return false, nil
	}

	synthetic := session.SyntheticFirstSegment(desc, "")
	if _, err := r.store.Update(ctx, sessionID, nil,
		store.WithTranscriptDelta(synthetic)); err != nil {
		return false, err
	}
	r.log.WithSession(sessionID).Warn("synthetic first segment inserted")
	return true, nil
}

// enqueueMissing re-dispatches the descriptors for the given indices,
// first segment ahead of the rest.
func (r *Reconciler) enqueueMissing(ctx context.Context, rec *session.Record, missing []int) (int, error) {
	var descs []session.SegmentDescriptor
	for _, idx := range missing {
		if desc, ok := rec.Descriptor(idx); ok {
			descs = append(descs, desc)
		}
	}
	if len(descs) == 0 {
		return 0, nil
	}
	return r.queue.EnqueueSession(ctx, rec.SessionID, descs)
}
