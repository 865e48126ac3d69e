package queue

import (
	"context"
	"time"

	"github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/resilience"
	"github.com/plenumlabs/scribe/session"
)

// Job is one unit of transcription work handed to a worker.
type Job struct {
	SessionID string
	Segment   session.SegmentDescriptor
}

// Config holds dispatch queue configuration.
type Config struct {
	// Capacity bounds the queue; sized for several sessions' worth of segments.
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
	// PutTimeout is how long one enqueue attempt blocks against a full queue.
	PutTimeout time.Duration `yaml:"put_timeout" mapstructure:"put_timeout"`
	// PutAttempts bounds enqueue retries; work is never silently dropped.
	PutAttempts int `yaml:"put_attempts" mapstructure:"put_attempts"`
	// PutBackoff is the delay between enqueue attempts.
	PutBackoff time.Duration `yaml:"put_backoff" mapstructure:"put_backoff"`
}

// ApplyDefaults applies default values to queue configuration.
func (c *Config) ApplyDefaults() {
	if c.Capacity == 0 {
		c.Capacity = 200
	}
	if c.PutTimeout == 0 {
		c.PutTimeout = 60 * time.Second
	}
	if c.PutAttempts == 0 {
		c.PutAttempts = 3
	}
	if c.PutBackoff == 0 {
		c.PutBackoff = 5 * time.Second
	}
}

// Queue is a bounded FIFO of segment jobs between the segmenter/reconciler
// and the worker pool. There is no cross-session fairness: one pathological
// session can starve others, which is an accepted limitation.
type Queue struct {
	cfg  Config
	jobs chan Job
	log  *logger.Logger
}

// New creates a dispatch queue.
func New(cfg Config, log *logger.Logger) *Queue {
	cfg.ApplyDefaults()
	return &Queue{
		cfg:  cfg,
		jobs: make(chan Job, cfg.Capacity),
		log:  log.WithComponent("queue"),
	}
}

// Enqueue adds one job, blocking up to the put timeout when the queue is
// full and retrying with backoff before giving up with QUEUE_FULL.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    q.cfg.PutAttempts,
		InitialBackoff: q.cfg.PutBackoff,
		BackoffFactor:  1.0,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			q.log.Warn("queue full, retrying enqueue", logger.Fields(
				logger.FieldSessionID, job.SessionID,
				logger.FieldSegmentIndex, job.Segment.Index,
				logger.FieldAttempt, attempt,
			))
		},
	}

	return resilience.RetryFunc(ctx, retryCfg, func() error {
		return q.put(ctx, job)
	})
}

// put performs one bounded enqueue attempt.
func (q *Queue) put(ctx context.Context, job Job) error {
	timer := time.NewTimer(q.cfg.PutTimeout)
	defer timer.Stop()

	select {
	case q.jobs <- job:
		q.log.Debug("job enqueued", logger.Fields(
			logger.FieldSessionID, job.SessionID,
			logger.FieldSegmentIndex, job.Segment.Index,
		))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.QueueFull()
	}
}

// EnqueueSession enqueues a session's segments honoring the ordering
// contract: index 0 goes first, ahead of every other index, because the
// first segment is the highest-risk unit and benefits from earliest
// processing; the rest follow in ascending order.
func (q *Queue) EnqueueSession(ctx context.Context, sessionID string, segments []session.SegmentDescriptor) (int, error) {
	ordered := OrderForDispatch(segments)

	queued := 0
	for _, desc := range ordered {
		if err := q.Enqueue(ctx, Job{SessionID: sessionID, Segment: desc}); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// Dequeue blocks until a job is available or the context ends.
func (q *Queue) Dequeue(ctx context.Context) (Job, bool) {
	select {
	case job, ok := <-q.jobs:
		return job, ok
	case <-ctx.Done():
		return Job{}, false
	}
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int { return len(q.jobs) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.jobs) }
