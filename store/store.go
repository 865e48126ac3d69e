package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/resilience"
	"github.com/plenumlabs/scribe/session"
)

// Config holds session store configuration.
type Config struct {
	// DataDir is the directory holding one JSON record per session.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
	// LockStaleAfter is the age past which a lock marker is considered
	// abandoned and may be removed by another updater.
	LockStaleAfter time.Duration `yaml:"lock_stale_after" mapstructure:"lock_stale_after"`
	// LockMaxAttempts bounds lock acquisition retries per update.
	LockMaxAttempts int `yaml:"lock_max_attempts" mapstructure:"lock_max_attempts"`
	// LockBackoff is the initial delay between lock attempts; subsequent
	// delays increase.
	LockBackoff time.Duration `yaml:"lock_backoff" mapstructure:"lock_backoff"`
	// FirstSegmentPlaceholder overrides the synthetic segment-0 text.
	FirstSegmentPlaceholder string `yaml:"first_segment_placeholder" mapstructure:"first_segment_placeholder"`
}

// ApplyDefaults applies default values to store configuration.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LockStaleAfter == 0 {
		c.LockStaleAfter = 30 * time.Second
	}
	if c.LockMaxAttempts == 0 {
		c.LockMaxAttempts = 5
	}
	if c.LockBackoff == 0 {
		c.LockBackoff = 500 * time.Millisecond
	}
}

// Store is the single source of truth for session records. Updates are
// serialized per session across processes via lock markers next to each
// record file.
type Store struct {
	cfg Config
	log *logger.Logger
}

// New creates a session store rooted at cfg.DataDir.
func New(cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve data dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	cfg.DataDir = abs
	return &Store{cfg: cfg, log: log.WithComponent("store")}, nil
}

// RecordPath returns the record file path for a session id.
func (s *Store) RecordPath(sessionID string) string {
	return filepath.Join(s.cfg.DataDir, sessionID+".json")
}

// SessionDir returns the directory holding a session's audio artifacts.
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.cfg.DataDir, sessionID)
}

// Create writes an initial record for a session if none exists and returns
// the current record either way.
func (s *Store) Create(ctx context.Context, sessionID string) (*session.Record, error) {
	if rec, err := s.Get(ctx, sessionID); err == nil {
		return rec, nil
	} else if !errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil, err
	}

	rec := session.NewRecord(sessionID)
	if err := s.persist(rec); err != nil {
		return nil, err
	}
	s.log.Info("session record created", logger.Fields(logger.FieldSessionID, sessionID))
	return rec, nil
}

// Get reads the last persisted record for a session.
func (s *Store) Get(_ context.Context, sessionID string) (*session.Record, error) {
	data, err := os.ReadFile(s.RecordPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("session", sessionID)
		}
		return nil, errors.RecordCorrupt(sessionID, err)
	}

	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.RecordCorrupt(sessionID, err)
	}
	return &rec, nil
}

// Update applies a partial update to a session record under the advisory
// lock. status may be nil to leave the current status untouched. The whole
// attempt (lock, read, apply, persist, unlock) is retried with increasing
// delay on contention and on decode failures; a corrupt read never silently
// discards data. The updated record is returned on success.
func (s *Store) Update(ctx context.Context, sessionID string, status *session.Status, opts ...Option) (*session.Record, error) {
	var up update
	for _, opt := range opts {
		opt(&up)
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    s.cfg.LockMaxAttempts,
		InitialBackoff: s.cfg.LockBackoff,
		BackoffFactor:  1.5,
		MaxBackoff:     10 * time.Second,
		RetryIf: func(err error) bool {
			if appErr, ok := errors.AsAppError(err); ok {
				return appErr.Retryable
			}
			return resilience.DefaultRetryIf(err)
		},
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			s.log.Warn("record update retry", logger.Fields(
				logger.FieldSessionID, sessionID,
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
			))
		},
	}

	rec, err := resilience.Retry(ctx, retryCfg, func() (*session.Record, error) {
		return s.updateOnce(sessionID, status, &up)
	})
	if err != nil {
		s.log.Error("record update failed", logger.ErrorFields("update", err))
		return nil, err
	}
	return rec, nil
}

// updateOnce performs one locked read-modify-write cycle.
func (s *Store) updateOnce(sessionID string, status *session.Status, up *update) (*session.Record, error) {
	lock, err := s.acquireLock(sessionID)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	rec, err := s.Get(context.Background(), sessionID)
	if err != nil {
		return nil, err
	}

	s.apply(rec, status, up)

	if err := s.persist(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// apply mutates rec in place per the update contract.
func (s *Store) apply(rec *session.Record, status *session.Status, up *update) {
	if status != nil {
		rec.Status = *status
	}
	rec.LastUpdated = time.Now().UTC()

	if up.statusDetail != nil {
		rec.StatusDetail = *up.statusDetail
	}
	if up.segments != nil {
		rec.Segments = up.segments
		rec.SegmentsTotal = len(up.segments)
	}
	if len(up.transcriptDelta) > 0 {
		before := len(rec.Transcript)
		rec.Transcript = session.MergeTranscript(rec.Transcript, up.transcriptDelta)
		s.log.Debug("transcript merged", logger.Fields(
			logger.FieldSessionID, rec.SessionID,
			"existing", before,
			"incoming", len(up.transcriptDelta),
			"merged", len(rec.Transcript),
		))
	}
	for _, segErr := range up.errors {
		rec.Errors = append(rec.Errors, segErr)
	}

	rec.RecomputeProgress()

	if rec.SegmentsTotal > 0 && rec.SegmentsCompleted >= rec.SegmentsTotal {
		s.ensureFirstSegment(rec)
	}
	s.reconcileStatus(rec)
}

// ensureFirstSegment runs the first-segment recovery path synchronously when
// a session is otherwise complete but index 0 never produced a transcript.
func (s *Store) ensureFirstSegment(rec *session.Record) {
	if rec.HasSegment(0) {
		return
	}
	desc, ok := rec.Descriptor(0)
	if !ok {
		return
	}
	s.log.Warn("segment 0 absent at completion, inserting synthetic transcript", logger.Fields(
		logger.FieldSessionID, rec.SessionID,
	))
	synth := session.SyntheticFirstSegment(desc, s.cfg.FirstSegmentPlaceholder)
	rec.Transcript = session.MergeTranscript(rec.Transcript, []session.TranscriptSegment{synth})
	rec.RecomputeProgress()
}

// reconcileStatus enforces the completeness invariant on the status field:
// completed is only ever persisted when every expected index is present with
// phrases, and is granted automatically once that holds.
func (s *Store) reconcileStatus(rec *session.Record) {
	switch {
	case rec.Complete():
		if rec.Status != session.StatusError {
			if rec.Status != session.StatusCompleted {
				s.log.Info("session complete", logger.Fields(
					logger.FieldSessionID, rec.SessionID,
					"segments", rec.SegmentsTotal,
				))
			}
			rec.Status = session.StatusCompleted
			if rec.CompletionTime == nil {
				now := time.Now().UTC()
				rec.CompletionTime = &now
			}
		}
	case rec.Status == session.StatusCompleted:
		// A completed claim with provably missing segments is an invariant
		// violation, not a hard error. Downgrade and keep going.
		s.log.Warn("completed claimed with missing segments, downgrading", logger.Fields(
			logger.FieldSessionID, rec.SessionID,
			logger.FieldMissing, rec.MissingIndices(),
		))
		rec.Status = session.StatusTranscribing
		rec.CompletionTime = nil
	}
}

// persist writes the record atomically (temp file + rename).
func (s *Store) persist(rec *session.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Internal(err)
	}

	path := s.RecordPath(rec.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return errors.Internal(fmt.Errorf("store: write record: %w", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Internal(fmt.Errorf("store: replace record: %w", err))
	}
	return nil
}
