package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/media"
	"github.com/plenumlabs/scribe/queue"
	"github.com/plenumlabs/scribe/session"
	"github.com/plenumlabs/scribe/store"
	"github.com/plenumlabs/scribe/transcription"
)

// DefaultInitialPrompt primes the decoder on the first-attempt tier.
const DefaultInitialPrompt = "Transcribe this recording of a legislative session accurately."

// defaultLeakPhrases are prompt substrings known to leak into transcripts.
var defaultLeakPhrases = []string{
	DefaultInitialPrompt,
	"Transcribe this recording of a legislative session",
	"This is a transcription of a legislative session",
	"Transcribe this recording",
	"This is a transcription",
}

// Config holds worker pool configuration.
type Config struct {
	// Workers is the number of concurrent workers. Values above 1 require a
	// provider that is safe for concurrent Transcribe calls.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	// MaxRetries bounds decode attempts per segment across tiers.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	// RetryDelay is the base delay between attempts, scaled by attempt number.
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
	// Language hints the expected audio language. Empty lets the provider decide.
	Language string `json:"language,omitempty" yaml:"language" mapstructure:"language"`
	// InitialPrompt is the first-tier priming prompt.
	InitialPrompt string `json:"initial_prompt,omitempty" yaml:"initial_prompt" mapstructure:"initial_prompt"`
	// LeakPhrases are stripped from transcripts case-insensitively.
	LeakPhrases []string `json:"leak_phrases,omitempty" yaml:"leak_phrases" mapstructure:"leak_phrases"`
	// MinArtifactBytes is the smallest acceptable segment artifact.
	MinArtifactBytes int64 `json:"min_artifact_bytes" yaml:"min_artifact_bytes" mapstructure:"min_artifact_bytes"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.InitialPrompt == "" {
		c.InitialPrompt = DefaultInitialPrompt
	}
	if len(c.LeakPhrases) == 0 {
		c.LeakPhrases = defaultLeakPhrases
	}
	if c.MinArtifactBytes == 0 {
		c.MinArtifactBytes = media.DefaultMinArtifactBytes
	}
}

// Pool runs long-lived workers that drain the dispatch queue, transcribe
// segments through the tier ladder, and merge results into the store.
type Pool struct {
	cfg        Config
	store      *store.Store
	queue      *queue.Queue
	provider   transcription.Provider
	normalizer *media.Normalizer
	metrics    *Metrics
	log        *logger.Logger
	wg         sync.WaitGroup
}

// NewPool creates a worker pool. Metrics may be nil, in which case only
// in-memory counters are kept.
func NewPool(cfg Config, st *store.Store, q *queue.Queue, provider transcription.Provider,
	normalizer *media.Normalizer, metrics *Metrics, log *logger.Logger) *Pool {
	cfg.ApplyDefaults()
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Pool{
		cfg:        cfg,
		store:      st,
		queue:      q,
		provider:   provider,
		normalizer: normalizer,
		metrics:    metrics,
		log:        log.WithComponent("worker"),
	}
}

// Start launches the workers. They run until ctx is canceled or the queue
// is closed; Wait blocks until all have exited.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() { p.wg.Wait() }

// Stats returns the pool's counter snapshot.
func (p *Pool) Stats() Stats { return p.metrics.Snapshot() }

func (p *Pool) run(ctx context.Context, id int) {
	log := p.log.WithFields(logger.Fields("worker_id", id))
	log.Info("worker started")
	for {
		job, ok := p.queue.Dequeue(ctx)
		if !ok {
			log.Info("worker stopping")
			return
		}
		if err := p.Process(ctx, job); err != nil {
			log.Error("segment processing failed", logger.Fields(
				logger.FieldSessionID, job.SessionID,
				logger.FieldSegmentIndex, job.Segment.Index,
				logger.FieldError, err.Error(),
			))
		}
	}
}

// Process handles a single segment job end to end: idempotence guard,
// artifact validation, the bounded attempt loop over decode tiers,
// post-processing, and the store merge.
func (p *Pool) Process(ctx context.Context, job queue.Job) error {
	seg := job.Segment
	log := p.log.WithSession(job.SessionID).WithFields(
		logger.Fields(logger.FieldSegmentIndex, seg.Index))

	rec, err := p.store.Get(ctx, job.SessionID)
	if err != nil {
		return err
	}
	if existing := entryFor(rec, seg.Index); existing != nil && !existing.Synthetic {
		log.Debug("segment already transcribed, skipping")
		return nil
	}

	if seg.Index == 0 {
		if err := media.ValidArtifact(seg.Path, p.cfg.MinArtifactBytes); err != nil {
			log.Warn("first segment artifact invalid, inserting placeholder",
				logger.ErrorFields("validate", err))
			return p.recoverFirst(ctx, job.SessionID, seg)
		}
	}

	start := time.Now()
	entry, err := p.transcribeWithTiers(ctx, log, job)
	if err != nil {
		p.metrics.recordFailed(ctx, seg.Index)
		p.recordError(ctx, job.SessionID, seg.Index, err)
		return err
	}

	if _, err := p.store.Update(ctx, job.SessionID, nil,
		store.WithTranscriptDelta(*entry)); err != nil {
		return err
	}

	p.metrics.recordProcessed(ctx, time.Since(start).Seconds())
	log.Info("segment transcribed", logger.Fields(
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"phrases", len(entry.Phrases),
	))
	return nil
}

// transcribeWithTiers walks the tier ladder until one attempt produces
// usable text or the retry budget is spent.
func (p *Pool) transcribeWithTiers(ctx context.Context, log *logger.Logger, job queue.Job) (*session.TranscriptSegment, error) {
	seg := job.Segment
	audioPath := seg.Path
	var lastErr error

	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			p.metrics.recordRetried(ctx, attempt)
			if err := sleep(ctx, time.Duration(attempt)*p.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}

		// Invalid artifacts burn attempts like any other failure; a
		// re-normalization pass may repair a readable but malformed file,
		// and a file written late by a slow segmenter passes on a later
		// check. The error entry is appended only after the budget is spent.
		if err := media.ValidArtifact(audioPath, p.cfg.MinArtifactBytes); err != nil {
			lastErr = err
			log.Warn("segment artifact invalid, re-normalizing audio", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
			))
			if fixed, nErr := p.normalizer.Normalize(ctx, seg.Path); nErr == nil {
				audioPath = fixed
			} else if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		tier := TierFor(seg.Index, attempt, p.cfg.InitialPrompt)
		log.Debug("transcription attempt", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldTier, tier.Name,
		))

		result, err := p.provider.Transcribe(ctx, transcription.Request{
			AudioPath:           audioPath,
			Language:            p.cfg.Language,
			BeamSize:            tier.BeamSize,
			BestOf:              tier.BestOf,
			Temperatures:        tier.Temperatures,
			ConditionOnPrevious: tier.ConditionOnPrevious,
			InitialPrompt:       tier.InitialPrompt,
			NoSpeechThreshold:   tier.NoSpeechThreshold,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTensorMismatch(err) {
				lastErr = apperrors.TensorShapeMismatch(seg.Index, err)
				log.Warn("tensor shape mismatch, re-normalizing audio",
					logger.Fields(logger.FieldAttempt, attempt))
				if fixed, nErr := p.normalizer.Normalize(ctx, audioPath); nErr == nil {
					audioPath = fixed
				} else {
					log.Error("audio re-normalization failed", logger.ErrorFields("normalize", nErr))
				}
				continue
			}
			lastErr = apperrors.TranscriptionFailed(seg.Index, err)
			continue
		}

		if isSentinel(result.Text) {
			lastErr = apperrors.EmptyTranscript(seg.Index)
			log.Warn("empty or sentinel transcript", logger.Fields(logger.FieldAttempt, attempt))
			continue
		}

		return p.buildEntry(seg, result), nil
	}

	if lastErr == nil {
		lastErr = apperrors.TranscriptionFailed(seg.Index, nil)
	}
	return nil, lastErr
}

// buildEntry converts a raw model result into a transcript entry with
// absolute times, formatted clocks, and post-processed text.
func (p *Pool) buildEntry(seg session.SegmentDescriptor, result *transcription.Result) *session.TranscriptSegment {
	phrases := make([]session.PhraseSpan, 0, len(result.Segments))
	for _, span := range result.Segments {
		raw := strings.TrimSpace(span.Text)
		text := raw
		if isSentinel(raw) {
			text = NoSpeechPlaceholder
		} else {
			text = CleanText(raw, p.cfg.LeakPhrases)
		}
		start := span.Start + seg.StartTime
		end := span.End + seg.StartTime
		phrases = append(phrases, session.PhraseSpan{
			Text:         text,
			OriginalText: raw,
			Start:        start,
			End:          end,
			StartClock:   session.FormatClock(start),
			EndClock:     session.FormatClock(end),
			Corrected:    text != raw,
		})
	}
	phrases = DropDuplicatePhrases(phrases)

	rawText := strings.TrimSpace(result.Text)
	cleanText := CleanText(rawText, p.cfg.LeakPhrases)

	return &session.TranscriptSegment{
		SegmentIndex: seg.Index,
		StartTime:    seg.StartTime,
		EndTime:      seg.EndTime,
		Text:         cleanText,
		OriginalText: rawText,
		Phrases:      phrases,
		Language:     result.Language,
		Corrected:    cleanText != rawText,
	}
}

// recoverFirst inserts the flagged synthetic entry for segment 0.
func (p *Pool) recoverFirst(ctx context.Context, sessionID string, seg session.SegmentDescriptor) error {
	synthetic := session.SyntheticFirstSegment(seg, "")
	_, err := p.store.Update(ctx, sessionID, nil, store.WithTranscriptDelta(synthetic))
	return err
}

// recordError appends one terminal per-segment error to the session. The
// session itself is not failed; other segments continue.
func (p *Pool) recordError(ctx context.Context, sessionID string, index int, cause error) {
	if _, err := p.store.Update(ctx, sessionID, nil,
		store.WithSegmentError(index, cause.Error())); err != nil {
		p.log.WithSession(sessionID).Error("failed to record segment error",
			logger.ErrorFields("record_error", err))
	}
}

func entryFor(rec *session.Record, index int) *session.TranscriptSegment {
	for i := range rec.Transcript {
		if rec.Transcript[i].SegmentIndex == index {
			return &rec.Transcript[i]
		}
	}
	return nil
}

// isTensorMismatch matches the model's tensor dimension error, remedied by
// re-normalizing the audio before the next attempt.
func isTensorMismatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "size of tensor") && strings.Contains(msg, "must match")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
