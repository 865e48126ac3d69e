package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/queue"
	"github.com/plenumlabs/scribe/reconcile"
	"github.com/plenumlabs/scribe/session"
	"github.com/plenumlabs/scribe/store"
	"github.com/plenumlabs/scribe/transcription"
	"github.com/plenumlabs/scribe/version"
	"github.com/plenumlabs/scribe/worker"
)

// Segmenter chunks a source recording into segment descriptors.
type Segmenter interface {
	Segment(ctx context.Context, sessionID, sourcePath string) ([]session.SegmentDescriptor, error)
}

// Handlers wires the session pipeline to the HTTP boundary.
type Handlers struct {
	store      *store.Store
	queue      *queue.Queue
	segmenter  Segmenter
	pool       *worker.Pool
	reconciler *reconcile.Reconciler
	provider   transcription.Provider
	log        *logger.Logger
	started    time.Time
}

// NewHandlers creates the API handler set.
func NewHandlers(st *store.Store, q *queue.Queue, seg Segmenter, pool *worker.Pool,
	rec *reconcile.Reconciler, provider transcription.Provider, log *logger.Logger) *Handlers {
	return &Handlers{
		store:      st,
		queue:      q,
		segmenter:  seg,
		pool:       pool,
		reconciler: rec,
		provider:   provider,
		log:        log.WithComponent("api"),
		started:    time.Now(),
	}
}

// Register mounts the API routes on the engine.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	sessions := r.Group("/sessions/:id")
	sessions.POST("/transcribe", h.Transcribe)
	sessions.GET("/status", h.Status)
	sessions.GET("/transcript", h.Transcript)
	sessions.POST("/reprocess", h.Reprocess)
	sessions.POST("/recover-first", h.RecoverFirst)
}

type transcribeRequest struct {
	SourcePath string `json:"source_path" binding:"required"`
}

type transcribeResponse struct {
	SessionID      string         `json:"session_id"`
	Status         session.Status `json:"status"`
	SegmentsTotal  int            `json:"segments_total"`
	SegmentsQueued int            `json:"segments_queued"`
}

// Transcribe is the pipeline entrypoint: it segments the source recording,
// marks the session transcribing, enqueues the segments with index 0 first,
// and registers the session for periodic audits. Re-invoking on a completed
// session answers idempotently after one audit.
func (h *Handlers) Transcribe(c *gin.Context) {
	sessionID := c.Param("id")

	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("source_path is required").WithCause(err))
		return
	}

	ctx := c.Request.Context()

	rec, err := h.store.Get(ctx, sessionID)
	switch {
	case err == nil && rec.Status == session.StatusCompleted:
		audited, auditErr := h.reconciler.Audit(ctx, sessionID)
		if auditErr != nil {
			RespondWithError(c, auditErr)
			return
		}
		RespondOK(c, transcribeResponse{
			SessionID:     sessionID,
			Status:        audited.Status,
			SegmentsTotal: audited.SegmentsTotal,
		})
		return
	case err != nil && !apperrors.IsCode(err, apperrors.ErrCodeNotFound):
		RespondWithError(c, err)
		return
	case err != nil:
		if _, err := h.store.Create(ctx, sessionID); err != nil {
			RespondWithError(c, err)
			return
		}
	}

	descs, err := h.segmenter.Segment(ctx, sessionID, req.SourcePath)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	transcribing := session.StatusTranscribing
	if _, err := h.store.Update(ctx, sessionID, &transcribing); err != nil {
		RespondWithError(c, err)
		return
	}

	queued, err := h.queue.EnqueueSession(ctx, sessionID, descs)
	if err != nil {
		h.log.WithSession(sessionID).Error("enqueue incomplete", logger.Fields(
			logger.FieldQueued, queued,
			logger.FieldError, err.Error(),
		))
		RespondWithError(c, err)
		return
	}

	h.reconciler.Track(sessionID)

	RespondAccepted(c, transcribeResponse{
		SessionID:      sessionID,
		Status:         session.StatusTranscribing,
		SegmentsTotal:  len(descs),
		SegmentsQueued: queued,
	})
}

type statusResponse struct {
	SessionID         string                 `json:"session_id"`
	Status            session.Status         `json:"status"`
	StatusDetail      string                 `json:"status_detail,omitempty"`
	SegmentsTotal     int                    `json:"segments_total"`
	SegmentsCompleted int                    `json:"segments_completed"`
	Progress          float64                `json:"progress"`
	MissingSegments   []int                  `json:"missing_segments,omitempty"`
	Errors            []session.SegmentError `json:"errors,omitempty"`
	CompletionTime    *time.Time             `json:"completion_time,omitempty"`
}

// Status reports a session's progress.
func (h *Handlers) Status(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, statusResponse{
		SessionID:         rec.SessionID,
		Status:            rec.Status,
		StatusDetail:      rec.StatusDetail,
		SegmentsTotal:     rec.SegmentsTotal,
		SegmentsCompleted: rec.SegmentsCompleted,
		Progress:          rec.Progress,
		MissingSegments:   rec.MissingSegments,
		Errors:            rec.Errors,
		CompletionTime:    rec.CompletionTime,
	})
}

type transcriptResponse struct {
	SessionID  string                      `json:"session_id"`
	Status     session.Status              `json:"status"`
	Transcript []session.TranscriptSegment `json:"transcript"`
}

// Transcript returns the merged transcript entries, ascending by index.
func (h *Handlers) Transcript(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, transcriptResponse{
		SessionID:  rec.SessionID,
		Status:     rec.Status,
		Transcript: rec.Transcript,
	})
}

type reprocessResponse struct {
	SessionID       string `json:"session_id"`
	MissingSegments []int  `json:"missing_segments"`
	SegmentsQueued  int    `json:"segments_queued"`
}

// Reprocess audits the session on demand and re-enqueues its gaps.
func (h *Handlers) Reprocess(c *gin.Context) {
	sessionID := c.Param("id")
	missing, queued, err := h.reconciler.ReprocessMissing(c.Request.Context(), sessionID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if len(missing) > 0 {
		h.reconciler.Track(sessionID)
	}
	RespondOK(c, reprocessResponse{
		SessionID:       sessionID,
		MissingSegments: missing,
		SegmentsQueued:  queued,
	})
}

type recoverResponse struct {
	SessionID string `json:"session_id"`
	Recovered bool   `json:"recovered"`
}

// RecoverFirst forces the synthetic placeholder for segment 0.
func (h *Handlers) RecoverFirst(c *gin.Context) {
	sessionID := c.Param("id")
	recovered, err := h.reconciler.RecoverFirstSegment(c.Request.Context(), sessionID)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, recoverResponse{SessionID: sessionID, Recovered: recovered})
}

type healthResponse struct {
	Service       string       `json:"service"`
	Version       string       `json:"version"`
	Status        string       `json:"status"`
	ModelReady    bool         `json:"model_ready"`
	QueueDepth    int          `json:"queue_depth"`
	QueueCapacity int          `json:"queue_capacity"`
	Tracked       int          `json:"tracked_sessions"`
	Worker        worker.Stats `json:"worker"`
	UptimeSeconds int64        `json:"uptime_seconds"`
}

// Health reports service liveness plus pipeline vitals.
func (h *Handlers) Health(c *gin.Context) {
	ready := h.provider.IsAvailable(c.Request.Context())
	status := "healthy"
	if !ready {
		status = "degraded"
	}
	RespondOK(c, healthResponse{
		Service:       "scribe",
		Version:       version.Get().String(),
		Status:        status,
		ModelReady:    ready,
		QueueDepth:    h.queue.Len(),
		QueueCapacity: h.queue.Cap(),
		Tracked:       h.reconciler.Tracked(),
		Worker:        h.pool.Stats(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}
