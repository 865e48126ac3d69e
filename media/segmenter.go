package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/process"
	"github.com/plenumlabs/scribe/session"
	"github.com/plenumlabs/scribe/store"
)

// Segmenter splits a source recording into fixed-length WAV chunks and
// persists the resulting descriptors on the session record.
type Segmenter struct {
	cfg   Config
	store *store.Store
	log   *logger.Logger
}

// NewSegmenter creates a segmenter writing into the store's session directories.
func NewSegmenter(cfg Config, st *store.Store, log *logger.Logger) *Segmenter {
	cfg.ApplyDefaults()
	return &Segmenter{
		cfg:   cfg,
		store: st,
		log:   log.WithComponent("segmenter"),
	}
}

// Segment chunks sourcePath into <session dir>/segment_NNN.wav files and
// returns the dense, 0-based segment descriptors. The session status moves
// uploaded -> preprocessing -> preprocessed; a run that produces no segments
// marks the session as errored and returns a failure.
func (s *Segmenter) Segment(ctx context.Context, sessionID, sourcePath string) ([]session.SegmentDescriptor, error) {
	log := s.log.WithSession(sessionID)

	if _, err := os.Stat(sourcePath); err != nil {
		return nil, apperrors.SegmentationFailed(sessionID, fmt.Errorf("source audio: %w", err))
	}

	preprocessing := session.StatusPreprocessing
	if _, err := s.store.Update(ctx, sessionID, &preprocessing,
		store.WithStatusDetail("segmenting audio")); err != nil {
		return nil, err
	}

	dir := s.store.SessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, s.fail(ctx, sessionID, fmt.Errorf("create session dir: %w", err))
	}

	pattern := filepath.Join(dir, "segment_%03d.wav")
	args := []string{
		"-y", "-i", sourcePath,
		"-af", s.cfg.AudioFilter,
		"-f", "segment", "-segment_time", strconv.Itoa(s.cfg.SegmentSeconds),
		"-c:a", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		pattern,
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := process.Run(runCtx, process.Command{Binary: s.cfg.FFmpegBin, Args: args})
	if err != nil {
		detail := err
		if res != nil && len(res.Stderr) > 0 {
			detail = fmt.Errorf("%w: %s", err, tail(res.Stderr))
		}
		return nil, s.fail(ctx, sessionID, detail)
	}

	descriptors, err := s.collect(ctx, dir)
	if err != nil {
		return nil, s.fail(ctx, sessionID, err)
	}
	if len(descriptors) == 0 {
		return nil, s.fail(ctx, sessionID, fmt.Errorf("no segments generated"))
	}

	preprocessed := session.StatusPreprocessed
	if _, err := s.store.Update(ctx, sessionID, &preprocessed,
		store.WithSegments(descriptors),
		store.WithStatusDetail("audio segmented")); err != nil {
		return nil, err
	}

	log.Info("audio segmented", logger.Fields(
		logger.FieldOperation, "segment",
		"segments", len(descriptors),
		logger.FieldDuration, res.Duration.Milliseconds(),
	))
	return descriptors, nil
}

// collect lists the generated segment files in index order and probes each
// for its real duration. Start times are nominal multiples of the chunk
// length; the final segment is usually shorter.
func (s *Segmenter) collect(ctx context.Context, dir string) ([]session.SegmentDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "segment_") && strings.HasSuffix(name, ".wav") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	descriptors := make([]session.SegmentDescriptor, 0, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		duration, err := s.probeDuration(ctx, path)
		if err != nil {
			duration = float64(s.cfg.SegmentSeconds)
		}
		start := float64(i * s.cfg.SegmentSeconds)
		descriptors = append(descriptors, session.SegmentDescriptor{
			Index:     i,
			StartTime: start,
			EndTime:   start + duration,
			Duration:  duration,
			Path:      path,
		})
	}
	return descriptors, nil
}

// probeDuration reads the container duration of an audio file via ffprobe.
func (s *Segmenter) probeDuration(ctx context.Context, path string) (float64, error) {
	res, err := process.Run(ctx, process.Command{
		Binary: s.cfg.FFprobeBin,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
	})
	if err != nil {
		return 0, err
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(res.Stdout)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return duration, nil
}

// fail marks the session as errored and wraps the cause.
func (s *Segmenter) fail(ctx context.Context, sessionID string, cause error) error {
	appErr := apperrors.SegmentationFailed(sessionID, cause)
	errored := session.StatusError
	if _, err := s.store.Update(ctx, sessionID, &errored,
		store.WithStatusDetail(appErr.Message)); err != nil {
		s.log.WithSession(sessionID).Error("failed to record segmentation error",
			logger.ErrorFields("segment", err))
	}
	return appErr
}

// tail returns the last few lines of subprocess stderr for error context.
func tail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
