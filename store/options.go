package store

import (
	"time"

	"github.com/plenumlabs/scribe/session"
)

// update collects the deltas one Update call applies.
type update struct {
	segments        []session.SegmentDescriptor
	transcriptDelta []session.TranscriptSegment
	errors          []session.SegmentError
	statusDetail    *string
}

// Option configures a single Update call.
type Option func(*update)

// WithSegments sets the session's segment descriptors. Intended to be used
// once, by the segmenter; descriptors are immutable afterwards.
func WithSegments(segments []session.SegmentDescriptor) Option {
	return func(u *update) { u.segments = segments }
}

// WithTranscriptDelta merges transcript entries by segment index.
// An incoming entry fully replaces any existing entry for the same index.
func WithTranscriptDelta(entries ...session.TranscriptSegment) Option {
	return func(u *update) {
		u.transcriptDelta = append(u.transcriptDelta, entries...)
	}
}

// WithSegmentError appends a terminal per-segment error record.
func WithSegmentError(index int, message string) Option {
	return func(u *update) {
		u.errors = append(u.errors, session.SegmentError{
			SegmentIndex: index,
			Error:        message,
			OccurredAt:   time.Now().UTC(),
		})
	}
}

// WithStatusDetail sets the free-text status detail shown to operators.
func WithStatusDetail(detail string) Option {
	return func(u *update) { u.statusDetail = &detail }
}
