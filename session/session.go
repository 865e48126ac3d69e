package session

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a session record.
type Status string

const (
	StatusUploaded      Status = "uploaded"
	StatusPreprocessing Status = "preprocessing"
	StatusPreprocessed  Status = "preprocessed"
	StatusTranscribing  Status = "transcribing"
	StatusCompleted     Status = "completed"
	StatusError         Status = "error"
)

// SegmentDescriptor identifies one bounded time-slice of the source audio.
// Descriptors are created once, in full, when segmentation finishes and are
// immutable thereafter.
type SegmentDescriptor struct {
	// Index is 0-based, dense and gap-free within a session.
	Index int `json:"index"`
	// StartTime and EndTime are offsets in the source timeline, in seconds.
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	// Duration is the segment length in seconds.
	Duration float64 `json:"duration"`
	// Path is the audio artifact written by the segmenter.
	Path string `json:"path"`
}

// PhraseSpan is one time-aligned phrase within a transcribed segment.
// Spans are produced by the worker and never mutated after creation.
type PhraseSpan struct {
	Text         string  `json:"text"`
	OriginalText string  `json:"original_text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	StartClock   string  `json:"start_formatted"`
	EndClock     string  `json:"end_formatted"`
	Corrected    bool    `json:"corrected"`
}

// TranscriptSegment is the result of transcribing one SegmentDescriptor.
// There is at most one per index; a merge replaces the whole entry.
type TranscriptSegment struct {
	SegmentIndex int          `json:"segment_index"`
	StartTime    float64      `json:"start_time"`
	EndTime      float64      `json:"end_time"`
	Text         string       `json:"text"`
	OriginalText string       `json:"original_text"`
	Phrases      []PhraseSpan `json:"phrases"`
	Language     string       `json:"language"`
	Corrected    bool         `json:"corrected"`
	// Synthetic marks a placeholder entry inserted by first-segment recovery.
	// Consumers must warn a human reviewer when it is set.
	Synthetic bool `json:"synthetic,omitempty"`
}

// SegmentError records a terminal per-segment transcription failure.
// The errors sequence on a record is append-only.
type SegmentError struct {
	SegmentIndex int       `json:"segment_index"`
	Error        string    `json:"error"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Record is the durable state of one session, owned by the store.
type Record struct {
	SessionID         string              `json:"session_id"`
	Status            Status              `json:"status"`
	StatusDetail      string              `json:"status_detail,omitempty"`
	Segments          []SegmentDescriptor `json:"segments,omitempty"`
	Transcript        []TranscriptSegment `json:"transcript,omitempty"`
	SegmentsTotal     int                 `json:"segments_total"`
	SegmentsCompleted int                 `json:"segments_completed"`
	Progress          float64             `json:"progress"`
	MissingSegments   []int               `json:"missing_segments,omitempty"`
	Errors            []SegmentError      `json:"errors,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	LastUpdated       time.Time           `json:"last_updated"`
	CompletionTime    *time.Time          `json:"completion_time,omitempty"`
}

// NewRecord creates a fresh record in the uploaded state.
func NewRecord(sessionID string) *Record {
	now := time.Now().UTC()
	return &Record{
		SessionID:   sessionID,
		Status:      StatusUploaded,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// CompletedIndices returns the set of distinct indices present in the transcript.
func (r *Record) CompletedIndices() map[int]bool {
	found := make(map[int]bool, len(r.Transcript))
	for _, seg := range r.Transcript {
		found[seg.SegmentIndex] = true
	}
	return found
}

// MissingIndices returns the expected indices with no transcript entry,
// in ascending order.
func (r *Record) MissingIndices() []int {
	found := r.CompletedIndices()
	var missing []int
	for _, desc := range r.Segments {
		if !found[desc.Index] {
			missing = append(missing, desc.Index)
		}
	}
	sort.Ints(missing)
	return missing
}

// HasSegment reports whether the transcript contains an entry for index.
func (r *Record) HasSegment(index int) bool {
	for _, seg := range r.Transcript {
		if seg.SegmentIndex == index {
			return true
		}
	}
	return false
}

// Descriptor returns the segment descriptor for index, if present.
func (r *Record) Descriptor(index int) (SegmentDescriptor, bool) {
	for _, desc := range r.Segments {
		if desc.Index == index {
			return desc, true
		}
	}
	return SegmentDescriptor{}, false
}

// RecomputeProgress refreshes the completed counter, the missing set, and
// the progress ratio from the transcript. The counter always equals the
// number of distinct indices present; it is never taken from a caller.
func (r *Record) RecomputeProgress() {
	r.SegmentsCompleted = len(r.CompletedIndices())
	r.MissingSegments = r.MissingIndices()
	if r.SegmentsTotal > 0 {
		r.Progress = float64(r.SegmentsCompleted) / float64(r.SegmentsTotal)
	} else {
		r.Progress = 0
	}
}

// Complete reports whether every expected index has a transcript entry and
// every entry carries at least one phrase span.
func (r *Record) Complete() bool {
	if r.SegmentsTotal == 0 || len(r.Segments) == 0 {
		return false
	}
	if len(r.MissingIndices()) > 0 {
		return false
	}
	for _, seg := range r.Transcript {
		if len(seg.Phrases) == 0 {
			return false
		}
	}
	return true
}

// MergeTranscript overlays incoming entries onto existing ones by segment
// index. An incoming entry fully replaces any existing entry with the same
// index (last writer wins per key). The result is sorted ascending by index,
// which makes the merge commutative over disjoint keys and idempotent.
func MergeTranscript(existing, incoming []TranscriptSegment) []TranscriptSegment {
	merged := make(map[int]TranscriptSegment, len(existing)+len(incoming))
	for _, seg := range existing {
		merged[seg.SegmentIndex] = seg
	}
	for _, seg := range incoming {
		merged[seg.SegmentIndex] = seg
	}

	out := make([]TranscriptSegment, 0, len(merged))
	for _, seg := range merged {
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SegmentIndex < out[j].SegmentIndex
	})
	return out
}
