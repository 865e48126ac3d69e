package session

import (
	"reflect"
	"testing"
)

func seg(index int, text string) TranscriptSegment {
	return TranscriptSegment{
		SegmentIndex: index,
		Text:         text,
		Phrases:      []PhraseSpan{{Text: text}},
	}
}

func TestMergeTranscriptUpsertByIndex(t *testing.T) {
	existing := []TranscriptSegment{seg(0, "zero"), seg(1, "one")}
	incoming := []TranscriptSegment{seg(1, "one revised"), seg(2, "two")}

	merged := MergeTranscript(existing, incoming)

	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(merged))
	}
	if merged[1].Text != "one revised" {
		t.Errorf("incoming entry must win on collision, got %q", merged[1].Text)
	}
	for i, s := range merged {
		if s.SegmentIndex != i {
			t.Errorf("expected ascending index order, got %d at position %d", s.SegmentIndex, i)
		}
	}
}

func TestMergeTranscriptIdempotent(t *testing.T) {
	base := []TranscriptSegment{seg(0, "zero")}
	delta := []TranscriptSegment{seg(1, "one")}

	once := MergeTranscript(base, delta)
	twice := MergeTranscript(once, delta)

	if !reflect.DeepEqual(once, twice) {
		t.Error("replaying the same delta must not change the transcript")
	}
}

func TestMergeTranscriptCommutativeOnDisjointKeys(t *testing.T) {
	a := []TranscriptSegment{seg(1, "one")}
	b := []TranscriptSegment{seg(2, "two")}

	ab := MergeTranscript(MergeTranscript(nil, a), b)
	ba := MergeTranscript(MergeTranscript(nil, b), a)

	if !reflect.DeepEqual(ab, ba) {
		t.Error("merge order over disjoint indices must not matter")
	}
}

func TestRecomputeProgressCountsDistinctIndices(t *testing.T) {
	r := NewRecord("s1")
	r.SegmentsTotal = 4
	r.Transcript = MergeTranscript(nil, []TranscriptSegment{seg(0, "a"), seg(2, "c")})

	r.RecomputeProgress()

	if r.SegmentsCompleted != 2 {
		t.Errorf("expected 2 completed, got %d", r.SegmentsCompleted)
	}
	if r.Progress != 0.5 {
		t.Errorf("expected progress 0.5, got %f", r.Progress)
	}
}

func TestMissingIndices(t *testing.T) {
	r := NewRecord("s1")
	r.Segments = []SegmentDescriptor{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}}
	r.SegmentsTotal = 4
	r.Transcript = []TranscriptSegment{seg(1, "one"), seg(3, "three")}

	missing := r.MissingIndices()
	if !reflect.DeepEqual(missing, []int{0, 2}) {
		t.Errorf("expected missing [0 2], got %v", missing)
	}
}

func TestCompleteRequiresPhrases(t *testing.T) {
	r := NewRecord("s1")
	r.Segments = []SegmentDescriptor{{Index: 0}, {Index: 1}}
	r.SegmentsTotal = 2
	r.Transcript = []TranscriptSegment{
		seg(0, "zero"),
		{SegmentIndex: 1, Text: "one"}, // no phrase spans
	}

	if r.Complete() {
		t.Error("a transcript entry without phrase spans must not count as complete")
	}

	r.Transcript[1].Phrases = []PhraseSpan{{Text: "one"}}
	if !r.Complete() {
		t.Error("expected complete once every entry has a phrase span")
	}
}

func TestSyntheticFirstSegment(t *testing.T) {
	desc := SegmentDescriptor{Index: 0, StartTime: 0, EndTime: 900, Duration: 900}
	synth := SyntheticFirstSegment(desc, "")

	if !synth.Synthetic {
		t.Error("synthetic flag must be set")
	}
	if synth.SegmentIndex != 0 {
		t.Errorf("expected index 0, got %d", synth.SegmentIndex)
	}
	if len(synth.Phrases) == 0 {
		t.Error("synthetic segment must carry at least one phrase span")
	}
	if synth.Text == "" {
		t.Error("synthetic segment must carry placeholder text")
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{75, "01:15"},
		{900, "15:00"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{5025, "01:23:45"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
