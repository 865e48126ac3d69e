package session

// DefaultSyntheticText is the templated placeholder used when first-segment
// recovery has to stand in for a transcription that never arrived. The wording
// is tunable; the Synthetic flag is the contract.
const DefaultSyntheticText = "Opening of the recorded session. The transcription " +
	"of this opening segment could not be recovered automatically and this " +
	"placeholder was inserted so the session record is complete. Review the " +
	"original audio for the opening remarks."

// SyntheticFirstSegment builds a clearly-flagged placeholder transcript entry
// for segment index 0, covering the descriptor's time span with a single
// phrase. It exists so a session can reach completed even when the first
// segment has proven pathologically failure-prone.
func SyntheticFirstSegment(desc SegmentDescriptor, text string) TranscriptSegment {
	if text == "" {
		text = DefaultSyntheticText
	}
	phrase := PhraseSpan{
		Text:         text,
		OriginalText: text,
		Start:        desc.StartTime,
		End:          desc.EndTime,
		StartClock:   FormatClock(desc.StartTime),
		EndClock:     FormatClock(desc.EndTime),
	}
	return TranscriptSegment{
		SegmentIndex: 0,
		StartTime:    desc.StartTime,
		EndTime:      desc.EndTime,
		Text:         text,
		OriginalText: text,
		Phrases:      []PhraseSpan{phrase},
		Synthetic:    true,
	}
}
