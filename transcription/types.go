package transcription

// Request holds parameters for a transcription call. The decode options map
// onto the Whisper option surface; backends ignore options they do not
// support.
type Request struct {
	// AudioPath is the path to the audio file to transcribe.
	AudioPath string `json:"audio_path"`
	// Language is the expected language of the audio (e.g. "en").
	Language string `json:"language,omitempty"`
	// Model is the transcription model to use.
	Model string `json:"model,omitempty"`

	// BeamSize widens the decode search; 1 means greedy decoding.
	BeamSize int `json:"beam_size,omitempty"`
	// BestOf selects among multiple candidate decodes.
	BestOf int `json:"best_of,omitempty"`
	// Temperatures are the sampling temperatures tried in order.
	Temperatures []float64 `json:"temperatures,omitempty"`
	// ConditionOnPrevious feeds prior decoded text back as context.
	ConditionOnPrevious bool `json:"condition_on_previous,omitempty"`
	// InitialPrompt primes the decoder with domain vocabulary. May leak into
	// the output; post-processing strips known prompt substrings.
	InitialPrompt string `json:"initial_prompt,omitempty"`
	// NoSpeechThreshold tunes silence tolerance (higher tolerates more).
	NoSpeechThreshold float64 `json:"no_speech_threshold,omitempty"`
	// WordTimestamps requests per-word timing.
	WordTimestamps bool `json:"word_timestamps,omitempty"`
}

// Result holds the result of a transcription call.
type Result struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Segments contains time-aligned transcript phrases, relative to the
	// start of the submitted audio.
	Segments []Span `json:"segments,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Span represents a time-aligned portion of a transcript.
type Span struct {
	// Start is the span start time in seconds.
	Start float64 `json:"start"`
	// End is the span end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this span.
	Text string `json:"text"`
}
