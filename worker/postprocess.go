package worker

import (
	"strings"
	"unicode"

	"github.com/plenumlabs/scribe/session"
)

// NoSpeechPlaceholder replaces phrase text the model emitted as blank or
// sentinel-only output.
const NoSpeechPlaceholder = "[No speech detected]"

const (
	minRepeatScanWords = 5
	minRepeatNgram     = 2
	maxRepeatNgram     = 10
)

// CleanText strips priming-prompt leakage and collapses back-to-back
// repeated word n-grams. Returns the cleaned text.
func CleanText(text string, leakPhrases []string) string {
	text = StripPromptLeak(text, leakPhrases)
	return CollapseRepetitions(text)
}

// StripPromptLeak removes known priming-prompt substrings case-insensitively.
// When anything was removed, sentence capitalization is restored, since the
// removal lowercases the surrounding text.
func StripPromptLeak(text string, leakPhrases []string) string {
	if text == "" {
		return text
	}
	original := text
	for _, phrase := range leakPhrases {
		lower := strings.ToLower(text)
		needle := strings.ToLower(phrase)
		if strings.Contains(lower, needle) {
			text = strings.TrimSpace(strings.ReplaceAll(lower, needle, ""))
		}
	}
	if text != original {
		text = capitalizeSentences(text)
	}
	return text
}

// capitalizeSentences uppercases the first letter of each period-separated
// sentence.
func capitalizeSentences(text string) string {
	sentences := strings.Split(text, ". ")
	out := sentences[:0]
	for _, s := range sentences {
		if s == "" {
			continue
		}
		runes := []rune(s)
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, string(runes))
	}
	return strings.Join(out, ". ")
}

// CollapseRepetitions collapses word n-grams (2 to 10 words) that repeat
// back to back, a common decoding pathology, keeping a single occurrence.
// Short texts are returned unchanged.
func CollapseRepetitions(text string) string {
	if text == "" {
		return text
	}
	words := strings.Fields(text)
	if len(words) < minRepeatScanWords {
		return text
	}

	var cleaned []string
	i := 0
	for i < len(words) {
		advanced := false
		for n := minRepeatNgram; n <= maxRepeatNgram && i+n <= len(words); n++ {
			j := i + n
			for j+n <= len(words) && ngramEqualFold(words, i, j, n) {
				j += n
			}
			if j > i+n {
				// Keep one occurrence, skip the repeats.
				cleaned = append(cleaned, words[i:i+n]...)
				i = j
				advanced = true
				break
			}
		}
		if !advanced {
			cleaned = append(cleaned, words[i])
			i++
		}
	}
	return strings.Join(cleaned, " ")
}

// ngramEqualFold compares the n words at a and b case-insensitively.
func ngramEqualFold(words []string, a, b, n int) bool {
	for k := 0; k < n; k++ {
		if !strings.EqualFold(words[a+k], words[b+k]) {
			return false
		}
	}
	return true
}

// DropDuplicatePhrases removes phrase spans whose text exactly matches the
// previous span's text.
func DropDuplicatePhrases(phrases []session.PhraseSpan) []session.PhraseSpan {
	if len(phrases) == 0 {
		return phrases
	}
	cleaned := make([]session.PhraseSpan, 1, len(phrases))
	cleaned[0] = phrases[0]
	for _, p := range phrases[1:] {
		if strings.TrimSpace(p.Text) != strings.TrimSpace(cleaned[len(cleaned)-1].Text) {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

// isSentinel reports whether the model output carries no speech: empty
// after trimming, or underscores only (the decoder's blank-audio sentinel).
func isSentinel(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	for _, r := range text {
		if r != '_' {
			return false
		}
	}
	return true
}
