package worker

import (
	"testing"

	"github.com/plenumlabs/scribe/session"
)

func TestCollapseRepetitions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "triple bigram collapses to one",
			in:   "the rain the rain the rain falls",
			want: "the rain falls",
		},
		{
			name: "long non-repeating text unchanged",
			in:   "the committee reviewed the annual budget proposal and approved it after a short debate",
			want: "the committee reviewed the annual budget proposal and approved it after a short debate",
		},
		{
			name: "case-insensitive repeat",
			in:   "Good morning good morning everyone here today",
			want: "Good morning everyone here today",
		},
		{
			name: "short text left alone",
			in:   "too few words",
			want: "too few words",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseRepetitions(tt.in); got != tt.want {
				t.Errorf("CollapseRepetitions(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripPromptLeak(t *testing.T) {
	in := DefaultInitialPrompt + " the meeting began at noon. all members were present"
	got := StripPromptLeak(in, defaultLeakPhrases)
	want := "The meeting began at noon. All members were present"
	if got != want {
		t.Errorf("StripPromptLeak = %q, want %q", got, want)
	}
}

func TestStripPromptLeakNoMatch(t *testing.T) {
	in := "The session was called to order."
	if got := StripPromptLeak(in, defaultLeakPhrases); got != in {
		t.Errorf("clean text was modified: %q", got)
	}
}

func TestDropDuplicatePhrases(t *testing.T) {
	phrases := []session.PhraseSpan{
		{Text: "roll call", Start: 0, End: 2},
		{Text: "roll call", Start: 2, End: 4},
		{Text: "motion carried", Start: 4, End: 6},
		{Text: "motion carried", Start: 6, End: 8},
		{Text: "roll call", Start: 8, End: 10},
	}
	got := DropDuplicatePhrases(phrases)
	if len(got) != 3 {
		t.Fatalf("got %d phrases, want 3", len(got))
	}
	if got[0].Text != "roll call" || got[1].Text != "motion carried" || got[2].Text != "roll call" {
		t.Errorf("unexpected phrase order: %+v", got)
	}
}

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"______________", true},
		{" ____ ", true},
		{"hello", false},
		{"_mixed_", false},
	}
	for _, tt := range tests {
		if got := isSentinel(tt.in); got != tt.want {
			t.Errorf("isSentinel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTierFor(t *testing.T) {
	if tier := TierFor(0, 0, "prompt"); tier.Name != "quiet" || tier.InitialPrompt != "" {
		t.Errorf("segment 0 first attempt: got %+v, want quiet preset without prompt", tier)
	}
	if tier := TierFor(0, 3, "prompt"); tier.Name != "quiet" {
		t.Errorf("segment 0 retries stay quiet, got %q", tier.Name)
	}

	if tier := TierFor(3, 0, "prompt"); tier.Name != "high-quality" || tier.InitialPrompt != "prompt" || !tier.ConditionOnPrevious {
		t.Errorf("first attempt: got %+v", tier)
	}
	if tier := TierFor(3, 1, "prompt"); tier.Name != "greedy" || tier.InitialPrompt != "" || tier.ConditionOnPrevious {
		t.Errorf("second attempt: got %+v", tier)
	}
	if tier := TierFor(3, 2, "prompt"); tier.Name != "quiet" || tier.NoSpeechThreshold != 0.9 {
		t.Errorf("final attempt: got %+v", tier)
	}
	if tier := TierFor(3, 4, "prompt"); tier.Name != "quiet" {
		t.Errorf("attempts past the ladder stay quiet, got %q", tier.Name)
	}
}
