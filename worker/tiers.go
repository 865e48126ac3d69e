package worker

// Tier is one rung of the decode-quality ladder. Earlier tiers spend more
// compute on search quality; later tiers trade quality for robustness on
// audio the model struggles with.
type Tier struct {
	Name                string
	BeamSize            int
	BestOf              int
	Temperatures        []float64
	ConditionOnPrevious bool
	InitialPrompt       string
	NoSpeechThreshold   float64
}

// tierHighQuality is the first-attempt preset: wide beam search, several
// candidate decodes, multiple sampling temperatures, conditioning on prior
// text, and a priming prompt.
func tierHighQuality(prompt string) Tier {
	return Tier{
		Name:                "high-quality",
		BeamSize:            5,
		BestOf:              5,
		Temperatures:        []float64{0.0, 0.2, 0.4},
		ConditionOnPrevious: true,
		InitialPrompt:       prompt,
		NoSpeechThreshold:   0.6,
	}
}

// tierGreedy drops to single-pass greedy decoding with no prior-context
// conditioning and no prompt.
func tierGreedy() Tier {
	return Tier{
		Name:              "greedy",
		BeamSize:          1,
		BestOf:            1,
		Temperatures:      []float64{0.0},
		NoSpeechThreshold: 0.6,
	}
}

// tierQuiet is tierGreedy with a higher silence tolerance for low-energy
// audio.
func tierQuiet() Tier {
	t := tierGreedy()
	t.Name = "quiet"
	t.NoSpeechThreshold = 0.9
	return t
}

// TierFor selects the decode preset for a segment attempt. The first
// segment always starts at the quiet preset: priming text and prior-context
// conditioning have been observed to leak into its transcript.
func TierFor(index, attempt int, prompt string) Tier {
	if index == 0 {
		return tierQuiet()
	}
	switch attempt {
	case 0:
		return tierHighQuality(prompt)
	case 1:
		return tierGreedy()
	default:
		return tierQuiet()
	}
}
