package domain

// Mood is the categorical disposition surfaced to callers. It is
// always derived from the happiness score, never taken from a
// gateway proposal.
type Mood string

const (
	MoodElated   Mood = "elated"
	MoodFriendly Mood = "friendly"
	MoodNeutral  Mood = "neutral"
	MoodAnnoyed  Mood = "annoyed"
	MoodUpset    Mood = "upset"
)

// Happiness score bounds.
const (
	HappinessMin = 0
	HappinessMax = 100
)

// MoodFor maps a happiness score onto its categorical mood.
//
//	> 80   elated
//	61-80  friendly
//	41-60  neutral
//	21-40  annoyed
//	<= 20  upset
func MoodFor(happiness int) Mood {
	switch {
	case happiness > 80:
		return MoodElated
	case happiness > 60:
		return MoodFriendly
	case happiness > 40:
		return MoodNeutral
	case happiness > 20:
		return MoodAnnoyed
	default:
		return MoodUpset
	}
}

// ClampHappiness bounds a raw score into [HappinessMin, HappinessMax].
func ClampHappiness(v int) int {
	if v < HappinessMin {
		return HappinessMin
	}
	if v > HappinessMax {
		return HappinessMax
	}
	return v
}
