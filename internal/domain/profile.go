package domain

// DifficultyProfile holds the scoring thresholds and level ceiling for one
// difficulty. Immutable configuration, not user data.
type DifficultyProfile struct {
	BadMax   float64
	GoodMax  float64
	MaxLevel int
}

var profiles = map[Difficulty]DifficultyProfile{
	DifficultyEasy:   {BadMax: 3.9, GoodMax: 6.9, MaxLevel: 20},
	DifficultyMedium: {BadMax: 4.9, GoodMax: 7.9, MaxLevel: 30},
	DifficultyHard:   {BadMax: 5.9, GoodMax: 8.4, MaxLevel: 50},
	DifficultyCoach:  {BadMax: 4.9, GoodMax: 7.9, MaxLevel: 10},
}

// ProfileFor returns the profile for a difficulty. Unrecognized
// difficulties resolve to medium's thresholds.
func ProfileFor(d Difficulty) DifficultyProfile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return profiles[DifficultyMedium]
}

// Rating is the engagement bucket derived from a score pair.
type Rating string

const (
	RatingBad       Rating = "bad"
	RatingGood      Rating = "good"
	RatingExcellent Rating = "excellent"
)

// ScoreResult is a bounded flirtiness/personality assessment of one
// exchange. Components are always within [0,10].
type ScoreResult struct {
	Flirty      int
	Personality int
}

// NewScoreResult clamps both components into [0,10].
func NewScoreResult(flirty, personality int) ScoreResult {
	return ScoreResult{
		Flirty:      ClampInt(flirty, 0, 10),
		Personality: ClampInt(personality, 0, 10),
	}
}

// Average returns the mean of the two axes.
func (r ScoreResult) Average() float64 {
	return float64(r.Flirty+r.Personality) / 2
}

// Rate buckets the average against a profile's thresholds.
func (r ScoreResult) Rate(p DifficultyProfile) Rating {
	avg := r.Average()
	switch {
	case avg < p.BadMax:
		return RatingBad
	case avg > p.GoodMax:
		return RatingExcellent
	default:
		return RatingGood
	}
}

// Delta returns the level change for a rating.
func (r Rating) Delta() int {
	switch r {
	case RatingBad:
		return -1
	case RatingExcellent:
		return +2
	default:
		return +1
	}
}
