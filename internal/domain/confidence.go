package domain

// Level is the qualitative confidence bucket of an answer.
type Level string

// Confidence levels, ordered.
const (
	LevelNone    Level = "none"
	LevelVeryLow Level = "very_low"
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
)

// Confidence level thresholds (inclusive lower bounds).
const (
	HighThreshold   = 0.75
	MediumThreshold = 0.50
	LowThreshold    = 0.30
)

// ConfidenceFactors breaks the final score into its weighted components.
type ConfidenceFactors struct {
	DocumentScore    float64
	DocumentCount    float64
	DomainConfidence float64
	QuerySpecificity float64
}

// Confidence is the multi-factor answer confidence estimate.
type Confidence struct {
	Score   float64
	Level   Level
	Factors ConfidenceFactors
}

// LevelForScore maps a bounded score to its qualitative level.
func LevelForScore(score float64) Level {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	case score >= LowThreshold:
		return LevelLow
	default:
		return LevelVeryLow
	}
}
