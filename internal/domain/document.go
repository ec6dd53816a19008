package domain

import (
	"strings"
	"time"
)

// RankSignals records the individual scoring components that produced a
// document's final score. Kept on the document for explainability and tests.
type RankSignals struct {
	VectorScore   float64
	VectorRank    int // 1-based; 0 = absent from the vector result set
	LexicalScore  float64
	LexicalRank   int // 1-based; 0 = absent from the lexical result set
	RRF           float64
	TitleBoost    float64
	CategoryBoost float64
	RecencyBoost  float64
	FeedbackBoost float64
}

// Feedback aggregates user votes on a knowledge-base passage.
type Feedback struct {
	HelpfulVotes int
	Complaints   int
	UsageCount   int
}

// Document is a retrieval candidate. ID is opaque and stable across
// recomputation of the same underlying passage.
type Document struct {
	ID          string
	Title       string
	Category    string
	Content     string
	Departments []string
	UpdatedAt   time.Time
	Feedback    Feedback
	Score       float64
	Signals     RankSignals
}

// DedupeKey is the normalized (title, category) pair used to collapse
// near-duplicate passages that share a heading.
func (d *Document) DedupeKey() string {
	return Normalize(strings.TrimSpace(d.Title)) + "|" + Normalize(strings.TrimSpace(d.Category))
}

// Snippet returns a content preview capped at max runes.
func (d *Document) Snippet(max int) string {
	content := strings.TrimSpace(d.Content)
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max]) + "..."
}

// Clamp01 bounds a score to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
