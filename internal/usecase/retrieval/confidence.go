package retrieval

import (
	"strings"

	"github.com/suporteia/atena/internal/domain"
)

// Confidence factor weights. Document relevance carries half the score; the
// rest splits across corroboration count, department signal, and how
// specific the question was.
const (
	documentScoreWeight    = 0.50
	documentCountWeight    = 0.20
	domainConfidenceWeight = 0.15
	querySpecificityWeight = 0.15
)

// ScoreConfidence grades how trustworthy an answer built from docs would be.
// Deterministic: identical inputs always produce identical output.
func ScoreConfidence(docs []domain.Document, question string, domainConfidence float64) domain.Confidence {
	if len(docs) == 0 {
		return domain.Confidence{Score: 0, Level: domain.LevelNone}
	}

	top := docs
	if len(top) > 3 {
		top = top[:3]
	}
	var sum float64
	for _, doc := range top {
		sum += doc.Score
	}
	avgScore := sum / float64(len(top))

	var countRatio float64
	switch {
	case len(docs) >= 5:
		countRatio = 1.0
	case len(docs) >= 3:
		countRatio = 0.8
	case len(docs) >= 2:
		countRatio = 0.5
	default:
		countRatio = 0.3
	}

	words := len(strings.Fields(question))
	var specificity float64
	switch {
	case words >= 10:
		specificity = 1.0
	case words >= 6:
		specificity = 0.7
	case words >= 4:
		specificity = 0.5
	default:
		specificity = 0.3
	}

	factors := domain.ConfidenceFactors{
		DocumentScore:    avgScore * documentScoreWeight,
		DocumentCount:    countRatio * documentCountWeight,
		DomainConfidence: domainConfidence * domainConfidenceWeight,
		QuerySpecificity: specificity * querySpecificityWeight,
	}

	score := domain.Clamp01(factors.DocumentScore + factors.DocumentCount + factors.DomainConfidence + factors.QuerySpecificity)

	return domain.Confidence{
		Score:   score,
		Level:   domain.LevelForScore(score),
		Factors: factors,
	}
}
