package plan

import (
	"strings"

	"github.com/suporteia/atena/internal/domain"
)

// procedural markers indicate a how-to question that deserves fewer, more
// precise documents.
var proceduralMarkers = []string{
	"como fazer", "passo a passo", "tutorial", "configurar", "instalar", "procedimento",
}

// problem markers indicate a troubleshooting question that benefits from a
// wider net.
var problemMarkers = []string{
	"nao funciona", "erro", "problema", "travado", "lento", "nao consigo", "ajuda",
}

// Service derives retrieval inputs from the raw question: synonym expansion,
// department classification, and adaptive search parameters.
type Service struct {
	defaults domain.RetrievalParams
}

// New creates a planning service. The defaults apply when no heuristic fires.
func New(defaults domain.RetrievalParams) *Service {
	return &Service{defaults: defaults}
}

// Plan analyzes the question. priorHistoryLen is the number of turns already
// in the conversation; follow-up questions tend to be terse and contextual,
// so a non-empty history widens the net. Planning never fails; a question
// with no recognizable signal passes through unexpanded with default
// parameters and no department restriction.
func (s *Service) Plan(question string, priorHistoryLen int) (domain.ExpandedQuery, domain.RetrievalParams) {
	departments := ClassifyDepartments(question, 2)

	var confidence float64
	for _, dept := range departments {
		if c := DepartmentConfidence(question, dept); c > confidence {
			confidence = c
		}
	}

	query := domain.ExpandedQuery{
		Text:             Expand(question),
		Departments:      departments,
		DomainConfidence: confidence,
	}

	return query, s.adaptiveParams(question, priorHistoryLen)
}

// adaptiveParams tunes topK and minScore to the question shape. Long or
// procedural questions get a tighter result set, problem reports, short
// generic questions and mid-conversation follow-ups get a wider one.
func (s *Service) adaptiveParams(question string, priorHistoryLen int) domain.RetrievalParams {
	wordCount := len(strings.Fields(question))
	normalized := domain.Normalize(question)

	switch {
	case wordCount > 12 || containsAny(normalized, proceduralMarkers):
		return domain.RetrievalParams{TopK: 7, MinScore: 0.20}
	case containsAny(normalized, problemMarkers):
		return domain.RetrievalParams{TopK: 10, MinScore: 0.15}
	case wordCount <= 5:
		return domain.RetrievalParams{TopK: 10, MinScore: 0.15}
	case priorHistoryLen > 0:
		return domain.RetrievalParams{TopK: 10, MinScore: 0.15}
	default:
		return s.defaults
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
