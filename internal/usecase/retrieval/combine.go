package retrieval

import (
	"math"
	"sort"
	"time"

	"github.com/suporteia/atena/internal/domain"
)

// Recency tiers. Documents older than 180 days get no recency boost.
const (
	veryRecentDays = 7
	recentDays     = 30
	moderateDays   = 90
	oldDays        = 180

	veryRecentBoost = 0.15
	recentBoost     = 0.10
	moderateBoost   = 0.05
	oldBoost        = 0.02
)

// feedbackBoostClamp bounds the vote-derived boost so community feedback can
// nudge ranking but never override relevance.
const feedbackBoostClamp = 0.2

// categoryStopwords are generic tokens stripped from category names before
// overlap scoring ("Políticas Internas de TI" should match on "politicas"
// and "ti", not on "internas").
var categoryStopwords = map[string]struct{}{
	"e": {}, "de": {}, "do": {}, "da": {}, "das": {}, "dos": {}, "para": {}, "em": {},
	"no": {}, "na": {}, "nas": {}, "nos": {}, "por": {}, "um": {}, "uma": {},
	"o": {}, "a": {}, "os": {}, "as": {}, "internas": {}, "internos": {}, "geral": {},
}

// vpnTerms gate the lexical score for VPN questions. A document that never
// mentions remote access is a poor lexical match for a VPN query no matter
// how many common words it shares.
var vpnTerms = map[string]struct{}{
	"vpn": {}, "virtual": {}, "remoto": {}, "forticlient": {}, "anyconnect": {},
}

// Combiner fuses a vector result set and a lexical result set into one
// ranked candidate list using reciprocal-rank fusion plus deterministic
// boosts.
type Combiner struct {
	rrfK           int
	vectorWeight   float64
	lexicalWeight  float64
	titleWeight    float64
	categoryWeight float64

	now func() time.Time
}

// NewCombiner creates a combiner with the given fusion constants.
func NewCombiner(rrfK int, vectorWeight, lexicalWeight, titleWeight, categoryWeight float64) *Combiner {
	return &Combiner{
		rrfK:           rrfK,
		vectorWeight:   vectorWeight,
		lexicalWeight:  lexicalWeight,
		titleWeight:    titleWeight,
		categoryWeight: categoryWeight,
		now:            time.Now,
	}
}

// WithNow overrides the clock used for recency boosts (test hook).
func (c *Combiner) WithNow(now func() time.Time) *Combiner {
	c.now = now
	return c
}

// Combine merges vector and lexical hits, scores every candidate, filters by
// threshold (inclusive) and deduplicates by normalized (title, category).
// Candidates with equal scores keep vector-then-lexical discovery order.
func (c *Combiner) Combine(queryText string, vectorHits, lexicalHits []domain.Document, scoreThreshold float64) []domain.Document {
	queryWords := domain.WordSet(queryText)
	contentWords := domain.ContentWordSet(queryText)
	overlapBase := contentWords
	if len(overlapBase) == 0 {
		overlapBase = queryWords
	}
	_, hasVPN := queryWords["vpn"]

	byID := make(map[string]int, len(vectorHits)+len(lexicalHits))
	entries := make([]domain.Document, 0, len(vectorHits)+len(lexicalHits))

	for i, hit := range vectorHits {
		doc := hit
		doc.Signals.VectorScore = hit.Score
		doc.Signals.VectorRank = i + 1
		byID[doc.ID] = len(entries)
		entries = append(entries, doc)
	}

	for i, hit := range lexicalHits {
		lexScore := lexicalOverlapScore(overlapBase, hit, hasVPN)
		if idx, ok := byID[hit.ID]; ok {
			entries[idx].Signals.LexicalScore = lexScore
			entries[idx].Signals.LexicalRank = i + 1
			continue
		}
		doc := hit
		doc.Signals.VectorScore = 0
		doc.Signals.LexicalScore = lexScore
		doc.Signals.LexicalRank = i + 1
		byID[doc.ID] = len(entries)
		entries = append(entries, doc)
	}

	now := c.now()
	docs := make([]domain.Document, 0, len(entries))
	for _, doc := range entries {
		sig := &doc.Signals

		var vectorRRF, lexicalRRF float64
		if sig.VectorRank > 0 {
			vectorRRF = 1.0 / float64(c.rrfK+sig.VectorRank)
		}
		if sig.LexicalRank > 0 {
			lexicalRRF = 1.0 / float64(c.rrfK+sig.LexicalRank)
		}
		sig.RRF = c.vectorWeight*vectorRRF + c.lexicalWeight*lexicalRRF

		base := math.Min(1.0, 0.5*sig.RRF*100+0.3*sig.VectorScore+0.2*sig.LexicalScore)

		sig.TitleBoost = c.titleBoost(contentWords, doc.Title)
		sig.CategoryBoost = c.categoryBoost(contentWords, doc.Category)
		sig.RecencyBoost = recencyBoost(now, doc.UpdatedAt)
		sig.FeedbackBoost = feedbackBoost(doc.Feedback)

		doc.Score = domain.Clamp01(base + sig.TitleBoost + sig.CategoryBoost + sig.RecencyBoost + sig.FeedbackBoost)
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})

	filtered := docs[:0]
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.Score < scoreThreshold {
			continue
		}
		key := doc.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		filtered = append(filtered, doc)
	}
	return filtered
}

// lexicalOverlapScore turns an unscored lexical hit into a [0,1] score from
// word overlap with the query: 0.2 base plus 0.8 times the covered ratio.
func lexicalOverlapScore(overlapBase map[string]struct{}, doc domain.Document, hasVPN bool) float64 {
	docWords := domain.WordSet(doc.Title + " " + doc.Content)
	score := domain.Clamp01(0.2 + 0.8*domain.Overlap(overlapBase, docWords))

	if hasVPN && !intersects(vpnTerms, docWords) {
		score *= 0.5
	}
	return score
}

func (c *Combiner) titleBoost(contentWords map[string]struct{}, title string) float64 {
	titleWords := domain.WordSet(title)
	if len(contentWords) == 0 || len(titleWords) == 0 {
		return 0
	}
	return domain.Overlap(contentWords, titleWords) * c.titleWeight
}

func (c *Combiner) categoryBoost(contentWords map[string]struct{}, category string) float64 {
	if category == "" {
		return 0
	}
	catTokens := domain.WordSet(category)
	for w := range catTokens {
		if _, stop := categoryStopwords[w]; stop {
			delete(catTokens, w)
		}
	}
	if len(catTokens) == 0 {
		return 0
	}
	return domain.Clamp01(domain.Overlap(catTokens, contentWords)) * c.categoryWeight
}

func recencyBoost(now, updatedAt time.Time) float64 {
	if updatedAt.IsZero() {
		return 0
	}
	age := now.Sub(updatedAt)
	switch {
	case age < veryRecentDays*24*time.Hour:
		return veryRecentBoost
	case age < recentDays*24*time.Hour:
		return recentBoost
	case age < moderateDays*24*time.Hour:
		return moderateBoost
	case age < oldDays*24*time.Hour:
		return oldBoost
	default:
		return 0
	}
}

func feedbackBoost(f domain.Feedback) float64 {
	helpful := float64(f.HelpfulVotes)
	complaints := float64(f.Complaints)
	usage := float64(f.UsageCount)

	if helpful == 0 && complaints == 0 && usage == 0 {
		return 0
	}

	den := math.Max(5, helpful+complaints+1)
	boost := (helpful-complaints)/den + math.Min(0.1, usage/500)

	if boost > feedbackBoostClamp {
		return feedbackBoostClamp
	}
	if boost < -feedbackBoostClamp {
		return -feedbackBoostClamp
	}
	return boost
}

func intersects(a, b map[string]struct{}) bool {
	for w := range a {
		if _, ok := b[w]; ok {
			return true
		}
	}
	return false
}
