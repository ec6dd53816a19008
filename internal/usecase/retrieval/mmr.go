package retrieval

import "github.com/suporteia/atena/internal/domain"

// Similarity component weights for MMR. Title overlap dominates because
// knowledge-base passages with near-identical titles are almost always
// restatements of the same procedure.
const (
	mmrTitleWeight      = 0.4
	mmrCategoryWeight   = 0.3
	mmrDepartmentWeight = 0.2
	mmrContentWeight    = 0.1

	// mmrContentPrefix bounds the content compared for the Jaccard term so
	// diversification stays cheap on long passages.
	mmrContentPrefix = 400
)

// mmrNoOpLambda is the point where the diversity penalty can no longer
// change the greedy selection order.
const mmrNoOpLambda = 0.99

// Diversify applies maximal marginal relevance over candidates already
// sorted by score. Greedy: the best-scored candidate goes first, then each
// round picks the candidate maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// until maxResults are selected. A lambda at or above 0.99 degenerates to
// plain top-k and skips the quadratic work.
func Diversify(candidates []domain.Document, lambda float64, maxResults int) []domain.Document {
	if maxResults <= 0 || len(candidates) == 0 {
		return nil
	}
	k := maxResults
	if k > len(candidates) {
		k = len(candidates)
	}
	if lambda >= mmrNoOpLambda || len(candidates) == 1 {
		return candidates[:k]
	}

	type profile struct {
		titleWords   map[string]struct{}
		contentWords map[string]struct{}
		category     string
		departments  map[string]struct{}
	}
	profiles := make([]profile, len(candidates))
	for i, doc := range candidates {
		content := doc.Content
		if r := []rune(content); len(r) > mmrContentPrefix {
			content = string(r[:mmrContentPrefix])
		}
		depts := make(map[string]struct{}, len(doc.Departments))
		for _, d := range doc.Departments {
			depts[domain.Normalize(d)] = struct{}{}
		}
		profiles[i] = profile{
			titleWords:   domain.WordSet(doc.Title),
			contentWords: domain.WordSet(content),
			category:     domain.Normalize(doc.Category),
			departments:  depts,
		}
	}

	similarity := func(a, b int) float64 {
		sim := mmrTitleWeight * domain.Jaccard(profiles[a].titleWords, profiles[b].titleWords)
		if profiles[a].category != "" && profiles[a].category == profiles[b].category {
			sim += mmrCategoryWeight
		}
		if intersects(profiles[a].departments, profiles[b].departments) {
			sim += mmrDepartmentWeight
		}
		sim += mmrContentWeight * domain.Jaccard(profiles[a].contentWords, profiles[b].contentWords)
		return sim
	}

	selected := make([]int, 0, k)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < k && len(remaining) > 0 {
		bestPos := 0
		bestScore := -1e18
		for pos, idx := range remaining {
			penalty := 0.0
			for _, sel := range selected {
				if sim := similarity(idx, sel); sim > penalty {
					penalty = sim
				}
			}
			score := lambda*candidates[idx].Score - (1-lambda)*penalty
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]domain.Document, 0, len(selected))
	for _, idx := range selected {
		out = append(out, candidates[idx])
	}
	return out
}
