package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/suporteia/atena/internal/domain"
)

// rerankContentPreview caps the document text sent to the pairwise scorer.
const rerankContentPreview = 500

// rerank rescores candidates through the pairwise scorer and blends the
// result with the original score:
//
//	final = originalWeight*original + rerankWeight*sigmoid(raw)
//
// followed by a stable sort descending. A scorer failure returns the
// candidates in their pre-rerank order; reranking never fails a request.
func rerank(ctx context.Context, scorer Reranker, query string, candidates []domain.Document, originalWeight, rerankWeight float64) ([]domain.Document, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, doc := range candidates {
		content := doc.Content
		if r := []rune(content); len(r) > rerankContentPreview {
			content = string(r[:rerankContentPreview])
		}
		texts[i] = doc.Title + ". " + content
	}

	raw, err := scorer.Score(ctx, query, texts)
	if err != nil {
		return candidates, fmt.Errorf("rerank score: %w", err)
	}
	if len(raw) != len(candidates) {
		return candidates, fmt.Errorf("rerank score: got %d scores for %d documents", len(raw), len(candidates))
	}

	out := make([]domain.Document, len(candidates))
	copy(out, candidates)
	for i := range out {
		normalized := sigmoid(raw[i])
		out[i].Score = domain.Clamp01(originalWeight*out[i].Score + rerankWeight*normalized)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
