package retrieval

import (
	"context"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/usecase/generate"
)

// Planner derives the expanded query and adaptive parameters for a question.
// priorHistoryLen is the turn count already in the conversation.
type Planner interface {
	Plan(question string, priorHistoryLen int) (domain.ExpandedQuery, domain.RetrievalParams)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs vector and lexical searches against the knowledge base.
// Lexical hits come back unscored; the combiner computes their overlap score.
type Searcher interface {
	SearchVector(ctx context.Context, vector []float32, departments []string, limit int, minScore float64) ([]domain.Document, error)
	SearchLexical(ctx context.Context, queryText string, departments []string, limit int) ([]domain.Document, error)
}

// Reranker scores (query, document) pairs with an external pairwise model.
// Raw scores are unbounded; the caller squashes them through a sigmoid.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Clarifier generates a contextual clarification question with the LLM,
// typically the same provider chain that answers.
type Clarifier interface {
	Generate(ctx context.Context, prompt string) (generate.Result, error)
}
