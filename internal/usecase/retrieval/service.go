package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
	"github.com/suporteia/atena/internal/metrics"
)

// Config holds the ranking knobs for one pipeline instance.
type Config struct {
	RRFK           int
	VectorWeight   float64
	LexicalWeight  float64
	TitleBoost     float64
	CategoryBoost  float64
	MMRLambda      float64
	RerankEnabled  bool
	OriginalWeight float64
	RerankWeight   float64
	MaxRerankDocs  int
	RelevanceFloor float64
}

// Service runs the retrieval pipeline: plan, embed, search, fuse, gate,
// diversify, rerank, score.
type Service struct {
	planner   Planner
	embedder  Embedder
	searcher  Searcher
	reranker  Reranker  // nil when reranking is not configured
	clarifier Clarifier // nil falls back to the templated clarification
	combiner  *Combiner
	cfg       Config
}

// New creates the retrieval pipeline.
func New(planner Planner, embedder Embedder, searcher Searcher, cfg Config) *Service {
	return &Service{
		planner:  planner,
		embedder: embedder,
		searcher: searcher,
		combiner: NewCombiner(cfg.RRFK, cfg.VectorWeight, cfg.LexicalWeight, cfg.TitleBoost, cfg.CategoryBoost),
		cfg:      cfg,
	}
}

// WithReranker attaches an optional pairwise reranker.
func (s *Service) WithReranker(r Reranker) *Service {
	s.reranker = r
	return s
}

// WithClarifier attaches an optional generator for contextual clarification
// questions. Without one, a triggered gate uses the templated message.
func (s *Service) WithClarifier(c Clarifier) *Service {
	s.clarifier = c
	return s
}

// Retrieve answers the question with a ranked document set, a clarification,
// or an empty fallback set. Upstream failures degrade to the fallback path;
// only context cancellation aborts.
func (s *Service) Retrieve(ctx context.Context, question string, historyLen int) (domain.RankedResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	query, params := s.planner.Plan(question, historyLen)

	docs := s.search(ctx, query, params)
	if err := ctx.Err(); err != nil {
		return domain.RankedResult{}, err
	}

	if c := MaybeClarify(question, docs); c.Needed {
		log.Info("clarification gate triggered",
			zap.Int("candidates", len(docs)),
			zap.Strings("departments", query.Departments))
		metrics.RetrievalRequestsTotal.WithLabelValues("clarification").Inc()
		c.Message = s.clarifyMessage(ctx, question, docs, c.Message)
		return domain.RankedResult{
			Confidence:    domain.Confidence{Score: 0, Level: domain.LevelNone},
			Clarification: c,
			Query:         query,
			Params:        params,
		}, nil
	}

	if len(docs) == 0 || docs[0].Score < s.cfg.RelevanceFloor {
		if len(docs) > 0 {
			log.Info("top score below relevance floor, falling back to no-context answer",
				zap.Float64("top_score", docs[0].Score),
				zap.Float64("floor", s.cfg.RelevanceFloor))
		}
		metrics.RetrievalRequestsTotal.WithLabelValues("fallback").Inc()
		return domain.RankedResult{
			Confidence: domain.Confidence{Score: 0, Level: domain.LevelNone},
			Query:      query,
			Params:     params,
		}, nil
	}

	docs = Diversify(docs, s.cfg.MMRLambda, params.TopK+2)

	docs = s.maybeRerank(ctx, query.Text, docs, params.TopK)
	if err := ctx.Err(); err != nil {
		return domain.RankedResult{}, err
	}

	confidence := ScoreConfidence(docs, question, query.DomainConfidence)

	metrics.RetrievalRequestsTotal.WithLabelValues("answer").Inc()
	metrics.RetrievalDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	metrics.RetrievalDocuments.Observe(float64(len(docs)))

	return domain.RankedResult{
		Documents:  docs,
		Confidence: confidence,
		Query:      query,
		Params:     params,
	}, nil
}

// search embeds the expanded query and fuses vector and lexical hits. Every
// upstream failure degrades to an empty slice so the caller can fall back.
func (s *Service) search(ctx context.Context, query domain.ExpandedQuery, params domain.RetrievalParams) []domain.Document {
	log := logger.FromContext(ctx)

	// Fetch twice the final budget so fusion and dedupe have slack.
	limit := params.TopK * 2

	var vectorHits []domain.Document
	embedStart := time.Now()
	emb, err := s.embedder.Embed(ctx, query.Text)
	metrics.RetrievalDuration.WithLabelValues("embed").Observe(time.Since(embedStart).Seconds())
	if err != nil {
		log.Warn("query embedding failed, continuing with lexical search only", zap.Error(err))
	}

	searchStart := time.Now()
	if err == nil {
		vectorHits, err = s.searcher.SearchVector(ctx, emb.Embedding, query.Departments, limit, params.MinScore)
		if err != nil {
			log.Warn("vector search failed", zap.Error(err))
			vectorHits = nil
		}
	}

	lexicalHits, err := s.searcher.SearchLexical(ctx, query.Text, query.Departments, limit)
	if err != nil {
		log.Warn("lexical search failed", zap.Error(err))
		lexicalHits = nil
	}
	metrics.RetrievalDuration.WithLabelValues("search").Observe(time.Since(searchStart).Seconds())

	return s.combiner.Combine(query.Text, vectorHits, lexicalHits, params.MinScore)
}

// maybeRerank applies the pairwise reranker when configured, falling back to
// plain top-k truncation on any failure.
func (s *Service) maybeRerank(ctx context.Context, queryText string, docs []domain.Document, topK int) []domain.Document {
	if s.reranker == nil || !s.cfg.RerankEnabled || len(docs) <= 1 {
		return truncate(docs, topK)
	}

	log := logger.FromContext(ctx)

	candidates := truncate(docs, s.cfg.MaxRerankDocs)
	rerankStart := time.Now()
	reranked, err := rerank(ctx, s.reranker, queryText, candidates, s.cfg.OriginalWeight, s.cfg.RerankWeight)
	metrics.RetrievalDuration.WithLabelValues("rerank").Observe(time.Since(rerankStart).Seconds())
	if err != nil {
		log.Warn("reranking failed, keeping pre-rerank order", zap.Error(err))
		return truncate(docs, topK)
	}
	return truncate(reranked, topK)
}

func truncate(docs []domain.Document, n int) []domain.Document {
	if len(docs) > n {
		return docs[:n]
	}
	return docs
}
