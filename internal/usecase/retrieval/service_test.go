package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/usecase/generate"
	"github.com/suporteia/atena/internal/usecase/plan"
)

// --- mocks ---

type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector}, nil
}

type mockSearcher struct {
	vectorHits  []domain.Document
	lexicalHits []domain.Document
	vectorErr   error
	lexicalErr  error
}

func (m *mockSearcher) SearchVector(_ context.Context, _ []float32, _ []string, _ int, _ float64) ([]domain.Document, error) {
	return m.vectorHits, m.vectorErr
}

func (m *mockSearcher) SearchLexical(_ context.Context, _ string, _ []string, _ int) ([]domain.Document, error) {
	return m.lexicalHits, m.lexicalErr
}

type mockClarifier struct {
	text      string
	err       error
	gotPrompt string
}

func (m *mockClarifier) Generate(_ context.Context, prompt string) (generate.Result, error) {
	m.gotPrompt = prompt
	if m.err != nil {
		return generate.Result{}, m.err
	}
	return generate.Result{Text: m.text}, nil
}

type mockReranker struct {
	scores []float64
	err    error
}

func (m *mockReranker) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.scores != nil {
		return m.scores, nil
	}
	return make([]float64, len(texts)), nil
}

func testConfig() Config {
	return Config{
		RRFK:           60,
		VectorWeight:   0.7,
		LexicalWeight:  0.3,
		TitleBoost:     0.8,
		CategoryBoost:  0.1,
		MMRLambda:      0.7,
		OriginalWeight: 0.3,
		RerankWeight:   0.7,
		MaxRerankDocs:  20,
		RelevanceFloor: 0.35,
	}
}

func newTestService(searcher Searcher) *Service {
	planner := plan.New(domain.RetrievalParams{TopK: 10, MinScore: 0.18})
	embedder := &mockEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	return New(planner, embedder, searcher, testConfig())
}

// --- pipeline tests ---

func TestRetrieve_ClarificationShortCircuit(t *testing.T) {
	svc := newTestService(&mockSearcher{})

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Clarification.Needed {
		t.Fatal("three-word question with empty results must clarify")
	}
	if len(res.Documents) != 0 {
		t.Errorf("clarification must carry no sources, got %d", len(res.Documents))
	}
	if res.Confidence.Score != 0 || res.Confidence.Level != domain.LevelNone {
		t.Errorf("clarification confidence = %+v, want none/0", res.Confidence)
	}
}

func TestRetrieve_ClarificationPrefersGeneratedMessage(t *testing.T) {
	clarifier := &mockClarifier{
		text: "RESPOSTA: ## Preciso de mais detalhes\n\n- Qual sistema você usa?",
	}
	svc := newTestService(&mockSearcher{}).WithClarifier(clarifier)

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Clarification.Needed {
		t.Fatal("expected clarification")
	}
	want := "## Preciso de mais detalhes\n\n- Qual sistema você usa?"
	if res.Clarification.Message != want {
		t.Errorf("message = %q, want generated text without prefix", res.Clarification.Message)
	}
	if !strings.Contains(clarifier.gotPrompt, "como resetar senha") {
		t.Errorf("prompt must carry the question, got %q", clarifier.gotPrompt)
	}
}

func TestRetrieve_ClarifierFailureFallsBackToTemplate(t *testing.T) {
	clarifier := &mockClarifier{err: errors.New("provider down")}
	svc := newTestService(&mockSearcher{}).WithClarifier(clarifier)

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("clarifier failure must not fail the request: %v", err)
	}
	if !res.Clarification.Needed {
		t.Fatal("expected clarification")
	}
	if !strings.Contains(res.Clarification.Message, "Esclarecimento Necessário") {
		t.Errorf("expected templated fallback, got %q", res.Clarification.Message)
	}
}

func TestRetrieve_ClarifierEmptyOutputFallsBackToTemplate(t *testing.T) {
	clarifier := &mockClarifier{text: "   "}
	svc := newTestService(&mockSearcher{}).WithClarifier(clarifier)

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Clarification.Message, "Esclarecimento Necessário") {
		t.Errorf("expected templated fallback, got %q", res.Clarification.Message)
	}
}

func TestRetrieve_AnswerableQuestion(t *testing.T) {
	searcher := &mockSearcher{
		vectorHits: []domain.Document{
			{ID: "d1", Title: "Como resetar senha no AD", Category: "Acessos", Content: "procedimento de reset", Score: 0.9},
			{ID: "d2", Title: "Desbloquear conta de rede", Category: "Acessos", Content: "conta bloqueada", Score: 0.6},
		},
	}
	svc := newTestService(searcher)

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Clarification.Needed {
		t.Fatal("cohesive high-score results must not clarify")
	}
	if len(res.Documents) == 0 {
		t.Fatal("expected sources")
	}
	if got := res.Query.Departments; len(got) != 1 || got[0] != plan.DeptTI {
		t.Errorf("departments = %v, want [TI]", got)
	}
	if res.Confidence.Level != domain.LevelMedium && res.Confidence.Level != domain.LevelHigh {
		t.Errorf("confidence level = %s, want at least medium", res.Confidence.Level)
	}
	for _, d := range res.Documents {
		if d.Score < 0 || d.Score > 1 {
			t.Errorf("document score out of bounds: %v", d.Score)
		}
	}
}

func TestRetrieve_LowRelevanceFallsBack(t *testing.T) {
	// Lexical-only junk hit: rank 1 lexical RRF plus a 0.2 base overlap score
	// lands under the relevance floor.
	searcher := &mockSearcher{
		lexicalHits: []domain.Document{
			{ID: "junk", Title: "Orientações gerais", Category: "Atendimento", Content: "informações diversas"},
		},
	}
	svc := newTestService(searcher)

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Clarification.Needed {
		t.Fatal("low-relevance results take the fallback path, not clarification")
	}
	if len(res.Documents) != 0 {
		t.Errorf("fallback must carry no sources, got %d", len(res.Documents))
	}
	if res.Confidence.Score != 0 {
		t.Errorf("fallback confidence = %v, want 0", res.Confidence.Score)
	}
}

func TestRetrieve_EmbeddingFailureDegradesToLexical(t *testing.T) {
	searcher := &mockSearcher{
		lexicalHits: []domain.Document{
			{ID: "lex", Title: "Resetar senha", Category: "Acessos", Content: "como resetar senha do dominio"},
		},
	}
	planner := plan.New(domain.RetrievalParams{TopK: 10, MinScore: 0.18})
	embedder := &mockEmbedder{err: errors.New("embedding api down")}
	svc := New(planner, embedder, searcher, testConfig())

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("embedding failure must not abort the request: %v", err)
	}
	if len(res.Documents) == 0 {
		t.Fatal("expected lexical results despite embedding failure")
	}
}

func TestRetrieve_SearchFailuresFallBack(t *testing.T) {
	searcher := &mockSearcher{
		vectorErr:  errors.New("qdrant unavailable"),
		lexicalErr: errors.New("qdrant unavailable"),
	}
	svc := newTestService(searcher)

	res, err := svc.Retrieve(context.Background(), "como configurar o acesso remoto da filial nova", 0)
	if err != nil {
		t.Fatalf("search failures must degrade, not error: %v", err)
	}
	if len(res.Documents) != 0 || res.Clarification.Needed {
		t.Errorf("expected empty fallback result, got %+v", res)
	}
}

func TestRetrieve_RerankerFailureKeepsOrder(t *testing.T) {
	searcher := &mockSearcher{
		vectorHits: []domain.Document{
			{ID: "first", Title: "Resetar senha no AD", Category: "Acessos", Score: 0.9},
			{ID: "second", Title: "Politica de acessos", Category: "Acessos", Score: 0.6},
		},
	}
	planner := plan.New(domain.RetrievalParams{TopK: 10, MinScore: 0.18})
	embedder := &mockEmbedder{vector: []float32{0.1}}
	cfg := testConfig()
	cfg.RerankEnabled = true
	svc := New(planner, embedder, searcher, cfg).WithReranker(&mockReranker{err: errors.New("scorer down")})

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("reranker failure must not fail the request: %v", err)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(res.Documents))
	}
	if res.Documents[0].ID != "first" {
		t.Errorf("pre-rerank order not preserved: %s first", res.Documents[0].ID)
	}
}

func TestRetrieve_RerankerReorders(t *testing.T) {
	searcher := &mockSearcher{
		vectorHits: []domain.Document{
			{ID: "a", Title: "Documento alfa", Category: "Acessos", Score: 0.9},
			{ID: "b", Title: "Documento beta", Category: "Acessos", Score: 0.85},
		},
	}
	planner := plan.New(domain.RetrievalParams{TopK: 10, MinScore: 0.18})
	embedder := &mockEmbedder{vector: []float32{0.1}}
	cfg := testConfig()
	cfg.RerankEnabled = true
	// Strongly negative pair score for the first doc, strongly positive for
	// the second: the blend must flip the order.
	svc := New(planner, embedder, searcher, cfg).WithReranker(&mockReranker{scores: []float64{-8, 8}})

	res, err := svc.Retrieve(context.Background(), "como resetar senha", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Documents) != 2 || res.Documents[0].ID != "b" {
		t.Errorf("expected reranker to promote b, got order %v", ids(res.Documents))
	}
}

func TestRetrieve_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(&mockSearcher{})
	if _, err := svc.Retrieve(ctx, "como resetar senha", 0); err == nil {
		t.Fatal("expected context error")
	}
}

func ids(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
