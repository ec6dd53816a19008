package retrieval

import (
	"reflect"
	"testing"

	"github.com/suporteia/atena/internal/domain"
)

func TestScoreConfidence_EmptyDocuments(t *testing.T) {
	c := ScoreConfidence(nil, "qualquer pergunta", 0.5)
	if c.Level != domain.LevelNone || c.Score != 0 {
		t.Errorf("empty docs: got level=%s score=%v, want none/0", c.Level, c.Score)
	}
}

func TestScoreConfidence_Idempotent(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.8},
		{ID: "c", Score: 0.7},
		{ID: "d", Score: 0.6},
	}
	first := ScoreConfidence(docs, "como configurar o acesso remoto da filial", 0.6)
	second := ScoreConfidence(docs, "como configurar o acesso remoto da filial", 0.6)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calls differ:\n%+v\n%+v", first, second)
	}
}

func TestScoreConfidence_Bounded(t *testing.T) {
	docs := []domain.Document{
		{Score: 1}, {Score: 1}, {Score: 1}, {Score: 1}, {Score: 1},
	}
	c := ScoreConfidence(docs, "pergunta com dez palavras para garantir especificidade maxima aqui mesmo", 1.0)
	if c.Score < 0 || c.Score > 1 {
		t.Errorf("score out of bounds: %v", c.Score)
	}
	if c.Level != domain.LevelHigh {
		t.Errorf("saturated factors should grade high, got %s", c.Level)
	}
}

func TestScoreConfidence_Factors(t *testing.T) {
	docs := []domain.Document{
		{Score: 0.9}, {Score: 0.8}, {Score: 0.7}, {Score: 0.2}, {Score: 0.1},
	}
	c := ScoreConfidence(docs, "como emitir nota fiscal para cliente", 0.2)

	// Top-3 mean 0.8 weighted 0.5; five docs weighted 0.2; domain 0.2*0.15;
	// six words -> 0.7*0.15.
	wantFactors := domain.ConfidenceFactors{
		DocumentScore:    0.8 * 0.5,
		DocumentCount:    1.0 * 0.2,
		DomainConfidence: 0.2 * 0.15,
		QuerySpecificity: 0.7 * 0.15,
	}
	approx := func(a, b float64) bool { d := a - b; return d < 1e-9 && d > -1e-9 }
	if !approx(c.Factors.DocumentScore, wantFactors.DocumentScore) ||
		!approx(c.Factors.DocumentCount, wantFactors.DocumentCount) ||
		!approx(c.Factors.DomainConfidence, wantFactors.DomainConfidence) ||
		!approx(c.Factors.QuerySpecificity, wantFactors.QuerySpecificity) {
		t.Errorf("factors = %+v, want %+v", c.Factors, wantFactors)
	}
	if c.Level != domain.LevelMedium {
		t.Errorf("level = %s, want medium", c.Level)
	}
}

func TestScoreConfidence_CountTiers(t *testing.T) {
	mk := func(n int) []domain.Document {
		docs := make([]domain.Document, n)
		for i := range docs {
			docs[i] = domain.Document{Score: 0.5}
		}
		return docs
	}
	tests := []struct {
		n    int
		want float64
	}{
		{1, 0.3 * 0.2},
		{2, 0.5 * 0.2},
		{3, 0.8 * 0.2},
		{4, 0.8 * 0.2},
		{5, 1.0 * 0.2},
	}
	for _, tc := range tests {
		c := ScoreConfidence(mk(tc.n), "pergunta", 0)
		if diff := c.Factors.DocumentCount - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("n=%d: count factor = %v, want %v", tc.n, c.Factors.DocumentCount, tc.want)
		}
	}
}
