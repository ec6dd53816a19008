package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/suporteia/atena/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client scores (query, document) pairs against a text-embeddings-inference
// style /rerank endpoint. Scores come back as raw cross-encoder logits; the
// retrieval pipeline squashes them through a sigmoid.
type Client struct {
	http   *http.Client
	url    string
	apiKey string
}

// Config holds the rerank endpoint settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a rerank client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one raw score per input text, aligned with input order.
func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, RawScores: true})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank status %d: %s: %w",
			resp.StatusCode, string(preview), domain.ErrUpstreamUnavailable)
	}

	var scored []rerankScore
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(scored) != len(texts) {
		return nil, fmt.Errorf("rerank returned %d scores for %d texts", len(scored), len(texts))
	}

	// The endpoint sorts by score; restore input order by index.
	out := make([]float64, len(texts))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(out) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", s.Index)
		}
		out[s.Index] = s.Score
	}
	return out, nil
}

// HealthCheck probes the rerank endpoint with a trivial pair.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Score(ctx, "ping", []string{"ping"})
	return err
}
