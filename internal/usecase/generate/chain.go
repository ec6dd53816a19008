package generate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
	"github.com/suporteia/atena/internal/metrics"
)

// Result carries a completed generation and which provider produced it.
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Chain tries providers in order and returns the first success. Order is
// fixed at construction; the primary provider is always tried first on every
// request.
type Chain struct {
	providers []Provider
}

// NewChain creates a provider chain. At least one provider is expected;
// an empty chain fails every call with domain.ErrNoProviders.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Providers returns the chain members in try order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Generate runs the prompt through the chain, falling through to the next
// provider on failure.
func (c *Chain) Generate(ctx context.Context, prompt string) (Result, error) {
	log := logger.FromContext(ctx)

	var lastErr error
	for i, p := range c.providers {
		text, err := p.Generate(ctx, prompt)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(p.Name(), p.Model(), "ok").Inc()
			return Result{Text: text, Provider: p.Name(), Model: p.Model()}, nil
		}
		metrics.LLMRequestsTotal.WithLabelValues(p.Name(), p.Model(), "error").Inc()
		lastErr = err

		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if next := c.next(i); next != nil {
			metrics.LLMFallbacksTotal.WithLabelValues(p.Name(), next.Name()).Inc()
			log.Warn("llm provider failed, falling back",
				zap.String("from", p.Name()),
				zap.String("to", next.Name()),
				zap.Error(err))
		}
	}

	if lastErr == nil {
		return Result{}, domain.ErrNoProviders
	}
	return Result{}, fmt.Errorf("%w: %v", domain.ErrNoProviders, lastErr)
}

// Stream runs the prompt through the chain, delivering fragments via emit.
// Fallback happens only while nothing has been emitted yet; once the first
// fragment is out, a provider failure is the stream's failure. Returns the
// provider that served the stream.
func (c *Chain) Stream(ctx context.Context, prompt string, emit func(token string) error) (Result, error) {
	log := logger.FromContext(ctx)

	var lastErr error
	for i, p := range c.providers {
		started := false
		err := p.Stream(ctx, prompt, func(token string) error {
			started = true
			return emit(token)
		})
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(p.Name(), p.Model(), "ok").Inc()
			return Result{Provider: p.Name(), Model: p.Model()}, nil
		}
		metrics.LLMRequestsTotal.WithLabelValues(p.Name(), p.Model(), "error").Inc()

		if started || ctx.Err() != nil {
			return Result{Provider: p.Name(), Model: p.Model()}, err
		}
		lastErr = err
		if next := c.next(i); next != nil {
			metrics.LLMFallbacksTotal.WithLabelValues(p.Name(), next.Name()).Inc()
			log.Warn("llm stream failed before first token, falling back",
				zap.String("from", p.Name()),
				zap.String("to", next.Name()),
				zap.Error(err))
		}
	}

	if lastErr == nil {
		return Result{}, domain.ErrNoProviders
	}
	return Result{}, fmt.Errorf("%w: %v", domain.ErrNoProviders, lastErr)
}

func (c *Chain) next(i int) Provider {
	if i+1 < len(c.providers) {
		return c.providers[i+1]
	}
	return nil
}
