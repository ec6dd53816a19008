package answer

import (
	"context"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/usecase/generate"
)

// Retriever runs the retrieval pipeline for a question. historyLen is the
// turn count already in the conversation.
type Retriever interface {
	Retrieve(ctx context.Context, question string, historyLen int) (domain.RankedResult, error)
}

// Generator produces completions, typically a provider chain.
type Generator interface {
	Generate(ctx context.Context, prompt string) (generate.Result, error)
	Stream(ctx context.Context, prompt string, emit func(token string) error) (generate.Result, error)
}

// Recorder persists assistant turns. The returned turn carries the stored
// message ID.
type Recorder interface {
	AddAssistantMessage(ctx context.Context, sessionID string, turn domain.Turn) (domain.Turn, error)
}

// UsageRecorder bumps the usage counter on documents cited in an answer.
type UsageRecorder interface {
	RegisterUsage(ctx context.Context, docIDs []string) error
}
