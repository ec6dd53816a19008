package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
	"github.com/suporteia/atena/internal/usecase/generate"
)

// Config holds answering knobs. Zero values fall back to defaults in New.
type Config struct {
	HeartbeatInterval time.Duration
	FinalizeTimeout   time.Duration
	EventBuffer       int
	HistoryMaxTurns   int
}

// Request is one question in a conversation.
type Request struct {
	SessionID string
	Question  string
	History   []domain.Turn
}

// Result is a complete non-streaming answer.
type Result struct {
	Answer        string
	Sources       []domain.SourceRef
	Confidence    domain.Confidence
	Clarification bool
	Provider      string
	Model         string
	MessageID     string
	Persisted     bool
}

// Service answers questions over the retrieval pipeline and the provider
// chain, in one shot or as an event stream.
type Service struct {
	retriever Retriever
	llm       Generator
	memory    *MemoryWriter
	recorder  Recorder
	usage     UsageRecorder
	cfg       Config
}

// New creates the answering service.
func New(retriever Retriever, llm Generator, cfg Config) *Service {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.HistoryMaxTurns <= 0 {
		cfg.HistoryMaxTurns = 8
	}
	return &Service{retriever: retriever, llm: llm, cfg: cfg}
}

// WithMemory enables QA memory capture during finalize.
func (s *Service) WithMemory(w *MemoryWriter) *Service {
	s.memory = w
	return s
}

// WithRecorder enables assistant message persistence during finalize.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithUsage enables usage counting on cited documents during finalize.
func (s *Service) WithUsage(u UsageRecorder) *Service {
	s.usage = u
	return s
}

// Answer runs the full pipeline and returns the complete answer.
func (s *Service) Answer(ctx context.Context, req Request) (Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Result{}, domain.ErrEmptyQuestion
	}

	res, err := s.retriever.Retrieve(ctx, question, len(req.History))
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	if res.Clarification.Needed {
		out := Result{Answer: res.Clarification.Message, Confidence: res.Confidence, Clarification: true}
		s.persistResult(ctx, req, &out, res, generate.Result{})
		return out, nil
	}
	if len(res.Documents) == 0 {
		out := Result{Answer: noContextAnswer, Confidence: res.Confidence}
		s.persistResult(ctx, req, &out, res, generate.Result{})
		return out, nil
	}

	sources := domain.SourceRefs(res.Documents, sourceSnippetLen)
	prompt := BuildPrompt(
		question,
		BuildContext(res.Documents),
		HistoryText(req.History, s.cfg.HistoryMaxTurns),
		primaryDepartment(res),
		res.Confidence.Score,
	)

	gen, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}

	out := Result{
		Answer:     Sanitize(gen.Text),
		Sources:    sources,
		Confidence: res.Confidence,
		Provider:   gen.Provider,
		Model:      gen.Model,
	}
	s.persistResult(ctx, req, &out, res, gen)
	return out, nil
}

// sourceSnippetLen caps the content preview attached to each citation.
const sourceSnippetLen = 240

func (s *Service) persistResult(ctx context.Context, req Request, out *Result, res domain.RankedResult, gen generate.Result) {
	fo := s.finalize(ctx, req, out.Answer, out.Sources, res, gen)
	if fo.err != nil {
		logger.FromContext(ctx).Warn("finalize failed", zap.Error(fo.err))
	}
	out.MessageID = fo.messageID
	out.Persisted = fo.persisted
}

type finalizeOutcome struct {
	messageID string
	persisted bool
	err       error
}

// finalize persists the assistant turn and captures QA memory. Failures are
// reported for logging and metrics but never surface to the caller.
func (s *Service) finalize(ctx context.Context, req Request, answerText string, sources []domain.SourceRef, res domain.RankedResult, gen generate.Result) finalizeOutcome {
	var out finalizeOutcome

	if s.recorder != nil && req.SessionID != "" && answerText != "" {
		turn := domain.Turn{
			Role:       domain.RoleAssistant,
			Content:    answerText,
			Sources:    sources,
			ModelUsed:  gen.Model,
			Confidence: res.Confidence.Score,
		}
		stored, err := s.recorder.AddAssistantMessage(ctx, req.SessionID, turn)
		if err != nil {
			out.err = fmt.Errorf("persist assistant message: %w", err)
		} else {
			out.messageID = stored.ID
			out.persisted = true
		}
	}

	if s.memory != nil && answerText != "" {
		_, err := s.memory.StoreIfWorthy(ctx, req.Question, answerText, sources, res.Query.Departments, res.Confidence.Score)
		if err != nil {
			out.err = errors.Join(out.err, err)
		}
	}

	if s.usage != nil && len(sources) > 0 {
		docIDs := make([]string, 0, len(sources))
		for _, src := range sources {
			if src.ID != "" {
				docIDs = append(docIDs, src.ID)
			}
		}
		if err := s.usage.RegisterUsage(ctx, docIDs); err != nil {
			out.err = errors.Join(out.err, fmt.Errorf("register usage: %w", err))
		}
	}

	return out
}

func primaryDepartment(res domain.RankedResult) string {
	if len(res.Query.Departments) > 0 {
		return res.Query.Departments[0]
	}
	return ""
}
