package answer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
	"github.com/suporteia/atena/internal/metrics"
	"github.com/suporteia/atena/internal/usecase/generate"
)

const streamErrorMessage = "Erro ao gerar resposta. Tente novamente."

// Stream answers the question as an ordered event stream. The channel is
// closed when the stream ends; after cancellation no further events are
// emitted. Sources always precedes the first Token, Confidence precedes the
// Tokens that depend on it, and exactly one terminal event (Error or Done)
// closes every non-canceled stream.
func (s *Service) Stream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, s.cfg.EventBuffer)
	go s.streamLoop(ctx, req, out)
	return out
}

func (s *Service) streamLoop(ctx context.Context, req Request, out chan<- Event) {
	defer close(out)
	log := logger.FromContext(ctx)

	emit := func(ev Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case out <- ev:
			metrics.StreamEventsTotal.WithLabelValues(string(ev.Type)).Inc()
			return true
		case <-ctx.Done():
			return false
		}
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		emit(Event{Type: EventError, Message: "Pergunta não pode estar vazia."})
		return
	}

	res, err := s.retriever.Retrieve(ctx, question, len(req.History))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("retrieval failed", zap.Error(err))
		emit(Event{Type: EventError, Message: streamErrorMessage})
		return
	}

	// Clarifications and the no-context fallback stream their templated text
	// as a single token so every consumer follows one shape.
	if res.Clarification.Needed {
		s.streamStatic(ctx, emit, req, res.Clarification.Message, res)
		return
	}
	if len(res.Documents) == 0 {
		s.streamStatic(ctx, emit, req, noContextAnswer, res)
		return
	}

	sources := domain.SourceRefs(res.Documents, sourceSnippetLen)
	if !emit(Event{Type: EventSources, Sources: sources}) {
		return
	}
	if !emit(Event{Type: EventConfidence, Confidence: res.Confidence.Score, Level: res.Confidence.Level}) {
		return
	}

	prompt := BuildPrompt(
		question,
		BuildContext(res.Documents),
		HistoryText(req.History, s.cfg.HistoryMaxTurns),
		primaryDepartment(res),
		res.Confidence.Score,
	)

	// Producer: the blocking LLM stream hands tokens over synchronously, so
	// once endc fires no token is still in flight.
	type streamEnd struct {
		res generate.Result
		err error
	}
	tokens := make(chan string)
	endc := make(chan streamEnd, 1)
	go func() {
		gen, err := s.llm.Stream(ctx, prompt, func(tok string) error {
			if tok == "" {
				return nil
			}
			select {
			case tokens <- tok:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		endc <- streamEnd{res: gen, err: err}
	}()

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	var assembled strings.Builder
	for {
		select {
		case tok := <-tokens:
			assembled.WriteString(tok)
			if !emit(Event{Type: EventToken, Token: tok}) {
				return
			}
		case <-heartbeat.C:
			if !emit(Event{Type: EventHeartbeat}) {
				return
			}
		case end := <-endc:
			if end.err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("llm stream failed", zap.Error(end.err))
				emit(Event{Type: EventError, Message: streamErrorMessage})
				return
			}
			s.finish(ctx, emit, req, Sanitize(assembled.String()), sources, res, end.res)
			return
		case <-ctx.Done():
			return
		}
	}
}

// streamStatic emits a templated answer with the standard event shape.
func (s *Service) streamStatic(ctx context.Context, emit func(Event) bool, req Request, text string, res domain.RankedResult) {
	if !emit(Event{Type: EventSources, Sources: []domain.SourceRef{}}) {
		return
	}
	if !emit(Event{Type: EventConfidence, Confidence: res.Confidence.Score, Level: res.Confidence.Level}) {
		return
	}
	if !emit(Event{Type: EventToken, Token: text}) {
		return
	}
	s.finish(ctx, emit, req, text, nil, res, generate.Result{})
}

// finish runs the bounded finalize step and emits Metadata and Done. When
// persistence does not complete within the timeout it continues in the
// background and the metadata goes out without a message ID.
func (s *Service) finish(ctx context.Context, emit func(Event) bool, req Request, answerText string, sources []domain.SourceRef, res domain.RankedResult, gen generate.Result) {
	log := logger.FromContext(ctx)

	done := make(chan finalizeOutcome, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		done <- s.finalize(bg, req, answerText, sources, res, gen)
	}()

	md := &Metadata{
		SessionID:  req.SessionID,
		Provider:   gen.Provider,
		Model:      gen.Model,
		Confidence: res.Confidence.Score,
	}

	wait := time.NewTimer(s.cfg.FinalizeTimeout)
	defer wait.Stop()
	select {
	case fo := <-done:
		if fo.err != nil {
			metrics.StreamFinalizeTotal.WithLabelValues("error").Inc()
			log.Warn("finalize failed", zap.Error(fo.err))
		} else {
			metrics.StreamFinalizeTotal.WithLabelValues("sync").Inc()
		}
		md.MessageID = fo.messageID
		md.Persisted = fo.persisted
	case <-wait.C:
		metrics.StreamFinalizeTotal.WithLabelValues("background").Inc()
		go func() {
			if fo := <-done; fo.err != nil {
				log.Warn("background finalize failed", zap.Error(fo.err))
			}
		}()
	case <-ctx.Done():
		go func() { <-done }()
		return
	}

	if !emit(Event{Type: EventMetadata, Metadata: md}) {
		return
	}
	emit(Event{Type: EventDone})
}
