package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
	"github.com/suporteia/atena/internal/usecase/answer"
	healthuc "github.com/suporteia/atena/internal/usecase/health"
)

const (
	msgEmptyQuestion = "Pergunta não pode estar vazia."
	msgShortQuestion = "Pergunta muito curta. Digite pelo menos 3 caracteres."

	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
	defaultSessionLimit = 100
	maxSessionLimit     = 500
)

// userIDHeader carries the caller identity set by the auth gateway in front
// of this service. Empty means an anonymous caller: answers still work but
// nothing is scoped to a user.
const userIDHeader = "X-User-ID"

// Answerer runs the full answering pipeline, one shot or streaming.
type Answerer interface {
	Answer(ctx context.Context, req answer.Request) (answer.Result, error)
	Stream(ctx context.Context, req answer.Request) <-chan answer.Event
}

// Conversations manages session bookkeeping and message feedback.
type Conversations interface {
	EnsureSession(ctx context.Context, sessionID, userID string) string
	AddUserMessage(ctx context.Context, sessionID, content string)
	GetHistory(ctx context.Context, sessionID string, limit int) []domain.Turn
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.Session, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	Feedback(ctx context.Context, sessionID, messageID, rating string) error
}

// HealthService aggregates dependency health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the answering service over HTTP.
type Server struct {
	answers          Answerer
	conversations    Conversations
	health           HealthService
	minQuestionChars int
	logger           *zap.Logger
	errorHandlers    []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(answers Answerer, conversations Conversations, health HealthService, minQuestionChars int, log *zap.Logger) *Server {
	if minQuestionChars <= 0 {
		minQuestionChars = 3
	}
	s := &Server{
		answers:          answers,
		conversations:    conversations,
		health:           health,
		minQuestionChars: minQuestionChars,
		logger:           log,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrQuestionTooShort, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrMessageNotFound, http.StatusNotFound, codeMessageNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrNoProviders, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstreamError),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Post("/", s.Chat)
		r.Post("/stream", s.ChatStream)
		r.Post("/feedback", s.Feedback)
		r.Get("/history", s.History)
		r.Get("/sessions", s.ListSessions)
		r.Delete("/sessions/{sessionID}", s.DeleteSession)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// validateQuestion enforces the minimum question length. Returns the message
// for the client when the question is rejected.
func (s *Server) validateQuestion(question string) (string, bool) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return msgEmptyQuestion, false
	}
	if len([]rune(trimmed)) < s.minQuestionChars {
		return msgShortQuestion, false
	}
	return "", true
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if msg, ok := s.validateQuestion(req.Question); !ok {
		writeError(w, http.StatusBadRequest, codeValidationFailed, msg)
		return
	}

	ctx := r.Context()
	userID := r.Header.Get(userIDHeader)

	sessionID := s.conversations.EnsureSession(ctx, req.SessionID, userID)
	s.conversations.AddUserMessage(ctx, sessionID, req.Question)
	history := s.conversations.GetHistory(ctx, sessionID, defaultHistoryLimit)

	res, err := s.answers.Answer(ctx, answer.Request{
		SessionID: sessionID,
		Question:  req.Question,
		History:   history,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := res.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:          res.Answer,
		Sources:         sources,
		Confidence:      res.Confidence.Score,
		ConfidenceLevel: string(res.Confidence.Level),
		Clarification:   res.Clarification,
		Provider:        res.Provider,
		ModelUsed:       res.Model,
		SessionID:       sessionID,
		MessageID:       res.MessageID,
		Persisted:       res.Persisted,
	})
}

// ChatStream handles POST /api/v1/chat/stream. The response is an SSE
// stream; failures after the headers are sent become error/done frames.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
		return
	}

	log := logger.FromContext(r.Context())

	if msg, ok := s.validateQuestion(req.Question); !ok {
		if err := sse.errorThenDone(msg); err != nil {
			log.Debug("sse write failed", zap.Error(err))
		}
		return
	}

	ctx := r.Context()
	userID := r.Header.Get(userIDHeader)

	sessionID := s.conversations.EnsureSession(ctx, req.SessionID, userID)
	s.conversations.AddUserMessage(ctx, sessionID, req.Question)
	history := s.conversations.GetHistory(ctx, sessionID, defaultHistoryLimit)

	events := s.answers.Stream(ctx, answer.Request{
		SessionID: sessionID,
		Question:  req.Question,
		History:   history,
	})

	for ev := range events {
		if err := sse.writeEvent(ev); err != nil {
			// Client gone; the orchestrator stops on ctx cancellation.
			log.Debug("sse write failed", zap.Error(err))
			return
		}
	}
}

// Feedback handles POST /api/v1/chat/feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.SessionID == "" || req.MessageID == "" || strings.TrimSpace(req.Rating) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "session_id, message_id and rating are required")
		return
	}

	if err := s.conversations.Feedback(r.Context(), req.SessionID, req.MessageID, req.Rating); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "received",
		"message": "Obrigado pelo feedback!",
	})
}

// History handles GET /api/v1/chat/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "session_id is required")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	turns := s.conversations.GetHistory(r.Context(), sessionID, limit)

	messages := make([]historyMessage, len(turns))
	for i, t := range turns {
		messages[i] = turnToHistoryMessage(t)
	}

	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Messages: messages})
}

// ListSessions handles GET /api/v1/chat/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing user identity")
		return
	}

	limit := queryInt(r, "limit", defaultSessionLimit, maxSessionLimit)
	sessions, err := s.conversations.ListSessions(r.Context(), userID, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]sessionInfo, len(sessions))
	for i, sess := range sessions {
		items[i] = sessionToInfo(sess)
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: items, Total: len(items)})
}

// DeleteSession handles DELETE /api/v1/chat/sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := r.Header.Get(userIDHeader)

	if err := s.conversations.DeleteSession(r.Context(), sessionID, userID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuestion,
		domain.ErrQuestionTooShort,
		domain.ErrSessionNotFound,
		domain.ErrMessageNotFound,
		domain.ErrForbidden,
		domain.ErrNoProviders,
		domain.ErrEmbeddingProviderError,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
