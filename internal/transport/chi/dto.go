package chi

import (
	"time"

	"github.com/suporteia/atena/internal/domain"
)

// chatRequest is the body of POST /chat and POST /chat/stream.
type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

// chatResponse is the non-streaming answer payload.
type chatResponse struct {
	Answer          string             `json:"answer"`
	Sources         []domain.SourceRef `json:"sources"`
	Confidence      float64            `json:"confidence"`
	ConfidenceLevel string             `json:"confidence_level"`
	Clarification   bool               `json:"clarification,omitempty"`
	Provider        string             `json:"provider,omitempty"`
	ModelUsed       string             `json:"model_used,omitempty"`
	SessionID       string             `json:"session_id"`
	MessageID       string             `json:"message_id,omitempty"`
	Persisted       bool               `json:"persisted"`
}

// feedbackRequest is the body of POST /chat/feedback.
type feedbackRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Rating    string `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// historyMessage is one turn in GET /chat/history.
type historyMessage struct {
	MessageID  string             `json:"message_id"`
	Role       string             `json:"role"`
	Content    string             `json:"content"`
	Sources    []domain.SourceRef `json:"sources,omitempty"`
	ModelUsed  string             `json:"model_used,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Rating     string             `json:"rating,omitempty"`
	Timestamp  *time.Time         `json:"timestamp,omitempty"`
}

// historyResponse is the payload of GET /chat/history.
type historyResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []historyMessage `json:"messages"`
}

// sessionInfo is one session in GET /chat/sessions.
type sessionInfo struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message"`
}

// sessionsResponse is the payload of GET /chat/sessions.
type sessionsResponse struct {
	Sessions []sessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorCode tags machine-readable error categories.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeUnauthorized     errorCode = "unauthorized"
	codeForbidden        errorCode = "forbidden"
	codeSessionNotFound  errorCode = "session_not_found"
	codeMessageNotFound  errorCode = "message_not_found"
	codeUpstreamError    errorCode = "upstream_error"
	codeInternalError    errorCode = "internal_error"
)

func turnToHistoryMessage(t domain.Turn) historyMessage {
	msg := historyMessage{
		MessageID:  t.ID,
		Role:       string(t.Role),
		Content:    t.Content,
		Sources:    t.Sources,
		ModelUsed:  t.ModelUsed,
		Confidence: t.Confidence,
		Rating:     t.Rating,
	}
	if !t.CreatedAt.IsZero() {
		ts := t.CreatedAt
		msg.Timestamp = &ts
	}
	return msg
}

func sessionToInfo(s domain.Session) sessionInfo {
	last := s.LastMessage
	if last == "" {
		last = "Nova conversa"
	}
	return sessionInfo{
		SessionID:    s.ID,
		CreatedAt:    s.CreatedAt,
		MessageCount: s.MessageCount,
		LastMessage:  last,
	}
}
