package conversation

import (
	"context"

	"github.com/suporteia/atena/internal/domain"
)

// Repository persists sessions and message logs.
type Repository interface {
	CreateSession(ctx context.Context, id, userID string) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	AddMessage(ctx context.Context, sessionID string, turn domain.Turn) (domain.Turn, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	SetRating(ctx context.Context, sessionID, messageID, rating string) (domain.Turn, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// FeedbackApplier propagates message ratings to the cited documents.
type FeedbackApplier interface {
	ApplyFeedback(ctx context.Context, docIDs []string, helpful bool) error
}
