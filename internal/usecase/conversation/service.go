package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
)

// helpfulRatings are the rating values counted as positive feedback.
var helpfulRatings = map[string]struct{}{
	"positivo": {},
	"positive": {},
	"helpful":  {},
	"bom":      {},
	"boa":      {},
	"upvote":   {},
	"like":     {},
}

// Service manages conversation sessions. Session bookkeeping never blocks
// answering: EnsureSession, AddUserMessage and GetHistory degrade to logging
// on storage failure.
type Service struct {
	repo     Repository
	feedback FeedbackApplier
}

// New creates the conversation service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// WithFeedback enables rating propagation to the vector store.
func (s *Service) WithFeedback(f FeedbackApplier) *Service {
	s.feedback = f
	return s
}

// EnsureSession returns a usable session ID, minting one when absent and
// registering it best-effort.
func (s *Service) EnsureSession(ctx context.Context, sessionID, userID string) string {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := s.repo.CreateSession(ctx, sessionID, userID); err != nil {
		logger.FromContext(ctx).Warn("create session failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return sessionID
}

// AddUserMessage records the user's question, best-effort.
func (s *Service) AddUserMessage(ctx context.Context, sessionID, content string) {
	turn := domain.Turn{Role: domain.RoleUser, Content: content}
	if _, err := s.repo.AddMessage(ctx, sessionID, turn); err != nil {
		logger.FromContext(ctx).Warn("record user message failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// AddAssistantMessage persists an assistant turn and returns it with its
// stored ID.
func (s *Service) AddAssistantMessage(ctx context.Context, sessionID string, turn domain.Turn) (domain.Turn, error) {
	turn.Role = domain.RoleAssistant
	stored, err := s.repo.AddMessage(ctx, sessionID, turn)
	if err != nil {
		return domain.Turn{}, fmt.Errorf("add assistant message: %w", err)
	}
	return stored, nil
}

// GetHistory returns the last limit turns, or nothing when the log is
// unreachable.
func (s *Service) GetHistory(ctx context.Context, sessionID string, limit int) []domain.Turn {
	turns, err := s.repo.GetHistory(ctx, sessionID, limit)
	if err != nil {
		logger.FromContext(ctx).Warn("get history failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	return turns
}

// ListSessions returns the user's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	sessions, err := s.repo.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session after an ownership check.
func (s *Service) DeleteSession(ctx context.Context, sessionID, userID string) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != "" && session.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Feedback records a rating on an assistant message and propagates it to the
// documents it cited. Propagation failure never fails the rating.
func (s *Service) Feedback(ctx context.Context, sessionID, messageID, rating string) error {
	turn, err := s.repo.SetRating(ctx, sessionID, messageID, rating)
	if err != nil {
		return err
	}

	if s.feedback == nil || len(turn.Sources) == 0 {
		return nil
	}
	docIDs := make([]string, 0, len(turn.Sources))
	for _, src := range turn.Sources {
		if src.ID != "" {
			docIDs = append(docIDs, src.ID)
		}
	}
	if len(docIDs) == 0 {
		return nil
	}

	if err := s.feedback.ApplyFeedback(ctx, docIDs, isHelpful(rating)); err != nil {
		logger.FromContext(ctx).Warn("apply document feedback failed",
			zap.Strings("doc_ids", docIDs), zap.Error(err))
	}
	return nil
}

func isHelpful(rating string) bool {
	_, ok := helpfulRatings[strings.ToLower(strings.TrimSpace(rating))]
	return ok
}
