package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suporteia/atena/internal/domain"
)

// store is the consumer interface for conversation persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, val int64) error
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LSet(ctx context.Context, key string, index int64, value string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// lastMessagePreviewLen caps the session preview stored in the meta hash.
const lastMessagePreviewLen = 120

// Repo persists sessions and message logs. Session metadata lives in a hash,
// messages in a list of JSON entries; both keys share the session TTL, which
// slides on every write.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a conversation repository. prefix namespaces all keys
// (e.g. "atena:"); ttl <= 0 means sessions never expire.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

func (r *Repo) sessionKey(id string) string  { return r.prefix + "session:" + id }
func (r *Repo) messagesKey(id string) string { return r.sessionKey(id) + ":messages" }

// CreateSession registers a session if it does not exist yet.
func (r *Repo) CreateSession(ctx context.Context, id, userID string) error {
	key := r.sessionKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("exists %s: %w", key, err)
	}
	if exists {
		return nil
	}

	fields := map[string]string{
		"user_id":    userID,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return r.touch(ctx, id)
}

// GetSession returns session metadata.
func (r *Repo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	key := r.sessionKey(id)

	meta, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(meta) == 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return parseSessionMeta(id, meta), nil
}

// AddMessage appends a turn to the session log, assigning an ID when absent,
// and updates the session meta.
func (r *Repo) AddMessage(ctx context.Context, sessionID string, turn domain.Turn) (domain.Turn, error) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(toDTO(turn))
	if err != nil {
		return domain.Turn{}, fmt.Errorf("marshal message: %w", err)
	}

	msgKey := r.messagesKey(sessionID)
	if err := r.store.RPush(ctx, msgKey, string(data)); err != nil {
		return domain.Turn{}, fmt.Errorf("rpush %s: %w", msgKey, err)
	}

	metaKey := r.sessionKey(sessionID)
	if err := r.store.HIncrBy(ctx, metaKey, "message_count", 1); err != nil {
		return domain.Turn{}, fmt.Errorf("hincrby %s: %w", metaKey, err)
	}
	preview := turn.Content
	if runes := []rune(preview); len(runes) > lastMessagePreviewLen {
		preview = string(runes[:lastMessagePreviewLen])
	}
	if err := r.store.HSet(ctx, metaKey, map[string]string{"last_message": preview}); err != nil {
		return domain.Turn{}, fmt.Errorf("hset %s: %w", metaKey, err)
	}

	if err := r.touch(ctx, sessionID); err != nil {
		return domain.Turn{}, err
	}
	return turn, nil
}

// GetHistory returns the last limit turns in chronological order.
func (r *Repo) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = 200
	}

	key := r.messagesKey(sessionID)
	raw, err := r.store.LRange(ctx, key, int64(-limit), -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	turns := make([]domain.Turn, 0, len(raw))
	for _, entry := range raw {
		var dto messageDTO
		if err := json.Unmarshal([]byte(entry), &dto); err != nil {
			continue
		}
		turns = append(turns, dto.toDomain())
	}
	return turns, nil
}

// SetRating records user feedback on a message and returns the updated turn.
func (r *Repo) SetRating(ctx context.Context, sessionID, messageID, rating string) (domain.Turn, error) {
	key := r.messagesKey(sessionID)

	raw, err := r.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return domain.Turn{}, fmt.Errorf("lrange %s: %w", key, err)
	}

	for i, entry := range raw {
		var dto messageDTO
		if err := json.Unmarshal([]byte(entry), &dto); err != nil {
			continue
		}
		if dto.ID != messageID {
			continue
		}

		dto.Rating = rating
		data, err := json.Marshal(dto)
		if err != nil {
			return domain.Turn{}, fmt.Errorf("marshal message: %w", err)
		}
		if err := r.store.LSet(ctx, key, int64(i), string(data)); err != nil {
			return domain.Turn{}, fmt.Errorf("lset %s[%d]: %w", key, i, err)
		}
		return dto.toDomain(), nil
	}

	return domain.Turn{}, domain.ErrMessageNotFound
}

// ListSessions returns the user's sessions, newest first.
func (r *Repo) ListSessions(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 100
	}

	pattern := r.prefix + "session:*"
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}

	metaKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, ":messages") {
			continue
		}
		metaKeys = append(metaKeys, k)
	}
	if len(metaKeys) == 0 {
		return nil, nil
	}

	metas, err := r.store.HGetAllMulti(ctx, metaKeys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	sessions := make([]domain.Session, 0, len(metas))
	for i, meta := range metas {
		if len(meta) == 0 {
			continue
		}
		if meta["user_id"] != userID {
			continue
		}
		id := strings.TrimPrefix(metaKeys[i], r.prefix+"session:")
		sessions = append(sessions, parseSessionMeta(id, meta))
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// DeleteSession removes the session meta and its message log.
func (r *Repo) DeleteSession(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.messagesKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", r.messagesKey(id), err)
	}
	if err := r.store.Del(ctx, r.sessionKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", r.sessionKey(id), err)
	}
	return nil
}

// touch slides the session TTL on both keys.
func (r *Repo) touch(ctx context.Context, id string) error {
	if r.ttl <= 0 {
		return nil
	}
	for _, key := range []string{r.sessionKey(id), r.messagesKey(id)} {
		if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

func parseSessionMeta(id string, meta map[string]string) domain.Session {
	s := domain.Session{
		ID:          id,
		UserID:      meta["user_id"],
		LastMessage: meta["last_message"],
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["created_at"]); err == nil {
		s.CreatedAt = t
	}
	if n, err := strconv.Atoi(meta["message_count"]); err == nil {
		s.MessageCount = n
	}
	return s
}
