package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/suporteia/atena/internal/domain"
)

func mustJSON(t *testing.T, dto messageDTO) string {
	t.Helper()
	data, err := json.Marshal(dto)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCreateSession_New(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKey string
	var gotFields map[string]string
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		gotKey = key
		gotFields = fields
		return nil
	}
	expired := map[string]bool{}
	ms.expireFn = func(_ context.Context, key string, _ time.Duration, _ bool) error {
		expired[key] = true
		return nil
	}

	if err := repo.CreateSession(context.Background(), "s1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "atena:session:s1" {
		t.Errorf("meta key = %q", gotKey)
	}
	if gotFields["user_id"] != "user-1" || gotFields["created_at"] == "" {
		t.Errorf("fields = %v", gotFields)
	}
	if !expired["atena:session:s1"] || !expired["atena:session:s1:messages"] {
		t.Errorf("ttl not set on both keys: %v", expired)
	}
}

func TestCreateSession_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		t.Fatal("existing sessions must not be overwritten")
		return nil
	}

	if err := repo.CreateSession(context.Background(), "s1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetSession(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestGetSession_ParsesMeta(t *testing.T) {
	repo, ms := newTestRepo(t)
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{
			"user_id":       "user-1",
			"created_at":    created.Format(time.RFC3339Nano),
			"message_count": "4",
			"last_message":  "última pergunta",
		}, nil
	}

	s, err := repo.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "s1" || s.UserID != "user-1" || s.MessageCount != 4 {
		t.Errorf("session = %+v", s)
	}
	if !s.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", s.CreatedAt, created)
	}
}

func TestAddMessage_AssignsIDAndUpdatesMeta(t *testing.T) {
	repo, ms := newTestRepo(t)

	var pushed string
	ms.rpushFn = func(_ context.Context, key string, values ...string) error {
		if key != "atena:session:s1:messages" {
			t.Errorf("messages key = %q", key)
		}
		pushed = values[0]
		return nil
	}
	var counted bool
	ms.hincrByFn = func(_ context.Context, _, field string, val int64) error {
		counted = field == "message_count" && val == 1
		return nil
	}
	var preview string
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		preview = fields["last_message"]
		return nil
	}

	turn, err := repo.AddMessage(context.Background(), "s1", domain.Turn{
		Role:    domain.RoleUser,
		Content: "como resetar senha",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.ID == "" || turn.CreatedAt.IsZero() {
		t.Errorf("turn not stamped: %+v", turn)
	}

	var dto messageDTO
	if err := json.Unmarshal([]byte(pushed), &dto); err != nil {
		t.Fatalf("pushed entry is not JSON: %v", err)
	}
	if dto.ID != turn.ID || dto.Role != "user" || dto.Content != "como resetar senha" {
		t.Errorf("dto = %+v", dto)
	}
	if !counted {
		t.Error("message_count not incremented")
	}
	if preview != "como resetar senha" {
		t.Errorf("last_message = %q", preview)
	}
}

func TestGetHistory_WindowsAndSkipsCorrupt(t *testing.T) {
	repo, ms := newTestRepo(t)

	entries := []string{
		mustJSON(t, messageDTO{ID: "m1", Role: "user", Content: "pergunta"}),
		"{corrupt",
		mustJSON(t, messageDTO{ID: "m2", Role: "assistant", Content: "resposta"}),
	}
	var gotStart int64
	ms.lrangeFn = func(_ context.Context, _ string, start, _ int64) ([]string, error) {
		gotStart = start
		return entries, nil
	}

	turns, err := repo.GetHistory(context.Background(), "s1", 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStart != -8 {
		t.Errorf("lrange start = %d, want -8 (last 8 entries)", gotStart)
	}
	if len(turns) != 2 || turns[0].ID != "m1" || turns[1].ID != "m2" {
		t.Errorf("turns = %+v, corrupt entries must be skipped", turns)
	}
}

func TestSetRating_UpdatesMatchingEntry(t *testing.T) {
	repo, ms := newTestRepo(t)

	entries := []string{
		mustJSON(t, messageDTO{ID: "m1", Role: "user", Content: "pergunta"}),
		mustJSON(t, messageDTO{ID: "m2", Role: "assistant", Content: "resposta", Sources: []domain.SourceRef{{ID: "d1"}}}),
	}
	ms.lrangeFn = func(_ context.Context, _ string, _, _ int64) ([]string, error) {
		return entries, nil
	}
	var setIndex int64 = -1
	var setValue string
	ms.lsetFn = func(_ context.Context, _ string, index int64, value string) error {
		setIndex = index
		setValue = value
		return nil
	}

	turn, err := repo.SetRating(context.Background(), "s1", "m2", "positivo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Rating != "positivo" || len(turn.Sources) != 1 {
		t.Errorf("turn = %+v", turn)
	}
	if setIndex != 1 {
		t.Errorf("lset index = %d, want 1", setIndex)
	}
	var dto messageDTO
	if err := json.Unmarshal([]byte(setValue), &dto); err != nil || dto.Rating != "positivo" {
		t.Errorf("stored entry = %q", setValue)
	}
}

func TestSetRating_MessageNotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.lrangeFn = func(_ context.Context, _ string, _, _ int64) ([]string, error) {
		return []string{mustJSON(t, messageDTO{ID: "m1"})}, nil
	}

	_, err := repo.SetRating(context.Background(), "s1", "missing", "positivo")
	if !errors.Is(err, domain.ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound", err)
	}
}

func TestListSessions_FiltersAndSorts(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "atena:session:*" {
			t.Errorf("scan pattern = %q", pattern)
		}
		return []string{
			"atena:session:old",
			"atena:session:old:messages",
			"atena:session:new",
			"atena:session:other",
		}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) != 3 {
			t.Errorf("meta keys = %v, message-log keys must be excluded", keys)
		}
		return []map[string]string{
			{"user_id": "user-1", "created_at": "2026-08-01T10:00:00Z"},
			{"user_id": "user-1", "created_at": "2026-08-20T10:00:00Z"},
			{"user_id": "user-2", "created_at": "2026-08-10T10:00:00Z"},
		}, nil
	}

	sessions, err := repo.ListSessions(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2 (other users filtered)", len(sessions))
	}
	if sessions[0].ID != "new" || sessions[1].ID != "old" {
		t.Errorf("order = [%s %s], want newest first", sessions[0].ID, sessions[1].ID)
	}
}

func TestDeleteSession_RemovesBothKeys(t *testing.T) {
	repo, ms := newTestRepo(t)

	deleted := map[string]bool{}
	ms.delFn = func(_ context.Context, key string) error {
		deleted[key] = true
		return nil
	}

	if err := repo.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted["atena:session:s1"] || !deleted["atena:session:s1:messages"] {
		t.Errorf("deleted = %v, want both keys", deleted)
	}
}
