package answer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/suporteia/atena/internal/domain"
)

// MemoryUpserter persists a QA memory. Upserts with the same ID overwrite,
// which keeps one memory per normalized question.
type MemoryUpserter interface {
	UpsertMemory(ctx context.Context, mem domain.Memory) error
}

const memoryTitleMax = 200

// MemoryWriter captures worthy question/answer pairs.
type MemoryWriter struct {
	embedder      domain.Embedder
	store         MemoryUpserter
	minConfidence float64
	minAnswerLen  int
}

// NewMemoryWriter creates a memory writer with capture thresholds.
func NewMemoryWriter(embedder domain.Embedder, store MemoryUpserter, minConfidence float64, minAnswerLen int) *MemoryWriter {
	return &MemoryWriter{
		embedder:      embedder,
		store:         store,
		minConfidence: minConfidence,
		minAnswerLen:  minAnswerLen,
	}
}

// StoreIfWorthy persists the pair when it clears the confidence and length
// thresholds. Returns whether a memory was stored.
func (w *MemoryWriter) StoreIfWorthy(ctx context.Context, question, answer string, sources []domain.SourceRef, departments []string, confidence float64) (bool, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return false, nil
	}
	if confidence < w.minConfidence {
		return false, nil
	}
	if len([]rune(answer)) < w.minAnswerLen {
		return false, nil
	}

	primary := "Geral"
	if len(departments) > 0 {
		primary = departments[0]
	}

	sourceIDs := make([]string, 0, len(sources))
	sourceTitles := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.ID != "" {
			sourceIDs = append(sourceIDs, s.ID)
		}
		if s.Title != "" {
			sourceTitles = append(sourceTitles, s.Title)
		}
	}

	title := question
	if r := []rune(title); len(r) > memoryTitleMax {
		title = string(r[:memoryTitleMax])
	}

	key := MemoryKey(question)
	mem := domain.Memory{
		ID:           MemoryID(key),
		Key:          key,
		Title:        title,
		Content:      answer,
		Category:     primary,
		Departments:  departmentsOrDefault(departments),
		SourceIDs:    sourceIDs,
		SourceTitles: sourceTitles,
		Confidence:   confidence,
	}

	emb, err := w.embedder.Embed(ctx, title+"\n"+answer)
	if err != nil {
		return false, fmt.Errorf("embed qa memory: %w", err)
	}
	mem.Vector = emb.Embedding

	if err := w.store.UpsertMemory(ctx, mem); err != nil {
		return false, fmt.Errorf("upsert qa memory: %w", err)
	}
	return true, nil
}

// MemoryKey derives the stable dedupe key for a question.
func MemoryKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return "qa_memory_" + hex.EncodeToString(sum[:])[:24]
}

// MemoryID derives the deterministic point ID from a memory key.
func MemoryID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func departmentsOrDefault(departments []string) []string {
	if len(departments) == 0 {
		return []string{"Geral"}
	}
	return departments
}
