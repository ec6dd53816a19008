package conversation

import (
	"time"

	"github.com/suporteia/atena/internal/domain"
)

// messageDTO is the JSON shape of one list entry in the message log.
type messageDTO struct {
	ID         string             `json:"id"`
	Role       string             `json:"role"`
	Content    string             `json:"content"`
	Sources    []domain.SourceRef `json:"sources,omitempty"`
	ModelUsed  string             `json:"model_used,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Rating     string             `json:"rating,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

func toDTO(t domain.Turn) messageDTO {
	return messageDTO{
		ID:         t.ID,
		Role:       string(t.Role),
		Content:    t.Content,
		Sources:    t.Sources,
		ModelUsed:  t.ModelUsed,
		Confidence: t.Confidence,
		Rating:     t.Rating,
		CreatedAt:  t.CreatedAt,
	}
}

func (d messageDTO) toDomain() domain.Turn {
	return domain.Turn{
		ID:         d.ID,
		Role:       domain.Role(d.Role),
		Content:    d.Content,
		Sources:    d.Sources,
		ModelUsed:  d.ModelUsed,
		Confidence: d.Confidence,
		Rating:     d.Rating,
		CreatedAt:  d.CreatedAt,
	}
}
