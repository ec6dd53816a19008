package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SourceRef is the compact source citation attached to an assistant turn.
type SourceRef struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
}

// Turn is one message in a conversation session.
type Turn struct {
	ID         string
	Role       Role
	Content    string
	Sources    []SourceRef // assistant turns only
	ModelUsed  string
	Confidence float64
	Rating     string // user feedback on an assistant turn, empty until rated
	CreatedAt  time.Time
}

// Session is a conversation container keyed by an opaque id.
type Session struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	MessageCount int
	LastMessage  string
}

// SourceRefs converts a final document set into citation records.
func SourceRefs(docs []Document, snippetLen int) []SourceRef {
	refs := make([]SourceRef, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		refs = append(refs, SourceRef{
			ID:       d.ID,
			Title:    d.Title,
			Category: d.Category,
			Score:    Clamp01(d.Score),
			Snippet:  d.Snippet(240),
		})
	}
	return refs
}
