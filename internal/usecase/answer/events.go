package answer

import "github.com/suporteia/atena/internal/domain"

// EventType tags a stream event.
type EventType string

// Stream event types. Sources always precedes the first Token; Error and
// Done are terminal and exactly one terminal event is emitted per stream.
const (
	EventSources    EventType = "sources"
	EventConfidence EventType = "confidence"
	EventToken      EventType = "token"
	EventMetadata   EventType = "metadata"
	EventHeartbeat  EventType = "heartbeat"
	EventError      EventType = "error"
	EventDone       EventType = "done"
)

// Metadata closes an answered stream with persistence and attribution info.
type Metadata struct {
	SessionID  string  `json:"session_id,omitempty"`
	MessageID  string  `json:"message_id,omitempty"`
	Persisted  bool    `json:"persisted"`
	Provider   string  `json:"provider,omitempty"`
	Model      string  `json:"model,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Event is one element of the ordered answer stream.
type Event struct {
	Type       EventType
	Sources    []domain.SourceRef
	Token      string
	Confidence float64
	Level      domain.Level
	Metadata   *Metadata
	Message    string // error events only
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventError || e.Type == EventDone
}
