package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/usecase/answer"
)

// errStreamingUnsupported means the ResponseWriter cannot flush, so SSE
// cannot work through it.
var errStreamingUnsupported = errors.New("response writer does not support streaming")

// sseWriter frames stream events as server-sent events. Every event is a
// single `data:` frame carrying `{"type": ..., "data": ...}`; heartbeats go
// out as comment frames so clients parsing the JSON stream never see them.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &sseWriter{w: w, f: f}, nil
}

// envelope is the wire shape of one stream event.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (s *sseWriter) writeEnvelope(ev envelope) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	s.f.Flush()
	return nil
}

// comment writes an SSE comment frame (keeps the connection alive without
// entering the event stream).
func (s *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("write sse comment: %w", err)
	}
	s.f.Flush()
	return nil
}

// errorThenDone writes the error/done frame pair used for every failed
// stream, including validation failures before the stream starts.
func (s *sseWriter) errorThenDone(message string) error {
	if err := s.writeEnvelope(envelope{Type: "error", Data: map[string]string{"message": message}}); err != nil {
		return err
	}
	return s.writeEnvelope(envelope{Type: "done"})
}

// writeEvent translates one orchestrator event to its wire frame. Terminal
// Error events expand to the error/done pair.
func (s *sseWriter) writeEvent(ev answer.Event) error {
	switch ev.Type {
	case answer.EventSources:
		sources := ev.Sources
		if sources == nil {
			sources = []domain.SourceRef{}
		}
		return s.writeEnvelope(envelope{Type: "sources", Data: sources})
	case answer.EventConfidence:
		return s.writeEnvelope(envelope{Type: "confidence", Data: ev.Confidence})
	case answer.EventToken:
		return s.writeEnvelope(envelope{Type: "token", Data: ev.Token})
	case answer.EventMetadata:
		return s.writeEnvelope(envelope{Type: "metadata", Data: ev.Metadata})
	case answer.EventHeartbeat:
		return s.comment("heartbeat")
	case answer.EventError:
		return s.errorThenDone(ev.Message)
	case answer.EventDone:
		return s.writeEnvelope(envelope{Type: "done"})
	default:
		return nil
	}
}
