package qdrant

import (
	"strconv"
	"time"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/suporteia/atena/internal/domain"
)

// Payload fields of a knowledge-base point.
const (
	fieldTitle        = "title"
	fieldCategory     = "category"
	fieldContent      = "content"
	fieldDepartments  = "departments"
	fieldUpdatedAt    = "updated_at"
	fieldHelpfulVotes = "helpful_votes"
	fieldComplaints   = "complaints"
	fieldUsageCount   = "usage_count"
)

// documentFromPayload maps a point payload into a retrieval candidate.
func documentFromPayload(id string, payload map[string]*qd.Value, score float64) domain.Document {
	doc := domain.Document{
		ID:          id,
		Title:       payloadString(payload, fieldTitle),
		Category:    payloadString(payload, fieldCategory),
		Content:     payloadString(payload, fieldContent),
		Departments: payloadStrings(payload, fieldDepartments),
		UpdatedAt:   payloadTime(payload, fieldUpdatedAt),
		Feedback: domain.Feedback{
			HelpfulVotes: payloadInt(payload, fieldHelpfulVotes),
			Complaints:   payloadInt(payload, fieldComplaints),
			UsageCount:   payloadInt(payload, fieldUsageCount),
		},
		Score: score,
	}
	doc.Signals.VectorScore = score
	return doc
}

// memoryPayload builds the point payload for a QA memory.
func memoryPayload(mem domain.Memory) map[string]any {
	departments := make([]any, len(mem.Departments))
	for i, d := range mem.Departments {
		departments[i] = d
	}
	sourceIDs := make([]any, len(mem.SourceIDs))
	for i, id := range mem.SourceIDs {
		sourceIDs[i] = id
	}
	sourceTitles := make([]any, len(mem.SourceTitles))
	for i, t := range mem.SourceTitles {
		sourceTitles[i] = t
	}

	return map[string]any{
		fieldTitle:       mem.Title,
		fieldCategory:    mem.Category,
		fieldContent:     mem.Content,
		fieldDepartments: departments,
		fieldUpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		"doc_type":       "qa_memory",
		"memory_key":     mem.Key,
		"source_ids":     sourceIDs,
		"source_titles":  sourceTitles,
		"confidence":     mem.Confidence,
		"origin":         "chat_history",
	}
}

func pointIDString(id *qd.PointId) string {
	switch opt := id.GetPointIdOptions().(type) {
	case *qd.PointId_Uuid:
		return opt.Uuid
	case *qd.PointId_Num:
		return strconv.FormatUint(opt.Num, 10)
	default:
		return ""
	}
}

func payloadString(payload map[string]*qd.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(payload map[string]*qd.Value, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	if n := v.GetIntegerValue(); n != 0 {
		return int(n)
	}
	return int(v.GetDoubleValue())
}

func payloadStrings(payload map[string]*qd.Value, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		if s := v.GetStringValue(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list.Values))
	for _, item := range list.Values {
		if s := item.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func payloadTime(payload map[string]*qd.Value, key string) time.Time {
	s := payloadString(payload, key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
