package qdrant

import (
	"context"
	"fmt"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/suporteia/atena/internal/domain"
)

// UpsertMemory writes a QA memory point. Re-answering the same normalized
// question overwrites the previous memory because the point ID is derived
// from the question.
func (s *Store) UpsertMemory(ctx context.Context, mem domain.Memory) error {
	_, err := s.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qd.PtrOf(true),
		Points: []*qd.PointStruct{{
			Id:      qd.NewID(mem.ID),
			Vectors: qd.NewVectors(mem.Vector...),
			Payload: qd.NewValueMap(memoryPayload(mem)),
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert memory point: %w", err)
	}
	return nil
}

// ApplyFeedback bumps the helpful or complaint counter on the given points.
func (s *Store) ApplyFeedback(ctx context.Context, docIDs []string, helpful bool) error {
	field := fieldComplaints
	if helpful {
		field = fieldHelpfulVotes
	}
	return s.incrementCounter(ctx, docIDs, field)
}

// RegisterUsage bumps the usage counter on documents cited in an answer.
func (s *Store) RegisterUsage(ctx context.Context, docIDs []string) error {
	return s.incrementCounter(ctx, docIDs, fieldUsageCount)
}

// incrementCounter reads the current counter per point and writes it back
// incremented. Lost updates under concurrency are acceptable for ranking
// counters.
func (s *Store) incrementCounter(ctx context.Context, docIDs []string, field string) error {
	if len(docIDs) == 0 {
		return nil
	}

	ids := make([]*qd.PointId, 0, len(docIDs))
	for _, id := range docIDs {
		ids = append(ids, qd.NewID(id))
	}

	points, err := s.client.Get(ctx, &qd.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return fmt.Errorf("get points for %s: %w", field, err)
	}

	for _, p := range points {
		current := payloadInt(p.Payload, field)
		_, err := s.client.SetPayload(ctx, &qd.SetPayloadPoints{
			CollectionName: s.collection,
			Payload:        qd.NewValueMap(map[string]any{field: current + 1}),
			PointsSelector: qd.NewPointsSelector(p.Id),
		})
		if err != nil {
			return fmt.Errorf("set %s on %s: %w", field, pointIDString(p.Id), err)
		}
	}
	return nil
}
