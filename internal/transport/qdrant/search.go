package qdrant

import (
	"context"
	"fmt"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/suporteia/atena/internal/domain"
)

// SearchVector returns candidates by embedding similarity, filtered to the
// detected departments when any were classified.
func (s *Store) SearchVector(ctx context.Context, vector []float32, departments []string, limit int, minScore float64) ([]domain.Document, error) {
	points, err := s.client.Query(ctx, &qd.QueryPoints{
		CollectionName: s.collection,
		Query:          qd.NewQuery(vector...),
		Filter:         departmentFilter(departments),
		Limit:          qd.PtrOf(uint64(limit)),
		ScoreThreshold: qd.PtrOf(float32(minScore)),
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	docs := make([]domain.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, documentFromPayload(pointIDString(p.Id), p.Payload, float64(p.Score)))
	}
	return docs, nil
}

// SearchLexical returns candidates by full-text match on the content field.
// Hits carry no score; the ranking layer scores them by term overlap.
func (s *Store) SearchLexical(ctx context.Context, queryText string, departments []string, limit int) ([]domain.Document, error) {
	filter := departmentFilter(departments)
	if filter == nil {
		filter = &qd.Filter{}
	}
	filter.Must = append(filter.Must, qd.NewMatchText(fieldContent, queryText))

	points, err := s.client.Scroll(ctx, &qd.ScrollPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Limit:          qd.PtrOf(uint32(limit)),
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	docs := make([]domain.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, documentFromPayload(pointIDString(p.Id), p.Payload, 0))
	}
	return docs, nil
}

// departmentFilter matches points tagged with any of the given departments.
// Untagged queries search the whole collection.
func departmentFilter(departments []string) *qd.Filter {
	if len(departments) == 0 {
		return nil
	}
	return &qd.Filter{
		Should: []*qd.Condition{qd.NewMatchKeywords(fieldDepartments, departments...)},
	}
}
