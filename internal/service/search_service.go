package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

const searchLimit = 20

type studentSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]models.Student, error)
}

type pairSearcher interface {
	List(ctx context.Context, filter models.CoursePairFilter) ([]models.CoursePair, error)
}

// SearchService runs the global search across students and pairs.
type SearchService struct {
	students studentSearcher
	pairs    pairSearcher
}

// NewSearchService constructs the search service.
func NewSearchService(students studentSearcher, pairs pairSearcher) *SearchService {
	return &SearchService{students: students, pairs: pairs}
}

// Search matches students by name, phone, national id or number and pairs by name or
// course code. Queries shorter than two characters are rejected.
func (s *SearchService) Search(ctx context.Context, query string) (*dto.SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "query must have at least 2 characters")
	}
	students, err := s.students.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search students")
	}
	pairs, err := s.pairs.List(ctx, models.CoursePairFilter{Search: query})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search pairs")
	}

	result := &dto.SearchResult{
		Query:    query,
		Students: students,
		Pairs:    make([]dto.PairHit, 0, len(pairs)),
	}
	if result.Students == nil {
		result.Students = []models.Student{}
	}
	for _, pair := range pairs {
		result.Pairs = append(result.Pairs, dto.PairHit{
			ID:          pair.ID,
			Name:        pair.Name,
			Period:      pair.Period,
			CourseCodes: pair.CourseCodes,
			Active:      pair.Active,
		})
	}
	return result, nil
}
