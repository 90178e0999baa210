// Package search serves ranked candidate searches and autocomplete.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	"github.com/kailas-cloud/talentdex/internal/logger"
	"github.com/kailas-cloud/talentdex/internal/metrics"
)

// Service executes validated search requests.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a search service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Search runs a facet or text search and records its latency.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Page, error) {
	start := s.now()
	page, err := s.repo.Search(ctx, req)
	metrics.SearchDuration.
		WithLabelValues(string(req.Kind()), outcome(err)).
		Observe(s.now().Sub(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrSearchUnavailable) {
			logger.FromContext(ctx).Warn("search engine unavailable",
				zap.String("kind", string(req.Kind())), zap.Error(err))
		}
		return result.Page{}, fmt.Errorf("search candidates: %w", err)
	}
	return page, nil
}

// Suggest returns autocomplete suggestions for a prefix.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error) {
	start := s.now()
	out, err := s.repo.Suggest(ctx, prefix, limit)
	metrics.SearchDuration.WithLabelValues("suggest", outcome(err)).Observe(s.now().Sub(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
