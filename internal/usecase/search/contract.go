package search

import (
	"context"

	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
)

// Repository defines the engine contract for candidate search.
type Repository interface {
	Search(ctx context.Context, req request.Request) (result.Page, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error)
}
