package index

import (
	"context"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// Repository defines the storage contract for indexed candidates.
type Repository interface {
	Upsert(ctx context.Context, doc *candidate.Document) error
	UpsertMany(ctx context.Context, docs []candidate.Document) []error
	Delete(ctx context.Context, candidateID string) error
	Get(ctx context.Context, candidateID string) (candidate.Document, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Bootstrapper creates the search index on demand.
type Bootstrapper interface {
	Ready() bool
	Ensure(ctx context.Context) error
}

// ProfileSource reads authoritative profile snapshots.
type ProfileSource interface {
	GetProfile(ctx context.Context, candidateID string) (candidate.ProfileV1, error)
	// ListValidated returns one page of validated profiles and whether more pages follow.
	ListValidated(ctx context.Context, page, size int) ([]candidate.ProfileV1, bool, error)
}
