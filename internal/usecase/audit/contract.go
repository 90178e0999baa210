package audit

import (
	"context"

	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
)

// Repository defines the append-only storage contract for consultation entries.
type Repository interface {
	Insert(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error)
	ListByCandidate(ctx context.Context, candidateID string, limit, offset int) ([]domaudit.Entry, int, error)
	SummaryByCandidate(ctx context.Context, candidateID string) ([]domaudit.CompanySummary, error)
	Anonymize(ctx context.Context, candidateID string) (int64, error)
}
