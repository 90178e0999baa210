package chi

import (
	"context"

	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	dombatch "github.com/kailas-cloud/talentdex/internal/domain/batch"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	consultationuc "github.com/kailas-cloud/talentdex/internal/usecase/consultation"
	healthuc "github.com/kailas-cloud/talentdex/internal/usecase/health"
)

// Searcher serves the public search routes (ISP).
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Page, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error)
}

// Indexer serves the internal index routes (ISP).
type Indexer interface {
	IndexCandidate(ctx context.Context, candidateID string, snap *candidate.ProfileV1) (bool, error)
	RemoveCandidate(ctx context.Context, candidateID string) error
	BulkIndex(ctx context.Context, snaps []candidate.ProfileV1) dombatch.Summary
}

// ReconcileTrigger starts a background re-synchronization.
// Trigger returns false when one is already running.
type ReconcileTrigger interface {
	Trigger() bool
}

// Consulter serves full-profile consultations (ISP).
type Consulter interface {
	ViewProfile(ctx context.Context, caller recruiter.Caller, candidateID string) (consultationuc.ProfileView, error)
}

// QuotaKeeper serves the internal quota protocol (ISP).
type QuotaKeeper interface {
	Check(ctx context.Context, companyID string, t domquota.Type) (domquota.Decision, error)
	CheckAndDebit(ctx context.Context, companyID string, t domquota.Type) (domquota.Decision, error)
	Reset(ctx context.Context, companyID string, t domquota.Type) error
}

// AuditLog serves the audit protocol and the candidate-facing listings (ISP).
type AuditLog interface {
	Record(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error)
	ListByCandidate(ctx context.Context, candidateID string, limit, offset int) ([]domaudit.Entry, int, error)
	SummaryByCandidate(ctx context.Context, candidateID string) ([]domaudit.CompanySummary, error)
	Anonymize(ctx context.Context, candidateID string) (int64, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
