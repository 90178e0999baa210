package consultation

import (
	"context"

	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
)

// Directory resolves recruiters to their company.
type Directory interface {
	GetRecruiter(ctx context.Context, recruiterID string) (recruiter.Recruiter, error)
}

// QuotaGate atomically checks and consumes a company's quota.
type QuotaGate interface {
	CheckAndDebit(ctx context.Context, companyID string, t domquota.Type) (domquota.Decision, error)
}

// ProfileStore fetches authoritative profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, candidateID string) (candidate.ProfileV1, error)
}

// IndexReader reads the indexed projection of a candidate.
type IndexReader interface {
	GetIndexed(ctx context.Context, candidateID string) (candidate.Document, error)
}

// AuditRecorder appends consultation entries.
type AuditRecorder interface {
	Record(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error)
}
