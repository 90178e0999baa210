package quota

import (
	"context"

	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
)

// Ledger stores per-period usage counters. TryDebit must be a single atomic
// check-and-increment.
type Ledger interface {
	Used(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period) (int, error)
	TryDebit(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period, limit int) (
		used int, granted bool, err error,
	)
	Reset(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period) error
}

// SubscriptionReader resolves active subscriptions and their plan limits.
type SubscriptionReader interface {
	ActiveByCompany(ctx context.Context, companyID string) (domquota.Subscription, error)
	Get(ctx context.Context, subscriptionID string) (domquota.Subscription, error)
}
