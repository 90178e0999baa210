// Package quota persists subscriptions and per-period usage counters.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
)

// querier is the consumer interface over a pgx pool (ISP).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// The debit succeeds only while used < limit; a skipped update returns no row.
const debitSQL = `
INSERT INTO quotas (subscription_id, quota_type, period_start, used, quota_limit, updated_at)
VALUES ($1, $2, $3, 1, $4, now())
ON CONFLICT (subscription_id, quota_type, period_start)
DO UPDATE SET used = quotas.used + 1, quota_limit = EXCLUDED.quota_limit, updated_at = now()
WHERE quotas.used < EXCLUDED.quota_limit
RETURNING used`

const usedSQL = `
SELECT used FROM quotas
WHERE subscription_id = $1 AND quota_type = $2 AND period_start = $3`

const resetSQL = `
UPDATE quotas SET used = 0, updated_at = now()
WHERE subscription_id = $1 AND quota_type = $2 AND period_start = $3`

// PostgresLedger implements usecase/quota.Ledger on the quotas table.
type PostgresLedger struct {
	db querier
}

// NewPostgresLedger creates a ledger over a pgx pool.
func NewPostgresLedger(db querier) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Used returns the consumption of the period. A missing row counts as zero.
func (l *PostgresLedger) Used(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period) (int, error) {
	var used int
	err := l.db.QueryRow(ctx, usedSQL, subscriptionID, string(t), p.Start).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select quota %s/%s: %w", subscriptionID, t, err)
	}
	return used, nil
}

// TryDebit consumes one unit when the period is below limit, creating the row on first use.
// It reports the usage after the attempt and whether the unit was granted.
func (l *PostgresLedger) TryDebit(
	ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period, limit int,
) (int, bool, error) {
	if limit <= 0 {
		used, err := l.Used(ctx, subscriptionID, t, p)
		return used, false, err
	}

	var used int
	err := l.db.QueryRow(ctx, debitSQL, subscriptionID, string(t), p.Start, limit).Scan(&used)
	switch {
	case err == nil:
		return used, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		used, err := l.Used(ctx, subscriptionID, t, p)
		return used, false, err
	default:
		return 0, false, fmt.Errorf("debit quota %s/%s: %w", subscriptionID, t, err)
	}
}

// Reset zeroes the period counter.
func (l *PostgresLedger) Reset(ctx context.Context, subscriptionID string, t domquota.Type, p domquota.Period) error {
	if _, err := l.db.Exec(ctx, resetSQL, subscriptionID, string(t), p.Start); err != nil {
		return fmt.Errorf("reset quota %s/%s: %w", subscriptionID, t, err)
	}
	return nil
}

const subscriptionSQL = `
SELECT s.id, s.company_id, p.tier, l.quota_type, l.quota_limit
FROM subscriptions s
JOIN plans p ON p.id = s.plan_id
LEFT JOIN plan_limits l ON l.plan_id = p.id
WHERE s.status = 'ACTIVE' AND `

// Subscriptions reads active subscriptions and their plan limits.
type Subscriptions struct {
	db querier
}

// NewSubscriptions creates a subscription reader.
func NewSubscriptions(db querier) *Subscriptions {
	return &Subscriptions{db: db}
}

// ActiveByCompany returns the most recent active subscription of a company.
func (s *Subscriptions) ActiveByCompany(ctx context.Context, companyID string) (domquota.Subscription, error) {
	return s.load(ctx, subscriptionSQL+`s.company_id = $1 ORDER BY s.created_at DESC, s.id`, companyID)
}

// Get returns an active subscription by id.
func (s *Subscriptions) Get(ctx context.Context, subscriptionID string) (domquota.Subscription, error) {
	return s.load(ctx, subscriptionSQL+`s.id = $1`, subscriptionID)
}

func (s *Subscriptions) load(ctx context.Context, sql, arg string) (domquota.Subscription, error) {
	rows, err := s.db.Query(ctx, sql, arg)
	if err != nil {
		return domquota.Subscription{}, fmt.Errorf("query subscription %s: %w", arg, err)
	}
	defer rows.Close()

	var sub domquota.Subscription
	for rows.Next() {
		var (
			id, companyID, tier string
			quotaType           *string
			limit               *int
		)
		if err := rows.Scan(&id, &companyID, &tier, &quotaType, &limit); err != nil {
			return domquota.Subscription{}, fmt.Errorf("scan subscription: %w", err)
		}
		if sub.ID == "" {
			sub = domquota.Subscription{
				ID: id, CompanyID: companyID, Tier: domquota.Tier(tier), Limits: map[domquota.Type]int{},
			}
		}
		if id != sub.ID {
			// older subscription of the same company
			continue
		}
		if quotaType != nil && limit != nil {
			sub.Limits[domquota.Type(*quotaType)] = *limit
		}
	}
	if err := rows.Err(); err != nil {
		return domquota.Subscription{}, fmt.Errorf("iterate subscription: %w", err)
	}
	if sub.ID == "" {
		return domquota.Subscription{}, domain.ErrNoSubscription
	}
	return sub, nil
}
