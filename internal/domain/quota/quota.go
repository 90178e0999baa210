// Package quota models metered access to paid features.
package quota

import (
	"strings"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// Type identifies a metered feature.
type Type string

// TypeProfileViews meters full-profile consultations.
const TypeProfileViews Type = "profile_views"

// ParseType resolves a quota type; empty means profile views.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "", TypeProfileViews:
		return TypeProfileViews, nil
	default:
		return "", domain.Validationf("unknown quota type %q", s)
	}
}

// Tier is a plan tier.
type Tier string

// Plan tiers. Only FREEMIUM is metered.
const (
	TierFreemium   Tier = "FREEMIUM"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// Unmetered reports whether the tier grants unlimited access regardless of plan limits.
func (t Tier) Unmetered() bool { return t == TierPro || t == TierEnterprise }

// Subscription is a company's active subscription with its plan limits.
type Subscription struct {
	ID        string
	CompanyID string
	Tier      Tier
	// Limits maps a quota type to its per-period limit. A missing entry is unlimited.
	Limits map[Type]int
}

// LimitFor returns the period limit for t and whether t is metered.
func (s Subscription) LimitFor(t Type) (int, bool) {
	if s.Tier.Unmetered() {
		return 0, false
	}
	limit, ok := s.Limits[t]
	return limit, ok
}

// Period is a calendar month in UTC.
type Period struct {
	Start time.Time
}

// MonthOf returns the period containing t.
func MonthOf(t time.Time) Period {
	u := t.UTC()
	return Period{Start: time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// End returns the first instant of the next period.
func (p Period) End() time.Time { return p.Start.AddDate(0, 1, 0) }

// Key is the compact period identifier ("2026-03").
func (p Period) Key() string { return p.Start.Format("2006-01") }

// Decision is the outcome of a check or check-and-debit.
type Decision struct {
	Allowed   bool
	Metered   bool
	Used      int
	Limit     int
	ResetDate time.Time
}

// Unmetered is the decision for plans without a limit.
func Unmetered() Decision { return Decision{Allowed: true} }

// Metered builds a metered decision for period p.
func Metered(allowed bool, used, limit int, p Period) Decision {
	return Decision{Allowed: allowed, Metered: true, Used: used, Limit: limit, ResetDate: p.End()}
}

// Remaining returns the views left in the period, or nil when unmetered.
func (d Decision) Remaining() *int {
	if !d.Metered {
		return nil
	}
	r := max(0, d.Limit-d.Used)
	return &r
}

// Err returns the quota exceeded error for a denied decision, nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.NewQuotaExceeded(d.Used, d.Limit, d.ResetDate)
}
