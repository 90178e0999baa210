// Package quota meters access to paid features per subscription and calendar month.
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/metrics"
)

// Service decides and records metered consumption.
type Service struct {
	ledger Ledger
	subs   SubscriptionReader
	now    func() time.Time
}

// New creates a quota service.
func New(ledger Ledger, subs SubscriptionReader) *Service {
	return &Service{ledger: ledger, subs: subs, now: time.Now}
}

// WithClock overrides the time source that selects the period.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Check reports the company's quota state without consuming it.
func (s *Service) Check(ctx context.Context, companyID string, t domquota.Type) (domquota.Decision, error) {
	sub, err := s.company(ctx, companyID)
	if err != nil {
		return domquota.Decision{}, err
	}
	limit, metered := sub.LimitFor(t)
	if !metered {
		return domquota.Unmetered(), nil
	}
	p := domquota.MonthOf(s.now())
	used, err := s.ledger.Used(ctx, sub.ID, t, p)
	if err != nil {
		return domquota.Decision{}, fmt.Errorf("read quota: %w", err)
	}
	return domquota.Metered(used < limit, used, limit, p), nil
}

// CheckAndDebit consumes one unit of the company's quota when available.
// A denial is a Decision with Allowed=false and a nil error.
func (s *Service) CheckAndDebit(ctx context.Context, companyID string, t domquota.Type) (domquota.Decision, error) {
	sub, err := s.company(ctx, companyID)
	if err != nil {
		return domquota.Decision{}, err
	}
	return s.debit(ctx, sub, t)
}

// CheckAndDebitSubscription consumes one unit of a subscription's quota when available.
func (s *Service) CheckAndDebitSubscription(
	ctx context.Context, subscriptionID string, t domquota.Type,
) (domquota.Decision, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return domquota.Decision{}, domain.Validationf("subscription_id is required")
	}
	sub, err := s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return domquota.Decision{}, fmt.Errorf("resolve subscription: %w", err)
	}
	return s.debit(ctx, sub, t)
}

// Reset zeroes the company's counter for the current period (billing-cycle renewal).
func (s *Service) Reset(ctx context.Context, companyID string, t domquota.Type) error {
	sub, err := s.company(ctx, companyID)
	if err != nil {
		return err
	}
	if err := s.ledger.Reset(ctx, sub.ID, t, domquota.MonthOf(s.now())); err != nil {
		return fmt.Errorf("reset quota: %w", err)
	}
	return nil
}

// debit short-circuits unmetered plans without touching the ledger.
func (s *Service) debit(ctx context.Context, sub domquota.Subscription, t domquota.Type) (domquota.Decision, error) {
	limit, metered := sub.LimitFor(t)
	if !metered {
		metrics.QuotaDecisionsTotal.WithLabelValues(string(t), "unmetered").Inc()
		return domquota.Unmetered(), nil
	}

	p := domquota.MonthOf(s.now())
	used, granted, err := s.ledger.TryDebit(ctx, sub.ID, t, p, limit)
	if err != nil {
		return domquota.Decision{}, fmt.Errorf("debit quota: %w", err)
	}
	if granted {
		metrics.QuotaDecisionsTotal.WithLabelValues(string(t), "allowed").Inc()
	} else {
		metrics.QuotaDecisionsTotal.WithLabelValues(string(t), "denied").Inc()
	}
	return domquota.Metered(granted, used, limit, p), nil
}

func (s *Service) company(ctx context.Context, companyID string) (domquota.Subscription, error) {
	if strings.TrimSpace(companyID) == "" {
		return domquota.Subscription{}, domain.Validationf("company_id is required")
	}
	sub, err := s.subs.ActiveByCompany(ctx, companyID)
	if err != nil {
		return domquota.Subscription{}, fmt.Errorf("resolve subscription: %w", err)
	}
	return sub, nil
}
