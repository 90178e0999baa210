package quota

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type counterKey struct {
	sub    string
	t      domquota.Type
	period string
}

// memLedger is an atomic in-memory Ledger.
type memLedger struct {
	mu       sync.Mutex
	used     map[counterKey]int
	calls    int
	debitErr error
}

func newMemLedger() *memLedger { return &memLedger{used: map[counterKey]int{}} }

func (m *memLedger) Used(_ context.Context, sub string, t domquota.Type, p domquota.Period) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.used[counterKey{sub, t, p.Key()}], nil
}

func (m *memLedger) TryDebit(
	_ context.Context, sub string, t domquota.Type, p domquota.Period, limit int,
) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.debitErr != nil {
		return 0, false, m.debitErr
	}
	k := counterKey{sub, t, p.Key()}
	if m.used[k] >= limit {
		return m.used[k], false, nil
	}
	m.used[k]++
	return m.used[k], true, nil
}

func (m *memLedger) Reset(_ context.Context, sub string, t domquota.Type, p domquota.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	delete(m.used, counterKey{sub, t, p.Key()})
	return nil
}

func (m *memLedger) set(sub string, used int) {
	m.used[counterKey{sub, domquota.TypeProfileViews, domquota.MonthOf(testNow).Key()}] = used
}

func (m *memLedger) get(sub string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[counterKey{sub, domquota.TypeProfileViews, domquota.MonthOf(testNow).Key()}]
}

type mockSubs struct {
	byCompany map[string]domquota.Subscription
}

func (m *mockSubs) ActiveByCompany(_ context.Context, companyID string) (domquota.Subscription, error) {
	sub, ok := m.byCompany[companyID]
	if !ok {
		return domquota.Subscription{}, domain.ErrNoSubscription
	}
	return sub, nil
}

func (m *mockSubs) Get(_ context.Context, id string) (domquota.Subscription, error) {
	for _, sub := range m.byCompany {
		if sub.ID == id {
			return sub, nil
		}
	}
	return domquota.Subscription{}, domain.ErrNoSubscription
}

func freemium(limit int) domquota.Subscription {
	return domquota.Subscription{
		ID: "sub-free", CompanyID: "co-free", Tier: domquota.TierFreemium,
		Limits: map[domquota.Type]int{domquota.TypeProfileViews: limit},
	}
}

func newTestService(ledger *memLedger, subs ...domquota.Subscription) *Service {
	ms := &mockSubs{byCompany: map[string]domquota.Subscription{}}
	for _, s := range subs {
		ms.byCompany[s.CompanyID] = s
	}
	return New(ledger, ms).WithClock(func() time.Time { return testNow })
}
