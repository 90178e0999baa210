package consultation

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type mockDirectory struct {
	recruiters map[string]recruiter.Recruiter
	err        error
}

func (m *mockDirectory) GetRecruiter(_ context.Context, id string) (recruiter.Recruiter, error) {
	if m.err != nil {
		return recruiter.Recruiter{}, m.err
	}
	r, ok := m.recruiters[id]
	if !ok {
		return recruiter.Recruiter{}, domain.ErrUnauthorized
	}
	return r, nil
}

// mockGate meters a single company with an atomic counter.
type mockGate struct {
	mu    sync.Mutex
	used  int
	limit int
	calls int
	err   error
}

func (m *mockGate) CheckAndDebit(_ context.Context, _ string, _ domquota.Type) (domquota.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domquota.Decision{}, m.err
	}
	p := domquota.MonthOf(testNow)
	if m.used >= m.limit {
		return domquota.Metered(false, m.used, m.limit, p), nil
	}
	m.used++
	return domquota.Metered(true, m.used, m.limit, p), nil
}

type mockProfiles struct {
	profiles map[string]candidate.ProfileV1
	block    bool
	err      error
	calls    int
}

func (m *mockProfiles) GetProfile(ctx context.Context, id string) (candidate.ProfileV1, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return candidate.ProfileV1{}, ctx.Err()
	}
	if m.err != nil {
		return candidate.ProfileV1{}, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return candidate.ProfileV1{}, domain.ErrCandidateNotFound
	}
	return p, nil
}

type mockIndex struct {
	docs map[string]candidate.Document
	err  error
}

func (m *mockIndex) GetIndexed(_ context.Context, id string) (candidate.Document, error) {
	if m.err != nil {
		return candidate.Document{}, m.err
	}
	d, ok := m.docs[id]
	if !ok {
		return candidate.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

type mockAudit struct {
	mu      sync.Mutex
	entries []domaudit.Entry
	ctxErrs []error
	err     error
	release chan struct{}
}

func (m *mockAudit) Record(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error) {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.err != nil {
		return domaudit.Entry{}, m.err
	}
	m.entries = append(m.entries, e)
	return e, nil
}

type fixture struct {
	dir      *mockDirectory
	gate     *mockGate
	profiles *mockProfiles
	index    *mockIndex
	audit    *mockAudit
}

func newFixture() *fixture {
	score := 4.5
	return &fixture{
		dir: &mockDirectory{recruiters: map[string]recruiter.Recruiter{
			"rec-1": {ID: "rec-1", Email: "rh@acme.io", CompanyID: "co-1", CompanyName: "Acme"},
			"rec-2": {ID: "rec-2", Email: "solo@free.io"},
		}},
		gate: &mockGate{limit: 5},
		profiles: &mockProfiles{profiles: map[string]candidate.ProfileV1{
			"cand-1": {CandidateID: "cand-1", Email: "alice@x.io", FirstName: "Alice", LastName: "Martin", Status: "VALIDATED"},
		}},
		index: &mockIndex{docs: map[string]candidate.Document{
			"cand-1": {CandidateID: "cand-1", AdminScore: &score, IsVerified: true},
		}},
		audit: &mockAudit{},
	}
}

func (f *fixture) service(opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(f.dir, f.gate, f.profiles, f.index, f.audit, opts...)
}

var caller = recruiter.Caller{RecruiterID: "rec-1", IPAddress: "10.0.0.7", UserAgent: "Mozilla/5.0"}
