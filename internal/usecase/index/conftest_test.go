package index

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// mockRepo is an in-memory Repository.
type mockRepo struct {
	mu         sync.Mutex
	docs       map[string]candidate.Document
	upsertErr  error
	manyErrs   map[string]error
	deleteErr  error
	upsertMany int
}

func newMockRepo() *mockRepo { return &mockRepo{docs: map[string]candidate.Document{}} }

func (m *mockRepo) Upsert(_ context.Context, doc *candidate.Document) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.CandidateID] = *doc
	return nil
}

func (m *mockRepo) UpsertMany(_ context.Context, docs []candidate.Document) []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertMany++
	errs := make([]error, len(docs))
	for i, d := range docs {
		if err := m.manyErrs[d.CandidateID]; err != nil {
			errs[i] = err
			continue
		}
		m.docs[d.CandidateID] = d
	}
	return errs
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (candidate.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return candidate.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockRepo) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockBoot struct {
	ready   bool
	ensures int
	err     error
}

func (m *mockBoot) Ready() bool { return m.ready }

func (m *mockBoot) Ensure(context.Context) error {
	m.ensures++
	if m.err == nil {
		m.ready = true
	}
	return m.err
}

// mockProfiles serves snapshots from memory.
type mockProfiles struct {
	byID     map[string]candidate.ProfileV1
	pages    [][]candidate.ProfileV1
	getErr   error
	listErr  error
	requests []int
}

func (m *mockProfiles) GetProfile(_ context.Context, id string) (candidate.ProfileV1, error) {
	if m.getErr != nil {
		return candidate.ProfileV1{}, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return candidate.ProfileV1{}, domain.ErrCandidateNotFound
	}
	return p, nil
}

func (m *mockProfiles) ListValidated(_ context.Context, page, _ int) ([]candidate.ProfileV1, bool, error) {
	m.requests = append(m.requests, page)
	if m.listErr != nil {
		return nil, false, m.listErr
	}
	if page > len(m.pages) {
		return nil, false, nil
	}
	return m.pages[page-1], page < len(m.pages), nil
}

func profile(id, status string) candidate.ProfileV1 {
	return candidate.ProfileV1{
		CandidateID: id,
		FullName:    "Alice Martin",
		Title:       "Développeuse Go",
		Status:      status,
	}
}

func newTestService(repo *mockRepo, boot Bootstrapper, profiles ProfileSource) *Service {
	return New(repo, boot, profiles, nil).WithClock(func() time.Time { return testNow })
}
