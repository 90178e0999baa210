package search

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/talentdex/internal/db"
	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	repocand "github.com/kailas-cloud/talentdex/internal/repository/candidate"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	queries  []*db.SearchQuery
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.queries = append(m.queries, q)
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

type mockEnsurer struct {
	calls int
	err   error
}

func (m *mockEnsurer) Ensure(context.Context) error {
	m.calls++
	return m.err
}

func newTestRepo(t *testing.T, opts ...Option) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	repo := New(ms, NewBuilder(repocand.IndexName, nil), Config{Window: 50, Model: ranking.Default()}, opts...)
	return repo, ms
}

func mustRequest(t *testing.T, kind request.Kind, query string, f request.Filters, page, size int, opts ...request.Option) request.Request {
	t.Helper()
	r, err := request.New(kind, query, f, page, size, opts...)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return r
}

func testDoc(id string, years int, admin *float64, verified bool) domcand.Document {
	return domcand.Document{
		CandidateID:       id,
		Title:             "Développeur Java",
		Summary:           "Java et Spring depuis des années.",
		YearsOfExperience: years,
		IsVerified:        verified,
		Status:            domcand.StatusValidated,
		AdminScore:        admin,
		ValidatedAt:       testNow.Add(-24 * time.Hour),
		CreatedAt:         testNow.Add(-48 * time.Hour),
	}
}

func entry(t *testing.T, doc domcand.Document, score float64) db.SearchEntry {
	t.Helper()
	data, err := repocand.Encode(&doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return db.SearchEntry{Key: repocand.Key(doc.CandidateID), Score: score, Fields: map[string]string{"$": string(data)}}
}

func ptr[T any](v T) *T { return &v }
