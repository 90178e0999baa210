package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/talentdex/internal/db"
	"github.com/kailas-cloud/talentdex/internal/domain"
	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	"github.com/kailas-cloud/talentdex/internal/domain/synonym"
	repocand "github.com/kailas-cloud/talentdex/internal/repository/candidate"
)

// --- Search ---

func TestSearch_RerankAndPage(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 3,
			Entries: []db.SearchEntry{
				entry(t, testDoc("plain", 0, nil, false), 2.0),
				entry(t, testDoc("star", 10, ptr(5.0), true), 1.5),
				entry(t, testDoc("mid", 3, ptr(3.0), false), 1.8),
			},
		}, nil
	}

	req := mustRequest(t, request.KindText, "java", request.Filters{}, 1, 2)
	page, err := repo.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || page.Page != 1 || page.Size != 2 {
		t.Errorf("page meta = %d/%d/%d", page.Total, page.Page, page.Size)
	}
	if len(page.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(page.Hits))
	}
	if page.Hits[0].ID() != "star" || page.Hits[1].ID() != "mid" {
		t.Errorf("order = %s, %s", page.Hits[0].ID(), page.Hits[1].ID())
	}
	if page.Hits[0].BaseScore() != 1.5 || page.Hits[0].Score() <= page.Hits[0].BaseScore() {
		t.Errorf("boost not applied: %+v", page.Hits[0])
	}
}

func TestSearch_WindowCoversRequestedPage(t *testing.T) {
	repo, ms := newTestRepo(t)
	req := mustRequest(t, request.KindFacet, "", request.Filters{}, 4, 20)
	if _, err := repo.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ms.queries[0].Limit; got != 80 {
		t.Errorf("window = %d, want 80 (offset 60 + size 20)", got)
	}
}

func TestSearch_PageBeyondHits(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{entry(t, testDoc("a", 1, nil, false), 1)}}, nil
	}
	page, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 3, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Hits == nil || len(page.Hits) != 0 || page.Total != 1 {
		t.Errorf("expected empty non-nil page with total, got %+v", page)
	}
}

func TestSearch_NoTextUsesNeutralBaseScore(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			entry(t, testDoc("low", 0, nil, false), 0),
			entry(t, testDoc("high", 0, ptr(5.0), false), 0),
		}}, nil
	}
	page, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Hits[0].ID() != "high" {
		t.Errorf("admin score must rank filter-only results, got %s first", page.Hits[0].ID())
	}
	if page.Hits[1].BaseScore() != 1 {
		t.Errorf("base score = %g, want 1", page.Hits[1].BaseScore())
	}
}

func TestSearch_Highlights(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{entry(t, testDoc("a", 1, nil, false), 1)}}, nil
	}
	page, err := repo.Search(context.Background(), mustRequest(t, request.KindText, "java", request.Filters{}, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hl := page.Hits[0].Highlights()
	if len(hl) == 0 {
		t.Fatal("expected highlights")
	}
	if hl[0].Field != "title" || !strings.Contains(hl[0].Marked("<em>", "</em>"), "<em>Java</em>") {
		t.Errorf("highlight = %+v", hl[0])
	}
}

func TestSearch_FilterOnlyWindowHoldsBestRated(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, NewBuilder(repocand.IndexName, nil), Config{Window: 2, Model: ranking.Default()},
		WithClock(func() time.Time { return testNow }))

	// index order puts the strongest candidate last
	docs := []domcand.Document{
		testDoc("plain-a", 0, nil, false),
		testDoc("plain-b", 0, nil, false),
		testDoc("star", 10, ptr(5.0), true),
	}
	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		ordered := append([]domcand.Document(nil), docs...)
		if q.SortBy == repocand.FieldAdminScore && q.SortDesc {
			sort.SliceStable(ordered, func(i, j int) bool {
				return adminOf(ordered[i]) > adminOf(ordered[j])
			})
		}
		out := &db.SearchResult{Total: len(ordered)}
		for _, d := range ordered[:min(q.Limit, len(ordered))] {
			out.Entries = append(out.Entries, entry(t, d, 0))
		}
		return out, nil
	}

	page, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q := ms.queries[0]; q.Limit != 2 || q.SortBy != repocand.FieldAdminScore || !q.SortDesc {
		t.Errorf("engine query = %+v", q)
	}
	if page.Total != 3 || len(page.Hits) != 1 || page.Hits[0].ID() != "star" {
		t.Errorf("top hit = %+v (total %d)", page.Hits, page.Total)
	}
}

func adminOf(d domcand.Document) float64 {
	if d.AdminScore == nil {
		return -1
	}
	return *d.AdminScore
}

func TestSearch_DropsTyposOffPrefix(t *testing.T) {
	repo, ms := newTestRepo(t)
	lava := testDoc("lava", 2, nil, false)
	lava.Title = "Technicien lava-linge"
	lava.Summary = "Maintenance de kava et lava."
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			entry(t, lava, 2.0),
			entry(t, testDoc("java", 2, nil, false), 1.0),
			entry(t, withTitle(testDoc("jave", 2, nil, false), "Développeur Jave", "Typo dans le titre."), 0.5),
		}}, nil
	}

	page, err := repo.Search(context.Background(), mustRequest(t, request.KindText, "java", request.Filters{}, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 2 || len(page.Hits) != 2 {
		t.Fatalf("expected 2 hits of 2, got %d of %d", len(page.Hits), page.Total)
	}
	for _, h := range page.Hits {
		if h.ID() == "lava" {
			t.Errorf("typo changing the leading letters must not match: %+v", h)
		}
	}
}

func TestSearch_EngineSynonymsPassPrefixCheck(t *testing.T) {
	table, err := synonym.New("1", synonym.Group{ID: "js", Terms: []string{"javascript", "js"}})
	if err != nil {
		t.Fatalf("synonym.New: %v", err)
	}
	ms := &mockStore{}
	repo := New(ms, NewBuilder(repocand.IndexName, table), Config{Window: 50, Model: ranking.Default()},
		WithClock(func() time.Time { return testNow }))
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			entry(t, withTitle(testDoc("js", 2, nil, false), "Développeur JS", "Front et back."), 1.0),
		}}, nil
	}

	page, err := repo.Search(context.Background(), mustRequest(t, request.KindText, "javascript", request.Filters{}, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 1 || len(page.Hits) != 1 {
		t.Errorf("synonym hit dropped: %+v", page)
	}
}

func withTitle(d domcand.Document, title, summary string) domcand.Document {
	d.Title = title
	d.Summary = summary
	return d
}

func TestSearch_Facets(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		if len(q.Facets) != 6 {
			t.Errorf("expected 6 facet requests, got %d", len(q.Facets))
		}
		return &db.SearchResult{
			Facets: map[string][]db.FacetCount{
				result.FacetSectors:          {{Value: "Informatique", Count: 4}},
				result.FacetExperienceRanges: {{Value: "0-2", Count: 1}, {Value: "10+", Count: 0}},
			},
		}, nil
	}
	page, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := page.Facets[result.FacetSectors]; len(got) != 1 || got[0].Value != "Informatique" || got[0].Count != 4 {
		t.Errorf("sectors = %+v", got)
	}
	if got := page.Facets[result.FacetExperienceRanges]; len(got) != 2 || got[1].Count != 0 {
		t.Errorf("experience ranges = %+v", got)
	}
}

func TestSearch_SkipsUndecodableHits(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "talentdex:candidate:bad", Fields: map[string]string{"$": "{oops"}},
			entry(t, testDoc("ok", 1, nil, false), 1),
		}}, nil
	}
	page, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 1, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Hits) != 1 || page.Hits[0].ID() != "ok" {
		t.Errorf("hits = %+v", page.Hits)
	}
}

func TestSearch_EngineDown(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection refused")}
	}
	_, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 1, 10))
	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable, got %v", err)
	}
}

func TestSearch_MissingIndexTriggersBootstrap(t *testing.T) {
	ens := &mockEnsurer{}
	repo, ms := newTestRepo(t, WithEnsurer(ens))
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	_, err := repo.Search(context.Background(), mustRequest(t, request.KindFacet, "", request.Filters{}, 1, 10))
	if !errors.Is(err, domain.ErrSearchUnavailable) || !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
	if ens.calls != 1 {
		t.Errorf("ensure calls = %d, want 1", ens.calls)
	}
}

// --- Suggest ---

func TestSuggest(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		if q.Text != "@autocomplete:(dev ja)" {
			t.Errorf("text = %q", q.Text)
		}
		if q.Limit != DefaultSuggestLimit {
			t.Errorf("limit = %d", q.Limit)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{entry(t, testDoc("a", 1, nil, false), 1)}}, nil
	}
	got, err := repo.Suggest(context.Background(), "Dév Ja", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].CandidateID != "a" || got[0].Text != "Développeur Java" {
		t.Errorf("suggestions = %+v", got)
	}
}

func TestSuggest_Validation(t *testing.T) {
	repo, _ := newTestRepo(t)
	for _, tc := range []struct {
		prefix string
		limit  int
	}{
		{"", 5},
		{strings.Repeat("a", MaxPrefixLength+1), 5},
		{"dev", MaxSuggestLimit + 1},
		{"dev", -1},
	} {
		if _, err := repo.Suggest(context.Background(), tc.prefix, tc.limit); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Suggest(%q, %d): expected ErrValidation, got %v", tc.prefix, tc.limit, err)
		}
	}
}

func TestSuggest_LongTokenTruncatedToMaxGram(t *testing.T) {
	repo, ms := newTestRepo(t)
	if _, err := repo.Suggest(context.Background(), strings.Repeat("x", 30), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q := ms.queries[0].Text; q != "@autocomplete:("+strings.Repeat("x", 20)+")" {
		t.Errorf("text = %q", q)
	}
}
