package candidate

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/talentdex/internal/db"
	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key, path string, data []byte) error
	jsonSetMultiFn func(ctx context.Context, items []db.JSONSetItem) []error
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	delFn          func(ctx context.Context, key string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error {
	if m.jsonSetMultiFn != nil {
		return m.jsonSetMultiFn(ctx, items)
	}
	return make([]error, len(items))
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// mockIndexManager records index lifecycle calls.
type mockIndexManager struct {
	createFn func(ctx context.Context, def *db.IndexDefinition) error
	dropFn   func(ctx context.Context, name string) error
	synFn    func(ctx context.Context, index, groupID string, terms []string) error

	creates int
	drops   int
	groups  []string
}

func (m *mockIndexManager) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	m.creates++
	if m.createFn != nil {
		return m.createFn(ctx, def)
	}
	return nil
}

func (m *mockIndexManager) DropIndex(ctx context.Context, name string) error {
	m.drops++
	if m.dropFn != nil {
		return m.dropFn(ctx, name)
	}
	return nil
}

func (m *mockIndexManager) SynUpdate(ctx context.Context, index, groupID string, terms []string) error {
	m.groups = append(m.groups, groupID)
	if m.synFn != nil {
		return m.synFn(ctx, index, groupID, terms)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func ptr[T any](v T) *T { return &v }

func testDocument(t *testing.T) domcand.Document {
	t.Helper()
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	return domcand.Document{
		CandidateID:       "cand-1",
		FullName:          "Élodie Martin",
		Title:             "Développeuse Go senior",
		Summary:           "Backend C++ et Go, microservices.",
		Location:          "Paris, France",
		Sector:            "Informatique",
		MainJob:           "Développeur backend",
		YearsOfExperience: 7,
		IsVerified:        true,
		Status:            domcand.StatusValidated,
		AdminScore:        ptr(4.5),
		Skills: []domcand.Skill{
			{Name: "Go", Level: 4, YearsOfPractice: 5},
			{Name: "C++", Level: 2},
		},
		Educations: []domcand.Education{{Diploma: "Master informatique", Level: 4, GraduationYear: 2016}},
		Languages:  []domcand.Language{{Name: "Anglais", Level: 3}},
		Experiences: []domcand.Experience{
			{Position: "Lead developer", CompanyName: "Acme", StartDate: &start, IsCurrent: true},
			{Position: "Développeur PHP", CompanyName: "Initech"},
		},
		DesiredPositions: []string{"Tech lead"},
		ContractType:     "CDI",
		Salary:           &domcand.Salary{Min: 55000},
		CreatedAt:        time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		ValidatedAt:      time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}
