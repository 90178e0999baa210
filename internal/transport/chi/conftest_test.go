package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	dombatch "github.com/kailas-cloud/talentdex/internal/domain/batch"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	consultationuc "github.com/kailas-cloud/talentdex/internal/usecase/consultation"
	healthuc "github.com/kailas-cloud/talentdex/internal/usecase/health"
)

const goodToken = "good-token"

// --- Mocks ---

type mockSearcher struct {
	gotReq    request.Request
	gotPrefix string
	gotLimit  int
	page      result.Page
	sugg      []result.Suggestion
	err       error
}

func (m *mockSearcher) Search(_ context.Context, req request.Request) (result.Page, error) {
	m.gotReq = req
	return m.page, m.err
}

func (m *mockSearcher) Suggest(_ context.Context, prefix string, limit int) ([]result.Suggestion, error) {
	m.gotPrefix, m.gotLimit = prefix, limit
	return m.sugg, m.err
}

type mockIndexer struct {
	gotID     string
	gotSnap   *candidate.ProfileV1
	gotBulk   []candidate.ProfileV1
	removed   []string
	indexed   bool
	summary   dombatch.Summary
	err       error
	removeErr error
}

func (m *mockIndexer) IndexCandidate(_ context.Context, id string, snap *candidate.ProfileV1) (bool, error) {
	m.gotID, m.gotSnap = id, snap
	return m.indexed, m.err
}

func (m *mockIndexer) RemoveCandidate(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.removeErr
}

func (m *mockIndexer) BulkIndex(_ context.Context, snaps []candidate.ProfileV1) dombatch.Summary {
	m.gotBulk = snaps
	return m.summary
}

type mockTrigger struct {
	busy  atomic.Bool
	calls atomic.Int32
}

func (m *mockTrigger) Trigger() bool {
	m.calls.Add(1)
	return !m.busy.Load()
}

type mockConsulter struct {
	gotCaller recruiter.Caller
	gotID     string
	view      consultationuc.ProfileView
	err       error
}

func (m *mockConsulter) ViewProfile(
	_ context.Context, caller recruiter.Caller, id string,
) (consultationuc.ProfileView, error) {
	m.gotCaller, m.gotID = caller, id
	return m.view, m.err
}

type mockQuota struct {
	gotCompany string
	gotType    domquota.Type
	decision   domquota.Decision
	err        error
	resets     int
}

func (m *mockQuota) Check(_ context.Context, companyID string, t domquota.Type) (domquota.Decision, error) {
	m.gotCompany, m.gotType = companyID, t
	return m.decision, m.err
}

func (m *mockQuota) CheckAndDebit(_ context.Context, companyID string, t domquota.Type) (domquota.Decision, error) {
	m.gotCompany, m.gotType = companyID, t
	return m.decision, m.err
}

func (m *mockQuota) Reset(_ context.Context, companyID string, t domquota.Type) error {
	m.gotCompany, m.gotType = companyID, t
	m.resets++
	return m.err
}

type mockAudit struct {
	gotEntry     domaudit.Entry
	gotCandidate string
	gotLimit     int
	gotOffset    int
	entries      []domaudit.Entry
	total        int
	summary      []domaudit.CompanySummary
	anonymized   int64
	err          error
}

func (m *mockAudit) Record(_ context.Context, e domaudit.Entry) (domaudit.Entry, error) {
	m.gotEntry = e
	if m.err != nil {
		return domaudit.Entry{}, m.err
	}
	e.ID = "log-1"
	return e, nil
}

func (m *mockAudit) ListByCandidate(_ context.Context, id string, limit, offset int) ([]domaudit.Entry, int, error) {
	m.gotCandidate, m.gotLimit, m.gotOffset = id, limit, offset
	return m.entries, m.total, m.err
}

func (m *mockAudit) SummaryByCandidate(_ context.Context, id string) ([]domaudit.CompanySummary, error) {
	m.gotCandidate = id
	return m.summary, m.err
}

func (m *mockAudit) Anonymize(_ context.Context, id string) (int64, error) {
	m.gotCandidate = id
	return m.anonymized, m.err
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fakeVerifier struct{}

func (fakeVerifier) VerifyRequest(r *http.Request) (string, error) {
	if r.Header.Get("Authorization") != "Bearer "+goodToken {
		return "", domain.ErrUnauthorized
	}
	return r.Header.Get("X-Service-Name"), nil
}

// --- Helpers ---

type fixture struct {
	search  *mockSearcher
	index   *mockIndexer
	trigger *mockTrigger
	consult *mockConsulter
	quota   *mockQuota
	audit   *mockAudit
	health  *mockHealth
	handler http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		search:  &mockSearcher{},
		index:   &mockIndexer{},
		trigger: &mockTrigger{},
		consult: &mockConsulter{},
		quota:   &mockQuota{},
		audit:   &mockAudit{},
		health:  &mockHealth{},
	}
	srv := NewServer(Services{
		Search:    f.search,
		Index:     f.index,
		Reconcile: f.trigger,
		Consult:   f.consult,
		Quota:     f.quota,
		Audit:     f.audit,
		Health:    f.health,
	}, fakeVerifier{}, nil)
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func internalHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + goodToken, "X-Service-Name": "profile-service"}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) ErrorResponse {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	resp := decode[ErrorResponse](t, rr)
	if resp.Code != code {
		t.Errorf("code = %s, want %s", resp.Code, code)
	}
	return resp
}

var errBoom = errors.New("boom")
