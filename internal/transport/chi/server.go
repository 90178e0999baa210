// Package chi serves the public search and consultation API and the internal service protocols.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	dombatch "github.com/kailas-cloud/talentdex/internal/domain/batch"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	consultationuc "github.com/kailas-cloud/talentdex/internal/usecase/consultation"
	healthuc "github.com/kailas-cloud/talentdex/internal/usecase/health"
	"github.com/kailas-cloud/talentdex/internal/validator"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// Services are the collaborators behind the routes.
type Services struct {
	Search    Searcher
	Index     Indexer
	Reconcile ReconcileTrigger
	Consult   Consulter
	Quota     QuotaKeeper
	Audit     AuditLog
	Health    HealthChecker
}

// Server handles the HTTP API.
type Server struct {
	svc           Services
	tokens        TokenVerifier
	validate      *validator.Validator
	logger        *zap.Logger
	maxBody       int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. Internal routes require a token accepted by tokens.
func NewServer(svc Services, tokens TokenVerifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:           svc,
		tokens:        tokens,
		validate:      validator.New(),
		logger:        logger,
		maxBody:       DefaultMaxBodyBytes,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithMaxBodyBytes overrides the request body limit.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBody = n
	}
	return s
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Get("/search", s.SearchFacets)
	r.Post("/search", s.SearchText)
	r.Get("/search/suggest", s.Suggest)
	r.Get("/candidates/{candidate_id}", s.ViewProfile)
	if s.svc.Audit != nil {
		r.Get("/me/views", s.ListMyViews)
		r.Get("/me/views/summary", s.MyViewsSummary)
	}

	r.Route("/internal", func(r chi.Router) {
		r.Use(ServiceTokenMiddleware(s.tokens))
		r.Post("/index", s.IndexCandidate)
		r.Post("/index/bulk", s.BulkIndex)
		r.Post("/index/reconcile", s.Reconcile)
		r.Delete("/index/{candidate_id}", s.RemoveCandidate)
		// quota and audit protocols are served only when this instance owns the ledger
		if s.svc.Quota != nil {
			r.Post("/quotas/check", s.CheckQuota)
			r.Post("/quotas/check-and-use", s.CheckAndUseQuota)
			r.Post("/quotas/reset", s.ResetQuota)
		}
		if s.svc.Audit != nil {
			r.Post("/audit", s.RecordAccess)
			r.Delete("/audit/candidates/{candidate_id}", s.AnonymizeAccess)
		}
	})
}

// Handler returns a router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// --- Search ---

// SearchFacets handles GET /search.
func (s *Server) SearchFacets(w http.ResponseWriter, r *http.Request) {
	params, err := bindFacetParams(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, err := params.toRequest()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	page, err := s.svc.Search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// SearchText handles POST /search.
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	var body SearchBody
	if !s.decode(w, r, &body) {
		return
	}
	req, err := body.toRequest()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	page, err := s.svc.Search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// Suggest handles GET /search/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	var (
		prefix *string
		limit  *int
	)
	if err := bindQuery(r.URL.Query(),
		queryBinding{"prefix", &prefix},
		queryBinding{"limit", &limit},
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items, err := s.svc.Search.Suggest(r.Context(), deref(prefix), deref(limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make([]Suggestion, len(items))
	for i, it := range items {
		out[i] = Suggestion{CandidateID: it.CandidateID, Text: it.Text}
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Suggestions: out})
}

// --- Consultation ---

// ViewProfile handles GET /candidates/{candidate_id}.
func (s *Server) ViewProfile(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Consult.ViewProfile(r.Context(), callerFromRequest(r), chi.URLParam(r, "candidate_id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(&view))
}

// ListMyViews handles GET /me/views.
func (s *Server) ListMyViews(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := s.requireCandidate(w, r)
	if !ok {
		return
	}
	var limit, offset *int
	if err := bindQuery(r.URL.Query(),
		queryBinding{"limit", &limit},
		queryBinding{"offset", &offset},
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	entries, total, err := s.svc.Audit.ListByCandidate(r.Context(), candidateID, deref(limit), deref(offset))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	l, o := domaudit.NormalizePage(deref(limit), deref(offset))
	items := make([]AccessLogEntry, len(entries))
	for i := range entries {
		items[i] = entryToResponse(&entries[i])
	}
	writeJSON(w, http.StatusOK, AccessLogListResponse{Items: items, Total: total, Limit: l, Offset: o})
}

// MyViewsSummary handles GET /me/views/summary.
func (s *Server) MyViewsSummary(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := s.requireCandidate(w, r)
	if !ok {
		return
	}
	sums, err := s.svc.Audit.SummaryByCandidate(r.Context(), candidateID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := ViewSummaryResponse{Companies: make([]CompanyViewSummary, len(sums))}
	for i, c := range sums {
		resp.Companies[i] = CompanyViewSummary{
			CompanyID:   c.CompanyID,
			CompanyName: c.CompanyName,
			Count:       c.Count,
			LastAccess:  c.LastAccess,
		}
		resp.Total += c.Count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireCandidate(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderCandidateID))
	if id == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing "+HeaderCandidateID+" header")
		return "", false
	}
	return id, true
}

// --- Index ---

// IndexCandidate handles POST /internal/index.
func (s *Server) IndexCandidate(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var header IndexHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&header); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var snap candidate.ProfileV1
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: %w", domain.ErrValidation, err))
		return
	}

	indexed, err := s.svc.Index.IndexCandidate(r.Context(), header.CandidateID, &snap)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !indexed {
		writeJSON(w, http.StatusOK, IndexResponse{CandidateID: header.CandidateID, Status: string(dombatch.StatusRemoved)})
		return
	}
	writeJSON(w, http.StatusCreated, IndexResponse{CandidateID: header.CandidateID, Status: string(dombatch.StatusIndexed)})
}

// BulkIndex handles POST /internal/index/bulk. Item failures do not fail the call.
func (s *Server) BulkIndex(w http.ResponseWriter, r *http.Request) {
	var body BulkIndexBody
	if !s.decode(w, r, &body) {
		return
	}
	summary := s.svc.Index.BulkIndex(r.Context(), body.Profiles)
	resp := BulkIndexResponse{Indexed: summary.Indexed(), Items: make([]BulkItemResult, len(summary.Results))}
	for i, res := range summary.Results {
		item := BulkItemResult{CandidateID: res.ID(), Status: string(res.Status())}
		if err := res.Err(); err != nil {
			resp.Failed++
			item.Error = &ItemError{Code: itemErrorCode(err), Message: safeDomainMessage(err)}
		}
		resp.Items[i] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

func itemErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrSearchUnavailable):
		return CodeSearchUnavailable
	default:
		return CodeInternalError
	}
}

// RemoveCandidate handles DELETE /internal/index/{candidate_id}. Absent documents are not an error.
func (s *Server) RemoveCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "candidate_id")
	if err := s.svc.Index.RemoveCandidate(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IndexResponse{CandidateID: id, Status: string(dombatch.StatusRemoved)})
}

// Reconcile handles POST /internal/index/reconcile.
func (s *Server) Reconcile(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Reconcile.Trigger() {
		writeError(w, http.StatusConflict, CodeReconcileRunning, "reconciliation already running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// --- Quota ---

// CheckQuota handles POST /internal/quotas/check. It never consumes a unit.
func (s *Server) CheckQuota(w http.ResponseWriter, r *http.Request) {
	companyID, t, ok := s.quotaRequest(w, r)
	if !ok {
		return
	}
	d, err := s.svc.Quota.Check(r.Context(), companyID, t)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionToResponse(d, false))
}

// CheckAndUseQuota handles POST /internal/quotas/check-and-use. A denial is a 403 quota_exceeded.
func (s *Server) CheckAndUseQuota(w http.ResponseWriter, r *http.Request) {
	companyID, t, ok := s.quotaRequest(w, r)
	if !ok {
		return
	}
	d, err := s.svc.Quota.CheckAndDebit(r.Context(), companyID, t)
	if err == nil {
		err = d.Err()
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionToResponse(d, true))
}

// ResetQuota handles POST /internal/quotas/reset, called on billing-cycle renewal.
func (s *Server) ResetQuota(w http.ResponseWriter, r *http.Request) {
	companyID, t, ok := s.quotaRequest(w, r)
	if !ok {
		return
	}
	if err := s.svc.Quota.Reset(r.Context(), companyID, t); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) quotaRequest(w http.ResponseWriter, r *http.Request) (string, domquota.Type, bool) {
	var body QuotaRequest
	if !s.decode(w, r, &body) {
		return "", "", false
	}
	t, err := domquota.ParseType(body.QuotaType)
	if err != nil {
		s.handleDomainError(w, r, err)
		return "", "", false
	}
	return body.CompanyID, t, true
}

// --- Audit ---

// RecordAccess handles POST /internal/audit.
func (s *Server) RecordAccess(w http.ResponseWriter, r *http.Request) {
	var body AuditRequest
	if !s.decode(w, r, &body) {
		return
	}
	stored, err := s.svc.Audit.Record(r.Context(), domaudit.Entry{
		RecruiterID:    body.RecruiterID,
		RecruiterEmail: body.RecruiterEmail,
		CompanyID:      body.CompanyID,
		CompanyName:    body.CompanyName,
		CandidateID:    body.CandidateID,
		CandidateEmail: body.CandidateEmail,
		CandidateName:  body.CandidateName,
		AccessType:     domaudit.AccessType(body.AccessType),
		IPAddress:      body.IPAddress,
		UserAgent:      body.UserAgent,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuditRecordResponse{ID: stored.ID, AccessedAt: stored.AccessedAt})
}

// AnonymizeAccess handles DELETE /internal/audit/candidates/{candidate_id}.
func (s *Server) AnonymizeAccess(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Audit.Anonymize(r.Context(), chi.URLParam(r, "candidate_id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnonymizeResponse{Anonymized: n})
}

// --- Operational ---

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Decoding ---

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return raw, true
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	raw, ok := s.readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.handleDomainError(w, r, err)
		return false
	}
	return true
}

// --- Mapping ---

func pageToResponse(p result.Page) SearchResponse {
	resp := SearchResponse{
		Total:   p.Total,
		Page:    p.Page,
		Size:    p.Size,
		Results: make([]SearchResult, len(p.Hits)),
	}
	for i := range p.Hits {
		resp.Results[i] = hitToResponse(&p.Hits[i])
	}
	if p.Facets != nil {
		resp.Facets = facetsToResponse(p.Facets)
	}
	return resp
}

var facetNames = []string{
	result.FacetSectors,
	result.FacetMainJobs,
	result.FacetContractTypes,
	result.FacetLocations,
	result.FacetExperienceRanges,
	result.FacetAdminScoreRanges,
}

// facetsToResponse always reports every facet name, empty when the engine returned none.
func facetsToResponse(f result.Facets) map[string][]FacetBucket {
	out := make(map[string][]FacetBucket, len(facetNames))
	for _, name := range facetNames {
		buckets := f[name]
		items := make([]FacetBucket, len(buckets))
		for i, b := range buckets {
			items[i] = FacetBucket{Value: b.Value, Count: b.Count}
		}
		out[name] = items
	}
	return out
}

func hitToResponse(h *result.Hit) SearchResult {
	doc := h.Document()
	skills := make([]SkillItem, len(doc.Skills))
	for i, sk := range doc.Skills {
		skills[i] = SkillItem{Name: sk.Name, Level: candidate.SkillLadder.Name(sk.Level)}
	}
	out := SearchResult{
		CandidateID:     doc.CandidateID,
		ProfileTitle:    doc.Title,
		SummaryExcerpt:  h.SummaryExcerpt(),
		Sector:          doc.Sector,
		MainJob:         doc.MainJob,
		Location:        doc.Location,
		TotalExperience: doc.YearsOfExperience,
		AdminScore:      doc.AdminScore,
		IsVerified:      doc.IsVerified,
		Skills:          skills,
		Score:           h.Score(),
	}
	for _, f := range h.Highlights() {
		spans := make([]MatchSpan, len(f.Matches))
		for i, m := range f.Matches {
			spans[i] = MatchSpan{Start: m.Start, End: m.End}
		}
		out.Highlights = append(out.Highlights, Highlight{Field: f.Field, Text: f.Text, Matches: spans})
	}
	return out
}

func viewToResponse(v *consultationuc.ProfileView) ProfileViewResponse {
	return ProfileViewResponse{
		Profile:    v.Profile,
		IsIndexed:  v.IsIndexed,
		AdminScore: v.AdminScore,
		IsVerified: v.IsVerified,
		Quota:      decisionToResponse(v.Quota, true),
	}
}

func decisionToResponse(d domquota.Decision, consumed bool) QuotaResponse {
	resp := QuotaResponse{Allowed: d.Allowed, Metered: d.Metered, Used: d.Used}
	if !d.Metered {
		return resp
	}
	limit := d.Limit
	resp.Limit = &limit
	resp.Remaining = d.Remaining()
	if consumed {
		reset := d.ResetDate
		resp.ViewsRemaining = d.Remaining()
		resp.ResetDate = &reset
	}
	return resp
}

func entryToResponse(e *domaudit.Entry) AccessLogEntry {
	return AccessLogEntry{
		ID:             e.ID,
		RecruiterID:    e.RecruiterID,
		RecruiterEmail: e.RecruiterEmail,
		CompanyID:      e.CompanyID,
		CompanyName:    e.CompanyName,
		AccessType:     string(e.AccessType),
		AccessedAt:     e.AccessedAt,
	}
}
