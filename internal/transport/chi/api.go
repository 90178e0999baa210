package chi

import (
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// ErrorCode is the machine-readable error code of ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeQuotaExceeded       ErrorCode = "quota_exceeded"
	CodeNoSubscription      ErrorCode = "no_subscription"
	CodeCandidateNotFound   ErrorCode = "candidate_not_found"
	CodeDocumentNotFound    ErrorCode = "document_not_found"
	CodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	CodeSearchUnavailable   ErrorCode = "search_unavailable"
	CodeReconcileRunning    ErrorCode = "reconcile_running"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// QuotaExceededResponse is the 403 body of an exhausted quota.
type QuotaExceededResponse struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	Allowed        bool      `json:"allowed"`
	Used           int       `json:"used"`
	Limit          int       `json:"limit"`
	Remaining      int       `json:"remaining"`
	ViewsRemaining int       `json:"views_remaining"`
	ResetDate      time.Time `json:"reset_date"`
}

// --- Search ---

// SearchBody is the POST /search request.
type SearchBody struct {
	Query            string          `json:"query" validate:"max=512"`
	Sectors          []string        `json:"sectors" validate:"max=20,dive,required"`
	MainJobs         []string        `json:"main_jobs" validate:"max=20,dive,required"`
	ContractTypes    []string        `json:"contract_types" validate:"max=20,dive,required"`
	Locations        []string        `json:"locations" validate:"max=20,dive,required"`
	Skills           []NestedBody    `json:"skills" validate:"max=10,dive"`
	Languages        []NestedBody    `json:"languages" validate:"max=10,dive"`
	EducationLevels  []string        `json:"education_levels" validate:"max=10,dive,required"`
	MinEducation     string          `json:"min_education_level"`
	MinExperience    *int            `json:"min_experience" validate:"omitempty,min=0"`
	MaxExperience    *int            `json:"max_experience" validate:"omitempty,min=0"`
	ExperienceRanges []string        `json:"experience_ranges" validate:"dive,oneof=0-2 2-5 5-10 10+"`
	MinAdminScore    *float64        `json:"min_admin_score" validate:"omitempty,min=0,max=5"`
	Salary           *SalaryBandBody `json:"salary"`
	VerifiedOnly     bool            `json:"verified_only"`
	Page             int             `json:"page" validate:"min=0"`
	Size             int             `json:"size" validate:"min=0,max=100"`
	Highlight        *bool           `json:"highlight"`
	Facets           *bool           `json:"facets"`
}

// NestedBody is a skill or language filter.
type NestedBody struct {
	Name     string `json:"name" validate:"required,max=100"`
	MinLevel string `json:"min_level"`
}

// SalaryBandBody is the salary filter of SearchBody.
type SalaryBandBody struct {
	Min *int `json:"min" validate:"omitempty,min=0"`
	Max *int `json:"max" validate:"omitempty,min=0"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Total   int                      `json:"total"`
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
	Results []SearchResult           `json:"results"`
	Facets  map[string][]FacetBucket `json:"facets,omitempty"`
}

// SearchResult is the preview of a ranked candidate.
type SearchResult struct {
	CandidateID     string      `json:"candidate_id"`
	ProfileTitle    string      `json:"profile_title"`
	SummaryExcerpt  string      `json:"summary_excerpt"`
	Sector          string      `json:"sector,omitempty"`
	MainJob         string      `json:"main_job,omitempty"`
	Location        string      `json:"location,omitempty"`
	TotalExperience int         `json:"total_experience"`
	AdminScore      *float64    `json:"admin_score"`
	IsVerified      bool        `json:"is_verified"`
	Skills          []SkillItem `json:"skills"`
	Score           float64     `json:"score"`
	Highlights      []Highlight `json:"highlights,omitempty"`
}

// SkillItem is a skill of a search preview.
type SkillItem struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Highlight is a matched fragment. Matches are rune offsets into Text.
type Highlight struct {
	Field   string      `json:"field"`
	Text    string      `json:"text"`
	Matches []MatchSpan `json:"matches"`
}

// MatchSpan is a [start, end) rune range.
type MatchSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FacetBucket is a facet value count.
type FacetBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SuggestResponse lists autocomplete suggestions.
type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	CandidateID string `json:"candidate_id"`
	Text        string `json:"text"`
}

// --- Consultation ---

// ProfileViewResponse is the consulted profile.
type ProfileViewResponse struct {
	Profile    candidate.ProfileV1 `json:"profile"`
	IsIndexed  bool                `json:"is_indexed"`
	AdminScore *float64            `json:"admin_score"`
	IsVerified bool                `json:"is_verified"`
	Quota      QuotaResponse       `json:"quota"`
}

// --- Quota ---

// QuotaRequest is the body of the quota protocol.
type QuotaRequest struct {
	CompanyID string `json:"company_id" validate:"required,max=128"`
	QuotaType string `json:"quota_type" validate:"omitempty,oneof=profile_views"`
}

// QuotaResponse is a quota decision. Limit and Remaining are null when unmetered.
type QuotaResponse struct {
	Allowed        bool       `json:"allowed"`
	Metered        bool       `json:"metered"`
	Used           int        `json:"used"`
	Limit          *int       `json:"limit"`
	Remaining      *int       `json:"remaining"`
	ViewsRemaining *int       `json:"views_remaining,omitempty"`
	ResetDate      *time.Time `json:"reset_date,omitempty"`
}

// --- Audit ---

// AuditRequest is the body of POST /internal/audit.
type AuditRequest struct {
	RecruiterID    string `json:"recruiter_id" validate:"required,max=128"`
	RecruiterEmail string `json:"recruiter_email" validate:"omitempty,email"`
	CompanyID      string `json:"company_id" validate:"required,max=128"`
	CompanyName    string `json:"company_name" validate:"max=255"`
	CandidateID    string `json:"candidate_id" validate:"required,max=128"`
	CandidateEmail string `json:"candidate_email" validate:"omitempty,email"`
	CandidateName  string `json:"candidate_name" validate:"max=255"`
	AccessType     string `json:"access_type" validate:"omitempty,oneof=profile_view cv_download"`
	IPAddress      string `json:"ip_address" validate:"omitempty,ip"`
	UserAgent      string `json:"user_agent" validate:"max=1024"`
}

// AuditRecordResponse acknowledges a recorded entry.
type AuditRecordResponse struct {
	ID         string    `json:"id"`
	AccessedAt time.Time `json:"accessed_at"`
}

// AccessLogEntry is an access log entry as shown to the candidate.
type AccessLogEntry struct {
	ID             string    `json:"id"`
	RecruiterID    string    `json:"recruiter_id"`
	RecruiterEmail string    `json:"recruiter_email,omitempty"`
	CompanyID      string    `json:"company_id"`
	CompanyName    string    `json:"company_name,omitempty"`
	AccessType     string    `json:"access_type"`
	AccessedAt     time.Time `json:"accessed_at"`
}

// AccessLogListResponse is a page of access log entries.
type AccessLogListResponse struct {
	Items  []AccessLogEntry `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// CompanyViewSummary groups views per company.
type CompanyViewSummary struct {
	CompanyID   string    `json:"company_id"`
	CompanyName string    `json:"company_name,omitempty"`
	Count       int       `json:"count"`
	LastAccess  time.Time `json:"last_access"`
}

// ViewSummaryResponse is the "who viewed me" summary.
type ViewSummaryResponse struct {
	Companies []CompanyViewSummary `json:"companies"`
	Total     int                  `json:"total"`
}

// AnonymizeResponse reports the scrubbed entries.
type AnonymizeResponse struct {
	Anonymized int64 `json:"anonymized"`
}

// --- Index ---

// IndexHeader is the validated subset of an index payload.
type IndexHeader struct {
	CandidateID string `json:"candidate_id" validate:"required,max=128"`
	Status      string `json:"status" validate:"required"`
}

// IndexResponse acknowledges an index write.
type IndexResponse struct {
	CandidateID string `json:"candidate_id"`
	Status      string `json:"status"`
}

// BulkIndexBody is the body of POST /internal/index/bulk.
type BulkIndexBody struct {
	Profiles []candidate.ProfileV1 `json:"profiles" validate:"required,min=1,max=500"`
}

// BulkIndexResponse reports per-item outcomes.
type BulkIndexResponse struct {
	Indexed int              `json:"indexed"`
	Failed  int              `json:"failed"`
	Items   []BulkItemResult `json:"items"`
}

// BulkItemResult is the outcome of one bulk item.
type BulkItemResult struct {
	CandidateID string     `json:"candidate_id"`
	Status      string     `json:"status"`
	Error       *ItemError `json:"error,omitempty"`
}

// ItemError is a per-item failure.
type ItemError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// --- Health ---

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
