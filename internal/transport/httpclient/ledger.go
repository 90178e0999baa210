package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
)

// Error codes returned by the quota protocol.
const (
	codeQuotaExceeded  = "quota_exceeded"
	codeNoSubscription = "no_subscription"
)

// QuotaGate consumes quota through a remote quota service.
type QuotaGate struct {
	c *client
}

// NewQuotaGate creates a remote quota client.
func NewQuotaGate(cfg Config, auth Authorizer) (*QuotaGate, error) {
	c, err := newClient(cfg, auth)
	if err != nil {
		return nil, fmt.Errorf("quota gate: %w", err)
	}
	return &QuotaGate{c: c}, nil
}

type quotaRequest struct {
	CompanyID string `json:"company_id"`
	QuotaType string `json:"quota_type"`
}

type quotaResponse struct {
	Code      string     `json:"code,omitempty"`
	Allowed   bool       `json:"allowed"`
	Metered   *bool      `json:"metered,omitempty"`
	Used      int        `json:"used"`
	Limit     *int       `json:"limit"`
	ResetDate *time.Time `json:"reset_date,omitempty"`
}

func (r quotaResponse) decision() domquota.Decision {
	d := domquota.Decision{Allowed: r.Allowed, Used: r.Used}
	if r.Limit != nil {
		d.Limit = *r.Limit
		d.Metered = true
	}
	if r.Metered != nil {
		d.Metered = *r.Metered
	}
	if r.ResetDate != nil {
		d.ResetDate = r.ResetDate.UTC()
	}
	return d
}

// CheckAndDebit consumes one unit of quota. An exhausted quota returns a
// denied decision without error.
func (g *QuotaGate) CheckAndDebit(ctx context.Context, companyID string, t domquota.Type) (domquota.Decision, error) {
	var out quotaResponse
	err := g.c.do(ctx, http.MethodPost, "/internal/quotas/check-and-use", nil,
		quotaRequest{CompanyID: companyID, QuotaType: string(t)}, &out)
	if se, ok := statusIs(err, http.StatusForbidden); ok {
		switch se.Code {
		case codeNoSubscription:
			return domquota.Decision{}, fmt.Errorf("%w: company %s", domain.ErrNoSubscription, companyID)
		case codeQuotaExceeded:
			var denied quotaResponse
			if jerr := json.Unmarshal(se.body, &denied); jerr != nil {
				return domquota.Decision{}, fmt.Errorf("decode quota denial: %w", upstream(jerr))
			}
			d := denied.decision()
			d.Allowed = false
			d.Metered = true
			return d, nil
		}
	}
	if err != nil {
		return domquota.Decision{}, fmt.Errorf("check and use quota: %w", upstream(err))
	}
	return out.decision(), nil
}

// AuditRecorder appends consultation entries through a remote audit service.
type AuditRecorder struct {
	c *client
}

// NewAuditRecorder creates a remote audit client.
func NewAuditRecorder(cfg Config, auth Authorizer) (*AuditRecorder, error) {
	c, err := newClient(cfg, auth)
	if err != nil {
		return nil, fmt.Errorf("audit recorder: %w", err)
	}
	return &AuditRecorder{c: c}, nil
}

type auditRequest struct {
	RecruiterID    string `json:"recruiter_id"`
	RecruiterEmail string `json:"recruiter_email,omitempty"`
	CompanyID      string `json:"company_id"`
	CompanyName    string `json:"company_name,omitempty"`
	CandidateID    string `json:"candidate_id"`
	CandidateEmail string `json:"candidate_email,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`
	AccessType     string `json:"access_type,omitempty"`
	IPAddress      string `json:"ip_address,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
}

type auditResponse struct {
	ID         string    `json:"id"`
	AccessedAt time.Time `json:"accessed_at"`
}

// Record sends one entry and returns it with the server-assigned id.
func (a *AuditRecorder) Record(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error) {
	in := auditRequest{
		RecruiterID:    e.RecruiterID,
		RecruiterEmail: e.RecruiterEmail,
		CompanyID:      e.CompanyID,
		CompanyName:    e.CompanyName,
		CandidateID:    e.CandidateID,
		CandidateEmail: e.CandidateEmail,
		CandidateName:  e.CandidateName,
		AccessType:     string(e.AccessType),
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
	}
	var out auditResponse
	err := a.c.do(ctx, http.MethodPost, "/internal/audit", nil, in, &out)
	if se, ok := statusIs(err, http.StatusBadRequest); ok {
		return domaudit.Entry{}, domain.Validationf("audit rejected: %s", se.Message)
	}
	if err != nil {
		return domaudit.Entry{}, fmt.Errorf("record access: %w", upstream(err))
	}
	e.ID = out.ID
	if !out.AccessedAt.IsZero() {
		e.AccessedAt = out.AccessedAt.UTC()
	}
	return e, nil
}
