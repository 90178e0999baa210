// Package audit models the immutable record of profile consultations.
package audit

import (
	"strings"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// AccessType is the kind of consultation.
type AccessType string

// Access types.
const (
	AccessProfileView AccessType = "profile_view"
	AccessCVDownload  AccessType = "cv_download"
)

// Entry is one consultation record.
type Entry struct {
	ID             string
	RecruiterID    string
	RecruiterEmail string
	CompanyID      string
	CompanyName    string
	CandidateID    string
	CandidateEmail string
	CandidateName  string
	AccessType     AccessType
	AccessedAt     time.Time
	IPAddress      string
	UserAgent      string
}

// Validate checks the required identifiers and defaults the access type.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.RecruiterID) == "" {
		return domain.Validationf("recruiter_id is required")
	}
	if strings.TrimSpace(e.CompanyID) == "" {
		return domain.Validationf("company_id is required")
	}
	if strings.TrimSpace(e.CandidateID) == "" {
		return domain.Validationf("candidate_id is required")
	}
	switch e.AccessType {
	case "":
		e.AccessType = AccessProfileView
	case AccessProfileView, AccessCVDownload:
	default:
		return domain.Validationf("unknown access_type %q", e.AccessType)
	}
	return nil
}

// CompanySummary aggregates the consultations of one company.
type CompanySummary struct {
	CompanyID   string
	CompanyName string
	Count       int
	LastAccess  time.Time
}

// Page bounds for candidate-facing listings.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizePage clamps limit and offset.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return min(limit, MaxLimit), max(0, offset)
}
