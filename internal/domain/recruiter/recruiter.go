// Package recruiter models the authenticated caller of the consultation API.
package recruiter

// Recruiter is a directory entry of the platform.
type Recruiter struct {
	ID          string
	Email       string
	CompanyID   string
	CompanyName string
}

// HasCompany reports whether the recruiter belongs to a company.
func (r Recruiter) HasCompany() bool { return r.CompanyID != "" }

// Caller is the request-scoped identity forwarded by the gateway.
type Caller struct {
	RecruiterID    string
	RecruiterEmail string
	IPAddress      string
	UserAgent      string
}
