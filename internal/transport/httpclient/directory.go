package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
)

// Directory resolves recruiters through the user service.
type Directory struct {
	c *client
}

// NewDirectory creates a recruiter directory client.
func NewDirectory(cfg Config, auth Authorizer) (*Directory, error) {
	c, err := newClient(cfg, auth)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	return &Directory{c: c}, nil
}

type recruiterBody struct {
	RecruiterID string `json:"recruiter_id"`
	Email       string `json:"email"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
}

// GetRecruiter returns a recruiter and its company. Unknown recruiters are unauthorized.
func (d *Directory) GetRecruiter(ctx context.Context, recruiterID string) (recruiter.Recruiter, error) {
	var body recruiterBody
	err := d.c.do(ctx, http.MethodGet, "/recruiters/"+escape(recruiterID), nil, nil, &body)
	if _, ok := statusIs(err, http.StatusNotFound); ok {
		return recruiter.Recruiter{}, fmt.Errorf("%w: unknown recruiter %s", domain.ErrUnauthorized, recruiterID)
	}
	if err != nil {
		return recruiter.Recruiter{}, fmt.Errorf("get recruiter %s: %w", recruiterID, upstream(err))
	}
	id := body.RecruiterID
	if id == "" {
		id = recruiterID
	}
	return recruiter.Recruiter{
		ID:          id,
		Email:       body.Email,
		CompanyID:   body.CompanyID,
		CompanyName: body.CompanyName,
	}, nil
}
