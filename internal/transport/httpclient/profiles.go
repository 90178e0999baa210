package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// statusValidated is the profile store filter for indexable profiles.
const statusValidated = "VALIDATED"

// ProfileStore reads authoritative profiles from the profile service.
type ProfileStore struct {
	c *client
}

// NewProfileStore creates a profile store client.
func NewProfileStore(cfg Config, auth Authorizer) (*ProfileStore, error) {
	c, err := newClient(cfg, auth)
	if err != nil {
		return nil, fmt.Errorf("profile store: %w", err)
	}
	return &ProfileStore{c: c}, nil
}

type profilePage struct {
	Items   []candidate.ProfileV1 `json:"items"`
	Page    int                   `json:"page"`
	Size    int                   `json:"size"`
	Total   *int                  `json:"total,omitempty"`
	HasMore *bool                 `json:"has_more,omitempty"`
}

// GetProfile returns the current snapshot of a candidate.
func (s *ProfileStore) GetProfile(ctx context.Context, candidateID string) (candidate.ProfileV1, error) {
	var p candidate.ProfileV1
	err := s.c.do(ctx, http.MethodGet, "/profiles/"+escape(candidateID), nil, nil, &p)
	if _, ok := statusIs(err, http.StatusNotFound); ok {
		return candidate.ProfileV1{}, fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, candidateID)
	}
	if err != nil {
		return candidate.ProfileV1{}, fmt.Errorf("get profile %s: %w", candidateID, upstream(err))
	}
	if p.CandidateID == "" {
		p.CandidateID = candidateID
	}
	return p, nil
}

// ListValidated returns one page of validated profiles and whether more pages follow.
// Without an explicit has_more or total, a full page means more may follow.
func (s *ProfileStore) ListValidated(ctx context.Context, page, size int) ([]candidate.ProfileV1, bool, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}
	q := url.Values{}
	q.Set("status", statusValidated)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out profilePage
	if err := s.c.do(ctx, http.MethodGet, "/profiles", q, nil, &out); err != nil {
		return nil, false, fmt.Errorf("list validated profiles: %w", upstream(err))
	}

	var more bool
	switch {
	case out.HasMore != nil:
		more = *out.HasMore
	case out.Total != nil:
		more = page*size < *out.Total
	default:
		more = len(out.Items) >= size
	}
	return out.Items, more, nil
}

// upstream maps unexpected client statuses to ErrUpstreamUnavailable.
func upstream(err error) error {
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}
