// Package audit records and reports profile consultations.
package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
)

// Service handles the consultation log.
type Service struct {
	repo Repository
}

// New creates an audit service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and appends an entry.
func (s *Service) Record(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error) {
	if err := e.Validate(); err != nil {
		return domaudit.Entry{}, err
	}
	stored, err := s.repo.Insert(ctx, e)
	if err != nil {
		return domaudit.Entry{}, fmt.Errorf("record access: %w", err)
	}
	return stored, nil
}

// ListByCandidate returns one page of a candidate's consultations and the total.
func (s *Service) ListByCandidate(
	ctx context.Context, candidateID string, limit, offset int,
) ([]domaudit.Entry, int, error) {
	if err := requireCandidate(candidateID); err != nil {
		return nil, 0, err
	}
	limit, offset = domaudit.NormalizePage(limit, offset)
	entries, total, err := s.repo.ListByCandidate(ctx, candidateID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list access logs: %w", err)
	}
	return entries, total, nil
}

// SummaryByCandidate groups a candidate's consultations per company.
func (s *Service) SummaryByCandidate(ctx context.Context, candidateID string) ([]domaudit.CompanySummary, error) {
	if err := requireCandidate(candidateID); err != nil {
		return nil, err
	}
	out, err := s.repo.SummaryByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("summarize access logs: %w", err)
	}
	return out, nil
}

// Anonymize scrubs a candidate's personal data from the log and returns the affected row count.
func (s *Service) Anonymize(ctx context.Context, candidateID string) (int64, error) {
	if err := requireCandidate(candidateID); err != nil {
		return 0, err
	}
	n, err := s.repo.Anonymize(ctx, candidateID)
	if err != nil {
		return 0, fmt.Errorf("anonymize access logs: %w", err)
	}
	return n, nil
}

func requireCandidate(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Validationf("candidate_id is required")
	}
	return nil
}
