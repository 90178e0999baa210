// Package index keeps the search index in line with validated candidate profiles.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain"
	dombatch "github.com/kailas-cloud/talentdex/internal/domain/batch"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/metrics"
)

// Defaults for bulk and reconcile operations.
const (
	MaxBulkSize          = 500
	DefaultReconcilePage = 200
)

// ReconcileReport summarizes a full re-synchronization.
type ReconcileReport struct {
	Indexed int
	Removed int
	Failed  int
}

// Service writes candidate documents to the index.
type Service struct {
	repo     Repository
	boot     Bootstrapper
	profiles ProfileSource
	logger   *zap.Logger
	now      func() time.Time
	maxBulk  int
	pageSize int
}

// New creates an index service. boot and profiles can be nil.
func New(repo Repository, boot Bootstrapper, profiles ProfileSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		boot:     boot,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
		maxBulk:  MaxBulkSize,
		pageSize: DefaultReconcilePage,
	}
}

// WithLimits configures the bulk size limit and the reconcile page size.
func (s *Service) WithLimits(maxBulk, pageSize int) *Service {
	if maxBulk > 0 {
		s.maxBulk = maxBulk
	}
	if pageSize > 0 {
		s.pageSize = pageSize
	}
	return s
}

// WithClock overrides the time source used for snapshot defaults.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IndexCandidate maps a snapshot and upserts it. A snapshot whose status is
// not VALIDATED removes the candidate instead.
// Returns true when the document was written, false when it was removed.
func (s *Service) IndexCandidate(ctx context.Context, candidateID string, snap *candidate.ProfileV1) (bool, error) {
	if err := bindID(candidateID, snap); err != nil {
		return false, err
	}
	doc, err := snap.ToDocument(s.now())
	if err != nil {
		return false, fmt.Errorf("map profile %s: %w", snap.CandidateID, err)
	}
	if !doc.Status.Indexable() {
		return false, s.RemoveCandidate(ctx, doc.CandidateID)
	}

	s.ensure(ctx)
	if err := s.repo.Upsert(ctx, &doc); err != nil {
		metrics.IndexWritesTotal.WithLabelValues("upsert", "error").Inc()
		return false, fmt.Errorf("index candidate: %w", err)
	}
	metrics.IndexWritesTotal.WithLabelValues("upsert", "ok").Inc()
	return true, nil
}

// RemoveCandidate deletes a candidate from the index. Absent documents are not an error.
func (s *Service) RemoveCandidate(ctx context.Context, candidateID string) error {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return domain.Validationf("candidate_id is required")
	}
	if err := s.repo.Delete(ctx, candidateID); err != nil {
		metrics.IndexWritesTotal.WithLabelValues("remove", "error").Inc()
		return fmt.Errorf("remove candidate: %w", err)
	}
	metrics.IndexWritesTotal.WithLabelValues("remove", "ok").Inc()
	return nil
}

// BulkIndex indexes snapshots with per-item results. Valid VALIDATED documents
// are written in a single round-trip; others are removed or reported as failed.
func (s *Service) BulkIndex(ctx context.Context, snaps []candidate.ProfileV1) dombatch.Summary {
	results := make([]dombatch.Result, len(snaps))

	if len(snaps) > s.maxBulk {
		err := domain.Validationf("bulk size exceeds %d", s.maxBulk)
		for i := range snaps {
			results[i] = dombatch.NewError(snaps[i].CandidateID, err)
		}
		return dombatch.Summary{Results: results}
	}

	now := s.now()
	docs := make([]candidate.Document, 0, len(snaps))
	docIdx := make([]int, 0, len(snaps))

	for i := range snaps {
		id := strings.TrimSpace(snaps[i].CandidateID)
		doc, err := snaps[i].ToDocument(now)
		if err != nil {
			results[i] = dombatch.NewError(id, fmt.Errorf("map profile: %w", err))
			continue
		}
		if !doc.Status.Indexable() {
			if err := s.RemoveCandidate(ctx, doc.CandidateID); err != nil {
				results[i] = dombatch.NewError(id, err)
				continue
			}
			results[i] = dombatch.NewRemoved(id)
			continue
		}
		docs = append(docs, doc)
		docIdx = append(docIdx, i)
	}

	if len(docs) == 0 {
		return dombatch.Summary{Results: results}
	}

	s.ensure(ctx)
	errs := s.repo.UpsertMany(ctx, docs)
	for j, i := range docIdx {
		if errs[j] != nil {
			metrics.IndexWritesTotal.WithLabelValues("upsert", "error").Inc()
			results[i] = dombatch.NewError(docs[j].CandidateID, fmt.Errorf("index candidate: %w", errs[j]))
			continue
		}
		metrics.IndexWritesTotal.WithLabelValues("upsert", "ok").Inc()
		results[i] = dombatch.NewIndexed(docs[j].CandidateID)
	}
	return dombatch.Summary{Results: results}
}

// Reconcile re-indexes every validated profile of the profile store and removes
// indexed candidates the store no longer reports as validated.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	if s.profiles == nil {
		return ReconcileReport{}, errors.New("reconcile: no profile source configured")
	}

	var report ReconcileReport
	seen := make(map[string]struct{})

	for page := 1; ; page++ {
		snaps, more, err := s.profiles.ListValidated(ctx, page, s.pageSize)
		if err != nil {
			return report, fmt.Errorf("list validated page %d: %w", page, err)
		}
		sum := s.BulkIndex(ctx, snaps)
		for _, r := range sum.Results {
			switch r.Status() {
			case dombatch.StatusIndexed:
				report.Indexed++
				seen[r.ID()] = struct{}{}
			case dombatch.StatusError:
				report.Failed++
				// keep failed ids so a transient write error does not drop them
				seen[r.ID()] = struct{}{}
			case dombatch.StatusRemoved:
				report.Removed++
			}
		}
		if !more || len(snaps) == 0 {
			break
		}
	}

	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list indexed ids: %w", err)
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := s.RemoveCandidate(ctx, id); err != nil {
			report.Failed++
			s.logger.Warn("reconcile remove failed", zap.String("candidate_id", id), zap.Error(err))
			continue
		}
		report.Removed++
	}

	s.logger.Info("reconcile done",
		zap.Int("indexed", report.Indexed),
		zap.Int("removed", report.Removed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// HandleStatusChange re-reads a candidate after a status transition and indexes or removes it.
func (s *Service) HandleStatusChange(ctx context.Context, candidateID string, status candidate.Status) error {
	if !status.Indexable() {
		return s.RemoveCandidate(ctx, candidateID)
	}
	if s.profiles == nil {
		return errors.New("status change: no profile source configured")
	}
	snap, err := s.profiles.GetProfile(ctx, candidateID)
	if errors.Is(err, domain.ErrCandidateNotFound) {
		return s.RemoveCandidate(ctx, candidateID)
	}
	if err != nil {
		return fmt.Errorf("fetch profile %s: %w", candidateID, err)
	}
	_, err = s.IndexCandidate(ctx, candidateID, &snap)
	return err
}

// GetIndexed returns the indexed document of a candidate.
func (s *Service) GetIndexed(ctx context.Context, candidateID string) (candidate.Document, error) {
	doc, err := s.repo.Get(ctx, candidateID)
	if err != nil {
		return candidate.Document{}, fmt.Errorf("get indexed candidate: %w", err)
	}
	return doc, nil
}

// ensure re-attempts the index bootstrap before writes. Writes proceed either
// way: documents written before the index exists are picked up by FT.CREATE.
func (s *Service) ensure(ctx context.Context) {
	if s.boot == nil || s.boot.Ready() {
		return
	}
	if err := s.boot.Ensure(ctx); err != nil {
		s.logger.Warn("index bootstrap still failing", zap.Error(err))
	}
}

func bindID(candidateID string, snap *candidate.ProfileV1) error {
	if snap == nil {
		return domain.Validationf("profile snapshot is required")
	}
	candidateID = strings.TrimSpace(candidateID)
	snapID := strings.TrimSpace(snap.CandidateID)
	switch {
	case candidateID == "" && snapID == "":
		return domain.Validationf("candidate_id is required")
	case snapID == "":
		snap.CandidateID = candidateID
	case candidateID != "" && candidateID != snapID:
		return domain.Validationf("candidate_id %q does not match snapshot %q", candidateID, snapID)
	}
	return nil
}
