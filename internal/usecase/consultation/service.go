// Package consultation serves quota-gated full-profile views.
package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain"
	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	domquota "github.com/kailas-cloud/talentdex/internal/domain/quota"
	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
	"github.com/kailas-cloud/talentdex/internal/logger"
	"github.com/kailas-cloud/talentdex/internal/metrics"
)

// Timeouts bound each collaborator call.
type Timeouts struct {
	Directory time.Duration
	Quota     time.Duration
	Profile   time.Duration
	Index     time.Duration
	Audit     time.Duration
}

// DefaultTimeouts returns the per-step defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Directory: 2 * time.Second,
		Quota:     2 * time.Second,
		Profile:   3 * time.Second,
		Index:     time.Second,
		Audit:     5 * time.Second,
	}
}

func (t *Timeouts) applyDefaults() {
	d := DefaultTimeouts()
	if t.Directory <= 0 {
		t.Directory = d.Directory
	}
	if t.Quota <= 0 {
		t.Quota = d.Quota
	}
	if t.Profile <= 0 {
		t.Profile = d.Profile
	}
	if t.Index <= 0 {
		t.Index = d.Index
	}
	if t.Audit <= 0 {
		t.Audit = d.Audit
	}
}

// ProfileView is a consulted profile enriched with index-side metadata.
type ProfileView struct {
	Profile    candidate.ProfileV1
	IsIndexed  bool
	AdminScore *float64
	IsVerified bool
	Quota      domquota.Decision
}

// Service orchestrates ViewProfile across the quota, profile and audit collaborators.
type Service struct {
	directory Directory
	quota     QuotaGate
	profiles  ProfileStore
	index     IndexReader
	audit     AuditRecorder
	timeouts  Timeouts
	logger    *zap.Logger
	now       func() time.Time
	pending   sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithTimeouts overrides the per-step timeouts. Zero fields keep their default.
func WithTimeouts(t Timeouts) Option {
	return func(s *Service) {
		t.applyDefaults()
		s.timeouts = t
	}
}

// WithLogger sets the logger used by detached audit writes.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the time source of audit entries.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates a consultation service.
func New(
	directory Directory, quota QuotaGate, profiles ProfileStore,
	index IndexReader, audit AuditRecorder, opts ...Option,
) *Service {
	s := &Service{
		directory: directory,
		quota:     quota,
		profiles:  profiles,
		index:     index,
		audit:     audit,
		timeouts:  DefaultTimeouts(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ViewProfile consumes one profile view and returns the candidate's full profile.
//
// The quota is debited before the profile is fetched: a failed fetch still
// costs a view, and a committed debit is never rolled back. Index enrichment
// and audit recording are best effort.
func (s *Service) ViewProfile(ctx context.Context, caller recruiter.Caller, candidateID string) (ProfileView, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return ProfileView{}, domain.Validationf("candidate_id is required")
	}

	rec, err := s.resolve(ctx, caller)
	if err != nil {
		return ProfileView{}, err
	}

	decision, err := s.debit(ctx, rec.CompanyID)
	if err != nil {
		return ProfileView{}, err
	}

	profile, err := s.fetch(ctx, candidateID)
	if err != nil {
		return ProfileView{}, err
	}

	view := ProfileView{Profile: profile, Quota: decision}
	s.enrich(ctx, candidateID, &view)
	s.record(ctx, caller, rec, &profile, candidateID)
	return view, nil
}

// Wait blocks until detached audit writes have finished.
func (s *Service) Wait() { s.pending.Wait() }

func (s *Service) resolve(ctx context.Context, caller recruiter.Caller) (recruiter.Recruiter, error) {
	if strings.TrimSpace(caller.RecruiterID) == "" {
		return recruiter.Recruiter{}, fmt.Errorf("%w: missing recruiter identity", domain.ErrUnauthorized)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Directory)
	defer cancel()

	rec, err := s.directory.GetRecruiter(cctx, caller.RecruiterID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return recruiter.Recruiter{}, err
	case err != nil:
		return recruiter.Recruiter{}, upstream("resolve recruiter", err)
	case !rec.HasCompany():
		return recruiter.Recruiter{}, fmt.Errorf("%w: recruiter %s has no company", domain.ErrUnauthorized, caller.RecruiterID)
	}
	if rec.Email == "" {
		rec.Email = caller.RecruiterEmail
	}
	return rec, nil
}

func (s *Service) debit(ctx context.Context, companyID string) (domquota.Decision, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Quota)
	defer cancel()

	d, err := s.quota.CheckAndDebit(cctx, companyID, domquota.TypeProfileViews)
	switch {
	case errors.Is(err, domain.ErrNoSubscription), errors.Is(err, domain.ErrQuotaExceeded):
		return domquota.Decision{}, err
	case err != nil:
		return domquota.Decision{}, upstream("check quota", err)
	}
	if err := d.Err(); err != nil {
		return domquota.Decision{}, err
	}
	return d, nil
}

func (s *Service) fetch(ctx context.Context, candidateID string) (candidate.ProfileV1, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Profile)
	defer cancel()

	p, err := s.profiles.GetProfile(cctx, candidateID)
	switch {
	case errors.Is(err, domain.ErrCandidateNotFound):
		return candidate.ProfileV1{}, err
	case err != nil:
		return candidate.ProfileV1{}, upstream("fetch profile", err)
	}
	return p, nil
}

func (s *Service) enrich(ctx context.Context, candidateID string, view *ProfileView) {
	if s.index == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Index)
	defer cancel()

	doc, err := s.index.GetIndexed(cctx, candidateID)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			logger.FromContextOr(ctx, s.logger).Warn("index enrichment failed",
				zap.String("candidate_id", candidateID), zap.Error(err))
		}
		return
	}
	view.IsIndexed = true
	view.AdminScore = doc.AdminScore
	view.IsVerified = doc.IsVerified
}

// record writes the audit entry in the background. The write keeps the
// request's values but not its cancellation.
func (s *Service) record(
	ctx context.Context, caller recruiter.Caller, rec recruiter.Recruiter,
	profile *candidate.ProfileV1, candidateID string,
) {
	entry := domaudit.Entry{
		RecruiterID:    rec.ID,
		RecruiterEmail: rec.Email,
		CompanyID:      rec.CompanyID,
		CompanyName:    rec.CompanyName,
		CandidateID:    candidateID,
		CandidateEmail: profile.Email,
		CandidateName:  profile.DisplayName(),
		AccessType:     domaudit.AccessProfileView,
		AccessedAt:     s.now().UTC(),
		IPAddress:      caller.IPAddress,
		UserAgent:      caller.UserAgent,
	}
	if entry.RecruiterID == "" {
		entry.RecruiterID = caller.RecruiterID
	}

	log := logger.FromContextOr(ctx, s.logger)
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.Audit)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if _, err := s.audit.Record(actx, entry); err != nil {
			metrics.AuditFailuresTotal.Inc()
			log.Error("audit record failed",
				zap.String("candidate_id", entry.CandidateID),
				zap.String("recruiter_id", entry.RecruiterID),
				zap.Error(err),
			)
		}
	}()
}

// upstream maps collaborator failures that are not already typed to ErrUpstreamUnavailable.
func upstream(op string, err error) error {
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
}
