// Package ranking boosts text relevance with candidate quality signals.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
)

// Model holds the boosting parameters.
type Model struct {
	// AdminWeight scales the admin score contribution: factor = 1 + score/MaxAdminScore*AdminWeight.
	AdminWeight float64
	// VerifiedBoost multiplies the score of verified candidates.
	VerifiedBoost float64
	// ExperienceCap is the maximum relative boost from years of experience.
	ExperienceCap float64
	// ExperienceScale is the years at which the experience boost reaches ~63% of its cap.
	ExperienceScale float64
	// RecencyOffset is the age under which no recency decay applies.
	RecencyOffset time.Duration
	// RecencyHalfLife is the age past the offset at which the recency factor is 0.5.
	RecencyHalfLife time.Duration
	// RecencyFloor bounds the recency factor from below.
	RecencyFloor float64
}

// Default returns the production model.
func Default() Model {
	return Model{
		AdminWeight:     1,
		VerifiedBoost:   1.2,
		ExperienceCap:   0.3,
		ExperienceScale: 5,
		RecencyOffset:   7 * 24 * time.Hour,
		RecencyHalfLife: 90 * 24 * time.Hour,
		RecencyFloor:    0.1,
	}
}

// Signals are the per-candidate inputs of the model.
type Signals struct {
	AdminScore  *float64
	Verified    bool
	Years       int
	ValidatedAt time.Time
}

// SignalsOf extracts the ranking signals of a document.
func SignalsOf(d candidate.Document) Signals {
	return Signals{
		AdminScore:  d.AdminScore,
		Verified:    d.IsVerified,
		Years:       d.YearsOfExperience,
		ValidatedAt: d.ValidatedAt,
	}
}

// Multiplier returns the product of all boost factors for sig at now.
func (m Model) Multiplier(sig Signals, now time.Time) float64 {
	return m.admin(sig.AdminScore) * m.verified(sig.Verified) * m.experience(sig.Years) * m.recency(sig.ValidatedAt, now)
}

func (m Model) admin(score *float64) float64 {
	if score == nil {
		return 1
	}
	s := math.Max(0, math.Min(*score, candidate.MaxAdminScore))
	return 1 + s/candidate.MaxAdminScore*m.AdminWeight
}

func (m Model) verified(v bool) float64 {
	if v {
		return m.VerifiedBoost
	}
	return 1
}

func (m Model) experience(years int) float64 {
	if years <= 0 || m.ExperienceScale <= 0 {
		return 1
	}
	return 1 + m.ExperienceCap*(1-math.Exp(-float64(years)/m.ExperienceScale))
}

// recency is a Gaussian decay: exp(-ln2 * (age-offset)^2 / halfLife^2).
func (m Model) recency(validatedAt, now time.Time) float64 {
	if validatedAt.IsZero() || m.RecencyHalfLife <= 0 {
		return 1
	}
	age := now.Sub(validatedAt) - m.RecencyOffset
	if age <= 0 {
		return 1
	}
	x := float64(age) / float64(m.RecencyHalfLife)
	return math.Max(m.RecencyFloor, math.Exp(-math.Ln2*x*x))
}

// Rank rescores hits in place and sorts them by score desc, admin score desc,
// years desc, then candidate id asc.
func (m Model) Rank(hits []result.Hit, now time.Time) {
	for i, h := range hits {
		hits[i] = h.WithScore(h.BaseScore() * m.Multiplier(SignalsOf(h.Document()), now))
	}
	sort.SliceStable(hits, func(i, j int) bool { return Less(hits[i], hits[j]) })
}

// Less is the deterministic result order.
func Less(a, b result.Hit) bool {
	if a.Score() != b.Score() {
		return a.Score() > b.Score()
	}
	da, db := a.Document(), b.Document()
	if sa, sb := adminOrZero(da.AdminScore), adminOrZero(db.AdminScore); sa != sb {
		return sa > sb
	}
	if da.YearsOfExperience != db.YearsOfExperience {
		return da.YearsOfExperience > db.YearsOfExperience
	}
	return da.CandidateID < db.CandidateID
}

func adminOrZero(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}
