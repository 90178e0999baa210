package candidate

import (
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// Status is the authoritative lifecycle status of a candidate profile.
type Status string

// Profile statuses. Only StatusValidated is ever indexed.
const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
	StatusRejected  Status = "REJECTED"
	StatusArchived  Status = "ARCHIVED"
)

// ParseStatus resolves a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusDraft, StatusPending, StatusValidated, StatusRejected, StatusArchived:
		return st, nil
	default:
		return "", domain.Validationf("unknown profile status %q", s)
	}
}

// Indexable reports whether a profile in this status belongs in the index.
func (s Status) Indexable() bool { return s == StatusValidated }

// MaxAdminScore is the upper bound of the admin evaluation score.
const MaxAdminScore = 5.0

// Skill is a nested skill entry.
type Skill struct {
	Name            string
	Level           Level
	YearsOfPractice float64
}

// Education is a nested education entry.
type Education struct {
	Diploma        string
	Institution    string
	Level          Level
	GraduationYear int
}

// Language is a nested language entry.
type Language struct {
	Name  string
	Level Level
}

// Experience is a nested work experience entry.
type Experience struct {
	Position    string
	CompanyName string
	StartDate   *time.Time
	EndDate     *time.Time
	IsCurrent   bool
}

// Salary is an expected yearly salary band.
type Salary struct {
	Min int
	Max int
}

// Document is the denormalized search projection of a validated profile.
type Document struct {
	CandidateID       string
	FullName          string
	Title             string
	Summary           string
	Location          string
	Sector            string
	MainJob           string
	YearsOfExperience int
	IsVerified        bool
	Status            Status
	AdminScore        *float64
	Skills            []Skill
	Educations        []Education
	Languages         []Language
	Experiences       []Experience
	DesiredPositions  []string
	ContractType      string
	DesiredLocation   string
	Availability      string
	Salary            *Salary
	PhotoURL          string
	CreatedAt         time.Time
	ValidatedAt       time.Time
}

// Validate checks the document invariants.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.CandidateID) == "" {
		return domain.Validationf("candidate_id is required")
	}
	if d.YearsOfExperience < 0 {
		return domain.Validationf("years_of_experience must be >= 0")
	}
	if d.AdminScore != nil && (*d.AdminScore < 0 || *d.AdminScore > MaxAdminScore) {
		return domain.Validationf("admin_score must be between 0 and %g", MaxAdminScore)
	}
	if d.Salary != nil && d.Salary.Max > 0 && d.Salary.Min > d.Salary.Max {
		return domain.Validationf("salary min %d exceeds max %d", d.Salary.Min, d.Salary.Max)
	}
	return nil
}

// CurrentJobTitle returns the position of the current experience, if any.
func (d *Document) CurrentJobTitle() string {
	for _, e := range d.Experiences {
		if e.IsCurrent {
			return e.Position
		}
	}
	return ""
}

// Positions returns past and desired positions.
func (d *Document) Positions() []string {
	out := make([]string, 0, len(d.Experiences)+len(d.DesiredPositions))
	for _, e := range d.Experiences {
		if e.Position != "" && !e.IsCurrent {
			out = append(out, e.Position)
		}
	}
	return append(out, d.DesiredPositions...)
}

// SkillNames returns the skill names in source order.
func (d *Document) SkillNames() []string {
	out := make([]string, len(d.Skills))
	for i, s := range d.Skills {
		out[i] = s.Name
	}
	return out
}

// Composite keys bind a nested entry's name and level into one tag so that a
// filter on both matches within a single entry.

// SkillKey returns the composite tag for a skill at a level.
func SkillKey(name string, lvl Level) string { return compositeKey(name, lvl) }

// LanguageKey returns the composite tag for a language at a level.
func LanguageKey(name string, lvl Level) string { return compositeKey(name, lvl) }

func compositeKey(name string, lvl Level) string {
	return NormalizeTag(name) + "#" + strconv.Itoa(int(lvl))
}

// SkillKeys returns the composite skill tags of the document.
func (d *Document) SkillKeys() []string {
	out := make([]string, len(d.Skills))
	for i, s := range d.Skills {
		out[i] = SkillKey(s.Name, s.Level)
	}
	return out
}

// LanguageKeys returns the composite language tags of the document.
func (d *Document) LanguageKeys() []string {
	out := make([]string, len(d.Languages))
	for i, l := range d.Languages {
		out[i] = LanguageKey(l.Name, l.Level)
	}
	return out
}

// EducationLevels returns the distinct education level ordinals of the document.
func (d *Document) EducationLevels() []string {
	seen := make(map[Level]struct{}, len(d.Educations))
	out := make([]string, 0, len(d.Educations))
	for _, e := range d.Educations {
		if _, ok := seen[e.Level]; ok {
			continue
		}
		seen[e.Level] = struct{}{}
		out = append(out, strconv.Itoa(int(e.Level)))
	}
	return out
}

// HighestEducation returns the highest education level held.
func (d *Document) HighestEducation() Level {
	best := Unspecified
	for _, e := range d.Educations {
		if e.Level > best {
			best = e.Level
		}
	}
	return best
}
