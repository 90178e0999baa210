package candidate

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// SchemaV1 is the profile snapshot schema version understood by ToDocument.
const SchemaV1 = "1"

// Date is a calendar date that decodes from "2006-01-02", "2006-01" or RFC 3339.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Validationf("date must be a string")
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return domain.Validationf("unparseable date %q", s)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// ProfileV1 is the versioned profile snapshot exchanged with the profile store.
type ProfileV1 struct {
	SchemaVersion     string         `json:"schema_version,omitempty"`
	CandidateID       string         `json:"candidate_id"`
	Email             string         `json:"email,omitempty"`
	FirstName         string         `json:"first_name,omitempty"`
	LastName          string         `json:"last_name,omitempty"`
	FullName          string         `json:"full_name,omitempty"`
	Phone             string         `json:"phone,omitempty"`
	Title             string         `json:"title"`
	Summary           string         `json:"summary,omitempty"`
	Location          string         `json:"location,omitempty"`
	Sector            string         `json:"sector,omitempty"`
	MainJob           string         `json:"main_job,omitempty"`
	YearsOfExperience *int           `json:"years_of_experience,omitempty"`
	IsVerified        bool           `json:"is_verified"`
	Status            string         `json:"status"`
	AdminScore        *float64       `json:"admin_score,omitempty"`
	Skills            []SkillV1      `json:"skills,omitempty"`
	Educations        []EducationV1  `json:"educations,omitempty"`
	Languages         []LanguageV1   `json:"languages,omitempty"`
	Experiences       []ExperienceV1 `json:"experiences,omitempty"`
	DesiredPositions  []string       `json:"desired_positions,omitempty"`
	ContractType      string         `json:"contract_type,omitempty"`
	DesiredLocation   string         `json:"desired_location,omitempty"`
	Availability      string         `json:"availability,omitempty"`
	SalaryMin         *int           `json:"salary_min,omitempty"`
	SalaryMax         *int           `json:"salary_max,omitempty"`
	PhotoURL          string         `json:"photo_url,omitempty"`
	CVURL             string         `json:"cv_url,omitempty"`
	CreatedAt         *time.Time     `json:"created_at,omitempty"`
	ValidatedAt       *time.Time     `json:"validated_at,omitempty"`
}

// SkillV1 is a skill entry of ProfileV1.
type SkillV1 struct {
	Name            string   `json:"name"`
	Level           string   `json:"level,omitempty"`
	YearsOfPractice *float64 `json:"years_of_practice,omitempty"`
}

// EducationV1 is an education entry of ProfileV1.
type EducationV1 struct {
	Diploma        string `json:"diploma"`
	Institution    string `json:"institution,omitempty"`
	Level          string `json:"level,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

// LanguageV1 is a language entry of ProfileV1.
type LanguageV1 struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// ExperienceV1 is an experience entry of ProfileV1.
type ExperienceV1 struct {
	Position    string `json:"position"`
	CompanyName string `json:"company_name,omitempty"`
	StartDate   *Date  `json:"start_date,omitempty"`
	EndDate     *Date  `json:"end_date,omitempty"`
	IsCurrent   bool   `json:"is_current"`
}

// DisplayName returns the full name, assembled from first and last name when absent.
func (p *ProfileV1) DisplayName() string {
	if n := strings.TrimSpace(p.FullName); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// ToDocument maps the snapshot to a search document.
//
// Defaults: a missing or unknown nested level becomes Unspecified, missing
// years of experience are derived from the experience timeline (0 without one),
// negative years clamp to 0, missing timestamps become now. Duplicate skills
// collapse to the highest level.
func (p *ProfileV1) ToDocument(now time.Time) (Document, error) {
	if p.SchemaVersion != "" && p.SchemaVersion != SchemaV1 {
		return Document{}, domain.Validationf("unsupported profile schema version %q", p.SchemaVersion)
	}
	if strings.TrimSpace(p.Status) == "" {
		return Document{}, domain.Validationf("status is required")
	}
	status, err := ParseStatus(p.Status)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		CandidateID:      strings.TrimSpace(p.CandidateID),
		FullName:         p.DisplayName(),
		Title:            strings.TrimSpace(p.Title),
		Summary:          strings.TrimSpace(p.Summary),
		Location:         strings.TrimSpace(p.Location),
		Sector:           strings.TrimSpace(p.Sector),
		MainJob:          strings.TrimSpace(p.MainJob),
		IsVerified:       p.IsVerified,
		Status:           status,
		AdminScore:       p.AdminScore,
		Skills:           mapSkills(p.Skills),
		Educations:       mapEducations(p.Educations),
		Languages:        mapLanguages(p.Languages),
		Experiences:      mapExperiences(p.Experiences),
		DesiredPositions: nonEmpty(p.DesiredPositions),
		ContractType:     strings.TrimSpace(p.ContractType),
		DesiredLocation:  strings.TrimSpace(p.DesiredLocation),
		Availability:     strings.TrimSpace(p.Availability),
		PhotoURL:         p.PhotoURL,
		CreatedAt:        timeOr(p.CreatedAt, now),
		ValidatedAt:      timeOr(p.ValidatedAt, now),
	}

	switch {
	case p.YearsOfExperience != nil:
		doc.YearsOfExperience = max(0, *p.YearsOfExperience)
	default:
		doc.YearsOfExperience = yearsFromTimeline(doc.Experiences, now)
	}

	if p.SalaryMin != nil || p.SalaryMax != nil {
		doc.Salary = &Salary{}
		if p.SalaryMin != nil {
			doc.Salary.Min = *p.SalaryMin
		}
		if p.SalaryMax != nil {
			doc.Salary.Max = *p.SalaryMax
		}
	}

	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func mapSkills(in []SkillV1) []Skill {
	out := make([]Skill, 0, len(in))
	pos := make(map[string]int, len(in))
	for _, s := range in {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		sk := Skill{Name: name, Level: SkillLadder.Lenient(s.Level)}
		if s.YearsOfPractice != nil && *s.YearsOfPractice > 0 {
			sk.YearsOfPractice = *s.YearsOfPractice
		}
		key := NormalizeTag(name)
		if i, ok := pos[key]; ok {
			if sk.Level > out[i].Level {
				out[i] = sk
			}
			continue
		}
		pos[key] = len(out)
		out = append(out, sk)
	}
	return out
}

func mapEducations(in []EducationV1) []Education {
	out := make([]Education, 0, len(in))
	for _, e := range in {
		if strings.TrimSpace(e.Diploma) == "" && e.Level == "" {
			continue
		}
		lvl := EducationLadder.Lenient(e.Level)
		if lvl == Unspecified {
			// Diplomas are often named after their level ("Master", "Ingénieur").
			lvl = EducationLadder.Lenient(e.Diploma)
		}
		out = append(out, Education{
			Diploma:        strings.TrimSpace(e.Diploma),
			Institution:    strings.TrimSpace(e.Institution),
			Level:          lvl,
			GraduationYear: e.GraduationYear,
		})
	}
	return out
}

func mapLanguages(in []LanguageV1) []Language {
	out := make([]Language, 0, len(in))
	for _, l := range in {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		out = append(out, Language{Name: name, Level: LanguageLadder.Lenient(l.Level)})
	}
	return out
}

func mapExperiences(in []ExperienceV1) []Experience {
	out := make([]Experience, 0, len(in))
	for _, e := range in {
		exp := Experience{
			Position:    strings.TrimSpace(e.Position),
			CompanyName: strings.TrimSpace(e.CompanyName),
			IsCurrent:   e.IsCurrent,
		}
		if e.StartDate != nil && !e.StartDate.IsZero() {
			t := e.StartDate.Time
			exp.StartDate = &t
		}
		if e.EndDate != nil && !e.EndDate.IsZero() {
			t := e.EndDate.Time
			exp.EndDate = &t
		}
		out = append(out, exp)
	}
	return out
}

// yearsFromTimeline sums experience durations, counting open-ended ones up to now.
func yearsFromTimeline(exps []Experience, now time.Time) int {
	var total time.Duration
	for _, e := range exps {
		if e.StartDate == nil {
			continue
		}
		end := now
		if e.EndDate != nil && !e.IsCurrent {
			end = *e.EndDate
		}
		if end.After(*e.StartDate) {
			total += end.Sub(*e.StartDate)
		}
	}
	return int(total.Hours() / (24 * 365))
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback.UTC()
	}
	return t.UTC()
}
