package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// jsonDoc is the stored document: the profile projection plus derived search fields.
// Nested levels are stored by ladder name so the stored form survives ladder reordering.
type jsonDoc struct {
	CandidateID       string           `json:"candidate_id"`
	FullName          string           `json:"full_name,omitempty"`
	Title             string           `json:"title"`
	Summary           string           `json:"summary,omitempty"`
	Location          string           `json:"location,omitempty"`
	Sector            string           `json:"sector,omitempty"`
	MainJob           string           `json:"main_job,omitempty"`
	YearsOfExperience int              `json:"years_of_experience"`
	IsVerified        bool             `json:"is_verified"`
	Status            string           `json:"status"`
	AdminScore        *float64         `json:"admin_score,omitempty"`
	Skills            []jsonSkill      `json:"skills,omitempty"`
	Educations        []jsonEducation  `json:"educations,omitempty"`
	Languages         []jsonLanguage   `json:"languages,omitempty"`
	Experiences       []jsonExperience `json:"experiences,omitempty"`
	DesiredPositions  []string         `json:"desired_positions,omitempty"`
	ContractType      string           `json:"contract_type,omitempty"`
	DesiredLocation   string           `json:"desired_location,omitempty"`
	Availability      string           `json:"availability,omitempty"`
	Salary            *jsonSalary      `json:"salary,omitempty"`
	PhotoURL          string           `json:"photo_url,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	ValidatedAt       time.Time        `json:"validated_at"`

	Search searchFields `json:"search"`
}

type jsonSkill struct {
	Name            string  `json:"name"`
	Level           string  `json:"level"`
	YearsOfPractice float64 `json:"years_of_practice,omitempty"`
}

type jsonEducation struct {
	Diploma        string `json:"diploma,omitempty"`
	Institution    string `json:"institution,omitempty"`
	Level          string `json:"level"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

type jsonLanguage struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type jsonExperience struct {
	Position    string     `json:"position,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsCurrent   bool       `json:"is_current"`
}

type jsonSalary struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// searchFields are derived at write time and never read back into the domain.
type searchFields struct {
	Title        string `json:"title,omitempty"`
	CurrentJob   string `json:"current_job,omitempty"`
	Skills       string `json:"skills,omitempty"`
	Positions    string `json:"positions,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Autocomplete string `json:"autocomplete,omitempty"`

	SkillKeys       []string `json:"skill_keys"`
	SkillNames      []string `json:"skill_names"`
	LanguageKeys    []string `json:"language_keys"`
	LanguageNames   []string `json:"language_names"`
	EducationLevels []string `json:"education_levels"`
	SectorKey       string   `json:"sector_key,omitempty"`
	MainJobKey      string   `json:"main_job_key,omitempty"`
	LocationKey     string   `json:"location_key,omitempty"`
	Verified        string   `json:"verified"`

	ValidatedAt int64 `json:"validated_at"`
	SalaryLow   *int  `json:"salary_low,omitempty"`
	SalaryHigh  *int  `json:"salary_high,omitempty"`
}

func buildJSONDoc(doc *domcand.Document) jsonDoc {
	j := jsonDoc{
		CandidateID:       doc.CandidateID,
		FullName:          doc.FullName,
		Title:             doc.Title,
		Summary:           doc.Summary,
		Location:          doc.Location,
		Sector:            doc.Sector,
		MainJob:           doc.MainJob,
		YearsOfExperience: doc.YearsOfExperience,
		IsVerified:        doc.IsVerified,
		Status:            string(doc.Status),
		AdminScore:        doc.AdminScore,
		DesiredPositions:  doc.DesiredPositions,
		ContractType:      strings.ToUpper(doc.ContractType),
		DesiredLocation:   doc.DesiredLocation,
		Availability:      doc.Availability,
		PhotoURL:          doc.PhotoURL,
		CreatedAt:         doc.CreatedAt.UTC(),
		ValidatedAt:       doc.ValidatedAt.UTC(),
	}

	for _, s := range doc.Skills {
		j.Skills = append(j.Skills, jsonSkill{
			Name: s.Name, Level: domcand.SkillLadder.Name(s.Level), YearsOfPractice: s.YearsOfPractice,
		})
	}
	for _, e := range doc.Educations {
		j.Educations = append(j.Educations, jsonEducation{
			Diploma: e.Diploma, Institution: e.Institution,
			Level: domcand.EducationLadder.Name(e.Level), GraduationYear: e.GraduationYear,
		})
	}
	for _, l := range doc.Languages {
		j.Languages = append(j.Languages, jsonLanguage{Name: l.Name, Level: domcand.LanguageLadder.Name(l.Level)})
	}
	for _, e := range doc.Experiences {
		j.Experiences = append(j.Experiences, jsonExperience{
			Position: e.Position, CompanyName: e.CompanyName,
			StartDate: utcPtr(e.StartDate), EndDate: utcPtr(e.EndDate), IsCurrent: e.IsCurrent,
		})
	}
	if doc.Salary != nil {
		j.Salary = &jsonSalary{Min: doc.Salary.Min, Max: doc.Salary.Max}
	}

	j.Search = buildSearchFields(doc)
	return j
}

func buildSearchFields(doc *domcand.Document) searchFields {
	positions := doc.Positions()
	skillNames := doc.SkillNames()

	sf := searchFields{
		Title:        domcand.Canonical(doc.Title),
		CurrentJob:   domcand.Canonical(doc.CurrentJobTitle()),
		Skills:       canonicalJoin(skillNames),
		Positions:    canonicalJoin(positions),
		Summary:      domcand.Canonical(doc.Summary),
		Autocomplete: strings.Join(domcand.EdgeNGrams(append([]string{doc.FullName, doc.Title}, doc.DesiredPositions...)...), " "),

		SkillKeys:       doc.SkillKeys(),
		SkillNames:      normalizeAll(skillNames),
		LanguageKeys:    doc.LanguageKeys(),
		LanguageNames:   make([]string, 0, len(doc.Languages)),
		EducationLevels: doc.EducationLevels(),
		SectorKey:       domcand.NormalizeTag(doc.Sector),
		MainJobKey:      domcand.NormalizeTag(doc.MainJob),
		LocationKey:     domcand.NormalizeTag(doc.Location),
		Verified:        strconv.FormatBool(doc.IsVerified),
		ValidatedAt:     doc.ValidatedAt.Unix(),
	}
	for _, l := range doc.Languages {
		sf.LanguageNames = append(sf.LanguageNames, domcand.NormalizeTag(l.Name))
	}

	// A single known bound stands for both, so overlap filters still apply.
	if s := doc.Salary; s != nil {
		lo, hi := s.Min, s.Max
		if lo == 0 {
			lo = hi
		}
		if hi == 0 {
			hi = lo
		}
		sf.SalaryLow, sf.SalaryHigh = &lo, &hi
	}
	return sf
}

func (j *jsonDoc) toDocument() domcand.Document {
	doc := domcand.Document{
		CandidateID:       j.CandidateID,
		FullName:          j.FullName,
		Title:             j.Title,
		Summary:           j.Summary,
		Location:          j.Location,
		Sector:            j.Sector,
		MainJob:           j.MainJob,
		YearsOfExperience: j.YearsOfExperience,
		IsVerified:        j.IsVerified,
		Status:            domcand.Status(j.Status),
		AdminScore:        j.AdminScore,
		DesiredPositions:  j.DesiredPositions,
		ContractType:      j.ContractType,
		DesiredLocation:   j.DesiredLocation,
		Availability:      j.Availability,
		PhotoURL:          j.PhotoURL,
		CreatedAt:         j.CreatedAt,
		ValidatedAt:       j.ValidatedAt,
	}
	for _, s := range j.Skills {
		doc.Skills = append(doc.Skills, domcand.Skill{
			Name: s.Name, Level: domcand.SkillLadder.Lenient(s.Level), YearsOfPractice: s.YearsOfPractice,
		})
	}
	for _, e := range j.Educations {
		doc.Educations = append(doc.Educations, domcand.Education{
			Diploma: e.Diploma, Institution: e.Institution,
			Level: domcand.EducationLadder.Lenient(e.Level), GraduationYear: e.GraduationYear,
		})
	}
	for _, l := range j.Languages {
		doc.Languages = append(doc.Languages, domcand.Language{Name: l.Name, Level: domcand.LanguageLadder.Lenient(l.Level)})
	}
	for _, e := range j.Experiences {
		doc.Experiences = append(doc.Experiences, domcand.Experience{
			Position: e.Position, CompanyName: e.CompanyName,
			StartDate: e.StartDate, EndDate: e.EndDate, IsCurrent: e.IsCurrent,
		})
	}
	if j.Salary != nil {
		doc.Salary = &domcand.Salary{Min: j.Salary.Min, Max: j.Salary.Max}
	}
	return doc
}

// Encode marshals a document into its stored JSON form.
func Encode(doc *domcand.Document) ([]byte, error) {
	data, err := json.Marshal(buildJSONDoc(doc))
	if err != nil {
		return nil, fmt.Errorf("marshal candidate %s: %w", doc.CandidateID, err)
	}
	return data, nil
}

// Decode parses a stored document. It accepts both the bare object returned
// by FT.SEARCH and the single-element array returned by JSON.GET $.
func Decode(data []byte) (domcand.Document, error) {
	data = bytes.TrimSpace(data)
	var j jsonDoc
	if len(data) > 0 && data[0] == '[' {
		var arr []jsonDoc
		if err := json.Unmarshal(data, &arr); err != nil {
			return domcand.Document{}, fmt.Errorf("unmarshal candidate: %w", err)
		}
		if len(arr) == 0 {
			return domcand.Document{}, fmt.Errorf("unmarshal candidate: empty result")
		}
		j = arr[0]
	} else if err := json.Unmarshal(data, &j); err != nil {
		return domcand.Document{}, fmt.Errorf("unmarshal candidate: %w", err)
	}
	return j.toDocument(), nil
}

func canonicalJoin(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if c := domcand.Canonical(v); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, domcand.NormalizeTag(v))
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
