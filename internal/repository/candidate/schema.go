package candidate

import (
	"strings"

	"github.com/kailas-cloud/talentdex/internal/db"
)

// Key layout.
const (
	KeyPrefix = "talentdex:candidate:"
	IndexName = "talentdex:candidates:idx"
)

// Indexed field aliases, as referenced in queries.
const (
	FieldTitle        = "title"
	FieldCurrentJob   = "current_job"
	FieldPositions    = "positions"
	FieldSkillsText   = "skills_text"
	FieldSummary      = "summary"
	FieldAutocomplete = "autocomplete"

	FieldStatus       = "status"
	FieldSkillKey     = "skill_key"
	FieldSkillName    = "skill_name"
	FieldLanguageKey  = "language_key"
	FieldLanguageName = "language_name"
	FieldEducation    = "education_level"
	FieldSector       = "sector"
	FieldSectorKey    = "sector_key"
	FieldMainJob      = "main_job"
	FieldMainJobKey   = "main_job_key"
	FieldLocation     = "location"
	FieldLocationKey  = "location_key"
	FieldContractType = "contract_type"
	FieldVerified     = "is_verified"

	FieldYears       = "years"
	FieldAdminScore  = "admin_score"
	FieldValidatedAt = "validated_at"
	FieldSalaryLow   = "salary_min"
	FieldSalaryHigh  = "salary_max"
)

// Text field weights. Title and current job dominate.
const (
	WeightTitle      = 5.0
	WeightCurrentJob = 5.0
	WeightSkills     = 3.0
	WeightPositions  = 2.0
	WeightSummary    = 1.0
)

// TextFields are the weighted full-text fields in descending weight order.
var TextFields = []string{FieldTitle, FieldCurrentJob, FieldSkillsText, FieldPositions, FieldSummary}

// displayTagSeparator keeps commas inside display values ("Paris, France") intact.
const displayTagSeparator = "|"

// Schema returns the candidate index definition, with French stemming.
func Schema(name string) (*db.IndexDefinition, error) {
	return db.NewIndex(name).
		OnJSON().
		Prefix(KeyPrefix).
		Language("french").
		Text("$.search.title", FieldTitle, WeightTitle).
		Text("$.search.current_job", FieldCurrentJob, WeightCurrentJob).
		Text("$.search.skills", FieldSkillsText, WeightSkills).
		Text("$.search.positions", FieldPositions, WeightPositions).
		Text("$.search.summary", FieldSummary, WeightSummary).
		TextNoStem("$.search.autocomplete", FieldAutocomplete).
		Tag("$.status", FieldStatus).
		Tag("$.search.skill_keys[*]", FieldSkillKey).
		Tag("$.search.skill_names[*]", FieldSkillName).
		Tag("$.search.language_keys[*]", FieldLanguageKey).
		Tag("$.search.language_names[*]", FieldLanguageName).
		Tag("$.search.education_levels[*]", FieldEducation).
		TagWithOpts("$.sector", FieldSector, displayTagSeparator, true).
		Tag("$.search.sector_key", FieldSectorKey).
		TagWithOpts("$.main_job", FieldMainJob, displayTagSeparator, true).
		Tag("$.search.main_job_key", FieldMainJobKey).
		TagWithOpts("$.location", FieldLocation, displayTagSeparator, true).
		Tag("$.search.location_key", FieldLocationKey).
		Tag("$.contract_type", FieldContractType).
		Tag("$.search.verified", FieldVerified).
		Numeric("$.years_of_experience", FieldYears).Sortable().
		Numeric("$.admin_score", FieldAdminScore).Sortable().
		Numeric("$.search.validated_at", FieldValidatedAt).
		Numeric("$.search.salary_low", FieldSalaryLow).
		Numeric("$.search.salary_high", FieldSalaryHigh).
		Build()
}

// Key returns the storage key of a candidate document.
func Key(candidateID string) string {
	return KeyPrefix + candidateID
}

// IDFromKey extracts the candidate id from a storage key.
func IDFromKey(key string) string {
	return strings.TrimPrefix(key, KeyPrefix)
}
