// Package request holds validated candidate search requests.
package request

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum search query length in runes.
	MaxQueryLength  = 512
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxFacetValues bounds each multi-valued filter.
	MaxFacetValues = 20
	// MaxNestedFilters bounds skill and language filters.
	MaxNestedFilters = 10
)

// Kind selects the request shape.
type Kind string

// Request kinds.
const (
	// KindFacet is the flat GET facet search.
	KindFacet Kind = "facet"
	// KindText is the structured POST free-text search.
	KindText Kind = "text"
)

// ContractTypes lists accepted contract types.
var ContractTypes = []string{"CDI", "CDD", "FREELANCE", "INTERIM", "INTERNSHIP", "APPRENTICESHIP"}

// NestedFilter requires one nested entry named Name at MinLevel or above.
type NestedFilter struct {
	Name     string
	MinLevel candidate.Level
}

// SalaryBand selects candidates whose expectations overlap [Min, Max].
type SalaryBand struct {
	Min *int
	Max *int
}

// Filters are the exact, non-scoring constraints of a request.
type Filters struct {
	Sectors           []string
	MainJobs          []string
	ContractTypes     []string
	Locations         []string
	Skills            []NestedFilter
	Languages         []NestedFilter
	EducationLevels   []candidate.Level
	MinEducation      candidate.Level
	MinExperience     *int
	MaxExperience     *int
	ExperienceBuckets []string
	MinAdminScore     *float64
	Salary            *SalaryBand
	VerifiedOnly      bool
}

// Request is a validated search query.
type Request struct {
	kind      Kind
	query     string
	filters   Filters
	page      int
	size      int
	highlight bool
	facets    bool
}

// Option customizes a Request.
type Option func(*Request)

// WithHighlight toggles highlighted fragments.
func WithHighlight(on bool) Option { return func(r *Request) { r.highlight = on } }

// WithFacets toggles facet aggregation.
func WithFacets(on bool) Option { return func(r *Request) { r.facets = on } }

// New validates and normalizes search parameters.
// Defaults: page=1, size=20; facet requests aggregate facets, text requests highlight.
func New(kind Kind, query string, f Filters, page, size int, opts ...Option) (Request, error) {
	switch kind {
	case KindFacet, KindText:
	default:
		return Request{}, domain.Validationf("unknown request kind %q", kind)
	}

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, domain.Validationf("query too long (max %d chars)", MaxQueryLength)
	}

	if page == 0 {
		page = 1
	}
	if page < 1 {
		return Request{}, domain.Validationf("page must be >= 1")
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 || size > MaxPageSize {
		return Request{}, domain.Validationf("size must be between 1 and %d", MaxPageSize)
	}

	nf, err := normalizeFilters(f)
	if err != nil {
		return Request{}, err
	}

	r := Request{
		kind:      kind,
		query:     query,
		filters:   nf,
		page:      page,
		size:      size,
		highlight: kind == KindText,
		facets:    kind == KindFacet,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r, nil
}

func normalizeFilters(f Filters) (Filters, error) {
	var err error
	if f.Sectors, err = cleanList("sectors", f.Sectors, false); err != nil {
		return Filters{}, err
	}
	if f.MainJobs, err = cleanList("main_jobs", f.MainJobs, false); err != nil {
		return Filters{}, err
	}
	if f.Locations, err = cleanList("locations", f.Locations, false); err != nil {
		return Filters{}, err
	}
	if f.ContractTypes, err = cleanList("contract_types", f.ContractTypes, true); err != nil {
		return Filters{}, err
	}
	for _, ct := range f.ContractTypes {
		if !isContractType(ct) {
			return Filters{}, domain.Validationf("unknown contract type %q", ct)
		}
	}

	if len(f.Skills) > MaxNestedFilters || len(f.Languages) > MaxNestedFilters {
		return Filters{}, domain.Validationf("too many skill or language filters (max %d)", MaxNestedFilters)
	}
	for _, n := range f.Skills {
		if err := checkNested("skill", n, candidate.SkillLadder); err != nil {
			return Filters{}, err
		}
	}
	for _, n := range f.Languages {
		if err := checkNested("language", n, candidate.LanguageLadder); err != nil {
			return Filters{}, err
		}
	}

	for _, lvl := range f.EducationLevels {
		if lvl <= candidate.Unspecified || lvl > candidate.EducationLadder.Top() {
			return Filters{}, domain.Validationf("unknown education level %d", lvl)
		}
	}
	if lvl := f.MinEducation; lvl < candidate.Unspecified || lvl > candidate.EducationLadder.Top() {
		return Filters{}, domain.Validationf("unknown education level %d", lvl)
	}

	if f.MinExperience != nil && *f.MinExperience < 0 {
		return Filters{}, domain.Validationf("min_experience must be >= 0")
	}
	if f.MaxExperience != nil && *f.MaxExperience < 0 {
		return Filters{}, domain.Validationf("max_experience must be >= 0")
	}
	if f.MinExperience != nil && f.MaxExperience != nil && *f.MinExperience > *f.MaxExperience {
		return Filters{}, domain.Validationf("min_experience exceeds max_experience")
	}
	for _, key := range f.ExperienceBuckets {
		if _, ok := ExperienceBucket(key); !ok {
			return Filters{}, domain.Validationf("unknown experience range %q", key)
		}
	}

	if s := f.MinAdminScore; s != nil && (*s < 0 || *s > candidate.MaxAdminScore) {
		return Filters{}, domain.Validationf("min_admin_score must be between 0 and %g", candidate.MaxAdminScore)
	}
	if b := f.Salary; b != nil {
		if b.Min == nil && b.Max == nil {
			f.Salary = nil
		} else if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return Filters{}, domain.Validationf("salary min exceeds max")
		}
	}
	return f, nil
}

func checkNested(kind string, n NestedFilter, ladder candidate.Ladder) error {
	if strings.TrimSpace(n.Name) == "" {
		return domain.Validationf("nested filter name is required")
	}
	if n.MinLevel < candidate.Unspecified || n.MinLevel > ladder.Top() {
		return domain.Validationf("unknown %s level %d", kind, n.MinLevel)
	}
	return nil
}

func cleanList(name string, in []string, upper bool) ([]string, error) {
	if len(in) > MaxFacetValues {
		return nil, domain.Validationf("too many %s values (max %d)", name, MaxFacetValues)
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if upper {
			v = strings.ToUpper(v)
		}
		out = append(out, v)
	}
	return out, nil
}

func isContractType(s string) bool {
	for _, ct := range ContractTypes {
		if ct == s {
			return true
		}
	}
	return false
}

// Kind returns the request shape.
func (r Request) Kind() Kind { return r.kind }

// Query returns the free-text query, possibly empty.
func (r Request) Query() string { return r.query }

// Filters returns the exact constraints.
func (r Request) Filters() Filters { return r.filters }

// Page returns the 1-based page number.
func (r Request) Page() int { return r.page }

// Size returns the page size.
func (r Request) Size() int { return r.size }

// Offset returns the index of the first hit of the page.
func (r Request) Offset() int { return (r.page - 1) * r.size }

// Highlight reports whether fragments are requested.
func (r Request) Highlight() bool { return r.highlight }

// Facets reports whether facet counts are requested.
func (r Request) Facets() bool { return r.facets }
