package chi

import (
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
)

// queryBinding pairs a query parameter with its optional destination.
type queryBinding struct {
	name string
	dest any
}

// bindQuery binds optional form-style parameters. Destinations are pointers to pointer fields.
func bindQuery(q url.Values, bindings ...queryBinding) error {
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return domain.Validationf("invalid parameter %s: %v", b.name, err)
		}
	}
	return nil
}

// FacetParams are the query parameters of GET /search.
type FacetParams struct {
	Query            *string
	Sectors          *[]string
	MainJobs         *[]string
	ContractTypes    *[]string
	Locations        *[]string
	Skills           *[]string
	Languages        *[]string
	MinExperience    *int
	MaxExperience    *int
	ExperienceRanges *[]string
	MinAdminScore    *float64
	VerifiedOnly     *bool
	Highlight        *bool
	Page             *int
	Size             *int
}

func bindFacetParams(q url.Values) (FacetParams, error) {
	var p FacetParams
	err := bindQuery(q,
		queryBinding{"query", &p.Query},
		queryBinding{"sectors", &p.Sectors},
		queryBinding{"main_jobs", &p.MainJobs},
		queryBinding{"contract_types", &p.ContractTypes},
		queryBinding{"locations", &p.Locations},
		queryBinding{"skills", &p.Skills},
		queryBinding{"languages", &p.Languages},
		queryBinding{"min_experience", &p.MinExperience},
		queryBinding{"max_experience", &p.MaxExperience},
		queryBinding{"experience_ranges", &p.ExperienceRanges},
		queryBinding{"min_admin_score", &p.MinAdminScore},
		queryBinding{"verified_only", &p.VerifiedOnly},
		queryBinding{"highlight", &p.Highlight},
		queryBinding{"page", &p.Page},
		queryBinding{"size", &p.Size},
	)
	return p, err
}

// toRequest builds a facet request. List parameters accept repeated keys and comma-separated values.
func (p FacetParams) toRequest() (request.Request, error) {
	skills, err := request.ParseNestedList(splitCSV(p.Skills), candidate.SkillLadder)
	if err != nil {
		return request.Request{}, err
	}
	languages, err := request.ParseNestedList(splitCSV(p.Languages), candidate.LanguageLadder)
	if err != nil {
		return request.Request{}, err
	}
	f := request.Filters{
		Sectors:           splitCSV(p.Sectors),
		MainJobs:          splitCSV(p.MainJobs),
		ContractTypes:     splitCSV(p.ContractTypes),
		Locations:         splitCSV(p.Locations),
		Skills:            skills,
		Languages:         languages,
		MinExperience:     p.MinExperience,
		MaxExperience:     p.MaxExperience,
		ExperienceBuckets: splitCSV(p.ExperienceRanges),
		MinAdminScore:     p.MinAdminScore,
		VerifiedOnly:      deref(p.VerifiedOnly),
	}
	var opts []request.Option
	if p.Highlight != nil {
		opts = append(opts, request.WithHighlight(*p.Highlight))
	}
	return request.New(request.KindFacet, deref(p.Query), f, deref(p.Page), deref(p.Size), opts...)
}

// toRequest builds a text request.
func (b *SearchBody) toRequest() (request.Request, error) {
	skills, err := nestedFilters(b.Skills, candidate.SkillLadder)
	if err != nil {
		return request.Request{}, err
	}
	languages, err := nestedFilters(b.Languages, candidate.LanguageLadder)
	if err != nil {
		return request.Request{}, err
	}
	levels := make([]candidate.Level, 0, len(b.EducationLevels))
	for _, name := range b.EducationLevels {
		lvl, err := candidate.EducationLadder.Parse(name)
		if err != nil {
			return request.Request{}, err
		}
		levels = append(levels, lvl)
	}
	minEducation, err := candidate.EducationLadder.Parse(b.MinEducation)
	if err != nil {
		return request.Request{}, err
	}

	f := request.Filters{
		Sectors:           b.Sectors,
		MainJobs:          b.MainJobs,
		ContractTypes:     b.ContractTypes,
		Locations:         b.Locations,
		Skills:            skills,
		Languages:         languages,
		EducationLevels:   levels,
		MinEducation:      minEducation,
		MinExperience:     b.MinExperience,
		MaxExperience:     b.MaxExperience,
		ExperienceBuckets: b.ExperienceRanges,
		MinAdminScore:     b.MinAdminScore,
		VerifiedOnly:      b.VerifiedOnly,
	}
	if b.Salary != nil {
		f.Salary = &request.SalaryBand{Min: b.Salary.Min, Max: b.Salary.Max}
	}

	var opts []request.Option
	if b.Highlight != nil {
		opts = append(opts, request.WithHighlight(*b.Highlight))
	}
	if b.Facets != nil {
		opts = append(opts, request.WithFacets(*b.Facets))
	}
	return request.New(request.KindText, b.Query, f, b.Page, b.Size, opts...)
}

func nestedFilters(in []NestedBody, ladder candidate.Ladder) ([]request.NestedFilter, error) {
	out := make([]request.NestedFilter, 0, len(in))
	for _, n := range in {
		lvl, err := ladder.Parse(n.MinLevel)
		if err != nil {
			return nil, err
		}
		out = append(out, request.NestedFilter{Name: strings.TrimSpace(n.Name), MinLevel: lvl})
	}
	return out, nil
}

func splitCSV(values *[]string) []string {
	if values == nil {
		return nil
	}
	var out []string
	for _, v := range *values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
