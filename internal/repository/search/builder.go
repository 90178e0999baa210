package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/talentdex/internal/db"
	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/filter"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	"github.com/kailas-cloud/talentdex/internal/domain/synonym"
	repocand "github.com/kailas-cloud/talentdex/internal/repository/candidate"
)

// Clause boosts. The phrase clause dominates; typo matches only break ties.
const (
	PhraseWeight  = 10.0
	FuzzyWeight   = 0.3
	SynonymWeight = 0.8
)

// Scorer is the engine text scorer.
const Scorer = "BM25STD"

// facetTermsLimit caps the values returned per terms facet.
const facetTermsLimit = 20

var textFieldSelector = "@" + strings.Join(repocand.TextFields, "|")

// Query is a rendered engine query plus what the executor needs to post-process it.
type Query struct {
	Engine *db.SearchQuery
	// Terms are the canonical query tokens used for highlighting.
	Terms []string
	// Scored is false when there is no text clause and engine scores carry no signal.
	Scored bool
	// Anchors are the token groups a fuzzy hit must answer under the typo prefix
	// rule; a hit passes when it answers every token of one group. Nil when
	// nothing is fuzzed.
	Anchors [][]string
	// Equivalents are the engine-expanded synonyms accepted for each anchor token.
	Equivalents map[string][]string
}

// Builder renders search requests against the candidate index.
type Builder struct {
	index    string
	synonyms *synonym.Table
}

// NewBuilder creates a query builder. synonyms may be nil.
func NewBuilder(index string, synonyms *synonym.Table) *Builder {
	return &Builder{index: index, synonyms: synonyms}
}

// Build renders req, fetching the first window hits for reranking.
func (b *Builder) Build(req request.Request, window int) (*Query, error) {
	switch req.Kind() {
	case request.KindFacet:
		return b.BuildFacet(req, window)
	case request.KindText:
		return b.BuildText(req, window)
	default:
		return nil, fmt.Errorf("unknown request kind %q", req.Kind())
	}
}

// BuildFacet renders the flat GET facet search.
func (b *Builder) BuildFacet(req request.Request, window int) (*Query, error) {
	q, err := b.base(req, window)
	if err != nil {
		return nil, err
	}
	q.Terms = nil
	return q, nil
}

// BuildText renders the structured free-text search, keeping terms for highlighting.
func (b *Builder) BuildText(req request.Request, window int) (*Query, error) {
	return b.base(req, window)
}

func (b *Builder) base(req request.Request, window int) (*Query, error) {
	expr, err := Filters(req.Filters())
	if err != nil {
		return nil, err
	}

	tokens := domcand.Tokenize(req.Query())
	text, terms := b.textClause(tokens)

	eq := &db.SearchQuery{
		IndexName:    b.index,
		Text:         text,
		Filters:      expr,
		Scorer:       Scorer,
		WithScores:   true,
		Offset:       0,
		Limit:        window,
		ReturnFields: []string{"$"},
	}
	if text == "" {
		// Without a text clause the window must hold the best-rated matches.
		eq.SortBy = repocand.FieldAdminScore
		eq.SortDesc = true
	}
	if req.Facets() {
		eq.Facets = Facets()
	}
	q := &Query{Engine: eq, Terms: terms, Scored: text != ""}
	b.anchor(q, tokens)
	return q, nil
}

// anchor records the query tokens, every multi-word alternative and the
// per-token synonyms when the query carries a fuzzy clause.
func (b *Builder) anchor(q *Query, tokens []string) {
	if _, ok := fuzzyTokens(tokens); !ok {
		return
	}
	q.Anchors = append([][]string{tokens}, b.synonyms.Alternatives(tokens)...)
	for _, g := range q.Anchors {
		for _, tok := range g {
			if _, done := q.Equivalents[tok]; done {
				continue
			}
			if eq := b.synonyms.Equivalents(tok); len(eq) > 0 {
				if q.Equivalents == nil {
					q.Equivalents = make(map[string][]string)
				}
				q.Equivalents[tok] = eq
			}
		}
	}
}

// textClause ORs the term, phrase, fuzzy and synonym clauses over the weighted fields.
func (b *Builder) textClause(tokens []string) (string, []string) {
	if len(tokens) == 0 {
		return "", nil
	}
	terms := append([]string(nil), tokens...)

	clauses := []string{fieldClause(strings.Join(tokens, " "))}
	if len(tokens) > 1 {
		clauses = append(clauses, weighted(fieldClause(`"`+strings.Join(tokens, " ")+`"`), PhraseWeight))
	}
	if fuzzy, ok := fuzzyTokens(tokens); ok {
		clauses = append(clauses, weighted(fieldClause(strings.Join(fuzzy, " ")), FuzzyWeight))
	}
	for _, alt := range b.synonyms.Alternatives(tokens) {
		clauses = append(clauses, weighted(fieldClause(strings.Join(alt, " ")), SynonymWeight))
		terms = appendNew(terms, alt...)
	}

	if len(clauses) == 1 {
		return clauses[0], terms
	}
	return "(" + strings.Join(clauses, " | ") + ")", terms
}

func fieldClause(body string) string {
	return textFieldSelector + ":(" + body + ")"
}

func weighted(clause string, w float64) string {
	return "(" + clause + ")=>{$weight: " + strconv.FormatFloat(w, 'f', -1, 64) + "}"
}

// fuzzyTokens wraps each token in Levenshtein markers sized by its length.
// Tokens too short for fuzziness stay exact. ok is false when nothing is fuzzed.
func fuzzyTokens(tokens []string) ([]string, bool) {
	out := make([]string, len(tokens))
	fuzzed := false
	for i, tok := range tokens {
		d := domcand.AutoFuzziness(tok)
		if d == 0 {
			out[i] = tok
			continue
		}
		marks := strings.Repeat("%", d)
		out[i] = marks + tok + marks
		fuzzed = true
	}
	return out, fuzzed
}

// Filters translates exact request constraints into a filter expression.
// VALIDATED status is always required.
func Filters(f request.Filters) (filter.Expression, error) {
	var must, should []filter.Condition
	add := func(c filter.Condition, err error) error {
		if err != nil {
			return fmt.Errorf("build filter: %w", err)
		}
		must = append(must, c)
		return nil
	}

	if err := add(filter.NewMatch(repocand.FieldStatus, string(domcand.StatusValidated))); err != nil {
		return filter.Expression{}, err
	}

	tags := []struct {
		field  string
		values []string
		norm   func(string) string
	}{
		{repocand.FieldSectorKey, f.Sectors, domcand.NormalizeTag},
		{repocand.FieldMainJobKey, f.MainJobs, domcand.NormalizeTag},
		{repocand.FieldLocationKey, f.Locations, domcand.NormalizeTag},
		{repocand.FieldContractType, f.ContractTypes, strings.ToUpper},
	}
	for _, t := range tags {
		if len(t.values) == 0 {
			continue
		}
		vals := make([]string, len(t.values))
		for i, v := range t.values {
			vals[i] = t.norm(v)
		}
		if err := add(filter.NewMatch(t.field, vals...)); err != nil {
			return filter.Expression{}, err
		}
	}

	for _, s := range f.Skills {
		if err := add(nestedCondition(repocand.FieldSkillName, repocand.FieldSkillKey, s, domcand.SkillLadder, domcand.SkillKey)); err != nil {
			return filter.Expression{}, err
		}
	}
	for _, l := range f.Languages {
		if err := add(nestedCondition(repocand.FieldLanguageName, repocand.FieldLanguageKey, l, domcand.LanguageLadder, domcand.LanguageKey)); err != nil {
			return filter.Expression{}, err
		}
	}

	if len(f.EducationLevels) > 0 {
		if err := add(filter.NewMatch(repocand.FieldEducation, ordinals(f.EducationLevels)...)); err != nil {
			return filter.Expression{}, err
		}
	}
	if lvls := domcand.EducationLadder.AtLeast(f.MinEducation); len(lvls) > 0 {
		if err := add(filter.NewMatch(repocand.FieldEducation, ordinals(lvls)...)); err != nil {
			return filter.Expression{}, err
		}
	}

	if f.MinExperience != nil || f.MaxExperience != nil {
		r, err := filter.Between(intBound(f.MinExperience), intBound(f.MaxExperience))
		if err != nil {
			return filter.Expression{}, fmt.Errorf("build filter: %w", err)
		}
		if err := add(filter.NewRange(repocand.FieldYears, r)); err != nil {
			return filter.Expression{}, err
		}
	}
	for _, key := range f.ExperienceBuckets {
		bucket, _ := request.ExperienceBucket(key)
		c, err := filter.NewRange(repocand.FieldYears, bucketRange(bucket))
		if err != nil {
			return filter.Expression{}, fmt.Errorf("build filter: %w", err)
		}
		should = append(should, c)
	}

	if f.MinAdminScore != nil {
		r, err := filter.Between(f.MinAdminScore, nil)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("build filter: %w", err)
		}
		if err := add(filter.NewRange(repocand.FieldAdminScore, r)); err != nil {
			return filter.Expression{}, err
		}
	}

	// Overlap of [salary_min, salary_max] with the requested band.
	if s := f.Salary; s != nil {
		if s.Min != nil {
			r, err := filter.Between(intBound(s.Min), nil)
			if err != nil {
				return filter.Expression{}, fmt.Errorf("build filter: %w", err)
			}
			if err := add(filter.NewRange(repocand.FieldSalaryHigh, r)); err != nil {
				return filter.Expression{}, err
			}
		}
		if s.Max != nil {
			r, err := filter.Between(nil, intBound(s.Max))
			if err != nil {
				return filter.Expression{}, fmt.Errorf("build filter: %w", err)
			}
			if err := add(filter.NewRange(repocand.FieldSalaryLow, r)); err != nil {
				return filter.Expression{}, err
			}
		}
	}

	if f.VerifiedOnly {
		if err := add(filter.NewMatch(repocand.FieldVerified, "true")); err != nil {
			return filter.Expression{}, err
		}
	}

	return filter.NewExpression(must, should, nil)
}

// nestedCondition matches one nested entry by name, at or above the minimum level.
// Composite name#level tags keep both constraints on the same entry.
func nestedCondition(
	nameField, keyField string, nf request.NestedFilter, ladder domcand.Ladder,
	key func(string, domcand.Level) string,
) (filter.Condition, error) {
	lvls := ladder.AtLeast(nf.MinLevel)
	if len(lvls) == 0 {
		return filter.NewMatch(nameField, domcand.NormalizeTag(nf.Name))
	}
	keys := make([]string, len(lvls))
	for i, lvl := range lvls {
		keys[i] = key(nf.Name, lvl)
	}
	return filter.NewMatch(keyField, keys...)
}

// Facets returns the facet requests computed alongside every faceted search.
func Facets() []db.FacetRequest {
	return []db.FacetRequest{
		{Name: result.FacetSectors, Field: repocand.FieldSector, Limit: facetTermsLimit},
		{Name: result.FacetMainJobs, Field: repocand.FieldMainJob, Limit: facetTermsLimit},
		{Name: result.FacetContractTypes, Field: repocand.FieldContractType, Limit: len(request.ContractTypes)},
		{Name: result.FacetLocations, Field: repocand.FieldLocation, Limit: facetTermsLimit},
		{Name: result.FacetExperienceRanges, Field: repocand.FieldYears, Ranges: facetRanges(request.ExperienceBuckets)},
		{Name: result.FacetAdminScoreRanges, Field: repocand.FieldAdminScore, Ranges: facetRanges(request.AdminScoreBuckets)},
	}
}

func facetRanges(buckets []request.Bucket) []db.FacetRange {
	out := make([]db.FacetRange, len(buckets))
	for i, b := range buckets {
		out[i] = db.FacetRange{Key: b.Key, Range: bucketRange(b)}
	}
	return out
}

func bucketRange(b request.Bucket) filter.Range {
	lo := b.Min
	var r filter.Range
	var err error
	switch {
	case b.Max == nil:
		r, err = filter.NewRangeFilter(nil, &lo, nil, nil)
	case b.Closed:
		r, err = filter.NewRangeFilter(nil, &lo, nil, b.Max)
	default:
		r, err = filter.NewRangeFilter(nil, &lo, b.Max, nil)
	}
	if err != nil {
		// Buckets are static and always carry a lower bound.
		panic(fmt.Sprintf("invalid bucket %s: %v", b.Key, err))
	}
	return r
}

func ordinals(lvls []domcand.Level) []string {
	out := make([]string, len(lvls))
	for i, l := range lvls {
		out[i] = strconv.Itoa(int(l))
	}
	return out
}

func intBound(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func appendNew(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
