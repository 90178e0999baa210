package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/talentdex/internal/db"
	"github.com/kailas-cloud/talentdex/internal/domain/search/filter"
)

// Search runs the main FT.SEARCH and every requested facet in one DoMulti round-trip.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, fmt.Errorf("offset and limit must not be negative")
	}

	query := renderQuery(q.Text, q.Filters)

	cmds := []rueidis.Completed{s.searchCmd(q, query)}
	plan := make([]facetSlot, 0, len(q.Facets))
	for _, f := range q.Facets {
		if len(f.Ranges) == 0 {
			plan = append(plan, facetSlot{req: f, first: len(cmds), count: 1})
			cmds = append(cmds, s.termsCmd(q.IndexName, query, f))
			continue
		}
		plan = append(plan, facetSlot{req: f, first: len(cmds), count: len(f.Ranges)})
		for _, r := range f.Ranges {
			cmds = append(cmds, s.countCmd(q.IndexName, intersect(query, buildNumericFilter(f.Field, r.Range))))
		}
	}

	results := s.client.DoMulti(ctx, cmds...)

	raw, err := results[0].ToArray()
	if err != nil {
		return nil, searchErr(db.OpSearch, err)
	}
	out, err := parseSearchResult(raw, q.WithScores)
	if err != nil {
		return nil, err
	}

	if len(plan) > 0 {
		out.Facets = make(map[string][]db.FacetCount, len(plan))
	}
	for _, slot := range plan {
		counts, err := slot.collect(results[slot.first : slot.first+slot.count])
		if err != nil {
			return nil, err
		}
		out.Facets[slot.req.Name] = counts
	}
	return out, nil
}

func (s *Store) searchCmd(q *db.SearchQuery, query string) rueidis.Completed {
	args := []string{q.IndexName, query}
	if q.WithScores {
		args = append(args, "WITHSCORES")
	}
	if q.Scorer != "" {
		args = append(args, "SCORER", q.Scorer)
	}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	if q.SortBy != "" {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}
	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit), "DIALECT", "2")
	return s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
}

func (s *Store) termsCmd(index, query string, f db.FacetRequest) rueidis.Completed {
	field := "@" + f.Field
	args := []string{
		index, query,
		"LOAD", "1", field,
		"GROUPBY", "1", field,
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC",
	}
	if f.Limit > 0 {
		args = append(args, "MAX", strconv.Itoa(f.Limit))
	}
	args = append(args, "DIALECT", "2")
	return s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
}

func (s *Store) countCmd(index, query string) rueidis.Completed {
	return s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0", "DIALECT", "2").Build()
}

// facetSlot maps a facet request to its replies in the DoMulti batch.
type facetSlot struct {
	req   db.FacetRequest
	first int
	count int
}

func (f facetSlot) collect(results []rueidis.RedisResult) ([]db.FacetCount, error) {
	if len(f.req.Ranges) == 0 {
		raw, err := results[0].ToArray()
		if err != nil {
			return nil, searchErr(db.OpAggregate, err)
		}
		return parseTermsFacet(raw, f.req.Field), nil
	}

	counts := make([]db.FacetCount, len(f.req.Ranges))
	for i, res := range results {
		raw, err := res.ToArray()
		if err != nil {
			return nil, searchErr(db.OpSearch, err)
		}
		n, err := parseTotal(raw)
		if err != nil {
			return nil, err
		}
		counts[i] = db.FacetCount{Value: f.req.Ranges[i].Key, Count: n}
	}
	return counts, nil
}

func searchErr(op string, err error) error {
	if isUnknownIndex(err) {
		return &db.Error{Op: op, Err: db.ErrIndexNotFound}
	}
	return &db.Error{Op: op, Err: err}
}

// --- Result parsing ---

func parseTotal(raw []rueidis.RedisMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return int(total), nil
}

// parseSearchResult reads [total, key, (score,) fields, ...].
func parseSearchResult(raw []rueidis.RedisMessage, withScores bool) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	out := &db.SearchResult{Total: total}
	if total == 0 {
		return out, nil
	}

	stride := 2
	if withScores {
		stride = 3
	}
	out.Entries = make([]db.SearchEntry, 0, (len(raw)-1)/stride)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key}

		fieldsAt := i + 1
		if withScores {
			scoreStr, err := raw[i+1].ToString()
			if err != nil {
				continue
			}
			if entry.Score, err = strconv.ParseFloat(scoreStr, 64); err != nil {
				continue
			}
			fieldsAt = i + 2
		}

		fields, err := raw[fieldsAt].ToArray()
		if err != nil {
			continue
		}
		entry.Fields = parseFieldPairs(fields)
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// parseTermsFacet reads [groups, [field, value, "count", n], ...].
func parseTermsFacet(raw []rueidis.RedisMessage, field string) []db.FacetCount {
	if len(raw) < 2 {
		return []db.FacetCount{}
	}
	out := make([]db.FacetCount, 0, len(raw)-1)
	for _, row := range raw[1:] {
		pairs, err := row.ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(pairs)
		value := m[field]
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(m["count"])
		if err != nil {
			continue
		}
		out = append(out, db.FacetCount{Value: value, Count: n})
	}
	return out
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query rendering ---

// renderQuery intersects the filter clauses with the text clause.
func renderQuery(text string, expr filter.Expression) string {
	f := buildFilter(expr)
	switch {
	case f == "" && text == "":
		return "*"
	case text == "":
		return f
	case f == "":
		return text
	default:
		return f + " (" + text + ")"
	}
}

func intersect(query, clause string) string {
	if query == "*" {
		return clause
	}
	return query + " " + clause
}

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter query string.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var parts []string

	for _, cond := range expr.Must() {
		parts = append(parts, buildCondition(cond))
	}

	if shouldParts := buildShouldGroup(expr.Should()); shouldParts != "" {
		parts = append(parts, shouldParts)
	}

	for _, cond := range expr.MustNot() {
		parts = append(parts, "-"+buildCondition(cond))
	}

	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	if cond.IsMatch() {
		return buildTagFilter(cond.Key(), cond.Values())
	}
	if cond.IsRange() {
		return buildNumericFilter(cond.Key(), *cond.Range())
	}
	return ""
}

func buildShouldGroup(conditions []filter.Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		parts = append(parts, buildCondition(cond))
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// buildTagFilter renders a tag disjunction: @key:{a | b}.
func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)
