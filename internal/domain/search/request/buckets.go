package request

import (
	"strings"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// Bucket is a half-open numeric interval [Min, Max). A nil Max is unbounded;
// Closed makes Max inclusive.
type Bucket struct {
	Key    string
	Min    float64
	Max    *float64
	Closed bool
}

func bound(v float64) *float64 { return &v }

// ExperienceBuckets are the experience ranges, in years.
var ExperienceBuckets = []Bucket{
	{Key: "0-2", Min: 0, Max: bound(2)},
	{Key: "2-5", Min: 2, Max: bound(5)},
	{Key: "5-10", Min: 5, Max: bound(10)},
	{Key: "10+", Min: 10},
}

// AdminScoreBuckets are the admin evaluation ranges.
var AdminScoreBuckets = []Bucket{
	{Key: "0-2", Min: 0, Max: bound(2)},
	{Key: "2-3", Min: 2, Max: bound(3)},
	{Key: "3-4", Min: 3, Max: bound(4)},
	{Key: "4-5", Min: 4, Max: bound(candidate.MaxAdminScore), Closed: true},
}

// ExperienceBucket looks up an experience range by key.
func ExperienceBucket(key string) (Bucket, bool) {
	for _, b := range ExperienceBuckets {
		if b.Key == key {
			return b, true
		}
	}
	return Bucket{}, false
}

// ParseNested parses "Name[:LEVEL]" items separated by commas, e.g. "Python:EXPERT,React".
func ParseNested(raw string, ladder candidate.Ladder) ([]NestedFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	return ParseNestedList(parts, ladder)
}

// ParseNestedList parses already split "Name[:LEVEL]" items.
func ParseNestedList(items []string, ladder candidate.Ladder) ([]NestedFilter, error) {
	out := make([]NestedFilter, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, levelName, hasLevel := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, domain.Validationf("malformed filter %q: name is required", item)
		}
		nf := NestedFilter{Name: name}
		if hasLevel {
			if strings.TrimSpace(levelName) == "" {
				return nil, domain.Validationf("malformed filter %q: empty level", item)
			}
			lvl, err := ladder.Parse(levelName)
			if err != nil {
				return nil, err
			}
			nf.MinLevel = lvl
		}
		out = append(out, nf)
	}
	return out, nil
}
