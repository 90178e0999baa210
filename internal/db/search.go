package db

import "github.com/kailas-cloud/talentdex/internal/domain/search/filter"

// SearchQuery is the input for a scored, filtered, faceted FT.SEARCH.
type SearchQuery struct {
	IndexName string
	// Text is a rendered full-text clause; empty matches every document passing Filters.
	Text         string
	Filters      filter.Expression
	Scorer       string
	WithScores   bool
	Offset       int
	Limit        int
	ReturnFields []string
	// SortBy orders hits by a sortable field instead of by score.
	SortBy   string
	SortDesc bool
	// Facets run against the same query in the same round-trip.
	Facets []FacetRequest
}

// FacetRequest asks for counts per value of Field, or per range when Ranges is set.
type FacetRequest struct {
	Name   string
	Field  string
	Limit  int
	Ranges []FacetRange
}

// FacetRange is a named numeric bucket of a range facet.
type FacetRange struct {
	Key   string
	Range filter.Range
}

// FacetCount is the number of matching documents for one facet value.
type FacetCount struct {
	Value string
	Count int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
	Facets  map[string][]FacetCount
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
