// Package result holds ranked candidate search results.
package result

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/highlight"
)

// ExcerptLength is the summary excerpt length in runes.
const ExcerptLength = 200

// Facet names returned alongside results.
const (
	FacetSectors          = "sectors"
	FacetMainJobs         = "main_jobs"
	FacetContractTypes    = "contract_types"
	FacetLocations        = "locations"
	FacetExperienceRanges = "experience_ranges"
	FacetAdminScoreRanges = "admin_score_ranges"
)

// Hit is a single ranked search hit.
type Hit struct {
	doc        candidate.Document
	baseScore  float64
	score      float64
	highlights []highlight.Fragment
}

// New creates a hit with its engine relevance score.
func New(doc candidate.Document, baseScore float64) Hit {
	return Hit{doc: doc, baseScore: baseScore, score: baseScore}
}

// Document returns the indexed document.
func (h Hit) Document() candidate.Document { return h.doc }

// ID returns the candidate identifier.
func (h Hit) ID() string { return h.doc.CandidateID }

// BaseScore returns the text relevance score before boosting.
func (h Hit) BaseScore() float64 { return h.baseScore }

// Score returns the final ranking score.
func (h Hit) Score() float64 { return h.score }

// Highlights returns highlighted fragments, if requested.
func (h Hit) Highlights() []highlight.Fragment { return h.highlights }

// WithScore returns a copy with the final score set.
func (h Hit) WithScore(score float64) Hit {
	h.score = score
	return h
}

// WithHighlights returns a copy with fragments attached.
func (h Hit) WithHighlights(f []highlight.Fragment) Hit {
	h.highlights = f
	return h
}

// SummaryExcerpt returns the summary cut at a word boundary.
func (h Hit) SummaryExcerpt() string {
	return Excerpt(h.doc.Summary, ExcerptLength)
}

// Excerpt shortens s to at most n runes, cutting at the last space, with a trailing ellipsis.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	rs := []rune(s)[:n]
	cut := string(rs)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;.") + "…"
}

// FacetBucket is the document count for one facet value.
type FacetBucket struct {
	Value string
	Count int
}

// Facets maps a facet name to its buckets.
type Facets map[string][]FacetBucket

// Page is one page of ranked results.
type Page struct {
	Total  int
	Page   int
	Size   int
	Hits   []Hit
	Facets Facets
}

// Suggestion is an autocomplete candidate.
type Suggestion struct {
	CandidateID string
	Text        string
}
