// Package search executes candidate searches against the candidate index and reranks the results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/db"
	"github.com/kailas-cloud/talentdex/internal/domain"
	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
	"github.com/kailas-cloud/talentdex/internal/domain/search/highlight"
	"github.com/kailas-cloud/talentdex/internal/domain/search/ranking"
	"github.com/kailas-cloud/talentdex/internal/domain/search/request"
	"github.com/kailas-cloud/talentdex/internal/domain/search/result"
	repocand "github.com/kailas-cloud/talentdex/internal/repository/candidate"
)

// Rerank window bounds.
const (
	DefaultWindow = 500
	MaxWindow     = 5000
)

// Suggest limits.
const (
	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 20
	MaxPrefixLength     = 100
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// ensurer re-attempts index bootstrap when the index is missing.
type ensurer interface {
	Ensure(ctx context.Context) error
}

// Config tunes retrieval and ranking.
type Config struct {
	Window int
	Model  ranking.Model
}

// Option customizes a Repo.
type Option func(*Repo)

// WithEnsurer triggers lazy index bootstrap on missing-index failures.
func WithEnsurer(e ensurer) Option { return func(r *Repo) { r.ensure = e } }

// WithClock overrides the ranking reference time.
func WithClock(now func() time.Time) Option { return func(r *Repo) { r.now = now } }

// WithLogger sets the repository logger.
func WithLogger(l *zap.Logger) Option { return func(r *Repo) { r.logger = l } }

// Repo implements usecase/search.Repository.
type Repo struct {
	store   store
	builder *Builder
	cfg     Config
	ensure  ensurer
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a search repository.
func New(s store, b *Builder, cfg Config, opts ...Option) *Repo {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	cfg.Window = min(cfg.Window, MaxWindow)
	r := &Repo{store: s, builder: b, cfg: cfg, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search retrieves the rerank window, ranks it and returns the requested page.
// Pages past MaxWindow are empty but still report the total.
func (r *Repo) Search(ctx context.Context, req request.Request) (result.Page, error) {
	window := min(max(r.cfg.Window, req.Offset()+req.Size()), MaxWindow)

	q, err := r.builder.Build(req, window)
	if err != nil {
		return result.Page{}, err
	}

	sr, err := r.store.Search(ctx, q.Engine)
	if err != nil {
		return result.Page{}, r.unavailable(ctx, err)
	}

	hits := r.decodeHits(sr.Entries, q.Scored)
	total := sr.Total
	if len(q.Anchors) > 0 {
		kept := anchored(hits, q.Anchors, q.Equivalents)
		total -= len(hits) - len(kept)
		hits = kept
	}
	r.cfg.Model.Rank(hits, r.now())

	page := result.Page{
		Total: total,
		Page:  req.Page(),
		Size:  req.Size(),
		Hits:  []result.Hit{},
	}
	if start := req.Offset(); start < len(hits) {
		page.Hits = hits[start:min(start+req.Size(), len(hits))]
	}

	if req.Highlight() && len(q.Terms) > 0 {
		hl := highlight.New(q.Terms)
		for i, h := range page.Hits {
			doc := h.Document()
			page.Hits[i] = h.WithHighlights(hl.Document(&doc))
		}
	}

	if req.Facets() {
		page.Facets = toFacets(sr.Facets)
	}
	return page, nil
}

// Suggest returns candidates whose name, title or desired positions start with prefix.
func (r *Repo) Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, domain.Validationf("prefix is required")
	}
	if utf8.RuneCountInString(prefix) > MaxPrefixLength {
		return nil, domain.Validationf("prefix too long (max %d chars)", MaxPrefixLength)
	}
	if limit == 0 {
		limit = DefaultSuggestLimit
	}
	if limit < 1 || limit > MaxSuggestLimit {
		return nil, domain.Validationf("limit must be between 1 and %d", MaxSuggestLimit)
	}

	tokens := domcand.Tokenize(prefix)
	if len(tokens) == 0 {
		return []result.Suggestion{}, nil
	}
	for i, tok := range tokens {
		if rs := []rune(tok); len(rs) > domcand.MaxGram {
			tokens[i] = string(rs[:domcand.MaxGram])
		}
	}

	expr, err := Filters(request.Filters{})
	if err != nil {
		return nil, err
	}
	sr, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    r.builder.index,
		Text:         "@" + repocand.FieldAutocomplete + ":(" + strings.Join(tokens, " ") + ")",
		Filters:      expr,
		Scorer:       Scorer,
		Limit:        limit,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, r.unavailable(ctx, err)
	}

	out := make([]result.Suggestion, 0, len(sr.Entries))
	for _, h := range r.decodeHits(sr.Entries, false) {
		doc := h.Document()
		out = append(out, result.Suggestion{CandidateID: doc.CandidateID, Text: doc.Title})
	}
	return out, nil
}

func (r *Repo) decodeHits(entries []db.SearchEntry, scored bool) []result.Hit {
	hits := make([]result.Hit, 0, len(entries))
	for _, e := range entries {
		doc, err := repocand.Decode([]byte(e.Fields["$"]))
		if err != nil {
			r.logger.Warn("Skipping undecodable search hit", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		if doc.CandidateID == "" {
			doc.CandidateID = repocand.IDFromKey(e.Key)
		}
		score := e.Score
		if !scored {
			score = 1
		}
		hits = append(hits, result.New(doc, score))
	}
	return hits
}

// anchored drops hits that only matched through a typo rewriting the
// leading runes of a query token ("lava" for "java").
func anchored(hits []result.Hit, groups [][]string, equivalents map[string][]string) []result.Hit {
	kept := hits[:0]
	for _, h := range hits {
		doc := h.Document()
		words := docTokens(&doc)
		for _, g := range groups {
			if answersAll(words, g, equivalents) {
				kept = append(kept, h)
				break
			}
		}
	}
	return kept
}

func docTokens(doc *domcand.Document) []string {
	texts := []string{doc.Title, doc.CurrentJobTitle(), doc.Summary}
	texts = append(texts, doc.Positions()...)
	texts = append(texts, doc.SkillNames()...)
	var out []string
	for _, t := range texts {
		out = append(out, domcand.Tokenize(t)...)
	}
	return out
}

func answersAll(words, terms []string, equivalents map[string][]string) bool {
	for _, term := range terms {
		if !answers(words, term) && !answersAny(words, equivalents[term]) {
			return false
		}
	}
	return true
}

func answers(words []string, term string) bool {
	for _, w := range words {
		if domcand.MatchesTerm(w, term) {
			return true
		}
	}
	return false
}

func answersAny(words, terms []string) bool {
	for _, term := range terms {
		if answers(words, term) {
			return true
		}
	}
	return false
}

func (r *Repo) unavailable(ctx context.Context, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) && r.ensure != nil {
		if eerr := r.ensure.Ensure(ctx); eerr != nil {
			r.logger.Warn("Lazy index bootstrap failed", zap.Error(eerr))
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
}

func toFacets(in map[string][]db.FacetCount) result.Facets {
	out := make(result.Facets, len(in))
	for name, counts := range in {
		buckets := make([]result.FacetBucket, 0, len(counts))
		for _, c := range counts {
			buckets = append(buckets, result.FacetBucket{Value: c.Value, Count: c.Count})
		}
		out[name] = buckets
	}
	return out
}
