// Package candidate stores candidate search documents as JSON keys covered by the candidate index.
package candidate

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/talentdex/internal/db"
	"github.com/kailas-cloud/talentdex/internal/domain"
	domcand "github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// store is the consumer interface for candidate documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/index.Repository.
type Repo struct {
	store store
}

// New creates a candidate document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes the document, replacing any previous version.
func (r *Repo) Upsert(ctx context.Context, doc *domcand.Document) error {
	if !doc.Status.Indexable() {
		return domain.Validationf("candidate %s is %s, only validated profiles are indexed", doc.CandidateID, doc.Status)
	}
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	key := Key(doc.CandidateID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// UpsertMany writes all documents in one round trip.
// The returned slice holds one entry per document, nil on success.
func (r *Repo) UpsertMany(ctx context.Context, docs []domcand.Document) []error {
	errs := make([]error, len(docs))
	items := make([]db.JSONSetItem, 0, len(docs))
	pos := make([]int, 0, len(docs))

	for i := range docs {
		doc := &docs[i]
		if !doc.Status.Indexable() {
			errs[i] = domain.Validationf("candidate %s is %s, only validated profiles are indexed", doc.CandidateID, doc.Status)
			continue
		}
		data, err := Encode(doc)
		if err != nil {
			errs[i] = err
			continue
		}
		items = append(items, db.JSONSetItem{Key: Key(doc.CandidateID), Path: "$", Data: data})
		pos = append(pos, i)
	}
	if len(items) == 0 {
		return errs
	}

	for j, err := range r.store.JSONSetMulti(ctx, items) {
		if j >= len(pos) {
			break
		}
		if err != nil {
			errs[pos[j]] = fmt.Errorf("json.set %s: %w", items[j].Key, err)
		}
	}
	return errs
}

// Delete removes a document. Removing an absent document is not an error.
func (r *Repo) Delete(ctx context.Context, candidateID string) error {
	key := Key(candidateID)
	if err := r.store.Del(ctx, key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Get returns the indexed document.
func (r *Repo) Get(ctx context.Context, candidateID string) (domcand.Document, error) {
	key := Key(candidateID)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcand.Document{}, domain.ErrDocumentNotFound
		}
		return domcand.Document{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	doc, err := Decode(raw)
	if err != nil {
		return domcand.Document{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

// ListIDs returns the ids of every indexed candidate.
func (r *Repo) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, KeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", KeyPrefix, err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = IDFromKey(k)
	}
	return ids, nil
}
