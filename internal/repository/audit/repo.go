// Package audit persists the append-only consultation log.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domaudit "github.com/kailas-cloud/talentdex/internal/domain/audit"
)

// querier is the consumer interface over a pgx pool (ISP).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const insertSQL = `
INSERT INTO access_logs (
    id, recruiter_id, recruiter_email, company_id, company_name,
    candidate_id, candidate_email, candidate_name, access_type,
    accessed_at, ip_address, user_agent
) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const listSQL = `
SELECT id::text, recruiter_id, recruiter_email, company_id, company_name,
       candidate_id, candidate_email, candidate_name, access_type,
       accessed_at, ip_address, user_agent
FROM access_logs
WHERE candidate_id = $1
ORDER BY accessed_at DESC, id
LIMIT $2 OFFSET $3`

const countSQL = `SELECT count(*) FROM access_logs WHERE candidate_id = $1`

const summarySQL = `
SELECT company_id, max(company_name), count(*), max(accessed_at)
FROM access_logs
WHERE candidate_id = $1
GROUP BY company_id
ORDER BY max(accessed_at) DESC, company_id`

const anonymizeSQL = `
UPDATE access_logs
SET candidate_email = '', candidate_name = '', ip_address = '', user_agent = ''
WHERE candidate_id = $1`

// Repo implements usecase/audit.Repository.
type Repo struct {
	db    querier
	now   func() time.Time
	newID func() string
}

// New creates an audit repository.
func New(db querier) *Repo {
	return &Repo{db: db, now: time.Now, newID: uuid.NewString}
}

// Insert appends an entry. A missing id or timestamp is assigned here.
// The stored entry is returned.
func (r *Repo) Insert(ctx context.Context, e domaudit.Entry) (domaudit.Entry, error) {
	if e.ID == "" {
		e.ID = r.newID()
	}
	if e.AccessedAt.IsZero() {
		e.AccessedAt = r.now().UTC()
	}
	_, err := r.db.Exec(ctx, insertSQL,
		e.ID, e.RecruiterID, e.RecruiterEmail, e.CompanyID, e.CompanyName,
		e.CandidateID, e.CandidateEmail, e.CandidateName, string(e.AccessType),
		e.AccessedAt, e.IPAddress, e.UserAgent)
	if err != nil {
		return domaudit.Entry{}, fmt.Errorf("insert access log %s: %w", e.ID, err)
	}
	return e, nil
}

// ListByCandidate returns one page of a candidate's entries, newest first, and the total count.
func (r *Repo) ListByCandidate(
	ctx context.Context, candidateID string, limit, offset int,
) ([]domaudit.Entry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, countSQL, candidateID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access logs %s: %w", candidateID, err)
	}

	rows, err := r.db.Query(ctx, listSQL, candidateID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list access logs %s: %w", candidateID, err)
	}
	defer rows.Close()

	entries := make([]domaudit.Entry, 0, limit)
	for rows.Next() {
		var (
			e          domaudit.Entry
			accessType string
		)
		if err := rows.Scan(&e.ID, &e.RecruiterID, &e.RecruiterEmail, &e.CompanyID, &e.CompanyName,
			&e.CandidateID, &e.CandidateEmail, &e.CandidateName, &accessType,
			&e.AccessedAt, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, 0, fmt.Errorf("scan access log: %w", err)
		}
		e.AccessType = domaudit.AccessType(accessType)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate access logs: %w", err)
	}
	return entries, total, nil
}

// SummaryByCandidate aggregates a candidate's entries per company, most recent first.
func (r *Repo) SummaryByCandidate(ctx context.Context, candidateID string) ([]domaudit.CompanySummary, error) {
	rows, err := r.db.Query(ctx, summarySQL, candidateID)
	if err != nil {
		return nil, fmt.Errorf("summarize access logs %s: %w", candidateID, err)
	}
	defer rows.Close()

	out := []domaudit.CompanySummary{}
	for rows.Next() {
		var s domaudit.CompanySummary
		if err := rows.Scan(&s.CompanyID, &s.CompanyName, &s.Count, &s.LastAccess); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return out, nil
}

// Anonymize blanks the personal snapshot of a candidate's entries. Rows are kept.
func (r *Repo) Anonymize(ctx context.Context, candidateID string) (int64, error) {
	tag, err := r.db.Exec(ctx, anonymizeSQL, candidateID)
	if err != nil {
		return 0, fmt.Errorf("anonymize access logs %s: %w", candidateID, err)
	}
	return tag.RowsAffected(), nil
}
