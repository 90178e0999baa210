package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation signals a malformed request (bounds, unknown facet values, bad levels).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized signals a caller without an associated company or a bad service token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrQuotaExceeded signals an exhausted metered quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrCandidateNotFound signals a candidate missing from the profile store.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrDocumentNotFound signals a candidate missing from the search index.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUpstreamUnavailable signals a collaborator that timed out or failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSearchUnavailable signals that the search engine cannot serve requests.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrNoSubscription signals a company without an active subscription.
	ErrNoSubscription = errors.New("no active subscription")
)

// QuotaExceededError wraps ErrQuotaExceeded with the usage state at denial time.
type QuotaExceededError struct {
	Used      int
	Limit     int
	ResetDate time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: used %d of %d, resets %s",
		ErrQuotaExceeded.Error(), e.Used, e.Limit, e.ResetDate.Format(time.RFC3339))
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota exceeded error.
func NewQuotaExceeded(used, limit int, resetDate time.Time) error {
	return &QuotaExceededError{Used: used, Limit: limit, ResetDate: resetDate}
}

// Validationf formats a validation error that unwraps to ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
