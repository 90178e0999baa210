package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain"
	"github.com/kailas-cloud/talentdex/internal/logger"
	"github.com/kailas-cloud/talentdex/internal/validator"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		quotaExceededHandler,
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized),
		sentinelHandler(domain.ErrNoSubscription, http.StatusForbidden, CodeNoSubscription),
		sentinelHandler(domain.ErrCandidateNotFound, http.StatusNotFound, CodeCandidateNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, CodeUpstreamUnavailable),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, CodeSearchUnavailable),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation messages describe the caller's own input and are returned as is.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrUnauthorized,
		domain.ErrQuotaExceeded,
		domain.ErrNoSubscription,
		domain.ErrCandidateNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrUpstreamUnavailable,
		domain.ErrSearchUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports per-field DTO failures.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidationFailed,
		Message: domain.ErrValidation.Error(),
		Fields:  ve.Fields,
	})
	return true
}

// quotaExceededHandler handles ErrQuotaExceeded with the usage state at denial time.
func quotaExceededHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return false
	}
	var qe *domain.QuotaExceededError
	if errors.As(err, &qe) {
		remaining := max(0, qe.Limit-qe.Used)
		writeJSON(w, http.StatusForbidden, QuotaExceededResponse{
			Code:           CodeQuotaExceeded,
			Message:        msg,
			Used:           qe.Used,
			Limit:          qe.Limit,
			Remaining:      remaining,
			ViewsRemaining: remaining,
			ResetDate:      qe.ResetDate,
		})
		return true
	}
	writeError(w, http.StatusForbidden, CodeQuotaExceeded, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
