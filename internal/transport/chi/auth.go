package chi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentdex/internal/domain/recruiter"
	"github.com/kailas-cloud/talentdex/internal/logger"
)

// Identity headers set by the gateway.
const (
	HeaderRecruiterID    = "X-Recruiter-ID"
	HeaderRecruiterEmail = "X-Recruiter-Email"
	HeaderCandidateID    = "X-Candidate-ID"
)

// TokenVerifier checks the service token of an internal request.
type TokenVerifier interface {
	VerifyRequest(r *http.Request) (string, error)
}

type serviceKey struct{}

// ServiceTokenMiddleware rejects internal requests without a valid service token.
func ServiceTokenMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			service, err := v.VerifyRequest(r)
			if err != nil {
				logger.FromContext(r.Context()).Info("service token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid service token")
				return
			}
			ctx := context.WithValue(r.Context(), serviceKey{}, service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallingService returns the verified service name of an internal request.
func CallingService(ctx context.Context) string {
	s, _ := ctx.Value(serviceKey{}).(string)
	return s
}

// callerFromRequest reads the forwarded recruiter identity.
func callerFromRequest(r *http.Request) recruiter.Caller {
	return recruiter.Caller{
		RecruiterID:    strings.TrimSpace(r.Header.Get(HeaderRecruiterID)),
		RecruiterEmail: strings.TrimSpace(r.Header.Get(HeaderRecruiterEmail)),
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
