// Package servicetoken issues and verifies the signed tokens of internal service-to-service calls.
package servicetoken

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// IssuerName is the iss claim of every token.
const IssuerName = "talentdex"

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

// Headers carried by internal requests.
const (
	HeaderAuthorization = "Authorization"
	HeaderServiceName   = "X-Service-Name"
)

const minSecretLen = 16

// Issuer signs tokens for one calling service.
type Issuer struct {
	secret  []byte
	service string
	ttl     time.Duration
	now     func() time.Time
}

// NewIssuer creates an HS256 issuer. ttl <= 0 means DefaultTTL.
func NewIssuer(secret, service string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("service token secret must be at least %d bytes", minSecretLen)
	}
	if strings.TrimSpace(service) == "" {
		return nil, errors.New("service name is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), service: service, ttl: ttl, now: time.Now}, nil
}

// Service returns the name tokens are issued for.
func (i *Issuer) Service() string { return i.service }

// Issue signs a fresh token.
func (i *Issuer) Issue() (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    IssuerName,
		Subject:   i.service,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

// Authorize sets the token and service name headers on an outbound request.
func (i *Issuer) Authorize(req *http.Request) error {
	tok, err := i.Issue()
	if err != nil {
		return err
	}
	req.Header.Set(HeaderAuthorization, "Bearer "+tok)
	req.Header.Set(HeaderServiceName, i.service)
	return nil
}

// Verifier checks tokens presented by calling services.
type Verifier struct {
	secret  []byte
	allowed map[string]struct{}
	leeway  time.Duration
	now     func() time.Time
}

// NewVerifier creates an HS256 verifier. An empty allowed list accepts any service name.
func NewVerifier(secret string, allowed []string) (*Verifier, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("service token secret must be at least %d bytes", minSecretLen)
	}
	v := &Verifier{secret: []byte(secret), allowed: map[string]struct{}{}, leeway: 30 * time.Second, now: time.Now}
	for _, s := range allowed {
		if s = strings.TrimSpace(s); s != "" {
			v.allowed[s] = struct{}{}
		}
	}
	return v, nil
}

// Verify validates a raw token against the declared service name and returns it.
// Every failure unwraps to domain.ErrUnauthorized.
func (v *Verifier) Verify(raw, service string) (string, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return "", fmt.Errorf("%w: missing %s header", domain.ErrUnauthorized, HeaderServiceName)
	}
	if len(v.allowed) > 0 {
		if _, ok := v.allowed[service]; !ok {
			return "", fmt.Errorf("%w: service %q is not allowed", domain.ErrUnauthorized, service)
		}
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(IssuerName),
		jwt.WithSubject(service),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return service, nil
}

// VerifyRequest extracts the bearer token and service name from r and verifies them.
func (v *Verifier) VerifyRequest(r *http.Request) (string, error) {
	auth := r.Header.Get(HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}
	return v.Verify(strings.TrimSpace(auth[len(prefix):]), r.Header.Get(HeaderServiceName))
}
