// Package httpclient calls the platform services: the profile store, the recruiter
// directory, and a remote quota and audit ledger.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// DefaultTimeout bounds a single outbound call when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

const maxErrorBody = 4 << 10

// Authorizer attaches service credentials to outbound requests.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// Config configures a platform client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxIdleConnsPerHost bounds the connection pool per upstream host.
	MaxIdleConnsPerHost int
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Method  string
	URL     string
	Status  int
	Code    string
	Message string

	body []byte
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, msg)
}

type client struct {
	base  *url.URL
	http  *http.Client
	auth  Authorizer
	agent string
}

func newClient(cfg Config, auth Authorizer) (*client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 32
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	return &client{
		base:  base,
		http:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		auth:  auth,
		agent: "talentdex",
	}, nil
}

// do sends a JSON request and decodes a 2xx body into out (when non-nil).
// Transport failures and 5xx responses unwrap to domain.ErrUpstreamUnavailable;
// other statuses come back as *StatusError.
func (c *client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		if err := c.auth.Authorize(req); err != nil {
			return fmt.Errorf("authorize %s %s: %w", method, path, err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrUpstreamUnavailable, method, path, transportCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %w", domain.ErrUpstreamUnavailable, method, path, err)
		}
		return nil
	}

	se := readStatusError(resp, method, path)
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, se)
	}
	return se
}

func readStatusError(resp *http.Response, method, path string) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{Method: method, URL: path, Status: resp.StatusCode, body: data}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		se.Code, se.Message = payload.Code, payload.Message
	}
	return se
}

// statusIs unwraps a *StatusError with the given status.
func statusIs(err error, status int) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Status == status {
		return se, true
	}
	return nil, false
}

// transportCause keeps timeouts recognizable in logs.
func transportCause(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}

func escape(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
