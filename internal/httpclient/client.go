// Package httpclient wraps http.Client with the plumbing every call to the
// analysis backend shares: request rate limiting, per-request ids, JSON
// encoding, and status-code-to-error mapping.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vibecheck/vibegraph/errors"
)

const requestIDHeader = "X-Request-ID"

// maxErrorBodyBytes bounds how much of an error response body is read for
// diagnostics.
const maxErrorBodyBytes = 4 << 10

// Client is a rate-limited JSON HTTP client
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a client with the given timeout and request rate. A
// requestsPerSecond <= 0 disables rate limiting.
func New(timeout time.Duration, requestsPerSecond float64) *Client {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Wrap adapts an existing http.Client, without rate limiting. Tests use
// this with httptest server clients.
func Wrap(hc *http.Client) *Client {
	return &Client{http: hc}
}

// GetJSON issues a GET and decodes the response body into out
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	return c.doJSON(req, out, http.StatusOK)
}

// PostJSON issues a POST with a JSON body and decodes the response into
// out. wantStatus is the expected success code (e.g. 202 for submissions).
func (c *Client) PostJSON(ctx context.Context, url string, in, out interface{}, wantStatus int) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out, wantStatus)
}

func (c *Client) doJSON(req *http.Request, out interface{}, wantStatus int) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return errors.Wrap(err, "rate limiter")
		}
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return statusError(resp)
	}

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding response from %s", req.URL.Path)
	}
	return nil
}

// statusError maps an unexpected status code onto the module's sentinel
// errors so callers can branch with errors.Is.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	detail := string(bytes.TrimSpace(body))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errors.ErrNotFound, "%s: %s", resp.Request.URL.Path, detail)
	case resp.StatusCode >= 500:
		return errors.Wrapf(errors.ErrServiceUnavailable, "%s returned %d: %s",
			resp.Request.URL.Path, resp.StatusCode, detail)
	default:
		return errors.Newf("%s returned %d: %s", resp.Request.URL.Path, resp.StatusCode, detail)
	}
}
