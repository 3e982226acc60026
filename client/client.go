// Package client talks to the vibe-check analysis backend over REST. It
// covers submission, snapshot polling, and the full-state collection
// fetches the store runs after an analysis completes.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/config"
	"github.com/vibecheck/vibegraph/errors"
	"github.com/vibecheck/vibegraph/graph"
	"github.com/vibecheck/vibegraph/internal/httpclient"
)

// findingsPageLimit is the page size used when draining the findings
// endpoint; it matches the backend's maximum.
const findingsPageLimit = 200

// Client is the REST client for one backend instance
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// New creates a client from server configuration
func New(cfg config.ServerConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http: httpclient.New(
			time.Duration(cfg.TimeoutSeconds)*time.Second,
			cfg.RequestsPerSecond,
		),
	}
}

// NewWithHTTP creates a client over an existing HTTP client. Tests use
// this with httptest servers.
func NewWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.Wrap(hc),
	}
}

func (c *Client) endpoint(format string, args ...interface{}) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// StartAnalysis submits a repository for analysis. The backend replies 202
// with the new analysis id and its websocket path.
func (c *Client) StartAnalysis(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.AnalyzeResponse, error) {
	if req.RepoURL == "" {
		return nil, errors.New("repo URL is required")
	}
	var resp analysis.AnalyzeResponse
	if err := c.http.PostJSON(ctx, c.endpoint("/analyze"), req, &resp, http.StatusAccepted); err != nil {
		return nil, errors.Wrap(err, "submitting analysis")
	}
	return &resp, nil
}

// Analysis fetches the full-state snapshot of a run. Fallback polling
// calls this until the status turns terminal.
func (c *Client) Analysis(ctx context.Context, analysisID string) (*analysis.Result, error) {
	var result analysis.Result
	if err := c.http.GetJSON(ctx, c.endpoint("/analysis/%s", url.PathEscape(analysisID)), &result); err != nil {
		return nil, errors.Wrapf(err, "fetching analysis %s", analysisID)
	}
	return &result, nil
}

// FindingsQuery filters and pages the findings endpoint
type FindingsQuery struct {
	Severity analysis.Severity
	Agent    string
	Limit    int
	Offset   int
}

// FindingsPage is one page of the findings list
type FindingsPage struct {
	Items  []analysis.Finding `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// FindingsPage fetches one page of findings with optional severity and
// agent filters.
func (c *Client) FindingsPage(ctx context.Context, analysisID string, q FindingsQuery) (*FindingsPage, error) {
	params := url.Values{}
	if q.Severity != "" {
		params.Set("severity", string(q.Severity))
	}
	if q.Agent != "" {
		params.Set("agent", q.Agent)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	u := c.endpoint("/analysis/%s/findings", url.PathEscape(analysisID))
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var page FindingsPage
	if err := c.http.GetJSON(ctx, u, &page); err != nil {
		return nil, errors.Wrapf(err, "fetching findings for %s", analysisID)
	}
	return &page, nil
}

// Findings drains every findings page into one list. This is the
// store.Backend implementation used by post-completion reconciliation.
func (c *Client) Findings(ctx context.Context, analysisID string) ([]analysis.Finding, error) {
	var all []analysis.Finding
	offset := 0
	for {
		page, err := c.FindingsPage(ctx, analysisID, FindingsQuery{Limit: findingsPageLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		offset += len(page.Items)
		if offset >= page.Total || len(page.Items) == 0 {
			return all, nil
		}
	}
}

// FixSummary aggregates the fix list
type FixSummary struct {
	TotalFixes                  int    `json:"totalFixes"`
	CriticalFixes               int    `json:"criticalFixes"`
	EstimatedTotalEffort        string `json:"estimatedTotalEffort"`
	KeystoneFixes               int    `json:"keystoneFixes"`
	ChainsEliminatedByKeystones int    `json:"chainsEliminatedByKeystones"`
}

type fixesResponse struct {
	Fixes   []analysis.Fix `json:"fixes"`
	Summary FixSummary     `json:"summary"`
}

// Fixes fetches the recommended fixes for a completed analysis
func (c *Client) Fixes(ctx context.Context, analysisID string) ([]analysis.Fix, error) {
	var resp fixesResponse
	if err := c.http.GetJSON(ctx, c.endpoint("/analysis/%s/fixes", url.PathEscape(analysisID)), &resp); err != nil {
		return nil, errors.Wrapf(err, "fetching fixes for %s", analysisID)
	}
	return resp.Fixes, nil
}

// FixReport fetches fixes together with their summary block
func (c *Client) FixReport(ctx context.Context, analysisID string) ([]analysis.Fix, *FixSummary, error) {
	var resp fixesResponse
	if err := c.http.GetJSON(ctx, c.endpoint("/analysis/%s/fixes", url.PathEscape(analysisID)), &resp); err != nil {
		return nil, nil, errors.Wrapf(err, "fetching fixes for %s", analysisID)
	}
	return resp.Fixes, &resp.Summary, nil
}

type chainsResponse struct {
	Chains []analysis.Chain `json:"chains"`
	Total  int              `json:"total"`
}

// Chains fetches the vulnerability chains for a completed analysis
func (c *Client) Chains(ctx context.Context, analysisID string) ([]analysis.Chain, error) {
	var resp chainsResponse
	if err := c.http.GetJSON(ctx, c.endpoint("/analysis/%s/chains", url.PathEscape(analysisID)), &resp); err != nil {
		return nil, errors.Wrapf(err, "fetching chains for %s", analysisID)
	}
	return resp.Chains, nil
}

// Graph fetches a full graph snapshot for the given view mode. A depth of
// 0 leaves the backend default in place.
func (c *Client) Graph(ctx context.Context, analysisID string, view graph.ViewMode, depth int) (*graph.Snapshot, error) {
	params := url.Values{}
	if view != "" {
		if !view.IsValid() {
			return nil, errors.Newf("unknown view mode %q", view)
		}
		params.Set("view", string(view))
	}
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}

	u := c.endpoint("/analysis/%s/graph", url.PathEscape(analysisID))
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var snap graph.Snapshot
	if err := c.http.GetJSON(ctx, u, &snap); err != nil {
		return nil, errors.Wrapf(err, "fetching graph for %s", analysisID)
	}
	return &snap, nil
}
