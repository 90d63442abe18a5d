package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/giantswarm/sitepool/internal/backend"
)

// defaultHTTPTimeout caps a single HTTP exchange. Callers additionally bound
// whole operations through their context.
const defaultHTTPTimeout = 60 * time.Second

// errorBodyLimit is the number of response-body bytes included in error
// messages for unexpected statuses.
const errorBodyLimit = 512

// Compile-time checks that Client implements every backend interface,
// including the optional uptime capability.
var (
	_ backend.Provisioner       = (*Client)(nil)
	_ backend.ProcessInspector  = (*Client)(nil)
	_ backend.RepositoryManager = (*Client)(nil)
	_ backend.FileWriter        = (*Client)(nil)
	_ backend.UptimeReporter    = (*Client)(nil)
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the admin gateway root, e.g. "https://admin.example.test".
	BaseURL string
	// Token is the bearer token attached to every request. Empty disables
	// the Authorization header (gateways in local development mode).
	Token string
	// RPS and Burst configure the client-side rate limiter shared by all
	// calls through this client.
	RPS   float64
	Burst int
	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client
	// Logger receives debug-level request diagnostics. Optional; defaults
	// to slog.Default().
	Logger *slog.Logger
}

// Validate checks all Config invariants and returns an error describing
// every violation found, joined with errors.Join.
func (c Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("admin API base URL must not be empty"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("admin API base URL %q is not an absolute URL", c.BaseURL))
	}
	if c.RPS <= 0 {
		errs = append(errs, fmt.Errorf("admin API rate limit must be greater than 0, got %v", c.RPS))
	}
	if c.Burst <= 0 {
		errs = append(errs, fmt.Errorf("admin API rate burst must be greater than 0, got %d", c.Burst))
	}

	return errors.Join(errs...)
}

// Client talks to the site-admin gateway. It is safe for concurrent use by
// multiple goroutines; the rate limiter serializes bursts across all of them.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Client from the given configuration. New performs no I/O.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid admin API config: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		log:     logger,
	}, nil
}

// siteDocument is the gateway's wire representation of a site.
type siteDocument struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	ScmURL string `json:"scm_url"`
}

// processDocument is the gateway's wire representation of a worker process.
type processDocument struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	OpenFileHandles []string `json:"open_file_handles"`
}

// runtimeDocument is the gateway's wire representation of the SCM runtime
// diagnostics endpoint.
type runtimeDocument struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// FindByName returns the site with the given name, or an error matching
// backend.ErrSiteNotFound when the gateway reports no such site.
func (c *Client) FindByName(ctx context.Context, name string) (*backend.SiteInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/sites/"+url.PathEscape(name), "", nil)
	if err != nil {
		return nil, fmt.Errorf("find site %s: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("find site %s: %w", name, backend.ErrSiteNotFound)
	}
	if err := c.checkStatus(resp, "find site "+name); err != nil {
		return nil, err
	}

	var doc siteDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("find site %s: decode response: %w", name, err)
	}
	return siteInfo(doc), nil
}

// Create provisions a fresh site under the given name.
func (c *Client) Create(ctx context.Context, name string) (*backend.SiteInfo, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("create site %s: encode request: %w", name, err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/sites", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create site %s: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if err := c.checkStatus(resp, "create site "+name); err != nil {
		return nil, err
	}

	var doc siteDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("create site %s: decode response: %w", name, err)
	}
	return siteInfo(doc), nil
}

// ListProcesses returns the worker processes running inside the site.
func (c *Client) ListProcesses(ctx context.Context, site *backend.SiteInfo) ([]backend.ProcessInfo, error) {
	u, err := scmURL(site, "/api/processes")
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, fmt.Errorf("list processes for %s: %w", site.Name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if err := c.checkStatus(resp, "list processes for "+site.Name); err != nil {
		return nil, err
	}

	var docs []processDocument
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("list processes for %s: decode response: %w", site.Name, err)
	}

	procs := make([]backend.ProcessInfo, 0, len(docs))
	for _, d := range docs {
		procs = append(procs, backend.ProcessInfo{
			ID:          d.ID,
			Name:        d.Name,
			OpenHandles: d.OpenFileHandles,
		})
	}
	return procs, nil
}

// KillProcess forcibly terminates the worker process with the given pid.
// A 404 from the gateway means the process already exited, which counts as
// success; kills run during cleanup and must be idempotent.
func (c *Client) KillProcess(ctx context.Context, site *backend.SiteInfo, pid int) error {
	u, err := scmURL(site, "/api/processes/"+strconv.Itoa(pid))
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return fmt.Errorf("kill process %d on %s: %w", pid, site.Name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("kill skipped: process already gone", "site", site.Name, "pid", pid)
		return nil
	}
	return c.checkStatus(resp, fmt.Sprintf("kill process %d on %s", pid, site.Name))
}

// DeleteRepository removes the site's repository working tree. A 404 means
// there is no repository to delete, which counts as success.
func (c *Client) DeleteRepository(ctx context.Context, site *backend.SiteInfo, deleteWebRoot bool) error {
	u, err := scmURL(site, "/api/scm?deleteWebRoot="+strconv.FormatBool(deleteWebRoot))
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return fmt.Errorf("delete repository of %s: %w", site.Name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("repository delete skipped: nothing to delete", "site", site.Name)
		return nil
	}
	return c.checkStatus(resp, "delete repository of "+site.Name)
}

// WriteFile replaces the file at path under the site's web root with content.
// The If-Match wildcard header tells the VFS endpoint to overwrite whatever
// revision is there.
func (c *Client) WriteFile(ctx context.Context, site *backend.SiteInfo, path, content string) error {
	u, err := scmURL(site, vfsPath(path))
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPut, u, "application/octet-stream", strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("write file %s on %s: %w", path, site.Name, err)
	}
	req.Header.Set("If-Match", "*")

	resp, err := c.send(ctx, req)
	if err != nil {
		return fmt.Errorf("write file %s on %s: %w", path, site.Name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	return c.checkStatus(resp, fmt.Sprintf("write file %s on %s", path, site.Name))
}

// Uptime reports how long the site's management gateway has been up.
// Implements the optional backend.UptimeReporter capability.
func (c *Client) Uptime(ctx context.Context, site *backend.SiteInfo) (time.Duration, error) {
	u, err := scmURL(site, "/api/diagnostics/runtime")
	if err != nil {
		return 0, err
	}

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return 0, fmt.Errorf("uptime of %s: %w", site.Name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if err := c.checkStatus(resp, "uptime of "+site.Name); err != nil {
		return 0, err
	}

	var doc runtimeDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return 0, fmt.Errorf("uptime of %s: decode response: %w", site.Name, err)
	}
	return time.Duration(doc.UptimeSeconds * float64(time.Second)), nil
}

// do builds and sends a request with the shared auth and rate-limit plumbing.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, rawURL, contentType, body)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, req)
}

// newRequest builds a request with the Authorization header applied.
func (c *Client) newRequest(ctx context.Context, method, rawURL, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send waits for the rate limiter, then performs the exchange.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// checkStatus maps the response status to an error. 2xx is success; 502 and
// 503 mean the management gateway is not serving yet and map to
// backend.ErrGatewayUnavailable; anything else becomes an error carrying a
// snippet of the response body.
func (c *Client) checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, backend.ErrGatewayUnavailable)
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// scmURL joins a path onto the site's management host.
func scmURL(site *backend.SiteInfo, path string) (string, error) {
	if site == nil || site.ScmURL == "" {
		return "", fmt.Errorf("site %s has no management URL", siteName(site))
	}
	return strings.TrimSuffix(site.ScmURL, "/") + path, nil
}

// siteName tolerates nil sites in error paths.
func siteName(site *backend.SiteInfo) string {
	if site == nil {
		return "<nil>"
	}
	return site.Name
}

// vfsPath builds the VFS endpoint path for a file relative to the web root,
// escaping each path segment independently so subdirectories survive.
func vfsPath(relPath string) string {
	segments := strings.Split(strings.TrimPrefix(relPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/api/vfs/site/wwwroot/" + strings.Join(segments, "/")
}

// siteInfo converts the wire document to the backend type.
func siteInfo(doc siteDocument) *backend.SiteInfo {
	return &backend.SiteInfo{
		Name:   doc.Name,
		URL:    doc.URL,
		ScmURL: doc.ScmURL,
	}
}
