// Package registry is a client for the Modrinth v2 API, limited to the
// lookups niter needs: version by id, project by slug, and filtered
// version listings.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

// DefaultBaseURL is the public Modrinth API.
const DefaultBaseURL = "https://api.modrinth.com/v2"

// DefaultUserAgent identifies niter to the registry.
const DefaultUserAgent = "niterpack/niter"

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a Modrinth-compatible registry.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      HTTPClient
	Timeout   time.Duration // per request (0 = context only)
	Retries   int           // extra attempts on transient failures
	Logger    *log.Logger
}

// LookupVersion fetches a version by id. It returns ErrNotFound when the
// registry has no such version.
func (c *Client) LookupVersion(ctx context.Context, id string) (*Version, error) {
	if !IsVersionID(id) {
		return nil, fmt.Errorf("%w '%s'", ErrInvalidID, id)
	}
	var v Version
	if err := c.get(ctx, []string{"version", id}, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// LookupProject fetches a project by slug or id.
func (c *Client) LookupProject(ctx context.Context, slugOrID string) (*Project, error) {
	if !IsProjectSlug(slugOrID) {
		return nil, fmt.Errorf("%w '%s'", ErrInvalidID, slugOrID)
	}
	var p Project
	if err := c.get(ctx, []string{"project", slugOrID}, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListVersions lists the versions of a project, newest first, optionally
// narrowed to a loader and a game version. Empty filters are omitted.
func (c *Client) ListVersions(ctx context.Context, project, loader, gameVersion string) ([]Version, error) {
	if !IsProjectSlug(project) {
		return nil, fmt.Errorf("%w '%s'", ErrInvalidID, project)
	}
	q := url.Values{}
	if loader != "" {
		q.Set("loaders", jsonArray(loader))
	}
	if gameVersion != "" {
		q.Set("game_versions", jsonArray(gameVersion))
	}
	var versions []Version
	if err := c.get(ctx, []string{"project", project, "version"}, q, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *Client) get(ctx context.Context, segments []string, query url.Values, out any) error {
	endpoint := c.endpoint(segments, query)

	b := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), uint64(max(c.Retries, 0))),
		ctx,
	)

	var body []byte
	op := func() error {
		var err error
		body, err = c.fetch(ctx, endpoint)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger().Debug("retrying registry request", "url", endpoint, "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, endpoint, err)
	}
	return nil
}

// fetch performs one request. Errors that retrying cannot fix are wrapped
// with backoff.Permanent.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: creating request: %v", ErrUnavailable, err))
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	c.logger().Debug("registry request", "url", endpoint)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUnavailable, resp.StatusCode, endpoint)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: HTTP %d from %s", ErrUnavailable, resp.StatusCode, endpoint))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	return body, nil
}

func (c *Client) endpoint(segments []string, query url.Values) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := strings.TrimRight(base, "/") + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard)
	}
	return c.Logger
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

func jsonArray(s string) string {
	data, _ := json.Marshal([]string{s})
	return string(data)
}
