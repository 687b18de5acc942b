// Package fetch is a minimal storefront REST client used as a cache producer.
// It issues GET requests, replays a stored bearer token, and returns raw JSON.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/rshade/storecache/internal/cache"
)

// maxErrorBody bounds how much of a failed response body is kept in HTTPError.
const maxErrorBody = 4 << 10

// ErrNoBaseURL is returned when a relative path is requested without a base URL.
var ErrNoBaseURL = errors.New("no base URL configured for relative request path")

// HTTPError captures an unexpected status code and the start of the response body.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// Client fetches JSON documents from the storefront backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Options configures a Client.
type Options struct {
	// BaseURL is prepended to relative paths.
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	c := &Client{}

	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", opts.BaseURL)
		}
		c.baseURL = u
	}

	base := &http.Client{Transport: opts.Transport, Timeout: opts.Timeout}
	if opts.Token == "" {
		c.http = base
		return c, nil
	}

	// oauth2.NewClient picks the base client up from the context.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c.http = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.Token,
		TokenType:   "Bearer",
	}))
	c.http.Timeout = opts.Timeout
	return c, nil
}

// ResolveURL joins path and query onto the base URL. Absolute URLs are used as is.
func (c *Client) ResolveURL(path string, query map[string]string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}

	target := ref
	if !ref.IsAbs() {
		if c.baseURL == nil {
			return "", fmt.Errorf("%w: %s", ErrNoBaseURL, path)
		}
		joined := *c.baseURL
		joined.Path = strings.TrimRight(joined.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
		joined.RawQuery = ref.RawQuery
		target = &joined
	}

	if len(query) > 0 {
		q := target.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

// GetJSON performs a GET and returns the response body, which must be valid JSON.
// Non-2xx responses yield *HTTPError.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string) (json.RawMessage, error) {
	target, err := c.ResolveURL(path, query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", target, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response from %s is not valid JSON", target)
	}
	return json.RawMessage(body), nil
}

// Producer returns a cache producer that GETs path with query.
func (c *Client) Producer(path string, query map[string]string) cache.Producer[json.RawMessage] {
	return func(ctx context.Context) (json.RawMessage, error) {
		return c.GetJSON(ctx, path, query)
	}
}

// CacheKey returns the cache key used for a GET of path with query.
func CacheKey(path string, query map[string]string, scope string) (string, error) {
	return cache.GenerateKey(cache.KeyParams{
		Method:   http.MethodGet,
		Endpoint: path,
		Query:    query,
		Scope:    scope,
	})
}
