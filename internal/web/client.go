// Package web is the shared outbound HTTP client used for feeds, Wikimedia,
// geolocation lookups and article pages.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultMaxBody bounds how much of a response body is read.
const DefaultMaxBody = 5 << 20

// BrowserUserAgent is sent when fetching article pages, some of which refuse
// non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// Client wraps http.Client with a user agent and a body size limit.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

// New creates a client with the given overall request timeout.
func New(timeout time.Duration, userAgent string) *Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          32,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		http:      &http.Client{Transport: transport, Timeout: timeout},
		userAgent: userAgent,
		maxBody:   DefaultMaxBody,
	}
}

// NewWithHTTPClient wraps an existing client. Used by tests.
func NewWithHTTPClient(c *http.Client, userAgent string) *Client {
	return &Client{http: c, userAgent: userAgent, maxBody: DefaultMaxBody}
}

// HTTPClient exposes the underlying client for libraries that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get fetches url and returns the body. Non-2xx responses return *StatusError.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("content too large (exceeds %d bytes)", c.maxBody)
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
