// Package transport is the HTTP layer shared by the mirror manager and the
// fetcher: ranged requests, manual redirect following and the error taxonomy.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultMaxRedirects bounds redirect chains. The 6th redirect fails.
	DefaultMaxRedirects = 5

	// DefaultUserAgent identifies leaf to mirrors and the origin.
	DefaultUserAgent = "leaf/1.0 (+https://github.com/jackzampolin/leaf)"

	// maxBodyBytes caps a single response body read.
	maxBodyBytes = 64 << 20
)

// Config holds configuration for a transport Client.
type Config struct {
	MaxRedirects int
	UserAgent    string
	// Transport overrides the round tripper (tests, proxies).
	Transport http.RoundTripper
}

// Client issues HEAD and ranged GET requests and follows redirects itself,
// re-issuing the Range header on every hop.
type Client struct {
	http         *http.Client
	maxRedirects int
	userAgent    string
}

// NewClient creates a new transport client. Per-request timeouts come from
// the caller's context; the http.Client itself has none.
func NewClient(cfg Config) *Client {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		http: &http.Client{
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: cfg.MaxRedirects,
		userAgent:    cfg.UserAgent,
	}
}

// MaxRedirects returns the configured hop bound.
func (c *Client) MaxRedirects() int {
	return c.maxRedirects
}

// Request describes a single logical request (possibly several hops).
type Request struct {
	Method string
	URL    string
	Range  *ByteRange
}

// Response is the final, non-redirect response of a request.
type Response struct {
	URL           string // final URL after redirects
	StatusCode    int
	Header        http.Header
	Body          []byte // nil for HEAD
	ContentLength int64  // -1 when the server sent none
	Hops          int
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodHead, URL: rawURL})
}

// GetRange issues a ranged GET request.
func (c *Client) GetRange(ctx context.Context, rawURL string, rng ByteRange) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Range: &rng})
}

// Do performs the request, following up to MaxRedirects redirects.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	current := req.URL

	for hops := 0; ; hops++ {
		resp, err := c.roundTrip(ctx, req.Method, current, req.Range)
		if err != nil {
			return nil, err
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			resp.Hops = hops
			return resp, nil
		}

		if hops >= c.maxRedirects {
			return nil, &TooManyRedirectsError{URL: current, Hops: hops + 1}
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			return nil, fmt.Errorf("invalid redirect from %s: %w", current, err)
		}
		current = next
	}
}

func (c *Client) roundTrip(ctx context.Context, method, rawURL string, rng *ByteRange) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	// Offsets refer to the raw file; an explicit identity encoding also turns
	// off net/http's transparent gzip.
	req.Header.Set("Accept-Encoding", "identity")
	if rng != nil {
		req.Header.Set("Range", rng.Header())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	out := &Response{
		URL:           rawURL,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: contentLength(resp),
	}

	if method == http.MethodHead || isRedirect(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: "read", URL: rawURL, Err: err}
	}
	out.Body = body
	return out, nil
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return -1
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveLocation resolves a (possibly relative) Location against the current URL.
func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
