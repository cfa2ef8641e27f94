// Package fetch is the per-book range client. A Fetcher asks the shared
// mirror manager first and falls back to the canonical origin, retrying
// transient failures with linear backoff and keeping transfer counters.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"

	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/transport"
)

const (
	// DefaultOriginTemplate is the canonical origin; {id} is the book id.
	DefaultOriginTemplate = "https://www.gutenberg.org/cache/epub/{id}/pg{id}.txt"

	DefaultRetries     = 3
	DefaultBackoff     = 500 * time.Millisecond
	DefaultHeadTimeout = 10 * time.Second
	DefaultGetTimeout  = 30 * time.Second

	sourceDirect = "direct"
)

// Options configures a Fetcher. Zero values take the defaults above.
type Options struct {
	OriginTemplate string
	Retries        int
	Backoff        time.Duration
	HeadTimeout    time.Duration
	GetTimeout     time.Duration
	Sink           mirrors.EventSink
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.OriginTemplate == "" {
		o.OriginTemplate = DefaultOriginTemplate
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.HeadTimeout <= 0 {
		o.HeadTimeout = DefaultHeadTimeout
	}
	if o.GetTimeout <= 0 {
		o.GetTimeout = DefaultGetTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Fetcher retrieves byte ranges of one book. It is owned by a single reading
// session; the mirror manager behind it is shared.
type Fetcher struct {
	bookID  string
	manager *mirrors.Manager
	client  *transport.Client
	opts    Options
	sink    mirrors.EventSink

	sizeGroup singleflight.Group
	timer     retry.Timer // nil uses real time

	mu              sync.Mutex
	totalBytes      int64 // -1 until resolved
	resolvedURL     string
	mirror          *mirrors.Mirror
	source          string
	requests        int64
	bytesDownloaded int64
}

// Stats are the transfer counters of a Fetcher.
type Stats struct {
	Requests        int64  `json:"requests"`
	BytesDownloaded int64  `json:"bytes_downloaded"`
	TotalBytes      *int64 `json:"total_bytes"`
	Efficiency      string `json:"efficiency"`
	Mirror          string `json:"mirror"`
}

// New creates a Fetcher for bookID. manager may be nil, in which case every
// request goes straight to the origin.
func New(bookID string, manager *mirrors.Manager, client *transport.Client, opts Options) (*Fetcher, error) {
	if err := mirrors.ValidateBookID(bookID); err != nil {
		return nil, err
	}
	if client == nil {
		if manager != nil {
			client = manager.Client()
		} else {
			client = transport.NewClient(transport.Config{})
		}
	}
	opts = opts.withDefaults()
	return &Fetcher{
		bookID:     bookID,
		manager:    manager,
		client:     client,
		opts:       opts,
		sink:       mirrors.MultiSink(opts.Sink),
		totalBytes: -1,
	}, nil
}

// BookID returns the book this fetcher serves.
func (f *Fetcher) BookID() string {
	return f.bookID
}

// OriginURL returns the canonical origin URL for the book.
func (f *Fetcher) OriginURL() string {
	return strings.ReplaceAll(f.opts.OriginTemplate, "{id}", f.bookID)
}

// FileSize returns the total length of the book in bytes. The first call
// resolves it; concurrent callers share that resolution and later calls hit
// the cache.
func (f *Fetcher) FileSize(ctx context.Context) (int64, error) {
	if n, ok := f.cachedSize(); ok {
		return n, nil
	}
	v, err, _ := f.sizeGroup.Do("size", func() (any, error) {
		if n, ok := f.cachedSize(); ok {
			return n, nil
		}
		return f.resolveSize(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve size of book %s: %w", f.bookID, err)
	}
	return v.(int64), nil
}

func (f *Fetcher) cachedSize() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalBytes, f.totalBytes >= 0
}

func (f *Fetcher) resolveSize(ctx context.Context) (int64, error) {
	if f.manager != nil {
		res, err := f.manager.HeadWithFallback(ctx, f.bookID, f.sink)
		if err == nil {
			mirror := res.Mirror
			f.mu.Lock()
			f.totalBytes = res.ContentLength
			f.resolvedURL = res.URL
			f.mirror = &mirror
			f.source = mirror.Provider
			f.mu.Unlock()
			return res.ContentLength, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		f.opts.Logger.Debug("mirror HEAD failed, trying origin", "book_id", f.bookID, "error", err)
	}

	origin := f.OriginURL()
	f.sink(mirrors.Event{Kind: mirrors.EventFallbackTriggered, Op: mirrors.OpHead, BookID: f.bookID, Mirror: sourceDirect, URL: origin})

	hctx, cancel := context.WithTimeout(ctx, f.opts.HeadTimeout)
	defer cancel()
	resp, err := f.client.Head(hctx, origin)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &transport.ContentUnavailableError{
			BookID: f.bookID,
			URL:    resp.URL,
			Reason: fmt.Sprintf("status %d", resp.StatusCode),
		}
	}
	if resp.ContentLength <= 0 {
		return 0, &transport.ContentUnavailableError{BookID: f.bookID, URL: resp.URL, Reason: "missing content-length"}
	}

	f.mu.Lock()
	f.totalBytes = resp.ContentLength
	f.resolvedURL = resp.URL
	f.mirror = nil
	f.source = sourceDirect
	f.mu.Unlock()
	return resp.ContentLength, nil
}

// FetchRange returns exactly end-start+1 bytes, retrying with the default
// attempt budget.
func (f *Fetcher) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	return f.FetchRangeRetries(ctx, start, end, f.opts.Retries)
}

// FetchRangeRetries is FetchRange with an explicit attempt budget. Attempt n
// (0-based) that fails is followed by a wait of Backoff*(n+1). Redirect loops
// and missing content are not retried.
func (f *Fetcher) FetchRangeRetries(ctx context.Context, start, end int64, retries int) ([]byte, error) {
	if retries <= 0 {
		retries = 1
	}
	if n, ok := f.cachedSize(); ok && end > n-1 {
		end = n - 1
	}
	rng := transport.ByteRange{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, &RangeError{BookID: f.bookID, Range: rng, Err: err}
	}

	var (
		attempts int
		lastFrom string
	)
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(retries)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !transport.IsFatal(err)
		}),
		retry.DelayType(func(failed uint, _ error, _ *retry.Config) time.Duration {
			return Delay(f.opts.Backoff, failed)
		}),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 >= retries {
				return
			}
			f.sink(mirrors.Event{
				Kind:    mirrors.EventRetryScheduled,
				Op:      mirrors.OpGet,
				BookID:  f.bookID,
				Range:   rng.String(),
				Attempt: int(n) + 1,
				Err:     err,
			})
		}),
	}
	if f.timer != nil {
		opts = append(opts, retry.WithTimer(f.timer))
	}
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			attempts++
			data, from, err := f.attempt(ctx, rng)
			lastFrom = from
			return data, err
		},
		opts...,
	)
	if err != nil {
		return nil, &RangeError{BookID: f.bookID, Range: rng, Mirror: lastFrom, Attempts: attempts, Err: err}
	}
	return body, nil
}

// Delay is the wait after the failed-th consecutive failure (1-based):
// backoff times the failure count.
func Delay(backoff time.Duration, failed uint) time.Duration {
	return backoff * time.Duration(failed)
}

// attempt runs one mirror pass plus the direct fallback. It reports which
// source answered last.
func (f *Fetcher) attempt(ctx context.Context, rng transport.ByteRange) ([]byte, string, error) {
	f.mu.Lock()
	f.requests++
	f.bytesDownloaded += rng.Len()
	f.mu.Unlock()

	size, _ := f.cachedSize()
	lastFrom := ""
	if f.manager != nil {
		res, err := f.manager.GetWithFallback(ctx, f.bookID, rng, size, f.sink)
		if err == nil {
			mirror := res.Mirror
			f.mu.Lock()
			f.mirror = &mirror
			f.source = mirror.Provider
			f.mu.Unlock()
			return res.Body, mirror.Provider, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, lastFrom, ctxErr
		}
		var ex *mirrors.ExhaustedError
		if errors.As(err, &ex) {
			lastFrom = ex.LastMirror
		}
	}

	url := f.directURL()
	f.sink(mirrors.Event{Kind: mirrors.EventFallbackTriggered, Op: mirrors.OpGet, BookID: f.bookID, Mirror: sourceDirect, URL: url, Range: rng.String()})

	gctx, cancel := context.WithTimeout(ctx, f.opts.GetTimeout)
	defer cancel()
	resp, err := f.client.GetRange(gctx, url, rng)
	if err != nil {
		return nil, sourceDirect, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, sourceDirect, &transport.HTTPError{URL: resp.URL, StatusCode: resp.StatusCode}
	}
	body, err := transport.ExtractRange(resp, rng)
	if err != nil {
		return nil, sourceDirect, err
	}
	if err := transport.CheckSize(resp, size); err != nil {
		return nil, sourceDirect, err
	}

	f.mu.Lock()
	f.mirror = nil
	f.source = sourceDirect
	f.mu.Unlock()
	return body, sourceDirect, nil
}

// directURL is the URL resolved by FileSize, or the canonical origin when
// nothing has been resolved yet.
func (f *Fetcher) directURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolvedURL != "" {
		return f.resolvedURL
	}
	return f.OriginURL()
}

// CurrentMirror returns the mirror that served the last successful request,
// or nil when nothing succeeded yet or the origin served it.
func (f *Fetcher) CurrentMirror() *mirrors.Mirror {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mirror == nil {
		return nil
	}
	m := *f.mirror
	return &m
}

// Stats returns a snapshot of the transfer counters.
func (f *Fetcher) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Stats{
		Requests:        f.requests,
		BytesDownloaded: f.bytesDownloaded,
		Efficiency:      "N/A",
		Mirror:          f.source,
	}
	if s.Mirror == "" {
		s.Mirror = "none"
	}
	if f.totalBytes > 0 {
		total := f.totalBytes
		s.TotalBytes = &total
		s.Efficiency = fmt.Sprintf("%.2f%%", float64(f.bytesDownloaded)/float64(total)*100)
	}
	return s
}
