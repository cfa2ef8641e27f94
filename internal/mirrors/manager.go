package mirrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackzampolin/leaf/internal/transport"
)

const (
	// DefaultHeadTimeout bounds a single metadata attempt.
	DefaultHeadTimeout = 10 * time.Second
	// DefaultGetTimeout bounds a single ranged GET attempt.
	DefaultGetTimeout = 30 * time.Second
)

// ExhaustedError is returned when every mirror failed an operation.
// Callers fall back to the origin.
type ExhaustedError struct {
	BookID     string
	Op         Op
	Attempts   int
	LastMirror string
	Err        error
}

func (e *ExhaustedError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("no mirrors configured for %s book %s", e.Op, e.BookID)
	}
	return fmt.Sprintf("all %d mirrors failed %s for book %s (last %s): %v",
		e.Attempts, e.Op, e.BookID, e.LastMirror, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// ManagerConfig holds configuration for a Manager.
type ManagerConfig struct {
	HeadTimeout time.Duration
	GetTimeout  time.Duration
	// Sink receives every event in addition to per-call sinks.
	Sink EventSink
}

// Manager tries mirrors in score order and keeps the Registry up to date.
type Manager struct {
	registry    *Registry
	client      *transport.Client
	headTimeout time.Duration
	getTimeout  time.Duration
	sink        EventSink
}

// HeadResult is the outcome of a successful metadata request.
type HeadResult struct {
	URL           string
	ContentLength int64
	Mirror        Mirror
}

// GetResult is the outcome of a successful ranged GET.
type GetResult struct {
	Body   []byte
	URL    string
	Mirror Mirror
}

// NewManager creates a new mirror manager over a shared registry.
func NewManager(registry *Registry, client *transport.Client, cfg ManagerConfig) *Manager {
	if cfg.HeadTimeout <= 0 {
		cfg.HeadTimeout = DefaultHeadTimeout
	}
	if cfg.GetTimeout <= 0 {
		cfg.GetTimeout = DefaultGetTimeout
	}
	if client == nil {
		client = transport.NewClient(transport.Config{})
	}
	return &Manager{
		registry:    registry,
		client:      client,
		headTimeout: cfg.HeadTimeout,
		getTimeout:  cfg.GetTimeout,
		sink:        cfg.Sink,
	}
}

// Registry returns the shared registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Client returns the transport client used for mirror requests.
func (m *Manager) Client() *transport.Client {
	return m.client
}

// HeadWithFallback resolves the size of a book from the best mirror that
// answers. It stops at the first success.
func (m *Manager) HeadWithFallback(ctx context.Context, bookID string, sink EventSink) (HeadResult, error) {
	var res HeadResult
	err := m.tryMirrors(ctx, bookID, OpHead, "", m.headTimeout, sink,
		func(ctx context.Context, mirror Mirror, url string) (int64, error) {
			resp, err := m.client.Head(ctx, url)
			if err != nil {
				return 0, err
			}
			if resp.StatusCode != http.StatusOK {
				return 0, &transport.HTTPError{URL: resp.URL, StatusCode: resp.StatusCode}
			}
			if resp.ContentLength <= 0 {
				return 0, &transport.ContentUnavailableError{BookID: bookID, URL: resp.URL, Reason: "missing content-length"}
			}
			res = HeadResult{URL: resp.URL, ContentLength: resp.ContentLength, Mirror: mirror}
			return resp.ContentLength, nil
		})
	return res, err
}

// GetWithFallback fetches an inclusive byte range of a book from the best
// mirror that answers with exactly that range. When size is known (> 0), a
// mirror whose file has a different length fails the attempt, so every range
// of a book comes from the same file.
func (m *Manager) GetWithFallback(ctx context.Context, bookID string, rng transport.ByteRange, size int64, sink EventSink) (GetResult, error) {
	if err := rng.Validate(); err != nil {
		return GetResult{}, err
	}
	var res GetResult
	err := m.tryMirrors(ctx, bookID, OpGet, rng.String(), m.getTimeout, sink,
		func(ctx context.Context, mirror Mirror, url string) (int64, error) {
			resp, err := m.client.GetRange(ctx, url, rng)
			if err != nil {
				return 0, err
			}
			body, err := transport.ExtractRange(resp, rng)
			if err != nil {
				return 0, err
			}
			if err := transport.CheckSize(resp, size); err != nil {
				return 0, err
			}
			res = GetResult{Body: body, URL: resp.URL, Mirror: mirror}
			return int64(len(body)), nil
		})
	return res, err
}

type attemptFunc func(ctx context.Context, mirror Mirror, url string) (int64, error)

// tryMirrors runs attempt against each mirror in score order. Every attempt
// that reaches a mirror updates exactly one mirror's stats; cancellation of
// the caller's context aborts without blaming the mirror.
func (m *Manager) tryMirrors(ctx context.Context, bookID string, op Op, rng string, timeout time.Duration, sink EventSink, attempt attemptFunc) error {
	emit := MultiSink(m.sink, sink)

	ordered := m.registry.Ordered()
	if len(ordered) == 0 {
		return &ExhaustedError{BookID: bookID, Op: op}
	}

	var (
		lastErr    error
		lastMirror Mirror
	)
	for i, mirror := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		url := mirror.BookURL(bookID)
		emit(Event{Kind: EventMirrorSelected, Op: op, BookID: bookID, Mirror: mirror.Provider, URL: url, Range: rng, Attempt: i + 1})

		if err := m.registry.wait(ctx, mirror); err != nil {
			return err
		}

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		n, err := attempt(attemptCtx, mirror, url)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			m.registry.RecordSuccess(mirror, elapsed)
			emit(Event{Kind: EventAttemptSucceeded, Op: op, BookID: bookID, Mirror: mirror.Provider, URL: url, Range: rng, Bytes: n, Attempt: i + 1, Duration: elapsed})
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		m.registry.RecordFailure(mirror, err)
		var httpErr *transport.HTTPError
		if errors.As(err, &httpErr) && (httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode == http.StatusServiceUnavailable) {
			m.registry.throttled(mirror)
		}
		emit(Event{Kind: EventAttemptFailed, Op: op, BookID: bookID, Mirror: mirror.Provider, URL: url, Range: rng, Attempt: i + 1, Duration: elapsed, Err: err})
		lastErr, lastMirror = err, mirror
	}

	emit(Event{Kind: EventMirrorsExhausted, Op: op, BookID: bookID, Range: rng, Err: lastErr})
	return &ExhaustedError{
		BookID:     bookID,
		Op:         op,
		Attempts:   len(ordered),
		LastMirror: lastMirror.Provider,
		Err:        lastErr,
	}
}
