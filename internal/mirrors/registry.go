package mirrors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrMirrorNotFound is returned by Get for unknown mirror ids.
var ErrMirrorNotFound = errors.New("mirror not found")

// Registry holds the known mirrors and their statistics.
// One Registry is shared by every fetch in the process; all methods are safe
// for concurrent use and stat updates are serialized under the mutex.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	byKey   map[string]*entry
	rpm     int
	logger  *slog.Logger
}

type entry struct {
	mirror  Mirror
	stats   Stats
	enabled bool
	order   int
	limiter *RateLimiter
}

// MirrorStatus is a point-in-time copy of a mirror and its stats.
type MirrorStatus struct {
	ID          string            `json:"id"`
	Mirror      Mirror            `json:"mirror"`
	Stats       Stats             `json:"stats"`
	SuccessRate float64           `json:"success_rate"`
	Enabled     bool              `json:"enabled"`
	Rank        int               `json:"rank"`
	RateLimit   RateLimiterStatus `json:"rate_limit"`
}

// NewRegistry creates a registry from the configured mirror list.
// requestsPerMinute paces requests per mirror; 0 disables pacing.
func NewRegistry(mirrors []Mirror, requestsPerMinute int) *Registry {
	r := &Registry{
		byKey:  make(map[string]*entry),
		rpm:    requestsPerMinute,
		logger: slog.Default(),
	}
	for _, m := range mirrors {
		r.addLocked(m)
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

func (r *Registry) addLocked(m Mirror) {
	if m.Layout == "" {
		m.Layout = LayoutTree
	}
	e := &entry{
		mirror:  m,
		enabled: true,
		order:   len(r.entries),
		limiter: NewRateLimiter(r.rpm),
	}
	r.entries = append(r.entries, e)
	r.byKey[m.Key()] = e
}

// Len returns the number of enabled mirrors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.enabled {
			n++
		}
	}
	return n
}

// Ordered returns the enabled mirrors in the order they should be tried:
// never-tried mirrors first (insertion order), then by success rate,
// fewer consecutive failures, lower average response time, insertion order.
func (r *Registry) Ordered() []Mirror {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ranked := r.rankedLocked()
	out := make([]Mirror, 0, len(ranked))
	for _, e := range ranked {
		if e.enabled {
			out = append(out, e.mirror)
		}
	}
	return out
}

// rankedLocked sorts a copy of the entry list. Must be called with lock held.
func (r *Registry) rankedLocked() []*entry {
	ranked := make([]*entry, len(r.entries))
	copy(ranked, r.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func less(a, b *entry) bool {
	aNew, bNew := a.stats.Attempts() == 0, b.stats.Attempts() == 0
	if aNew != bNew {
		return aNew
	}
	if aNew {
		return a.order < b.order
	}
	if ra, rb := a.stats.SuccessRate(), b.stats.SuccessRate(); ra != rb {
		return ra > rb
	}
	if a.stats.ConsecutiveFailures != b.stats.ConsecutiveFailures {
		return a.stats.ConsecutiveFailures < b.stats.ConsecutiveFailures
	}
	if a.stats.AvgResponseTimeMs != b.stats.AvgResponseTimeMs {
		return a.stats.AvgResponseTimeMs < b.stats.AvgResponseTimeMs
	}
	return a.order < b.order
}

// RecordSuccess records a successful attempt and folds its latency into the
// running average.
func (r *Registry) RecordSuccess(m Mirror, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[m.Key()]
	if !ok {
		return
	}
	e.stats.Successes++
	e.stats.ConsecutiveFailures = 0
	e.stats.LastError = ""
	e.stats.LastUsed = time.Now()
	ms := float64(elapsed) / float64(time.Millisecond)
	e.stats.AvgResponseTimeMs += (ms - e.stats.AvgResponseTimeMs) / float64(e.stats.Successes)
}

// RecordFailure records a failed attempt.
func (r *Registry) RecordFailure(m Mirror, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[m.Key()]
	if !ok {
		return
	}
	e.stats.Failures++
	e.stats.ConsecutiveFailures++
	e.stats.LastUsed = time.Now()
	if err != nil {
		e.stats.LastError = err.Error()
	}
}

// Stats returns the stats for a mirror.
func (r *Registry) Stats(m Mirror) (Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byKey[m.Key()]
	if !ok {
		return Stats{}, false
	}
	return e.stats, true
}

// Snapshot returns every mirror, enabled or not, in rank order.
func (r *Registry) Snapshot() []MirrorStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ranked := r.rankedLocked()
	out := make([]MirrorStatus, 0, len(ranked))
	for i, e := range ranked {
		out = append(out, MirrorStatus{
			ID:          e.mirror.ID(),
			Mirror:      e.mirror,
			Stats:       e.stats,
			SuccessRate: e.stats.SuccessRate(),
			Enabled:     e.enabled,
			Rank:        i + 1,
			RateLimit:   e.limiter.Status(),
		})
	}
	return out
}

// Get returns the status of a mirror by ID.
func (r *Registry) Get(id string) (MirrorStatus, error) {
	for _, s := range r.Snapshot() {
		if s.ID == id {
			return s, nil
		}
	}
	return MirrorStatus{}, fmt.Errorf("%w: %s", ErrMirrorNotFound, id)
}

// Reload applies a new mirror list from configuration. Unknown mirrors are
// added, known ones get refreshed metadata, and mirrors that disappeared are
// disabled rather than removed so their stats survive the run.
func (r *Registry) Reload(mirrors []Mirror) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool, len(mirrors))
	for _, m := range mirrors {
		key := m.Key()
		want[key] = true

		e, ok := r.byKey[key]
		if !ok {
			r.addLocked(m)
			if r.logger != nil {
				r.logger.Info("registered mirror", "provider", m.Provider, "base_url", m.BaseURL)
			}
			continue
		}
		if m.Layout == "" {
			m.Layout = LayoutTree
		}
		if e.mirror != m || !e.enabled {
			e.mirror = m
			e.enabled = true
			if r.logger != nil {
				r.logger.Info("updated mirror", "provider", m.Provider, "base_url", m.BaseURL)
			}
		}
	}

	for key, e := range r.byKey {
		if !want[key] && e.enabled {
			e.enabled = false
			if r.logger != nil {
				r.logger.Info("disabled mirror", "provider", e.mirror.Provider, "base_url", e.mirror.BaseURL)
			}
		}
	}
}

// wait blocks on the mirror's rate limiter.
func (r *Registry) wait(ctx context.Context, m Mirror) error {
	r.mu.RLock()
	e, ok := r.byKey[m.Key()]
	r.mu.RUnlock()
	if !ok {
		return ctx.Err()
	}
	return e.limiter.Wait(ctx)
}

// throttled drains the mirror's rate limiter after a 429/503.
func (r *Registry) throttled(m Mirror) {
	r.mu.RLock()
	e, ok := r.byKey[m.Key()]
	r.mu.RUnlock()
	if ok {
		e.limiter.RecordThrottle()
	}
}
