package mirrors

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventKind classifies a progress event.
type EventKind string

const (
	EventMirrorSelected    EventKind = "mirror_selected"
	EventAttemptSucceeded  EventKind = "attempt_succeeded"
	EventAttemptFailed     EventKind = "attempt_failed"
	EventMirrorsExhausted  EventKind = "mirrors_exhausted"
	EventFallbackTriggered EventKind = "fallback_triggered"
	EventRetryScheduled    EventKind = "retry_scheduled"
)

// Op is the kind of request an event refers to.
type Op string

const (
	OpHead Op = "HEAD"
	OpGet  Op = "GET"
)

// Event is a typed progress report. Events are a side channel only.
type Event struct {
	Kind     EventKind
	Op       Op
	BookID   string
	Mirror   string // provider name, or "direct"
	URL      string
	Range    string
	Bytes    int64
	Attempt  int
	Duration time.Duration
	Err      error
}

// String renders a human-readable progress line.
func (e Event) String() string {
	switch e.Kind {
	case EventMirrorSelected:
		return fmt.Sprintf("trying %s for %s book %s", e.Mirror, e.Op, e.BookID)
	case EventAttemptSucceeded:
		if e.Op == OpGet {
			return fmt.Sprintf("received %d bytes from %s in %s", e.Bytes, e.Mirror, e.Duration.Round(time.Millisecond))
		}
		return fmt.Sprintf("%s answered %s for book %s (%d bytes) in %s", e.Mirror, e.Op, e.BookID, e.Bytes, e.Duration.Round(time.Millisecond))
	case EventAttemptFailed:
		return fmt.Sprintf("%s failed %s for book %s: %v", e.Mirror, e.Op, e.BookID, e.Err)
	case EventMirrorsExhausted:
		return fmt.Sprintf("all mirrors failed %s for book %s", e.Op, e.BookID)
	case EventFallbackTriggered:
		return fmt.Sprintf("falling back to origin %s for book %s", e.URL, e.BookID)
	case EventRetryScheduled:
		return fmt.Sprintf("retrying range %s of book %s (attempt %d): %v", e.Range, e.BookID, e.Attempt, e.Err)
	default:
		return string(e.Kind)
	}
}

// EventSink receives progress events.
type EventSink func(Event)

// LogSink adapts events to structured log lines. Failures log at warn level.
func LogSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return func(e Event) {
		attrs := []any{"kind", string(e.Kind), "book_id", e.BookID}
		if e.Mirror != "" {
			attrs = append(attrs, "mirror", e.Mirror)
		}
		if e.Range != "" {
			attrs = append(attrs, "range", e.Range)
		}
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err)
		}
		switch e.Kind {
		case EventAttemptFailed, EventMirrorsExhausted, EventRetryScheduled:
			logger.Warn(e.String(), attrs...)
		default:
			logger.Debug(e.String(), attrs...)
		}
	}
}

// MultiSink fans an event out to several sinks; nil sinks are skipped.
func MultiSink(sinks ...EventSink) EventSink {
	return func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s(e)
			}
		}
	}
}

// Counter tallies events by kind. The zero value is ready to use.
type Counter struct {
	mu     sync.Mutex
	counts map[EventKind]int64
}

// Sink returns an EventSink feeding the counter.
func (c *Counter) Sink() EventSink {
	return func(e Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.counts == nil {
			c.counts = make(map[EventKind]int64)
		}
		c.counts[e.Kind]++
	}
}

// Counts returns a copy of the tallies.
func (c *Counter) Counts() map[EventKind]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[EventKind]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
