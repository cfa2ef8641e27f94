package mirrors

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// setStats overwrites a mirror's stats to seed scores.
func (r *Registry) setStats(m Mirror, s Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byKey[m.Key()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMirrorNotFound, m.Key())
	}
	e.stats = s
	return nil
}

func testMirror(name string) Mirror {
	return Mirror{Provider: name, BaseURL: "https://" + name + ".example.org/books", Layout: LayoutTree}
}

func providers(ms []Mirror) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Provider
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRegistry_Ordered(t *testing.T) {
	t.Run("never tried mirrors keep insertion order", func(t *testing.T) {
		r := NewRegistry([]Mirror{testMirror("a"), testMirror("b"), testMirror("c")}, 0)
		got := providers(r.Ordered())
		if !equalStrings(got, []string{"a", "b", "c"}) {
			t.Errorf("Ordered() = %v, want [a b c]", got)
		}
	})

	t.Run("never tried mirrors come before tried ones", func(t *testing.T) {
		a, b := testMirror("a"), testMirror("b")
		r := NewRegistry([]Mirror{a, b}, 0)
		r.RecordSuccess(a, 10*time.Millisecond)

		got := providers(r.Ordered())
		if !equalStrings(got, []string{"b", "a"}) {
			t.Errorf("Ordered() = %v, want [b a]", got)
		}
	})

	t.Run("higher success rate first", func(t *testing.T) {
		a, b := testMirror("a"), testMirror("b")
		// b registered first so insertion order cannot explain the result
		r := NewRegistry([]Mirror{b, a}, 0)
		if err := r.setStats(a, Stats{Successes: 5}); err != nil {
			t.Fatalf("setStats() error = %v", err)
		}
		if err := r.setStats(b, Stats{Failures: 2, ConsecutiveFailures: 2}); err != nil {
			t.Fatalf("setStats() error = %v", err)
		}

		got := providers(r.Ordered())
		if !equalStrings(got, []string{"a", "b"}) {
			t.Errorf("Ordered() = %v, want [a b]", got)
		}
	})

	t.Run("equal rate prefers faster mirror", func(t *testing.T) {
		a, b := testMirror("a"), testMirror("b")
		r := NewRegistry([]Mirror{a, b}, 0)
		_ = r.setStats(a, Stats{Successes: 3, AvgResponseTimeMs: 300})
		_ = r.setStats(b, Stats{Successes: 3, AvgResponseTimeMs: 120})

		got := providers(r.Ordered())
		if !equalStrings(got, []string{"b", "a"}) {
			t.Errorf("Ordered() = %v, want [b a]", got)
		}
	})

	t.Run("equal rate prefers fewer consecutive failures", func(t *testing.T) {
		a, b := testMirror("a"), testMirror("b")
		r := NewRegistry([]Mirror{a, b}, 0)
		_ = r.setStats(a, Stats{Successes: 2, Failures: 2, ConsecutiveFailures: 2, AvgResponseTimeMs: 50})
		_ = r.setStats(b, Stats{Successes: 2, Failures: 2, AvgResponseTimeMs: 500})

		got := providers(r.Ordered())
		if !equalStrings(got, []string{"b", "a"}) {
			t.Errorf("Ordered() = %v, want [b a]", got)
		}
	})

	t.Run("three consecutive failures demote a mirror", func(t *testing.T) {
		a, b := testMirror("a"), testMirror("b")
		r := NewRegistry([]Mirror{a, b}, 0)
		r.RecordSuccess(a, 5*time.Millisecond)
		r.RecordSuccess(b, 50*time.Millisecond)
		if got := r.Ordered()[0].Provider; got != "a" {
			t.Fatalf("first mirror = %s, want a", got)
		}

		for i := 0; i < 3; i++ {
			r.RecordFailure(a, errors.New("timeout"))
		}
		if got := r.Ordered()[0].Provider; got != "b" {
			t.Errorf("first mirror after failures = %s, want b", got)
		}
	})
}

func TestRegistry_RecordStats(t *testing.T) {
	t.Run("success updates running average", func(t *testing.T) {
		m := testMirror("a")
		r := NewRegistry([]Mirror{m}, 0)
		r.RecordSuccess(m, 100*time.Millisecond)
		r.RecordSuccess(m, 300*time.Millisecond)

		s, ok := r.Stats(m)
		if !ok {
			t.Fatal("Stats() not found")
		}
		if s.Successes != 2 {
			t.Errorf("Successes = %d, want 2", s.Successes)
		}
		if s.AvgResponseTimeMs != 200 {
			t.Errorf("AvgResponseTimeMs = %v, want 200", s.AvgResponseTimeMs)
		}
	})

	t.Run("success resets consecutive failures", func(t *testing.T) {
		m := testMirror("a")
		r := NewRegistry([]Mirror{m}, 0)
		r.RecordFailure(m, errors.New("boom"))
		r.RecordFailure(m, errors.New("boom"))

		s, _ := r.Stats(m)
		if s.ConsecutiveFailures != 2 || s.LastError != "boom" {
			t.Errorf("stats = %+v, want 2 consecutive failures with last error", s)
		}

		r.RecordSuccess(m, time.Millisecond)
		s, _ = r.Stats(m)
		if s.ConsecutiveFailures != 0 {
			t.Errorf("ConsecutiveFailures = %d, want 0", s.ConsecutiveFailures)
		}
		if s.Failures != 2 {
			t.Errorf("Failures = %d, want 2", s.Failures)
		}
		if s.LastError != "" {
			t.Errorf("LastError = %q, want empty", s.LastError)
		}
	})

	t.Run("unknown mirror is ignored", func(t *testing.T) {
		r := NewRegistry(nil, 0)
		r.RecordSuccess(testMirror("ghost"), time.Millisecond)
		if _, ok := r.Stats(testMirror("ghost")); ok {
			t.Error("expected unknown mirror to stay unknown")
		}
		if err := r.setStats(testMirror("ghost"), Stats{}); err == nil {
			t.Error("expected error for unknown mirror")
		}
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		m := testMirror("a")
		r := NewRegistry([]Mirror{m}, 0)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if (i+j)%2 == 0 {
						r.RecordSuccess(m, 10*time.Millisecond)
					} else {
						r.RecordFailure(m, errors.New("fail"))
					}
					_ = r.Ordered()
				}
			}(i)
		}
		wg.Wait()

		s, _ := r.Stats(m)
		if s.Attempts() != 5000 {
			t.Errorf("Attempts() = %d, want 5000", s.Attempts())
		}
		if s.Successes != 2500 {
			t.Errorf("Successes = %d, want 2500", s.Successes)
		}
		if s.AvgResponseTimeMs != 10 {
			t.Errorf("AvgResponseTimeMs = %v, want 10", s.AvgResponseTimeMs)
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	a, b, c := testMirror("a"), testMirror("b"), testMirror("c")
	r := NewRegistry([]Mirror{a, b}, 0)
	r.RecordSuccess(a, 10*time.Millisecond)

	updated := a
	updated.Location = "Mars"
	r.Reload([]Mirror{updated, c})

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	got := providers(r.Ordered())
	if !equalStrings(got, []string{"c", "a"}) {
		t.Errorf("Ordered() = %v, want [c a]", got)
	}

	s, ok := r.Stats(a)
	if !ok || s.Successes != 1 {
		t.Errorf("stats for a lost across reload: %+v", s)
	}

	var sawDisabled bool
	for _, st := range r.Snapshot() {
		if st.Mirror.Provider == "a" && st.Mirror.Location != "Mars" {
			t.Errorf("Location = %q, want Mars", st.Mirror.Location)
		}
		if st.Mirror.Provider == "b" {
			sawDisabled = !st.Enabled
		}
	}
	if !sawDisabled {
		t.Error("expected b to be kept but disabled")
	}

	r.Reload([]Mirror{a, b, c})
	if r.Len() != 3 {
		t.Errorf("Len() after re-enable = %d, want 3", r.Len())
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	a, b := testMirror("a"), testMirror("b")
	r := NewRegistry([]Mirror{a, b}, 60)
	_ = r.setStats(a, Stats{Successes: 1, Failures: 1})
	_ = r.setStats(b, Stats{Successes: 2})

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot()) = %d, want 2", len(snap))
	}
	if snap[0].Mirror.Provider != "b" || snap[0].Rank != 1 {
		t.Errorf("first = %s rank %d, want b rank 1", snap[0].Mirror.Provider, snap[0].Rank)
	}
	if snap[1].SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", snap[1].SuccessRate)
	}
	if snap[0].RateLimit.TokensLimit != 60 {
		t.Errorf("TokensLimit = %d, want 60", snap[0].RateLimit.TokensLimit)
	}

	got, err := r.Get(a.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Mirror.Provider != "a" {
		t.Errorf("Get() provider = %s, want a", got.Mirror.Provider)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrMirrorNotFound) {
		t.Error("expected error for unknown id")
	}
}
