package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/session"
	"github.com/jackzampolin/leaf/internal/transport"
)

func TestStatusFor(t *testing.T) {
	unavailable := &transport.ContentUnavailableError{BookID: "1", URL: "http://x/1.txt", Reason: "status 404"}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown session", fmt.Errorf("%w: abc", session.ErrNotFound), http.StatusNotFound},
		{"unknown mirror", mirrors.ErrMirrorNotFound, http.StatusNotFound},
		{"end of book", session.ErrEndOfBook, http.StatusNotFound},
		{"invalid book id", fmt.Errorf("%w: ../x", mirrors.ErrInvalidBookID), http.StatusBadRequest},
		{"invalid percent", fmt.Errorf("%w: NaN", navigator.ErrInvalidPercent), http.StatusBadRequest},
		{"invalid chunk size", fmt.Errorf("%w: 0", navigator.ErrInvalidChunkSize), http.StatusBadRequest},
		{"content unavailable", fmt.Errorf("failed to open book 1: %w", unavailable), http.StatusUnprocessableEntity},
		{"deadline", fmt.Errorf("range: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"mirrors exhausted", &mirrors.ExhaustedError{BookID: "1", Op: mirrors.OpGet, Attempts: 3, Err: errors.New("boom")}, http.StatusBadGateway},
		{"network", &transport.NetworkError{Op: "GET", URL: "http://x", Err: errors.New("refused")}, http.StatusBadGateway},
		{"upstream status", &transport.HTTPError{URL: "http://x", StatusCode: 500}, http.StatusBadGateway},
		{"redirect loop", &transport.TooManyRedirectsError{URL: "http://x", Hops: 6}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteErr(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, fmt.Errorf("%w: abc", session.ErrNotFound))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"error":"session not found: abc"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAll(t *testing.T) {
	seen := make(map[string]bool)
	for _, ep := range All(Config{}) {
		method, path, handler := ep.Route()
		if handler == nil {
			t.Errorf("%s %s has no handler", method, path)
		}
		key := method + " " + path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}
	for _, want := range []string{"GET /health", "GET /status", "POST /api/sessions", "GET /api/sessions/{id}/next"} {
		if !seen[want] {
			t.Errorf("missing route %s", want)
		}
	}
}
