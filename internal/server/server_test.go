package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	_ "github.com/jackzampolin/leaf/docs/swagger"
	"github.com/jackzampolin/leaf/internal/config"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/server/endpoints"
	"github.com/jackzampolin/leaf/internal/session"
	"github.com/jackzampolin/leaf/internal/testutil"
)

func writeServerConfig(t *testing.T, path, origin string, mirrorURLs ...string) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "origin:\n  url_template: %s\n", origin)
	b.WriteString("fetch:\n  retry_backoff_ms: 1\n  max_retries: 1\n")
	b.WriteString("navigator:\n  chunk_size: 5\n")
	b.WriteString("mirrors:\n")
	for i, u := range mirrorURLs {
		fmt.Fprintf(&b, "  - provider: m%d\n    base_url: %s\n    layout: cache\n    enabled: true\n", i, u)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestServer_RequiresInit(t *testing.T) {
	srv, err := New(Config{Logger: testutil.NewServerConfig(t).Logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Run("health answers before start", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("sessions unavailable before start", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestServer_FullLifecycle(t *testing.T) {
	cfg := testutil.NewServerConfig(t)
	lib := testutil.NewLibrary(t, testutil.PrideAndPrejudice)
	writeServerConfig(t, cfg.ConfigFile, lib.OriginTemplate(), lib.URL)

	cfgMgr, err := config.NewManager(cfg.ConfigFile)
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	srv, err := New(Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		ConfigManager: cfgMgr,
		Logger:        cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Start server in background
	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)
	go func() {
		serverErr <- srv.Start(serverCtx)
	}()
	starter := testutil.StartServer{Cancel: serverCancel, Done: serverErr}
	defer starter.Stop()

	if err := testutil.WaitForServer(cfg.URL(), 10*time.Second); err != nil {
		t.Fatalf("server did not start: %v", err)
	}
	base := cfg.URL()

	t.Run("status", func(t *testing.T) {
		status, err := testutil.GetStatus(base)
		if err != nil {
			t.Fatalf("GetStatus() error = %v", err)
		}
		if !status.Ready || status.Mirrors != 1 || status.Sessions != 0 {
			t.Errorf("status = %+v", status)
		}
		if !srv.IsRunning() {
			t.Error("IsRunning() = false, want true")
		}
	})

	t.Run("start twice", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("expected error starting a running server")
		}
	})

	var sessionID string
	t.Run("open session", func(t *testing.T) {
		body := bytes.NewBufferString(`{"book_id":"1342"}`)
		resp, err := http.Post(base+"/api/sessions", "application/json", body)
		if err != nil {
			t.Fatalf("POST /api/sessions error = %v", err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}
		var info session.Info
		decode(t, resp, &info)
		if info.ID == "" || info.BookID != "1342" || info.ChunkSize != 5 {
			t.Errorf("info = %+v", info)
		}
		if !info.Boundaries.StartFound || !info.Boundaries.EndFound {
			t.Errorf("boundaries = %+v", info.Boundaries)
		}
		sessionID = info.ID
	})
	if sessionID == "" {
		t.FailNow()
	}

	t.Run("next then percent", func(t *testing.T) {
		resp, err := http.Get(base + "/api/sessions/" + sessionID + "/next")
		if err != nil {
			t.Fatalf("GET next error = %v", err)
		}
		var pos navigator.Position
		decode(t, resp, &pos)
		if got := strings.Join(pos.Words, " "); got != "It is a truth universally" {
			t.Errorf("Words = %q", got)
		}

		resp, err = http.Get(base + "/api/sessions/" + sessionID + "/percent/100")
		if err != nil {
			t.Fatalf("GET percent error = %v", err)
		}
		decode(t, resp, &pos)
		if pos.NextByteStart != nil || pos.Percent != 100 {
			t.Errorf("position = %+v", pos)
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			method, path, body string
			want               int
		}{
			{"GET", "/api/sessions/" + sessionID + "/percent/abc", "", http.StatusBadRequest},
			{"GET", "/api/sessions/" + sessionID + "/byte/1.5", "", http.StatusBadRequest},
			{"GET", "/api/sessions/nope/next", "", http.StatusNotFound},
			{"POST", "/api/sessions", `{"book_id":"../x"}`, http.StatusBadRequest},
			{"POST", "/api/sessions", `{`, http.StatusBadRequest},
			{"POST", "/api/sessions", `{"book_id":"1342","chunk_size":1000000000000}`, http.StatusBadRequest},
			{"POST", "/api/sessions", `{"book_id":"99999"}`, http.StatusUnprocessableEntity},
			{"GET", "/api/mirrors/nope", "", http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.method+" "+tt.path, func(t *testing.T) {
				req, _ := http.NewRequest(tt.method, base+tt.path, strings.NewReader(tt.body))
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					t.Fatalf("request error = %v", err)
				}
				var e endpoints.ErrorResponse
				decode(t, resp, &e)
				if resp.StatusCode != tt.want {
					t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, e.Error)
				}
				if e.Error == "" {
					t.Error("expected error message")
				}
			})
		}
	})

	t.Run("mirror stats reflect reads", func(t *testing.T) {
		resp, err := http.Get(base + "/api/mirrors")
		if err != nil {
			t.Fatalf("GET /api/mirrors error = %v", err)
		}
		var list endpoints.ListMirrorsResponse
		decode(t, resp, &list)
		if len(list.Mirrors) != 1 || list.Mirrors[0].Stats.Successes == 0 {
			t.Errorf("mirrors = %+v", list.Mirrors)
		}
	})

	t.Run("swagger is gzipped", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, base+"/swagger.json", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET /swagger.json error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if resp.Header.Get("Content-Encoding") != "gzip" {
			t.Errorf("Content-Encoding = %q, want gzip", resp.Header.Get("Content-Encoding"))
		}
	})

	t.Run("config reload adds mirror", func(t *testing.T) {
		other := testutil.NewLibrary(t, testutil.PrideAndPrejudice)
		time.Sleep(100 * time.Millisecond)
		writeServerConfig(t, cfg.ConfigFile, lib.OriginTemplate(), lib.URL, other.URL)

		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) && srv.Registry().Len() != 2 {
			time.Sleep(50 * time.Millisecond)
		}
		if got := srv.Registry().Len(); got != 2 {
			t.Errorf("Registry().Len() = %d, want 2", got)
		}
	})

	t.Run("close session", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, base+"/api/sessions/"+sessionID, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want 204", resp.StatusCode)
		}
		if srv.Sessions().Len() != 0 {
			t.Errorf("Sessions().Len() = %d, want 0", srv.Sessions().Len())
		}
	})

	serverCancel()
	if err := testutil.WaitForShutdown(serverErr, 10*time.Second); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
	starter.Done = nil
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
