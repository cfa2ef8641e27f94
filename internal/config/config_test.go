package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/navigator"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	if len(cfg.EnabledMirrors()) == 0 {
		t.Error("expected default mirrors")
	}
	for _, m := range cfg.EnabledMirrors() {
		if m.Layout != mirrors.LayoutCache {
			t.Errorf("mirror %s layout = %q, want the origin's cache layout", m.Provider, m.Layout)
		}
	}
	if cfg.Fetch.MaxRetries != 3 || cfg.Fetch.MaxRedirects != 5 {
		t.Errorf("fetch defaults = %+v", cfg.Fetch)
	}
	if cfg.Navigator.ChunkSize != 250 {
		t.Errorf("chunk size = %d, want 250", cfg.Navigator.ChunkSize)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_MIRROR_HOST", "mirror.local")

		result := ResolveEnvVars("https://${TEST_MIRROR_HOST}/gutenberg")
		if result != "https://mirror.local/gutenberg" {
			t.Errorf("expected https://mirror.local/gutenberg, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_EnabledMirrors(t *testing.T) {
	t.Setenv("TEST_LOCAL_MIRROR", "http://127.0.0.1:9000")

	cfg := &Config{
		Mirrors: []MirrorCfg{
			{Provider: "local", BaseURL: "${TEST_LOCAL_MIRROR}", Layout: "cache", Enabled: true},
			{Provider: "off", BaseURL: "https://off.example", Enabled: false},
			{Provider: "tree", BaseURL: "https://tree.example", Enabled: true},
		},
	}

	got := cfg.EnabledMirrors()
	if len(got) != 2 {
		t.Fatalf("expected 2 mirrors, got %d", len(got))
	}
	if got[0].BaseURL != "http://127.0.0.1:9000" || got[0].Layout != mirrors.LayoutCache {
		t.Errorf("first mirror = %+v", got[0])
	}
	if got[1].Provider != "tree" {
		t.Errorf("second mirror = %+v", got[1])
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.RetryBackoffMs = 250
	cfg.Fetch.GetTimeoutSeconds = 7

	opts := cfg.FetchOptions()
	if opts.Backoff != 250*time.Millisecond {
		t.Errorf("Backoff = %v", opts.Backoff)
	}
	if opts.GetTimeout != 7*time.Second {
		t.Errorf("GetTimeout = %v", opts.GetTimeout)
	}
	if opts.Retries != 3 {
		t.Errorf("Retries = %d", opts.Retries)
	}

	bc := cfg.BoundaryConfig()
	if bc.StartWindow != 16<<10 || bc.EndWindow != 32<<10 || bc.WidenFactor != 2 {
		t.Errorf("boundary config = %+v", bc)
	}
	if cfg.SessionIdle() != 30*time.Minute {
		t.Errorf("SessionIdle() = %v", cfg.SessionIdle())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"origin without id placeholder", func(c *Config) { c.Origin.URLTemplate = "https://example.com/book.txt" }, "url_template"},
		{"zero retries", func(c *Config) { c.Fetch.MaxRetries = 0 }, "max_retries"},
		{"zero chunk size", func(c *Config) { c.Navigator.ChunkSize = 0 }, "chunk_size"},
		{"chunk size above max", func(c *Config) { c.Navigator.ChunkSize = navigator.MaxChunkSize + 1 }, "chunk_size"},
		{"unknown layout", func(c *Config) { c.Mirrors[0].Layout = "flat" }, "layout"},
		{"mirror without url", func(c *Config) { c.Mirrors[0].BaseURL = "" }, "base_url"},
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
fetch:
  max_retries: 5
navigator:
  chunk_size: 100
mirrors:
  - provider: local
    base_url: http://127.0.0.1:9000
    layout: tree
    enabled: true
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Fetch.MaxRetries != 5 {
			t.Errorf("expected 5 retries, got %d", cfg.Fetch.MaxRetries)
		}
		if cfg.Navigator.ChunkSize != 100 {
			t.Errorf("expected chunk size 100, got %d", cfg.Navigator.ChunkSize)
		}
		// Keys missing from a partially specified section keep their defaults.
		if cfg.Fetch.HeadTimeoutSeconds != 10 || cfg.Navigator.BytesPerWord != 6 {
			t.Errorf("defaults lost: fetch=%+v navigator=%+v", cfg.Fetch, cfg.Navigator)
		}
		if len(cfg.Mirrors) != 1 || cfg.Mirrors[0].Provider != "local" {
			t.Errorf("mirrors = %+v", cfg.Mirrors)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("ConfigFile() = %q", mgr.ConfigFile())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("LEAF_FETCH_MAX_RETRIES", "7")
		configFile := writeConfig(t, "fetch:\n  max_retries: 5\n")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Fetch.MaxRetries; got != 7 {
			t.Errorf("expected 7 retries, got %d", got)
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		configFile := writeConfig(t, "navigator:\n  chunk_size: -1\n")
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for negative chunk size")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "fetch:\n  max_retries: 3\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "fetch:\n  max_retries: 3\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Fetch.MaxRetries
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "navigator:\n  chunk_size: 100\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int64

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int64(cfg.Navigator.ChunkSize))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("navigator:\n  chunk_size: 42\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 && lastValue.Load() == 42 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Navigator.ChunkSize; got != 42 {
		t.Errorf("config not updated: expected 42, got %d", got)
	}
	if v := lastValue.Load(); v != 42 {
		t.Errorf("callback received wrong value: expected 42, got %d", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Leaf configuration") {
		t.Error("expected header comment")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	if got := len(mgr.Get().Mirrors); got != len(DefaultConfig().Mirrors) {
		t.Errorf("expected %d mirrors, got %d", len(DefaultConfig().Mirrors), got)
	}
}
