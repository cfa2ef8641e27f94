package config

import (
	"time"

	"github.com/jackzampolin/leaf/internal/boundary"
	"github.com/jackzampolin/leaf/internal/fetch"
	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/session"
)

// Config holds leaf configuration.
// Stored at: ~/.leaf/config.yaml
type Config struct {
	Origin    OriginCfg    `mapstructure:"origin" yaml:"origin" json:"origin"`
	Mirrors   []MirrorCfg  `mapstructure:"mirrors" yaml:"mirrors" json:"mirrors"`
	Fetch     FetchCfg     `mapstructure:"fetch" yaml:"fetch" json:"fetch"`
	Boundary  BoundaryCfg  `mapstructure:"boundary" yaml:"boundary" json:"boundary"`
	Navigator NavigatorCfg `mapstructure:"navigator" yaml:"navigator" json:"navigator"`
	Server    ServerCfg    `mapstructure:"server" yaml:"server" json:"server"`
}

// OriginCfg configures the canonical origin used when every mirror fails.
type OriginCfg struct {
	URLTemplate string `mapstructure:"url_template" yaml:"url_template" json:"url_template"` // {id} is replaced by the book id
}

// MirrorCfg configures one content mirror.
type MirrorCfg struct {
	Provider string `mapstructure:"provider" yaml:"provider" json:"provider"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url" json:"base_url"` // supports ${ENV_VAR} syntax
	Location string `mapstructure:"location" yaml:"location" json:"location"`
	Layout   string `mapstructure:"layout" yaml:"layout" json:"layout"` // "tree" or "cache"
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// FetchCfg configures network behavior.
type FetchCfg struct {
	HeadTimeoutSeconds int `mapstructure:"head_timeout_seconds" yaml:"head_timeout_seconds" json:"head_timeout_seconds"`
	GetTimeoutSeconds  int `mapstructure:"get_timeout_seconds" yaml:"get_timeout_seconds" json:"get_timeout_seconds"`
	MaxRetries         int `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	RetryBackoffMs     int `mapstructure:"retry_backoff_ms" yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
	MaxRedirects       int `mapstructure:"max_redirects" yaml:"max_redirects" json:"max_redirects"`
	RequestsPerMinute  int `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"` // per mirror, 0 = unlimited
}

// BoundaryCfg configures content marker detection.
type BoundaryCfg struct {
	StartMarkers []string `mapstructure:"start_markers" yaml:"start_markers" json:"start_markers"` // regular expressions
	EndMarkers   []string `mapstructure:"end_markers" yaml:"end_markers" json:"end_markers"`
	StartWindow  int64    `mapstructure:"start_window" yaml:"start_window" json:"start_window"` // bytes
	EndWindow    int64    `mapstructure:"end_window" yaml:"end_window" json:"end_window"`
	WidenFactor  int      `mapstructure:"widen_factor" yaml:"widen_factor" json:"widen_factor"`
}

// NavigatorCfg configures chunking.
type NavigatorCfg struct {
	ChunkSize    int `mapstructure:"chunk_size" yaml:"chunk_size" json:"chunk_size"` // words per chunk
	BytesPerWord int `mapstructure:"bytes_per_word" yaml:"bytes_per_word" json:"bytes_per_word"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host               string `mapstructure:"host" yaml:"host" json:"host"`
	Port               string `mapstructure:"port" yaml:"port" json:"port"`
	SessionIdleMinutes int    `mapstructure:"session_idle_minutes" yaml:"session_idle_minutes" json:"session_idle_minutes"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Origin: OriginCfg{
			URLTemplate: fetch.DefaultOriginTemplate,
		},
		// Mirrors share the origin's cache layout so every source serves the
		// same pg<id>.txt file.
		Mirrors: []MirrorCfg{
			{
				Provider: "aleph",
				BaseURL:  "https://aleph.gutenberg.org",
				Location: "Netherlands",
				Layout:   string(mirrors.LayoutCache),
				Enabled:  true,
			},
			{
				Provider: "pglaf",
				BaseURL:  "https://gutenberg.pglaf.org",
				Location: "United States",
				Layout:   string(mirrors.LayoutCache),
				Enabled:  true,
			},
			{
				Provider: "mirrorservice",
				BaseURL:  "https://www.mirrorservice.org/sites/ftp.ibiblio.org/pub/docs/books/gutenberg",
				Location: "United Kingdom",
				Layout:   string(mirrors.LayoutCache),
				Enabled:  true,
			},
			{
				Provider: "gutenberg",
				BaseURL:  "https://www.gutenberg.org",
				Location: "United States",
				Layout:   string(mirrors.LayoutCache),
				Enabled:  true,
			},
		},
		Fetch: FetchCfg{
			HeadTimeoutSeconds: 10,
			GetTimeoutSeconds:  30,
			MaxRetries:         fetch.DefaultRetries,
			RetryBackoffMs:     500,
			MaxRedirects:       5,
			RequestsPerMinute:  0,
		},
		Boundary: BoundaryCfg{
			StartMarkers: boundary.DefaultStartMarkers,
			EndMarkers:   boundary.DefaultEndMarkers,
			StartWindow:  boundary.DefaultStartWindow,
			EndWindow:    boundary.DefaultEndWindow,
			WidenFactor:  boundary.DefaultWidenFactor,
		},
		Navigator: NavigatorCfg{
			ChunkSize:    session.DefaultChunkSize,
			BytesPerWord: navigator.DefaultBytesPerWord,
		},
		Server: ServerCfg{
			Host:               "127.0.0.1",
			Port:               "8080",
			SessionIdleMinutes: 30,
		},
	}
}

// EnabledMirrors converts the enabled mirror entries to registry mirrors,
// resolving ${ENV_VAR} references in base URLs.
func (c *Config) EnabledMirrors() []mirrors.Mirror {
	out := make([]mirrors.Mirror, 0, len(c.Mirrors))
	for _, m := range c.Mirrors {
		if !m.Enabled {
			continue
		}
		out = append(out, mirrors.Mirror{
			Provider: m.Provider,
			BaseURL:  ResolveEnvVars(m.BaseURL),
			Location: m.Location,
			Layout:   mirrors.Layout(m.Layout),
		})
	}
	return out
}

// FetchOptions converts the fetch and origin sections to fetcher options.
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		OriginTemplate: ResolveEnvVars(c.Origin.URLTemplate),
		Retries:        c.Fetch.MaxRetries,
		Backoff:        time.Duration(c.Fetch.RetryBackoffMs) * time.Millisecond,
		HeadTimeout:    time.Duration(c.Fetch.HeadTimeoutSeconds) * time.Second,
		GetTimeout:     time.Duration(c.Fetch.GetTimeoutSeconds) * time.Second,
	}
}

// BoundaryConfig converts the boundary section to cleaner configuration.
func (c *Config) BoundaryConfig() boundary.Config {
	return boundary.Config{
		StartMarkers: c.Boundary.StartMarkers,
		EndMarkers:   c.Boundary.EndMarkers,
		StartWindow:  c.Boundary.StartWindow,
		EndWindow:    c.Boundary.EndWindow,
		WidenFactor:  c.Boundary.WidenFactor,
	}
}

// SessionIdle returns how long an unused session is kept.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Server.SessionIdleMinutes) * time.Minute
}
