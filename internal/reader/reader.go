// Package reader assembles the shared reading stack from configuration:
// one transport client, one mirror registry and manager, and the session
// store built on top of them.
package reader

import (
	"fmt"
	"log/slog"

	"github.com/jackzampolin/leaf/internal/config"
	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/session"
	"github.com/jackzampolin/leaf/internal/transport"
)

// Stack is the set of long-lived collaborators behind every session.
type Stack struct {
	Client   *transport.Client
	Registry *mirrors.Registry
	Manager  *mirrors.Manager
	Sessions *session.Store
}

// New builds a Stack from cfg. Every mirror event goes to sink once; the
// manager gets no sink of its own because fetchers pass theirs on each call.
func New(cfg *config.Config, logger *slog.Logger, sink mirrors.EventSink) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := transport.NewClient(transport.Config{MaxRedirects: cfg.Fetch.MaxRedirects})

	registry := mirrors.NewRegistry(cfg.EnabledMirrors(), cfg.Fetch.RequestsPerMinute)
	registry.SetLogger(logger)

	fetchOpts := cfg.FetchOptions()
	fetchOpts.Sink = sink
	fetchOpts.Logger = logger

	manager := mirrors.NewManager(registry, client, mirrors.ManagerConfig{
		HeadTimeout: fetchOpts.HeadTimeout,
		GetTimeout:  fetchOpts.GetTimeout,
	})

	sessions, err := session.NewStore(session.Config{
		Manager:      manager,
		Client:       client,
		Fetch:        fetchOpts,
		Boundary:     cfg.BoundaryConfig(),
		ChunkSize:    cfg.Navigator.ChunkSize,
		BytesPerWord: cfg.Navigator.BytesPerWord,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	return &Stack{
		Client:   client,
		Registry: registry,
		Manager:  manager,
		Sessions: sessions,
	}, nil
}
