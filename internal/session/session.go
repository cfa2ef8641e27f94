// Package session owns reading sessions: one fetcher, one set of boundaries
// and one navigator per open book, all sharing the process mirror manager.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/leaf/internal/boundary"
	"github.com/jackzampolin/leaf/internal/fetch"
	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/transport"
)

// DefaultChunkSize is the number of words per chunk when none is requested.
const DefaultChunkSize = 250

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrEndOfBook is returned by Next after the last chunk.
	ErrEndOfBook = errors.New("end of book")
)

// Config holds the shared collaborators sessions are built from.
type Config struct {
	Manager      *mirrors.Manager
	Client       *transport.Client
	Fetch        fetch.Options
	Boundary     boundary.Config
	ChunkSize    int
	BytesPerWord int
	Logger       *slog.Logger
}

// Store holds the live sessions.
type Store struct {
	cfg     Config
	cleaner *boundary.Cleaner
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Fetch.Logger == nil {
		cfg.Fetch.Logger = cfg.Logger
	}
	if cfg.Boundary.Logger == nil {
		cfg.Boundary.Logger = cfg.Logger
	}
	cleaner, err := boundary.New(cfg.Boundary)
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg:      cfg,
		cleaner:  cleaner,
		logger:   cfg.Logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Open starts a session for bookID: it resolves the size, finds the content
// boundaries and prepares a navigator. chunkSize <= 0 uses the default.
func (s *Store) Open(ctx context.Context, bookID string, chunkSize int) (*Session, error) {
	if chunkSize <= 0 {
		chunkSize = s.cfg.ChunkSize
	}
	if err := navigator.ValidateChunkSize(chunkSize); err != nil {
		return nil, err
	}

	f, err := fetch.New(bookID, s.cfg.Manager, s.cfg.Client, s.cfg.Fetch)
	if err != nil {
		return nil, err
	}
	bounds, err := s.cleaner.FindCleanBoundaries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to open book %s: %w", bookID, err)
	}

	id := uuid.New().String()
	nav, err := navigator.New(f, bounds, chunkSize,
		navigator.WithBookID(bookID),
		navigator.WithBytesPerWord(s.cfg.BytesPerWord),
	)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:        id,
		BookID:    bookID,
		CreatedAt: now,
		fetcher:   f,
		nav:       nav,
	}
	sess.lastUsed.Store(now.UnixNano())

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("opened session", "session_id", id, "book_id", bookID,
		"doc_start", bounds.DocStart, "doc_end", bounds.DocEnd, "total_bytes", bounds.TotalBytes)
	return sess, nil
}

// Get returns a live session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// Close ends a session.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	s.logger.Info("closed session", "session_id", id)
	return nil
}

// List returns info on every live session, oldest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	out := make([]Info, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.Info()
	}
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Info("expired idle sessions", "count", n, "max_idle", maxIdle)
	}
	return n
}

// Session is one reader's view of one book.
type Session struct {
	ID        string
	BookID    string
	CreatedAt time.Time

	mu       sync.Mutex // serializes navigation
	fetcher  *fetch.Fetcher
	nav      *navigator.Navigator
	last     atomic.Pointer[navigator.Position]
	lastUsed atomic.Int64 // unix nanos
}

// Info is a snapshot of a session for listings.
type Info struct {
	ID            string              `json:"id"`
	BookID        string              `json:"book_id"`
	ChunkSize     int                 `json:"chunk_size"`
	Boundaries    boundary.Boundaries `json:"boundaries"`
	Stats         fetch.Stats         `json:"stats"`
	CurrentMirror *mirrors.Mirror     `json:"current_mirror,omitempty"`
	Position      *navigator.Position `json:"position,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	LastUsed      time.Time           `json:"last_used"`
}

// GoToPercent moves to percent of the content.
func (s *Session) GoToPercent(ctx context.Context, percent float64) (navigator.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.nav.GoToPercent(ctx, percent))
}

// GoToByte moves to a byte offset.
func (s *Session) GoToByte(ctx context.Context, b int64) (navigator.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.nav.GoToByte(ctx, b))
}

// Next returns the chunk after the last one returned, or the first chunk of
// the content if nothing was read yet.
func (s *Session) Next(ctx context.Context) (navigator.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.last.Load()
	if last == nil {
		return s.record(s.nav.GoToByte(ctx, s.nav.Boundaries().DocStart))
	}
	if last.NextByteStart == nil {
		return navigator.Position{}, ErrEndOfBook
	}
	return s.record(s.nav.GoToByte(ctx, *last.NextByteStart))
}

// Info returns a snapshot of the session. It does not wait for an
// in-flight navigation; Position is the last completed one.
func (s *Session) Info() Info {
	info := Info{
		ID:            s.ID,
		BookID:        s.BookID,
		ChunkSize:     s.nav.ChunkSize(),
		Boundaries:    s.nav.Boundaries(),
		Stats:         s.fetcher.Stats(),
		CurrentMirror: s.fetcher.CurrentMirror(),
		CreatedAt:     s.CreatedAt,
		LastUsed:      s.idleSince(),
	}
	if last := s.last.Load(); last != nil {
		pos := *last
		info.Position = &pos
	}
	return info
}

// record must be called with s.mu held.
func (s *Session) record(pos navigator.Position, err error) (navigator.Position, error) {
	s.lastUsed.Store(time.Now().UnixNano())
	if err != nil {
		return navigator.Position{}, err
	}
	s.last.Store(&pos)
	return pos, nil
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}
