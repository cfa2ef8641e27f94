// Package navigator turns percent and byte positions into word-aligned chunks
// of a book, fetching only the bytes a chunk needs.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackzampolin/leaf/internal/boundary"
)

const (
	// DefaultBytesPerWord approximates English prose including the separator.
	DefaultBytesPerWord = 6
	// DefaultHeadroom multiplies the first window so it usually suffices.
	DefaultHeadroom = 2
	// MaxChunkSize bounds the words per chunk, about forty printed pages.
	MaxChunkSize = 10000
)

var (
	// ErrInvalidPercent is returned by GoToPercent for NaN.
	ErrInvalidPercent = errors.New("invalid percent")
	// ErrInvalidChunkSize is returned for chunk sizes outside 1..MaxChunkSize.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)

// RangeFetcher is the part of a fetcher the navigator uses.
type RangeFetcher interface {
	FetchRange(ctx context.Context, start, end int64) ([]byte, error)
}

// State is a step of one navigation call.
type State int

const (
	Idle State = iota
	FetchingWindow
	WordAligning
	NeedsMoreBytes
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingWindow:
		return "fetching_window"
	case WordAligning:
		return "word_aligning"
	case NeedsMoreBytes:
		return "needs_more_bytes"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Position is one chunk of words and where it sits in the book.
type Position struct {
	BookID        string   `json:"book_id"`
	ByteStart     int64    `json:"byte_start"`
	ByteEnd       int64    `json:"byte_end"`
	NextByteStart *int64   `json:"next_byte_start"`
	DocStart      int64    `json:"doc_start"`
	DocEnd        int64    `json:"doc_end"`
	ChunkSize     int      `json:"chunk_size"`
	Percent       float64  `json:"percent"`
	Words         []string `json:"words"`
	ActualCount   int      `json:"actual_count"`
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithBookID tags returned positions with a book id.
func WithBookID(id string) Option {
	return func(n *Navigator) { n.bookID = id }
}

// WithBytesPerWord overrides the window sizing estimate.
func WithBytesPerWord(bpw int) Option {
	return func(n *Navigator) {
		if bpw > 0 {
			n.bytesPerWord = bpw
		}
	}
}

// WithTrace registers a hook called on every state transition.
func WithTrace(fn func(State)) Option {
	return func(n *Navigator) { n.trace = fn }
}

// Navigator answers goto-percent and goto-byte requests over one book. It is
// not safe for concurrent use.
type Navigator struct {
	fetcher      RangeFetcher
	bounds       boundary.Boundaries
	chunkSize    int
	bytesPerWord int
	headroom     int
	bookID       string
	trace        func(State)
}

// New creates a Navigator over content delimited by b.
func New(fetcher RangeFetcher, b boundary.Boundaries, chunkSize int, opts ...Option) (*Navigator, error) {
	if err := ValidateChunkSize(chunkSize); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	n := &Navigator{
		fetcher:      fetcher,
		bounds:       b,
		chunkSize:    chunkSize,
		bytesPerWord: DefaultBytesPerWord,
		headroom:     DefaultHeadroom,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// ValidateChunkSize rejects chunk sizes outside 1..MaxChunkSize.
func ValidateChunkSize(chunkSize int) error {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidChunkSize, chunkSize, MaxChunkSize)
	}
	return nil
}

// Boundaries returns the content boundaries the navigator works within.
func (n *Navigator) Boundaries() boundary.Boundaries {
	return n.bounds
}

// ChunkSize returns the number of words per chunk.
func (n *Navigator) ChunkSize() int {
	return n.chunkSize
}

// GoToPercent returns the chunk starting at the first full word at or after
// percent of the content.
func (n *Navigator) GoToPercent(ctx context.Context, percent float64) (Position, error) {
	if math.IsNaN(percent) {
		return Position{}, fmt.Errorf("%w: NaN", ErrInvalidPercent)
	}
	percent = math.Max(0, math.Min(100, percent))
	span := n.bounds.DocEnd - n.bounds.DocStart
	target := n.bounds.DocStart + int64(math.Floor(float64(span)*percent/100))
	return n.goTo(ctx, target)
}

// GoToByte returns the chunk starting at the first full word at or after b.
// Offsets outside the content are clamped to it.
func (n *Navigator) GoToByte(ctx context.Context, b int64) (Position, error) {
	b = max(n.bounds.DocStart, min(b, n.bounds.DocEnd))
	return n.goTo(ctx, b)
}

type word struct {
	start, end int64 // end exclusive
	text       string
}

func (n *Navigator) goTo(ctx context.Context, anchor int64) (Position, error) {
	docStart, docEnd := n.bounds.DocStart, n.bounds.DocEnd

	// One byte before the anchor tells whether the anchor is mid-word.
	base := anchor
	if anchor > docStart {
		base = anchor - 1
	}
	window := n.windowSize(docEnd - base + 1)
	end := min(base+window, docEnd)

	n.setState(FetchingWindow)
	buf, err := n.fetcher.FetchRange(ctx, base, end)
	if err != nil {
		return Position{}, fmt.Errorf("failed to fetch window %d-%d: %w", base, end, err)
	}

	var words []word
	for {
		n.setState(WordAligning)
		bufEnd := base + int64(len(buf)) - 1
		atDocEnd := bufEnd >= docEnd
		words = alignWords(buf, base, anchor, n.chunkSize, atDocEnd)
		if len(words) >= n.chunkSize || atDocEnd {
			break
		}

		n.setState(NeedsMoreBytes)
		remaining := docEnd - bufEnd
		next := bufEnd + min(window, remaining)
		n.setState(FetchingWindow)
		more, err := n.fetcher.FetchRange(ctx, bufEnd+1, next)
		if err != nil {
			return Position{}, fmt.Errorf("failed to extend window %d-%d: %w", bufEnd+1, next, err)
		}
		if len(more) == 0 {
			return Position{}, fmt.Errorf("empty window extension at %d", bufEnd+1)
		}
		buf = append(buf, more...)
	}
	n.setState(Done)

	return n.position(anchor, words), nil
}

// windowSize returns chunkSize*bytesPerWord*headroom bytes, never more than
// limit.
func (n *Navigator) windowSize(limit int64) int64 {
	perWord := int64(n.bytesPerWord) * int64(n.headroom)
	if perWord < 1 {
		perWord = 1
	}
	if int64(n.chunkSize) > limit/perWord {
		return limit
	}
	return int64(n.chunkSize) * perWord
}

func (n *Navigator) position(anchor int64, words []word) Position {
	pos := Position{
		BookID:      n.bookID,
		ByteStart:   anchor,
		ByteEnd:     anchor,
		DocStart:    n.bounds.DocStart,
		DocEnd:      n.bounds.DocEnd,
		ChunkSize:   n.chunkSize,
		Words:       make([]string, len(words)),
		ActualCount: len(words),
	}
	for i, w := range words {
		pos.Words[i] = w.text
	}
	if len(words) > 0 {
		pos.ByteStart = words[0].start
		pos.ByteEnd = words[len(words)-1].end - 1
		if pos.ActualCount == n.chunkSize && pos.ByteEnd < n.bounds.DocEnd {
			next := pos.ByteEnd + 1
			pos.NextByteStart = &next
		}
	}
	if span := n.bounds.DocEnd - n.bounds.DocStart; span > 0 {
		pct := float64(pos.ByteStart-n.bounds.DocStart) / float64(span) * 100
		pos.Percent = math.Max(0, math.Min(100, pct))
	}
	return pos
}

// alignWords returns up to limit complete words of buf (which starts at file
// offset base) beginning at or after anchor. A word cut by the anchor is
// skipped; a word cut by the end of buf is dropped unless buf ends the
// content.
func alignWords(buf []byte, base, anchor int64, limit int, atDocEnd bool) []word {
	i := int(anchor - base)
	if i > 0 && !isSpace(buf[i-1]) {
		for i < len(buf) && !isSpace(buf[i]) {
			i++
		}
	}

	var words []word
	for i < len(buf) && len(words) < limit {
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
		if i == len(buf) {
			break
		}
		j := i
		for j < len(buf) && !isSpace(buf[j]) {
			j++
		}
		if j == len(buf) && !atDocEnd {
			break
		}
		words = append(words, word{start: base + int64(i), end: base + int64(j), text: string(buf[i:j])})
		i = j
	}
	return words
}

func (n *Navigator) setState(s State) {
	if n.trace != nil {
		n.trace(s)
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
