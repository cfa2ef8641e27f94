// Package boundary locates where the actual text of a book starts and ends,
// skipping the license boilerplate around it, with a few small range reads.
package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultStartWindow = 16 << 10
	DefaultEndWindow   = 32 << 10
	DefaultWidenFactor = 2
)

// Default markers. A start marker runs to its closing asterisks or the end of
// its line; content begins after it.
var (
	DefaultStartMarkers = []string{
		`(?im)\*{3}\s*START OF (?:THE|THIS) PROJECT GUTENBERG[^*\r\n]*(?:\*{3}|\r?$)`,
	}
	DefaultEndMarkers = []string{
		`(?i)\*{3}\s*END OF (?:THE|THIS) PROJECT GUTENBERG`,
	}
)

// Source is what the cleaner needs from a fetcher.
type Source interface {
	FileSize(ctx context.Context) (int64, error)
	FetchRange(ctx context.Context, start, end int64) ([]byte, error)
}

// Boundaries delimit the content of a book. Both offsets are inclusive.
type Boundaries struct {
	DocStart   int64 `json:"doc_start"`
	DocEnd     int64 `json:"doc_end"`
	TotalBytes int64 `json:"total_bytes"`
	StartFound bool  `json:"start_found"`
	EndFound   bool  `json:"end_found"`
}

// Validate checks 0 <= DocStart <= DocEnd <= TotalBytes.
func (b Boundaries) Validate() error {
	if b.DocStart < 0 || b.DocStart > b.DocEnd || b.DocEnd > b.TotalBytes {
		return fmt.Errorf("invalid boundaries: start=%d end=%d total=%d", b.DocStart, b.DocEnd, b.TotalBytes)
	}
	return nil
}

// Whole returns boundaries covering the entire file, edge bytes included.
func Whole(total int64) Boundaries {
	return Boundaries{DocStart: 0, DocEnd: total - 1, TotalBytes: total}
}

// Config configures a Cleaner. Zero values take the defaults.
type Config struct {
	StartMarkers []string
	EndMarkers   []string
	StartWindow  int64
	EndWindow    int64
	WidenFactor  int
	Logger       *slog.Logger
}

// Cleaner finds content boundaries.
type Cleaner struct {
	startMarkers []*regexp.Regexp
	endMarkers   []*regexp.Regexp
	startWindow  int64
	endWindow    int64
	widenFactor  int
	logger       *slog.Logger
}

// New compiles the configured markers.
func New(cfg Config) (*Cleaner, error) {
	if len(cfg.StartMarkers) == 0 {
		cfg.StartMarkers = DefaultStartMarkers
	}
	if len(cfg.EndMarkers) == 0 {
		cfg.EndMarkers = DefaultEndMarkers
	}
	if cfg.StartWindow <= 0 {
		cfg.StartWindow = DefaultStartWindow
	}
	if cfg.EndWindow <= 0 {
		cfg.EndWindow = DefaultEndWindow
	}
	if cfg.WidenFactor <= 0 {
		cfg.WidenFactor = DefaultWidenFactor
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	start, err := compileAll(cfg.StartMarkers)
	if err != nil {
		return nil, fmt.Errorf("invalid start marker: %w", err)
	}
	end, err := compileAll(cfg.EndMarkers)
	if err != nil {
		return nil, fmt.Errorf("invalid end marker: %w", err)
	}

	return &Cleaner{
		startMarkers: start,
		endMarkers:   end,
		startWindow:  cfg.StartWindow,
		endWindow:    cfg.EndWindow,
		widenFactor:  cfg.WidenFactor,
		logger:       cfg.Logger,
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// FindCleanBoundaries probes the head and tail of the file for the content
// markers. A side whose marker is missing falls back to the outermost
// non-whitespace byte of its probe window; a side whose probe fails falls
// back to the file edge. Only size resolution and cancellation errors surface.
func (c *Cleaner) FindCleanBoundaries(ctx context.Context, src Source) (Boundaries, error) {
	total, err := src.FileSize(ctx)
	if err != nil {
		return Boundaries{}, err
	}
	if total <= 0 {
		return Boundaries{}, fmt.Errorf("cannot find boundaries of empty file")
	}

	b := Whole(total)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		off, found, err := c.findStart(gctx, src, total)
		if err != nil {
			return c.degrade(ctx, "start", err)
		}
		if !found {
			c.logger.Debug("no marker found, using first text byte", "side", "start", "offset", off)
		}
		b.DocStart, b.StartFound = off, found
		return nil
	})
	g.Go(func() error {
		off, found, err := c.findEnd(gctx, src, total)
		if err != nil {
			return c.degrade(ctx, "end", err)
		}
		if !found {
			c.logger.Debug("no marker found, using last text byte", "side", "end", "offset", off)
		}
		b.DocEnd, b.EndFound = off, found
		return nil
	})
	if err := g.Wait(); err != nil {
		return Boundaries{}, err
	}

	if err := b.Validate(); err != nil {
		c.logger.Warn("discarding inconsistent boundaries", "error", err)
		return Whole(total), nil
	}
	c.logger.Debug("found boundaries",
		"doc_start", b.DocStart, "doc_end", b.DocEnd, "total", total,
		"start_found", b.StartFound, "end_found", b.EndFound)
	return b, nil
}

// degrade turns probe failures into fallbacks unless the caller is gone.
func (c *Cleaner) degrade(ctx context.Context, side string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger.Warn("boundary probe failed, using file edge", "side", side, "error", err)
	return nil
}

// findStart returns the offset of the first non-whitespace byte after the
// earliest start marker. Without a marker it returns the first non-whitespace
// byte of the widest window read, and found is false.
func (c *Cleaner) findStart(ctx context.Context, src Source, total int64) (int64, bool, error) {
	var (
		window = min(c.startWindow, total)
		data   []byte
		err    error
	)
	for pass := 0; pass < 2; pass++ {
		data, err = src.FetchRange(ctx, 0, window-1)
		if err != nil {
			return 0, false, err
		}
		if off, ok := scanStart(c.startMarkers, data, window == total); ok {
			return off, true, nil
		}
		next := min(window*int64(c.widenFactor), total)
		if next <= window {
			break
		}
		window = next
	}
	return int64(firstText(data)), false, nil
}

// findEnd returns the offset of the last non-whitespace byte before the
// earliest end marker in the tail window. Without a marker it returns the
// last non-whitespace byte of the file, and found is false.
func (c *Cleaner) findEnd(ctx context.Context, src Source, total int64) (int64, bool, error) {
	var (
		window = min(c.endWindow, total)
		base   int64
		data   []byte
		err    error
	)
	for pass := 0; pass < 2; pass++ {
		base = total - window
		data, err = src.FetchRange(ctx, base, total-1)
		if err != nil {
			return 0, false, err
		}
		if off, ok := scanEnd(c.endMarkers, data); ok {
			return base + off, true, nil
		}
		next := min(window*int64(c.widenFactor), total)
		if next <= window {
			break
		}
		window = next
	}
	return base + int64(lastText(data)), false, nil
}

// scanStart looks for a start marker in data, which begins at offset 0 of the
// file. complete reports whether data is the whole file.
func scanStart(markers []*regexp.Regexp, data []byte, complete bool) (int64, bool) {
	loc := earliest(markers, data)
	if loc == nil {
		return 0, false
	}
	i := loc[1]
	if i == len(data) && !complete {
		// marker may continue past the window
		return 0, false
	}
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i == len(data) {
		return 0, false
	}
	return int64(i), true
}

// scanEnd looks for an end marker in data. Content that ends before the
// window counts as not found so the caller can widen.
func scanEnd(markers []*regexp.Regexp, data []byte) (int64, bool) {
	loc := earliest(markers, data)
	if loc == nil {
		return 0, false
	}
	j := loc[0] - 1
	for j >= 0 && isSpace(data[j]) {
		j--
	}
	if j < 0 {
		return 0, false
	}
	return int64(j), true
}

func earliest(markers []*regexp.Regexp, data []byte) []int {
	var best []int
	for _, re := range markers {
		loc := re.FindIndex(data)
		if loc != nil && (best == nil || loc[0] < best[0]) {
			best = loc
		}
	}
	return best
}

// firstText is the index of the first non-whitespace byte, or 0 if there is
// none.
func firstText(data []byte) int {
	for i, b := range data {
		if !isSpace(b) {
			return i
		}
	}
	return 0
}

// lastText is the index of the last non-whitespace byte, or the last index
// if there is none.
func lastText(data []byte) int {
	for j := len(data) - 1; j >= 0; j-- {
		if !isSpace(data[j]) {
			return j
		}
	}
	return len(data) - 1
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
