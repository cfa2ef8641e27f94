package fetch

import (
	"fmt"

	"github.com/jackzampolin/leaf/internal/transport"
)

// RangeError is a range fetch that failed after every mirror, the origin and
// all retries. It carries enough context to diagnose without retrying.
type RangeError struct {
	BookID   string
	Range    transport.ByteRange
	Mirror   string // last source tried: a mirror provider or "direct"
	Attempts int
	Err      error
}

func (e *RangeError) Error() string {
	if e.Mirror == "" {
		return fmt.Sprintf("fetch book %s bytes %s: %v", e.BookID, e.Range, e.Err)
	}
	return fmt.Sprintf("fetch book %s bytes %s (last source %s, %d attempts): %v",
		e.BookID, e.Range, e.Mirror, e.Attempts, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }
