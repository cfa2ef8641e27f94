// Package mirrors tracks the content mirrors a book can be fetched from,
// scores them by observed reliability and latency, and tries them in score
// order for HEAD and ranged GET requests.
package mirrors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Layout selects how a mirror lays out book files.
type Layout string

const (
	// LayoutTree is the classic mirror tree: 1342 -> 1/3/4/1342/1342-0.txt.
	LayoutTree Layout = "tree"
	// LayoutCache is the generated-cache layout: cache/epub/1342/pg1342.txt.
	LayoutCache Layout = "cache"
)

var bookIDPattern = regexp.MustCompile(`^[0-9]{1,10}$`)

// ErrInvalidBookID is returned for ids that cannot be mapped to mirror paths.
var ErrInvalidBookID = errors.New("invalid book id")

// ValidateBookID checks that a book id can be mapped to mirror paths.
func ValidateBookID(bookID string) error {
	if !bookIDPattern.MatchString(bookID) {
		return fmt.Errorf("%w %q: must be numeric", ErrInvalidBookID, bookID)
	}
	return nil
}

// Mirror is an alternate HTTP origin hosting the same content.
// Identity is the Provider+BaseURL pair.
type Mirror struct {
	Provider string `json:"provider" yaml:"provider"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Layout   Layout `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Key returns the identity key of the mirror.
func (m Mirror) Key() string {
	return m.Provider + "|" + strings.TrimRight(m.BaseURL, "/")
}

// ID returns a short stable identifier derived from the identity key.
func (m Mirror) ID() string {
	return fmt.Sprintf("%016x", xxh3.HashString(m.Key()))
}

// BookURL returns the URL of a book's plain-text file on this mirror.
func (m Mirror) BookURL(bookID string) string {
	base := strings.TrimRight(m.BaseURL, "/")
	if m.Layout == LayoutCache {
		return fmt.Sprintf("%s/cache/epub/%s/pg%s.txt", base, bookID, bookID)
	}
	return base + "/" + treePath(bookID)
}

func (m Mirror) String() string {
	return m.Provider + " (" + m.BaseURL + ")"
}

// treePath maps a book id onto the mirror directory tree. Every digit but the
// last becomes a directory; single-digit ids live under "0".
func treePath(bookID string) string {
	var b strings.Builder
	if len(bookID) == 1 {
		b.WriteString("0/")
	} else {
		for _, c := range bookID[:len(bookID)-1] {
			b.WriteRune(c)
			b.WriteByte('/')
		}
	}
	b.WriteString(bookID)
	b.WriteByte('/')
	b.WriteString(bookID)
	b.WriteString("-0.txt")
	return b.String()
}

// Stats are the observed performance statistics of a mirror.
type Stats struct {
	Successes           int       `json:"successes"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	AvgResponseTimeMs   float64   `json:"avg_response_time_ms"`
	LastError           string    `json:"last_error,omitempty"`
	LastUsed            time.Time `json:"last_used,omitempty"`
}

// Attempts returns the total number of recorded attempts.
func (s Stats) Attempts() int {
	return s.Successes + s.Failures
}

// SuccessRate returns successes / attempts, or 0 when never tried.
func (s Stats) SuccessRate() float64 {
	if s.Attempts() == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts())
}
