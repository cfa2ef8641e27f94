package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetworkError is a connection failure, timeout or body read failure on a
// single request attempt.
type NetworkError struct {
	Op  string // "HEAD", "GET", "read"
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a timeout.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// HTTPError is an unexpected final status code.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// TooManyRedirectsError is returned when a redirect chain exceeds the hop bound.
type TooManyRedirectsError struct {
	URL  string // URL that answered with the redirect past the bound
	Hops int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("too many redirects (%d hops) at %s", e.Hops, e.URL)
}

// ContentUnavailableError means the origin has no plain-text rendition of a book.
type ContentUnavailableError struct {
	BookID string
	URL    string
	Reason string
}

func (e *ContentUnavailableError) Error() string {
	return fmt.Sprintf("content unavailable for book %s at %s: %s", e.BookID, e.URL, e.Reason)
}

// ShortBodyError is returned when a ranged response carries fewer bytes than requested.
type ShortBodyError struct {
	URL  string
	Want int64
	Got  int64
}

func (e *ShortBodyError) Error() string {
	return fmt.Sprintf("short body from %s: want %d bytes, got %d", e.URL, e.Want, e.Got)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var tmr *TooManyRedirectsError
	if errors.As(err, &tmr) {
		return true
	}
	var cu *ContentUnavailableError
	return errors.As(err, &cu)
}

// SizeMismatchError is returned when a response describes a file of a
// different length than the one already resolved for the book.
type SizeMismatchError struct {
	URL  string
	Want int64
	Got  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("file size mismatch at %s: want %d bytes, got %d", e.URL, e.Want, e.Got)
}
