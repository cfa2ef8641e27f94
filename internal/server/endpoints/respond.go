package endpoints

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/session"
	"github.com/jackzampolin/leaf/internal/transport"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeErr writes err with the status it maps to.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps domain errors to HTTP status codes. Content problems are
// checked before upstream ones since range errors wrap both.
func statusFor(err error) int {
	var (
		unavailable *transport.ContentUnavailableError
		exhausted   *mirrors.ExhaustedError
		netErr      *transport.NetworkError
		httpErr     *transport.HTTPError
		redirects   *transport.TooManyRedirectsError
	)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, mirrors.ErrMirrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrEndOfBook):
		return http.StatusNotFound
	case errors.Is(err, mirrors.ErrInvalidBookID), errors.Is(err, navigator.ErrInvalidPercent),
		errors.Is(err, navigator.ErrInvalidChunkSize):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &exhausted), errors.As(err, &netErr), errors.As(err, &httpErr), errors.As(err, &redirects):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
