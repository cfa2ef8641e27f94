package endpoints

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leaf/internal/api"
	"github.com/jackzampolin/leaf/internal/navigator"
)

// PercentEndpoint handles GET /api/sessions/{id}/percent/{percent}.
type PercentEndpoint struct{ sessionsGroup }

func (e *PercentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/percent/{percent}", e.handler
}

func (e *PercentEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Jump to a percentage of the book
//	@Description	Returns the chunk starting at the first full word at or after the given percentage of the content. Values outside 0-100 are clamped.
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			percent	path		number	true	"Percent of the content"
//	@Success		200		{object}	navigator.Position
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/percent/{percent} [get]
func (e *PercentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	percent, err := strconv.ParseFloat(strings.TrimSuffix(r.PathValue("percent"), "%"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "percent must be a number")
		return
	}
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	pos, err := sess.GoToPercent(r.Context(), percent)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (e *PercentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "percent <id> <percent>",
		Short: "Read the chunk at a percentage of the book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getPosition(cmd, getServerURL(), "/api/sessions/"+args[0]+"/percent/"+args[1])
		},
	}
}

// ByteEndpoint handles GET /api/sessions/{id}/byte/{byte}.
type ByteEndpoint struct{ sessionsGroup }

func (e *ByteEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/byte/{byte}", e.handler
}

func (e *ByteEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Jump to a byte offset
//	@Description	Returns the chunk starting at the first full word at or after the offset. Offsets outside the content are clamped.
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			byte	path		integer	true	"Byte offset in the file"
//	@Success		200		{object}	navigator.Position
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/byte/{byte} [get]
func (e *ByteEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.ParseInt(r.PathValue("byte"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "byte must be an integer")
		return
	}
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	pos, err := sess.GoToByte(r.Context(), offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (e *ByteEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "byte <id> <offset>",
		Short: "Read the chunk at a byte offset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getPosition(cmd, getServerURL(), "/api/sessions/"+args[0]+"/byte/"+args[1])
		},
	}
}

// NextEndpoint handles GET /api/sessions/{id}/next.
type NextEndpoint struct{ sessionsGroup }

func (e *NextEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/next", e.handler
}

func (e *NextEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Read the next chunk
//	@Description	Continues from the last returned chunk, or starts at the beginning of the content. 404 once the book is finished.
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	navigator.Position
//	@Failure		404	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/next [get]
func (e *NextEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	pos, err := sess.Next(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (e *NextEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "next <id>",
		Short: "Read the next chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getPosition(cmd, getServerURL(), "/api/sessions/"+args[0]+"/next")
		},
	}
}

func getPosition(cmd *cobra.Command, serverURL, path string) error {
	client := api.NewClient(serverURL)
	var pos navigator.Position
	if err := client.Get(cmd.Context(), path, &pos); err != nil {
		return err
	}
	return api.Output(pos)
}
