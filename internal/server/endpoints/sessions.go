package endpoints

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/leaf/internal/api"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/session"
	"github.com/jackzampolin/leaf/internal/svcctx"
)

type sessionsGroup struct{}

func (sessionsGroup) Group() (string, string) { return "sessions", "Open books and read them chunk by chunk" }

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	BookID    string `json:"book_id"`
	ChunkSize int    `json:"chunk_size,omitempty" minimum:"0" maximum:"10000"`
}

// CreateSessionEndpoint handles POST /api/sessions.
type CreateSessionEndpoint struct{ sessionsGroup }

func (e *CreateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *CreateSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Open a reading session
//	@Description	Resolve the book size and content boundaries through the mirrors and return the new session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSessionRequest	true	"Book to open"
//	@Success		201		{object}	session.Info
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/sessions [post]
func (e *CreateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}
	if req.ChunkSize < 0 || req.ChunkSize > navigator.MaxChunkSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("chunk_size must be between 1 and %d", navigator.MaxChunkSize))
		return
	}

	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}

	sess, err := store.Open(r.Context(), req.BookID, req.ChunkSize)
	if err != nil {
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Warn("failed to open session", "book_id", req.BookID, "error", err)
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (e *CreateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var chunkSize int
	cmd := &cobra.Command{
		Use:   "open <book-id>",
		Short: "Open a reading session for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp session.Info
			req := CreateSessionRequest{BookID: args[0], ChunkSize: chunkSize}
			if err := client.Post(cmd.Context(), "/api/sessions", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Words per chunk (default from server config)")
	return cmd
}

// ListSessionsResponse is the response for GET /api/sessions.
type ListSessionsResponse struct {
	Sessions []session.Info `json:"sessions"`
}

// ListSessionsEndpoint handles GET /api/sessions.
type ListSessionsEndpoint struct{ sessionsGroup }

func (e *ListSessionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions", e.handler
}

func (e *ListSessionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List reading sessions
//	@Tags		sessions
//	@Produce	json
//	@Success	200	{object}	ListSessionsResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/api/sessions [get]
func (e *ListSessionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}
	writeJSON(w, http.StatusOK, ListSessionsResponse{Sessions: store.List()})
}

func (e *ListSessionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListSessionsResponse
			if err := client.Get(cmd.Context(), "/api/sessions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{id}.
type GetSessionEndpoint struct{ sessionsGroup }

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get session by ID
//	@Description	Boundaries, fetch statistics and the last position of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	session.Info
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [get]
func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a session by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp session.Info
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteSessionEndpoint handles DELETE /api/sessions/{id}.
type DeleteSessionEndpoint struct{ sessionsGroup }

func (e *DeleteSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}", e.handler
}

func (e *DeleteSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Close a session
//	@Tags		sessions
//	@Param		id	path	string	true	"Session ID"
//	@Success	204	"No Content"
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/api/sessions/{id} [delete]
func (e *DeleteSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}
	if err := store.Close(r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			fmt.Println("Session closed")
			return nil
		},
	}
}

// lookupSession resolves the {id} path value, writing the error response
// itself when the session cannot be found.
func lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return nil, false
	}
	sess, err := store.Get(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return sess, true
}
