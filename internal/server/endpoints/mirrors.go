package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leaf/internal/api"
	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/svcctx"
)

type mirrorsGroup struct{}

func (mirrorsGroup) Group() (string, string) { return "mirrors", "Inspect mirror ranking and stats" }

// ListMirrorsResponse is the response for GET /api/mirrors.
type ListMirrorsResponse struct {
	Mirrors []mirrors.MirrorStatus `json:"mirrors"`
}

// ListMirrorsEndpoint handles GET /api/mirrors.
type ListMirrorsEndpoint struct{ mirrorsGroup }

func (e *ListMirrorsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/mirrors", e.handler
}

func (e *ListMirrorsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List mirrors
//	@Description	All configured mirrors in the order the next request would try them
//	@Tags			mirrors
//	@Produce		json
//	@Success		200	{object}	ListMirrorsResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/mirrors [get]
func (e *ListMirrorsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "mirror registry not initialized")
		return
	}
	writeJSON(w, http.StatusOK, ListMirrorsResponse{Mirrors: registry.Snapshot()})
}

func (e *ListMirrorsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mirrors in rank order",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListMirrorsResponse
			if err := client.Get(cmd.Context(), "/api/mirrors", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetMirrorEndpoint handles GET /api/mirrors/{id}.
type GetMirrorEndpoint struct{ mirrorsGroup }

func (e *GetMirrorEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/mirrors/{id}", e.handler
}

func (e *GetMirrorEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get mirror by ID
//	@Tags		mirrors
//	@Produce	json
//	@Param		id	path		string	true	"Mirror ID"
//	@Success	200	{object}	mirrors.MirrorStatus
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/api/mirrors/{id} [get]
func (e *GetMirrorEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "mirror registry not initialized")
		return
	}
	status, err := registry.Get(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (e *GetMirrorEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a mirror and its stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp mirrors.MirrorStatus
			if err := client.Get(cmd.Context(), "/api/mirrors/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
