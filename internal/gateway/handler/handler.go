// Package handler exposes the proxy surface over HTTP.
package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"helios/internal/actor"
	"helios/internal/gateway"
	"helios/internal/registry"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/platform/httputil"
	"helios/pkg/requestcontext"
)

// GatewayErrorHeader marks responses originated by the gateway itself, so a
// caller can always tell a gateway refusal from an upstream status.
const GatewayErrorHeader = "X-Gateway-Error"

const maxRequestBytes = 8 << 20

// Handler mounts the proxy and the family discovery endpoint.
type Handler struct {
	dispatcher *gateway.Dispatcher
	registry   *registry.Registry
	logger     *slog.Logger
}

func New(dispatcher *gateway.Dispatcher, reg *registry.Registry, logger *slog.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, registry: reg, logger: logger}
}

// Register mounts gateway endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.HandleFunc("/gateway/*", h.HandleProxy)
	r.Get("/gateway-families", h.HandleFamilies)
}

// HandleProxy handles ANY /gateway/{family}/... by dispatching to the
// matched upstream.
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		h.writeGatewayError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large or unreadable"))
		return
	}

	resp, err := h.dispatcher.Dispatch(ctx, gateway.Request{
		Credentials: credentialsFromRequest(r),
		Method:      r.Method,
		Path:        chi.URLParam(r, "*"),
		RawQuery:    r.URL.RawQuery,
		Header:      r.Header,
		Body:        body,
	})
	if err != nil {
		h.logger.InfoContext(ctx, "gateway refused request",
			"method", r.Method,
			"path", r.URL.Path,
			"code", string(dErrors.CodeOf(err)),
			"request_id", requestcontext.RequestID(ctx),
		)
		h.writeGatewayError(w, err)
		return
	}

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// HandleFamilies handles GET /gateway-families: a machine-readable listing of
// what is proxyable, for external tooling.
func (h *Handler) HandleFamilies(w http.ResponseWriter, r *http.Request) {
	type familyView struct {
		ID            string   `json:"id"`
		PathPrefix    string   `json:"path_prefix"`
		RequiredScope string   `json:"required_scope"`
		Extractors    []string `json:"extractors,omitempty"`
	}

	families := h.registry.Families()
	views := make([]familyView, 0, len(families))
	for _, f := range families {
		views = append(views, familyView{
			ID:            f.ID,
			PathPrefix:    "/gateway/" + f.PathPrefix,
			RequiredScope: f.RequiredScope,
			Extractors:    f.Extractors,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"families": views})
}

func (h *Handler) writeGatewayError(w http.ResponseWriter, err error) {
	w.Header().Set(GatewayErrorHeader, string(dErrors.CodeOf(err)))
	httputil.WriteError(w, err)
}

func credentialsFromRequest(r *http.Request) actor.Credentials {
	creds := actor.Credentials{
		APIKey:          r.Header.Get("X-Api-Key"),
		ActorName:       r.Header.Get("X-Actor-Name"),
		ActorEmail:      r.Header.Get("X-Actor-Email"),
		ClientReference: r.Header.Get("X-Client-Reference"),
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		creds.BearerToken = strings.TrimPrefix(auth, "Bearer ")
	}
	return creds
}
