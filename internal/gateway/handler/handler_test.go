package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helios/internal/actor"
	keystore "helios/internal/actor/store/keys"
	revocationstore "helios/internal/actor/store/revocation"
	"helios/internal/audit"
	auditmemory "helios/internal/audit/store/memory"
	"helios/internal/dirsync"
	syncmemory "helios/internal/dirsync/store/memory"
	"helios/internal/gateway"
	"helios/internal/gateway/handler"
	jwttoken "helios/internal/jwt_token"
	"helios/internal/registry"
	"helios/internal/token"
	"helios/internal/upstream"
	"helios/pkg/domain"
	"helios/pkg/secrets"
)

type staticExchanger struct{}

func (staticExchanger) Exchange(context.Context, domain.OrgID, string) (token.Token, error) {
	return token.Token{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type env struct {
	server     *httptest.Server
	serviceKey string
}

func newEnv(t *testing.T, upstreamHandler http.HandlerFunc) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	upstreamSrv := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstreamSrv.Close)

	reg, err := registry.New([]registry.Family{{
		ID:            "directory",
		PathPrefix:    "directory",
		BaseURL:       upstreamSrv.URL,
		RequiredScope: "directory.readonly",
		Extractors:    []string{dirsync.ExtractorDirectoryUsers},
	}})
	require.NoError(t, err)

	secret, err := secrets.Generate()
	require.NoError(t, err)
	hash, err := secrets.Hash(secret)
	require.NoError(t, err)
	keyID := domain.APIKeyID(uuid.New())

	keys := keystore.NewMemory()
	keys.Put(&actor.APIKey{
		ID:             keyID,
		OrganizationID: domain.OrgID(uuid.New()),
		Kind:           actor.TypeService,
		Name:           "integration",
		SecretHash:     hash,
		CreatedAt:      time.Now(),
	})

	resolver := actor.NewResolver(
		jwttoken.NewService("test-signing-key", "helios", "portal"),
		revocationstore.NewMemory(),
		keys,
		logger,
	)
	invoker := upstream.NewInvoker(token.NewCache(staticExchanger{}), time.Second, logger)
	recorder := audit.NewRecorder(auditmemory.New(), logger)
	syncSvc := dirsync.NewService(syncmemory.New(), dirsync.DirectoryExtractors(), logger)

	dispatcher := gateway.NewDispatcher(resolver, reg, invoker, recorder, syncSvc)

	r := chi.NewRouter()
	handler.New(dispatcher, reg, logger).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &env{server: srv, serviceKey: keyID.String() + "." + secret}
}

func TestHandleProxy_RelaysUpstreamResponse(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"whoami":"upstream"}`))
	})

	req, _ := http.NewRequest(http.MethodGet, e.server.URL+"/gateway/directory/anything/at/all", nil)
	req.Header.Set("X-Api-Key", e.serviceKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"whoami":"upstream"}`, string(body))
	assert.Empty(t, resp.Header.Get(handler.GatewayErrorHeader))
}

func TestHandleProxy_GatewayRefusalIsMarked(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be contacted")
	})

	req, _ := http.NewRequest(http.MethodGet, e.server.URL+"/gateway/not-a-real-api/x", nil)
	req.Header.Set("X-Api-Key", e.serviceKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unsupported_upstream", resp.Header.Get(handler.GatewayErrorHeader))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unsupported_upstream", body["error"])
}

func TestHandleProxy_MissingCredentials(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be contacted")
	})

	resp, err := http.Get(e.server.URL + "/gateway/directory/users")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", resp.Header.Get(handler.GatewayErrorHeader))
}

func TestHandleFamilies(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	resp, err := http.Get(e.server.URL + "/gateway-families")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Families []struct {
			ID            string   `json:"id"`
			PathPrefix    string   `json:"path_prefix"`
			RequiredScope string   `json:"required_scope"`
			Extractors    []string `json:"extractors"`
		} `json:"families"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Families, 1)
	assert.Equal(t, "directory", body.Families[0].ID)
	assert.Equal(t, "/gateway/directory", body.Families[0].PathPrefix)
	assert.Equal(t, []string{dirsync.ExtractorDirectoryUsers}, body.Families[0].Extractors)
}
