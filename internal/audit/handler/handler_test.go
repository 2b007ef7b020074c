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
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helios/internal/audit"
	"helios/internal/audit/handler"
	"helios/internal/audit/store/memory"
	jwttoken "helios/internal/jwt_token"
	"helios/internal/platform/middleware"
	"helios/pkg/domain"
)

const signingKey = "test-signing-key"

func newServer(t *testing.T, store *memory.Store) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(store, logger)
	sessions := jwttoken.NewService(signingKey, "helios", "portal")

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions, logger))
		handler.New(recorder, logger).Register(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func sessionToken(t *testing.T) string {
	t.Helper()
	claims := jwttoken.Claims{
		OrganizationID: uuid.NewString(),
		ActorID:        uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "helios",
			Audience:  jwt.ClaimStrings{"portal"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func seed(t *testing.T, store *memory.Store, org domain.OrgID, actorType string, at time.Time) {
	t.Helper()
	err := store.Append(context.Background(), audit.Record{
		ID:             domain.NewAuditRecordID(),
		OrganizationID: org,
		ActorType:      actorType,
		ActorID:        uuid.NewString(),
		Method:         "GET",
		Family:         "directory",
		Path:           "/admin/directory/v1/users",
		StatusCode:     200,
		LatencyMS:      10,
		CreatedAt:      at,
	})
	require.NoError(t, err)
}

func listRecords(t *testing.T, url string) (int, []map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body.Records
}

func TestHandleList_FiltersByOrganization(t *testing.T) {
	store := memory.New()
	orgA := domain.OrgID(uuid.New())
	orgB := domain.OrgID(uuid.New())
	now := time.Now().UTC()
	seed(t, store, orgA, "vendor", now)
	seed(t, store, orgA, "service", now.Add(time.Second))
	seed(t, store, orgB, "session", now.Add(2*time.Second))

	srv := newServer(t, store)

	status, records := listRecords(t, srv.URL+"/audit/records?org="+orgA.String())
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, records, 2)
}

func TestHandleList_FiltersByActorTypeAndWindow(t *testing.T) {
	store := memory.New()
	org := domain.OrgID(uuid.New())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed(t, store, org, "vendor", base)
	seed(t, store, org, "service", base.Add(time.Minute))

	srv := newServer(t, store)

	status, records := listRecords(t, srv.URL+"/audit/records?actor_type=vendor")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, records, 1)
	assert.Equal(t, "vendor", records[0]["actor_type"])

	status, records = listRecords(t, srv.URL+
		"/audit/records?from="+base.Add(30*time.Second).Format(time.RFC3339)+
		"&until="+base.Add(2*time.Minute).Format(time.RFC3339))
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, records, 1)
	assert.Equal(t, "service", records[0]["actor_type"])
}

func TestHandleList_EmptyTrailIsAnEmptyArray(t *testing.T) {
	srv := newServer(t, memory.New())

	status, records := listRecords(t, srv.URL+"/audit/records")
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestHandleList_RejectsBadParams(t *testing.T) {
	srv := newServer(t, memory.New())

	cases := map[string]string{
		"bad org":   "/audit/records?org=not-a-uuid",
		"bad from":  "/audit/records?from=yesterday",
		"bad limit": "/audit/records?limit=-5",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+sessionToken(t))

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleList_RequiresSession(t *testing.T) {
	store := memory.New()
	seed(t, store, domain.OrgID(uuid.New()), "vendor", time.Now().UTC())
	srv := newServer(t, store)

	t.Run("no credentials", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/audit/records")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "unauthenticated", body["error"])
	})

	t.Run("garbage token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/audit/records", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
