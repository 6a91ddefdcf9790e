package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http/dto"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCatalog(t *testing.T, clients ...string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	for _, c := range clients {
		require.NoError(t, os.WriteFile(filepath.Join(dir, c+catalog.BundleExt), nil, 0o600))
	}
	return catalog.New(dir)
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	sessions := session.NewAuthorizer(time.Hour)
	require.True(t, sessions.Authorize(7, "pw", "pw", time.Now()))

	r := gin.New()
	r.GET("/health", NewHealthHandler(newCatalog(t, "alice"), sessions).Check)

	w := serve(r, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.ActiveSessions)
}

func TestHealthCheckUnreadableCatalog(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler(catalog.New("/nonexistent/clients"), nil).Check)

	w := serve(r, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestListClients(t *testing.T) {
	r := gin.New()
	r.GET("/api/v1/clients", NewClientsHandler(newCatalog(t, "bob", "alice")).List)

	w := serve(r, "/api/v1/clients")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.ClientsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []dto.ClientInfo{{Index: 1, Name: "alice"}, {Index: 2, Name: "bob"}}, resp.Clients)
}

func TestListClientsEmpty(t *testing.T) {
	r := gin.New()
	r.GET("/api/v1/clients", NewClientsHandler(newCatalog(t)).List)

	w := serve(r, "/api/v1/clients")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clients":[],"count":0}`, w.Body.String())
}

func TestListAudit(t *testing.T) {
	recorder := audit.NewRecorder(audit.NewMemoryStore(10))
	ctx := context.Background()
	recorder.Record(ctx, audit.Event{Principal: 7, Action: audit.ActionLogin, Outcome: audit.OutcomeSuccess})
	recorder.Record(ctx, audit.Event{Principal: 7, Action: audit.ActionRemove, Client: "alice", Outcome: audit.OutcomeSuccess})
	recorder.Record(ctx, audit.Event{Principal: 7, Action: audit.ActionCreate, Client: "bob", Outcome: audit.OutcomeFailure, Detail: "exit status 1"})

	r := gin.New()
	r.GET("/api/v1/audit", NewAuditHandler(recorder).List)

	t.Run("newest first", func(t *testing.T) {
		w := serve(r, "/api/v1/audit")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.AuditResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "create", resp.Events[0].Action)
		assert.Equal(t, "exit status 1", resp.Events[0].Detail)
		assert.Equal(t, "login", resp.Events[2].Action)
		assert.NotEmpty(t, resp.Events[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		w := serve(r, "/api/v1/audit?limit=1")

		var resp dto.AuditResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, "bob", resp.Events[0].Client)
	})

	t.Run("invalid limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(r, "/api/v1/audit?limit=-3").Code)
		assert.Equal(t, http.StatusBadRequest, serve(r, "/api/v1/audit?limit=all").Code)
	})
}

func TestListAuditWithoutStore(t *testing.T) {
	r := gin.New()
	r.GET("/api/v1/audit", NewAuditHandler(nil).List)

	w := serve(r, "/api/v1/audit")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
