package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http/dto"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
)

func TestAuditStore(t *testing.T, store audit.Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	events := []audit.Event{
		{ID: uuid.New(), Timestamp: base, Principal: 100, Action: audit.ActionLogin, Outcome: audit.OutcomeSuccess},
		{ID: uuid.New(), Timestamp: base.Add(time.Minute), Principal: 100, Action: audit.ActionCreate, Client: "weird name", Outcome: audit.OutcomeFailure, Detail: "exit status 1"},
		{ID: uuid.New(), Timestamp: base.Add(2 * time.Minute), Principal: 100, Action: audit.ActionRemove, Client: "alice", Outcome: audit.OutcomeSuccess},
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, e))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[2].ID, got[0].ID)
		assert.Equal(t, "alice", got[0].Client)
		assert.True(t, events[2].Timestamp.Equal(got[0].Timestamp))
		assert.Equal(t, events[1].ID, got[1].ID)
		assert.Equal(t, "exit status 1", got[1].Detail)
	})

	t.Run("no limit", func(t *testing.T) {
		got, err := store.ListRecent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, audit.ActionLogin, got[2].Action)
		assert.Empty(t, got[2].Client)
	})
}

func TestAuditAPI(t *testing.T, router *gin.Engine, apiKey string) {
	t.Run("requires api key", func(t *testing.T) {
		rr := get(router, "/api/v1/audit", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("lists events", func(t *testing.T) {
		rr := get(router, "/api/v1/audit?limit=10", apiKey)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuditResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Events)
		assert.Equal(t, len(resp.Events), resp.Count)
		assert.Equal(t, "remove", resp.Events[0].Action)
	})
}

func TestHealthCheck(t *testing.T, router *gin.Engine) {
	rr := get(router, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func get(router *gin.Engine, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
