package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http/dto"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
)

type HealthHandler struct {
	catalog  *catalog.Catalog
	sessions *session.Authorizer
}

func NewHealthHandler(cat *catalog.Catalog, sessions *session.Authorizer) *HealthHandler {
	return &HealthHandler{catalog: cat, sessions: sessions}
}

// Check reports unhealthy when the client directory cannot be read.
func (h *HealthHandler) Check(ctx *gin.Context) {
	resp := dto.HealthResponse{Status: "ok"}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.Sessions(time.Now())
	}

	if h.catalog != nil {
		if _, err := h.catalog.List(); err != nil {
			resp.Status = "degraded"
			resp.Error = "client directory unreadable"
			ctx.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}

	ctx.JSON(http.StatusOK, resp)
}
