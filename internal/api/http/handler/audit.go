package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http/dto"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AuditHandler struct {
	recorder *audit.Recorder
}

func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

// List returns the most recent audit events, newest first.
func (h *AuditHandler) List(ctx *gin.Context) {
	limit := defaultAuditLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.recorder.Recent(ctx.Request.Context(), limit)
	if err != nil {
		slog.Error("Failed to read audit events", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read audit events"})
		return
	}

	resp := dto.AuditResponse{Events: make([]dto.AuditEvent, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.AuditEvent{
			ID:        e.ID.String(),
			Timestamp: e.Timestamp,
			Principal: e.Principal,
			Action:    string(e.Action),
			Client:    e.Client,
			Outcome:   e.Outcome,
			Detail:    e.Detail,
		})
	}
	resp.Count = len(resp.Events)

	ctx.JSON(http.StatusOK, resp)
}
