package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http/dto"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
)

type ClientsHandler struct {
	catalog *catalog.Catalog
}

func NewClientsHandler(cat *catalog.Catalog) *ClientsHandler {
	return &ClientsHandler{catalog: cat}
}

// List returns the clients with the same numbering the bot uses.
func (h *ClientsHandler) List(ctx *gin.Context) {
	names, err := h.catalog.List()
	if err != nil {
		slog.Error("Failed to list clients", "dir", h.catalog.Dir(), "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list clients"})
		return
	}

	clients := make([]dto.ClientInfo, 0, len(names))
	for i, name := range names {
		clients = append(clients, dto.ClientInfo{Index: i + 1, Name: name})
	}

	ctx.JSON(http.StatusOK, dto.ClientsResponse{
		Clients: clients,
		Count:   len(clients),
	})
}
