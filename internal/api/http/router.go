package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http/handler"
	"github.com/EternisAI/vpn-admin-bot/internal/api/http/middleware"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
)

type Services struct {
	Catalog  *catalog.Catalog
	Sessions *session.Authorizer
	Audit    *audit.Recorder
}

func SetupRoute(engine *gin.Engine, cfg Config, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler(srvs.Catalog, srvs.Sessions)
	engine.GET("/health", healthHandler.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := engine.Group("/api/v1", middleware.APIKeyAuth(cfg.AdminAPIKey))
	{
		clientsHandler := handler.NewClientsHandler(srvs.Catalog)
		admin.GET("/clients", clientsHandler.List)

		auditHandler := handler.NewAuditHandler(srvs.Audit)
		admin.GET("/audit", auditHandler.List)
	}
}
