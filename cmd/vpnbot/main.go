package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	internalhttp "github.com/EternisAI/vpn-admin-bot/internal/api/http"
	"github.com/EternisAI/vpn-admin-bot/internal/audit"
	"github.com/EternisAI/vpn-admin-bot/internal/bot"
	"github.com/EternisAI/vpn-admin-bot/internal/catalog"
	"github.com/EternisAI/vpn-admin-bot/internal/db"
	grpcserver "github.com/EternisAI/vpn-admin-bot/internal/grpc/server"
	"github.com/EternisAI/vpn-admin-bot/internal/provisioner"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
	"github.com/EternisAI/vpn-admin-bot/internal/telegram"
)

var AppVersion string

const shutdownTimeout = 10 * time.Second

func main() {
	InitConfig()

	slog.Info("VPN admin bot", "version", AppVersion)

	if err := config.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(ctx context.Context) error {
	superusers, err := ParseSuperusers(config.Auth.Superusers)
	if err != nil {
		return err
	}
	auth := session.NewAuthorizer(config.Auth.TTL, superusers...)
	verifier := session.NewVerifier(config.Auth.Secret, config.Auth.SecretHash)

	cat := catalog.New(config.Catalog.Dir)
	tool := provisioner.Limit(provisioner.NewTool(config.Tool), config.Tool.Concurrency)

	store, closeStore, err := openAuditStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	recorder := audit.NewRecorder(store)

	gateway, err := telegram.New(config.Telegram)
	if err != nil {
		return err
	}
	b := bot.New(bot.NewHandler(auth, verifier, cat, tool, recorder), gateway)

	slog.Info("Bot configured",
		"clients_dir", cat.Dir(),
		"session_ttl", auth.TTL(),
		"superusers", len(superusers),
		"tool", config.Tool.Path)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		auth.StartCleanup(gctx, config.Auth.CleanupInterval)
		return nil
	})

	var grpcSrv *grpcserver.Server
	if config.Grpc.Port > 0 {
		grpcSrv = grpcserver.NewServer(config.Grpc.Port)
		g.Go(func() error {
			if err := grpcSrv.Start(); err != nil {
				return fmt.Errorf("gRPC server error: %w", err)
			}
			return nil
		})
	}

	var httpServer *http.Server
	if config.Http.Port > 0 {
		httpServer = newHTTPServer(&internalhttp.Services{
			Catalog:  cat,
			Sessions: auth,
			Audit:    recorder,
		})
		g.Go(func() error {
			slog.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if grpcSrv != nil {
			grpcSrv.SetServing(true)
			defer grpcSrv.SetServing(false)
		}
		slog.Info("Polling for Telegram updates", "username", gateway.Username())
		return b.Run(gctx, gateway.Updates(gctx))
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down servers...")
		shutdown(httpServer, grpcSrv)
		return nil
	})

	return g.Wait()
}

func newHTTPServer(services *internalhttp.Services) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-API-Key"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, config.Http, services)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Http.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func shutdown(httpServer *http.Server, grpcSrv *grpcserver.Server) {
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}
	if grpcSrv != nil {
		if err := grpcSrv.StopWithTimeout(shutdownTimeout); err != nil {
			slog.Error("gRPC server shutdown error", "error", err)
		}
	}
}

// openAuditStore uses Postgres when db.url is set and an in-memory ring
// otherwise.
func openAuditStore(ctx context.Context) (audit.Store, func(), error) {
	if !config.DB.Enabled() {
		slog.Info("Audit trail kept in memory")
		return audit.NewMemoryStore(0), func() {}, nil
	}

	if err := db.Migrate(ctx, config.DB); err != nil {
		return nil, nil, err
	}
	pool, err := db.Connect(ctx, config.DB)
	if err != nil {
		return nil, nil, err
	}
	return audit.NewPostgresStore(pool), pool.Close, nil
}
