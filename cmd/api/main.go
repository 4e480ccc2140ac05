package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geoquest/internal/adapters/http"
	natsadapter "github.com/samirrijal/geoquest/internal/adapters/nats"
	"github.com/samirrijal/geoquest/internal/adapters/valkey"
	"github.com/samirrijal/geoquest/internal/bootstrap"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/pkg/config"
	"github.com/samirrijal/geoquest/internal/pkg/logging"
	"github.com/samirrijal/geoquest/internal/pkg/metrics"
	"github.com/samirrijal/geoquest/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geoquest-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// Storage
	stores, err := bootstrap.OpenStores(ctx, cfg, cache)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	if stores.Postgres != nil {
		go reportPoolStats(ctx, stores)
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, claim events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	svc := bootstrap.NewServices(cfg, stores, cache, events)

	deps := &http.Dependencies{
		Claims:      svc.Claims,
		Metadata:    svc.Metadata,
		NATS:        natsConn,
		DB:          stores,
		AdminAPIKey: cfg.Admin.APIKey,
	}
	if cache != nil {
		deps.Cache = cache
	}
	if cfg.Admin.APIKey == "" {
		slog.Warn("admin API disabled: no admin.api_key configured")
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GeoQuest API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Admin-Key",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Store.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats refreshes the database pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, stores *bootstrap.Stores) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(stores.Postgres.Pool.Stat())
		}
	}
}
