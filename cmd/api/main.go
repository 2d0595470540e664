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

	"github.com/samirrijal/isoroute/internal/adapters/contour"
	"github.com/samirrijal/isoroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/isoroute/internal/adapters/nats"
	"github.com/samirrijal/isoroute/internal/adapters/osrm"
	"github.com/samirrijal/isoroute/internal/adapters/postgres"
	"github.com/samirrijal/isoroute/internal/adapters/valkey"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/core/usecases"
	"github.com/samirrijal/isoroute/internal/pkg/config"
	"github.com/samirrijal/isoroute/internal/pkg/logging"
	"github.com/samirrijal/isoroute/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("isoroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	defaults, err := cfg.IsochroneDefaults()
	if err != nil {
		log.Fatalf("isochrone defaults: %v", err)
	}

	router := osrm.NewClient(osrm.Config{
		BaseURL: cfg.OSRM.BaseURL,
		Profile: cfg.OSRM.Profile,
		Timeout: cfg.OSRMTimeout(),
	})
	slog.Info("routing server", "url", router.BaseURL(), "class", defaults.Server.Name)

	deps := &http.Dependencies{
		Defaults:       defaults,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Router:         router,
	}

	// Optional backends. Interfaces stay nil when a backend is absent.
	var (
		archive ports.IsochroneRepository
		cache   ports.CacheService
		events  ports.EventPublisher
	)

	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		archive = postgres.NewIsochroneRepo(db)
		deps.DB = db

		go reportPoolMetrics(ctx, db)
	}

	if cfg.Valkey.Enabled {
		c, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer c.Close()
			cache = c
			deps.Cache = c
		}
	}

	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			deps.Jobs = pub
		}

		// Raw NATS connection for WebSocket relay
		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer nc.Close()
			deps.NATS = nc
		}
	}

	deps.Isochrones = usecases.NewIsochroneService(router, contour.New(), cache, events, archive)
	deps.Routes = usecases.NewRouteService(router)
	deps.Matrices = usecases.NewMatrixService(router)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // batches carry up to 1000 origins
		AppName:      "isoroute API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "Link, ETag, X-Isochrone-Warning, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.ReportPoolMetrics()
		}
	}
}
