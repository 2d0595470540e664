package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/isoroute/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Isochrones fan out into many routing requests, so the per-IP limit is
	// lower than a plain lookup API would use.
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	compute := deps.requestTimeout()
	lookup := 15 * time.Second

	v1 := app.Group("/v1")
	v1.Post("/isochrones", timeout.NewWithContext(ComputeIsochroneHandler(deps), compute))
	v1.Get("/isochrones", timeout.NewWithContext(ListIsochronesHandler(deps), lookup))
	v1.Get("/isochrones/:id", timeout.NewWithContext(GetIsochroneHandler(deps), lookup))
	v1.Post("/batches", timeout.NewWithContext(SubmitBatchHandler(deps), lookup))
	v1.Get("/route", timeout.NewWithContext(RouteHandler(deps), lookup))
	v1.Post("/table", timeout.NewWithContext(TableHandler(deps), compute))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), compute))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
