package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geoquest/internal/pkg/metrics"
)

// requestTimeout bounds every REST handler.
const requestTimeout = 15 * time.Second

// legacySunset is when the unversioned claim routes go away.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// LegacyRoutes lists the unversioned paths kept for existing clients.
var LegacyRoutes = []DeprecatedRoute{
	{Path: "/metadata/geofenced-by-id", SunsetDate: legacySunset, Alternative: "/v1/metadata/geofenced-by-id"},
	{Path: "/claim-quest-nft", SunsetDate: legacySunset, Alternative: "/v1/claim-quest-nft"},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
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
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Sunset headers on unversioned paths
	app.Use(DeprecationMiddleware(LegacyRoutes))

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/metadata/geofenced-by-id", timeout.NewWithContext(EligibilityHandler(deps), requestTimeout))
	v1.Post("/claim-quest-nft", timeout.NewWithContext(ClaimHandler(deps), requestTimeout))
	v1.Get("/metadata", timeout.NewWithContext(ListMetadataHandler(deps), requestTimeout))
	v1.Get("/metadata/nearby", timeout.NewWithContext(NearbyMetadataHandler(deps), requestTimeout))
	v1.Get("/metadata/geojson", timeout.NewWithContext(GeoJSONHandler(deps), requestTimeout))
	v1.Get("/metadata/:id", timeout.NewWithContext(GetMetadataHandler(deps), requestTimeout))

	// Admin
	admin := AdminAuth(deps.AdminAPIKey)
	v1.Post("/metadata", admin, timeout.NewWithContext(CreateMetadataHandler(deps), requestTimeout))
	v1.Delete("/claims/:metadata_id/:user_address", admin, timeout.NewWithContext(ReleaseClaimHandler(deps), requestTimeout))

	// Legacy unversioned routes
	app.Get("/metadata/geofenced-by-id", timeout.NewWithContext(EligibilityHandler(deps), requestTimeout))
	app.Post("/claim-quest-nft", timeout.NewWithContext(ClaimHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
