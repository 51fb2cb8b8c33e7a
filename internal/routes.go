package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "mizan/api/v1"
	"mizan/internal/config"
	"mizan/internal/http"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// The tracking SDK and the dashboard call these endpoints cross-origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Rate limiter for public tracking endpoints (120 requests per minute per IP).
	// Tracking fires on every navigation, so the limit leaves headroom for
	// legitimate browsing while still containing abuse.
	trackingRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Stricter limit for the chat relay, each call hits the upstream webhook
	chatRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(20),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public tracking config: rate limiting + permissive CORS. Tracking calls
	// come from browsers on other origins, so Sec-Fetch-Site stays off.
	trackingConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		WriteConcurrency:   false,
		CustomMiddleware:   []fiber.Handler{trackingRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	chatConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CustomMiddleware:   []fiber.Handler{chatRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// SDK delivery config (GET-only)
	sdkConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CustomMiddleware:   []fiber.Handler{trackingRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// Reporting config: read-only aggregates consumed by the dashboard
	reportingConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CustomMiddleware:   []fiber.Handler{trackingRateLimiter},
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	preflight := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC TRACKING API ===
	srv.Post("/api/v1/track/visit", v1.TrackVisitHandler, trackingConfig)
	srv.Options("/api/v1/track/visit", preflight, trackingConfig)
	srv.Post("/api/v1/track/interaction", v1.TrackInteractionHandler, trackingConfig)
	srv.Options("/api/v1/track/interaction", preflight, trackingConfig)
	srv.Post("/api/v1/users/upsert", v1.UpsertUserHandler, trackingConfig)
	srv.Options("/api/v1/users/upsert", preflight, trackingConfig)

	// === LEGACY USAGE API ===
	srv.Post("/api/v1/usage", v1.TrackUsageHandler, trackingConfig)
	srv.Options("/api/v1/usage", preflight, trackingConfig)
	srv.Get("/api/v1/usage", v1.GetUsageStatsHandler, reportingConfig)
	srv.Get("/api/v1/usage/users", v1.GetUsageUsersHandler, reportingConfig)

	// === CHAT RELAY ===
	srv.Post("/api/v1/chat/messages", v1.ChatMessageHandler, chatConfig)
	srv.Options("/api/v1/chat/messages", preflight, chatConfig)

	// === SDK ===
	srv.Get("/api/v1/sdk.js", v1.GetSDKAction, sdkConfig)

	// === ADMIN REPORTING API ===
	srv.Get("/admin/api/summary", http.SummaryIndexAction, reportingConfig)
	srv.Get("/admin/api/interactions", http.InteractionsIndexAction, reportingConfig)
	srv.Get("/admin/api/countries", http.CountriesIndexAction, reportingConfig)
}
