package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketpulse/handlers"
	"marketpulse/middleware"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App, h *handlers.IntelligenceHandler, jwtSecret []byte) {
	app.Get("/health", handlers.HandleHealth)
	app.Get("/version", handlers.HandleVersion)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// --- Intelligence Routes ---
	intel := api.Group("/intelligence", middleware.NewJWTMiddleware(jwtSecret), middleware.MerchantRequired)
	intel.Get("/products/:productId/analysis", h.HandleGetProductAnalysis)
	intel.Post("/analyze", h.HandleAnalyzeSeries)
	intel.Get("/weekly-report", h.HandleGetWeeklyReport)
	intel.Post("/refresh", h.HandleRefresh)
}
