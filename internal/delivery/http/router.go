package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/millops/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, dashboardSvc *service.DashboardService) {
	handler := NewHandler(dashboardSvc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Dashboard endpoints
		api.Get("/dashboard", handler.GetDashboard)
		api.Get("/production", handler.GetProduction)
		api.Get("/suppliers", handler.GetSuppliers)

		// Scoring endpoints
		api.Post("/risk/production", handler.ScoreProductionRisk)
		api.Post("/risk/supplier", handler.ScoreSupplierDelay)
		api.Post("/efficiency", handler.PredictEfficiency)
		api.Get("/models", handler.GetModels)
	}
}
