package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/internal/inference"
	"github.com/millops/backend/internal/service"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Handler contains all HTTP handlers
type Handler struct {
	dashboardSvc *service.DashboardService
}

// NewHandler creates a new handler
func NewHandler(dashboardSvc *service.DashboardService) *Handler {
	return &Handler{dashboardSvc: dashboardSvc}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status, db := "ok", "ok"
	if err := h.dashboardSvc.Health(c.Context()); err != nil {
		status, db = "degraded", "unavailable"
	}
	modelSvc := h.dashboardSvc.ModelServiceHealth(c.Context())
	if modelSvc == inference.ModelServiceUnavailable {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":        status,
		"service":       "millops-backend",
		"version":       "1.0.0",
		"database":      db,
		"model_service": modelSvc,
		"models_loaded": h.dashboardSvc.ModelInfo().ModelsLoaded,
	})
}

// GetDashboard returns KPIs, scores and trends in one payload
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardSvc.GetDashboard(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch dashboard data")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// GetProduction returns the newest production rows
func (h *Handler) GetProduction(c *fiber.Ctx) error {
	data, err := h.dashboardSvc.RecentProduction(c.Context(), listLimit(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch production data")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// GetSuppliers returns the newest delivery records
func (h *Handler) GetSuppliers(c *fiber.Ctx) error {
	data, err := h.dashboardSvc.RecentSuppliers(c.Context(), listLimit(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch supplier data")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

type productionBatch struct {
	Rows []domain.ProductionRow `json:"rows"`
}

// ScoreProductionRisk scores the posted rows, or the newest window when none are posted
func (h *Handler) ScoreProductionRisk(c *fiber.Ctx) error {
	var req productionBatch
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	for i, r := range req.Rows {
		if r.MachineID == "" {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("rows[%d]: machine_id is required", i))
		}
	}

	res, err := h.dashboardSvc.ScoreProductionRisk(c.Context(), req.Rows)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to score production risk")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

// supplierInput accepts delivery dates as YYYY-MM-DD or RFC 3339
type supplierInput struct {
	Timestamp            time.Time `json:"timestamp"`
	SupplierID           string    `json:"supplier_id"`
	MaterialType         string    `json:"material_type"`
	ExpectedDeliveryDate string    `json:"expected_delivery_date"`
	ActualDeliveryDate   string    `json:"actual_delivery_date"`
	OrderQuantity        float64   `json:"order_quantity"`
	ReceivedQuantity     float64   `json:"received_quantity"`
	PricePerKg           float64   `json:"price_per_kg"`
	TransportationStatus string    `json:"transportation_status"`
}

type supplierBatch struct {
	Rows []supplierInput `json:"rows"`
}

func (in supplierInput) toRow() (domain.SupplierRow, error) {
	if in.SupplierID == "" {
		return domain.SupplierRow{}, fmt.Errorf("supplier_id is required")
	}
	expected, err := parseDate(in.ExpectedDeliveryDate)
	if err != nil {
		return domain.SupplierRow{}, fmt.Errorf("expected_delivery_date: %w", err)
	}
	actual, err := parseDate(in.ActualDeliveryDate)
	if err != nil {
		return domain.SupplierRow{}, fmt.Errorf("actual_delivery_date: %w", err)
	}
	return domain.SupplierRow{
		Timestamp:            in.Timestamp,
		SupplierID:           in.SupplierID,
		MaterialType:         in.MaterialType,
		ExpectedDeliveryDate: expected,
		ActualDeliveryDate:   actual,
		OrderQuantity:        in.OrderQuantity,
		ReceivedQuantity:     in.ReceivedQuantity,
		PricePerKg:           in.PricePerKg,
		TransportationStatus: in.TransportationStatus,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ScoreSupplierDelay scores the posted deliveries, or the newest window when none are posted
func (h *Handler) ScoreSupplierDelay(c *fiber.Ctx) error {
	var req supplierBatch
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	rows := make([]domain.SupplierRow, 0, len(req.Rows))
	for i, in := range req.Rows {
		row, err := in.toRow()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("rows[%d]: %v", i, err))
		}
		rows = append(rows, row)
	}

	res, err := h.dashboardSvc.ScoreSupplierDelay(c.Context(), rows)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to score supplier delay")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

// PredictEfficiency forecasts efficiency for the posted machine conditions
func (h *Handler) PredictEfficiency(c *fiber.Ctx) error {
	var req domain.EfficiencyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.PredictEfficiency(c.Context(), req),
	})
}

// GetModels reports which artifacts loaded at startup
func (h *Handler) GetModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.dashboardSvc.ModelInfo(),
	})
}

func listLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	return limit
}

// ErrorHandler renders every error as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
