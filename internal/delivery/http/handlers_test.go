package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/internal/inference"
	"github.com/millops/backend/internal/repository/postgres"
	"github.com/millops/backend/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, withModels bool) (*fiber.App, *service.DashboardService) {
	t.Helper()
	var models *inference.Models
	if withModels {
		models = inference.LoadModels(context.Background(),
			inference.DirSource{Dir: filepath.Join("..", "..", "..", "models")}, discardLogger())
	}
	svc := service.NewDashboardService(
		postgres.NewMockRepository(),
		inference.NewEngine(models, discardLogger()),
		service.DashboardConfig{RiskWindow: 5, ProductionWindow: 1000, SupplierWindow: 50, StaleAfter: 2 * time.Minute},
		discardLogger(),
	)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupRoutes(app, svc)
	t.Cleanup(svc.WaitBackground)
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t, true)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["models_loaded"])
	assert.Equal(t, inference.ModelServiceNone, body["model_service"])
}

func TestHealthCheck_RemoteModelServiceDown(t *testing.T) {
	ml := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ml.Close()

	models := &inference.Models{
		Efficiency: &inference.RegressorHandle{Model: inference.NewRemoteModel(ml.URL, "efficiency"), Label: "Remote Model"},
		Encoders:   map[string]*inference.LabelEncoder{},
	}
	svc := service.NewDashboardService(
		postgres.NewMockRepository(),
		inference.NewEngine(models, discardLogger()),
		service.DashboardConfig{RiskWindow: 5, ProductionWindow: 1000, SupplierWindow: 50, StaleAfter: 2 * time.Minute},
		discardLogger(),
	)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupRoutes(app, svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, inference.ModelServiceUnavailable, body["model_service"])
}

func TestGetDashboard(t *testing.T) {
	app, _ := newTestApp(t, true)

	code, env := do(t, app, "GET", "/api/v1/dashboard", "")
	require.Equal(t, 200, code)
	assert.True(t, env.Success)

	var data domain.DashboardData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 30, data.KPIs.ProductionRowCount)
	assert.True(t, data.KPIs.StreamActive)
	assert.Equal(t, "Random Forest Classifier", data.ProductionRisk.ModelUsed)
	assert.Equal(t, "Linear Regression", data.Efficiency.ModelUsed)
	assert.Len(t, data.Trends, 3)
}

func TestGetProduction_Limit(t *testing.T) {
	app, _ := newTestApp(t, false)

	code, env := do(t, app, "GET", "/api/v1/production?limit=4", "")
	require.Equal(t, 200, code)
	assert.Equal(t, 4, env.Count)

	var rows []domain.ProductionView
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 4)
	assert.NotEmpty(t, rows[0].Status)

	_, env = do(t, app, "GET", "/api/v1/production?limit=99999", "")
	assert.Equal(t, 30, env.Count, "out of range limit falls back to the default")
}

func TestGetSuppliers(t *testing.T) {
	app, _ := newTestApp(t, false)

	code, env := do(t, app, "GET", "/api/v1/suppliers", "")
	require.Equal(t, 200, code)
	assert.Equal(t, 9, env.Count)
}

func TestScoreProductionRisk(t *testing.T) {
	app, _ := newTestApp(t, false)

	body := `{"rows":[{"machine_id":"M1","speed_rpm":900,"downtime_minutes":3,"temperature_c":40,"target_output":100,"actual_output":60}]}`
	code, env := do(t, app, "POST", "/api/v1/risk/production", body)
	require.Equal(t, 200, code)

	var res domain.RiskResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 65.0, res.RiskScore)
	assert.Equal(t, domain.RiskHigh, res.RiskLevel)
	assert.Equal(t, inference.LabelHeuristic, res.ModelUsed)
	assert.Equal(t, "8.0°C above normal", res.ContributingFactors["Temperature Impact"])
}

func TestScoreProductionRisk_EmptyBodyScoresWindow(t *testing.T) {
	app, _ := newTestApp(t, true)

	code, env := do(t, app, "POST", "/api/v1/risk/production", "")
	require.Equal(t, 200, code)

	var res domain.RiskResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Random Forest Classifier", res.ModelUsed)
	assert.NotEqual(t, domain.RiskUnknown, res.RiskLevel)
}

func TestScoreProductionRisk_BadRequests(t *testing.T) {
	app, _ := newTestApp(t, false)

	code, env := do(t, app, "POST", "/api/v1/risk/production", `{"rows":[{"speed_rpm":900}]}`)
	assert.Equal(t, 400, code)
	assert.True(t, env.Error)
	assert.Contains(t, env.Message, "machine_id")

	code, env = do(t, app, "POST", "/api/v1/risk/production", `{"rows":`)
	assert.Equal(t, 400, code)
	assert.Equal(t, "Invalid request body", env.Message)
}

func TestScoreSupplierDelay(t *testing.T) {
	app, _ := newTestApp(t, true)

	body := `{"rows":[
		{"supplier_id":"S1","material_type":"Cotton","order_quantity":800,"price_per_kg":150,"transportation_status":"delayed","expected_delivery_date":"2024-05-10","actual_delivery_date":"2024-05-13"},
		{"supplier_id":"S3","material_type":"Silk","order_quantity":800,"price_per_kg":150,"transportation_status":"arrived"}
	]}`
	code, env := do(t, app, "POST", "/api/v1/risk/supplier", body)
	require.Equal(t, 200, code)

	var res domain.DelayResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, inference.LabelHeuristic, res.ModelUsed, "unknown material falls back")
	assert.Equal(t, 50.0, res.DelayProbability)
	assert.Equal(t, domain.DelayModerate, res.RiskLevel)
	assert.Empty(t, res.SupplierBreakdown)

	code, env = do(t, app, "POST", "/api/v1/risk/supplier", `{"rows":[{"supplier_id":"S1","expected_delivery_date":"10/05/2024"}]}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, env.Message, "expected_delivery_date")
}

func TestScoreSupplierDelay_StatusIsCaseSensitive(t *testing.T) {
	app, _ := newTestApp(t, true)

	body := `{"rows":[{"supplier_id":"S1","material_type":"Cotton","order_quantity":800,"price_per_kg":150,"transportation_status":"Delayed"}]}`
	code, env := do(t, app, "POST", "/api/v1/risk/supplier", body)
	require.Equal(t, 200, code)

	var res domain.DelayResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, inference.LabelHeuristic, res.ModelUsed, "status outside the encoder vocabulary")
	assert.Equal(t, 0.0, res.DelayProbability, "only the exact value counts as delayed")
}

func TestPredictEfficiency(t *testing.T) {
	app, _ := newTestApp(t, true)

	code, env := do(t, app, "POST", "/api/v1/efficiency", `{"speed_rpm":850,"downtime_minutes":0,"temperature_c":34,"target_output":90}`)
	require.Equal(t, 200, code)

	var res domain.EfficiencyResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 94.2, res.PredictedEfficiency)
	assert.Equal(t, "Linear Regression", res.ModelUsed)
}

func TestGetModels(t *testing.T) {
	app, _ := newTestApp(t, false)

	code, env := do(t, app, "GET", "/api/v1/models", "")
	require.Equal(t, 200, code)

	var info domain.ModelInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.False(t, info.ModelsLoaded)
	assert.Equal(t, "None", info.ProductionRiskModel.Type)
	assert.Empty(t, info.EncodersLoaded)
}

func TestUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, false)

	code, env := do(t, app, "GET", "/api/v1/nope", "")
	assert.Equal(t, 404, code)
	assert.True(t, env.Error)
}
