package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millops/backend/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "millops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, repo.Health(context.Background()))
}

func TestProductionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.InsertProduction(ctx, domain.ProductionRow{
			Timestamp:       base.Add(time.Duration(i) * 3 * time.Second),
			MachineID:       []string{"M1", "M2", "M3"}[i%3],
			TargetOutput:    100,
			ActualOutput:    80.25,
			SpeedRPM:        900,
			DowntimeMinutes: 1.5,
			TemperatureC:    37.2,
		}))
	}

	rows, err := repo.RecentProduction(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, base.Add(9*time.Second), rows[0].Timestamp)
	assert.Equal(t, "M1", rows[0].MachineID)
	assert.Equal(t, 37.2, rows[0].TemperatureC)
	assert.Equal(t, domain.StatusWarning, rows[0].Status())

	total, err := repo.TotalOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(321), total)
}

func TestEmptyTables(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	prod, err := repo.RecentProduction(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, prod)

	sup, err := repo.RecentSuppliers(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sup)

	total, err := repo.TotalOutput(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSupplierRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	expected := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertSupplier(ctx, domain.SupplierRow{
		Timestamp:            time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		SupplierID:           "S2",
		MaterialType:         "Yarn",
		ExpectedDeliveryDate: expected,
		ActualDeliveryDate:   expected.AddDate(0, 0, -1),
		OrderQuantity:        1200,
		ReceivedQuantity:     1100,
		PricePerKg:           175.5,
		TransportationStatus: domain.TransportArrived,
	}))

	rows, err := repo.RecentSuppliers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, expected, rows[0].ExpectedDeliveryDate)
	assert.Equal(t, -1, rows[0].DelayDays())
	assert.Equal(t, domain.SupplyOnTime, rows[0].SupplyRisk())
	assert.Equal(t, 175.5, rows[0].PricePerKg)
}

func TestSaveAssessment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := domain.NewAssessment(
		domain.RiskResult{RiskScore: 55, RiskLevel: domain.RiskHigh, ModelUsed: "Heuristic Fallback"},
		domain.DelayResult{DelayProbability: 20, RiskLevel: domain.DelayLowRisk},
		domain.EfficiencyResult{PredictedEfficiency: 85, ModelUsed: "Fallback"},
		5, 0,
	)
	require.NoError(t, repo.SaveAssessment(ctx, a))
	assert.Error(t, repo.SaveAssessment(ctx, a), "duplicate id must be rejected")

	var level string
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT risk_level FROM risk_assessments WHERE id = ?`, a.ID.String()).Scan(&level))
	assert.Equal(t, domain.RiskHigh, level)
}
