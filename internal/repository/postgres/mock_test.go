package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millops/backend/internal/domain"
)

func TestMockRepository_Seeded(t *testing.T) {
	r := NewMockRepository()
	ctx := context.Background()

	prod, err := r.RecentProduction(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, prod, 30)
	for i := 1; i < len(prod); i++ {
		assert.False(t, prod[i].Timestamp.After(prod[i-1].Timestamp), "rows must be newest first")
	}

	sup, err := r.RecentSuppliers(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, sup, 5)

	total, err := r.TotalOutput(ctx)
	require.NoError(t, err)
	assert.Positive(t, total)
}

func TestMockRepository_RingEvictsOldest(t *testing.T) {
	r := NewEmptyMockRepository(3)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.InsertProduction(ctx, domain.ProductionRow{
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			MachineID:    "M1",
			TargetOutput: 100,
			ActualOutput: 10,
		}))
	}

	rows, err := r.RecentProduction(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, base.Add(4*time.Second), rows[0].Timestamp)
	assert.Equal(t, base.Add(2*time.Second), rows[2].Timestamp)

	total, err := r.TotalOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
}

func TestMockRepository_Limits(t *testing.T) {
	r := NewEmptyMockRepository(10)
	ctx := context.Background()

	rows, err := r.RecentSuppliers(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	require.NoError(t, r.InsertSupplier(ctx, domain.SupplierRow{SupplierID: "S1"}))
	rows, err = r.RecentSuppliers(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = r.RecentProduction(ctx, -1)
	assert.Error(t, err)
}

func TestMockRepository_Assessments(t *testing.T) {
	r := NewEmptyMockRepository(10)
	a := domain.NewAssessment(
		domain.RiskResult{RiskScore: 42, RiskLevel: domain.RiskMedium},
		domain.DelayResult{DelayProbability: 10, RiskLevel: domain.DelayLowRisk},
		domain.EfficiencyResult{PredictedEfficiency: 90},
		5, 50,
	)
	require.NoError(t, r.SaveAssessment(context.Background(), a))

	saved := r.Assessments()
	require.Len(t, saved, 1)
	assert.Equal(t, a.ID, saved[0].ID)
	assert.NoError(t, r.Health(context.Background()))
	assert.NoError(t, r.Migrate(context.Background()))
}
