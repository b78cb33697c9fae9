package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/internal/inference"
	"github.com/millops/backend/internal/repository/postgres"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() DashboardConfig {
	return DashboardConfig{RiskWindow: 5, ProductionWindow: 1000, SupplierWindow: 50, StaleAfter: 2 * time.Minute}
}

func newTestService(repo DataRepository) *DashboardService {
	s := NewDashboardService(repo, inference.NewEngine(nil, discardLogger()), testConfig(), discardLogger())
	s.now = func() time.Time { return testNow }
	return s
}

// insertProduction writes n rows spaced 3s apart, the newest at newest
func insertProduction(t *testing.T, repo DataRepository, newest time.Time, n int, machines []string, actual func(i int) float64) {
	t.Helper()
	for i := n - 1; i >= 0; i-- {
		require.NoError(t, repo.InsertProduction(context.Background(), domain.ProductionRow{
			Timestamp:    newest.Add(-time.Duration(i) * 3 * time.Second),
			MachineID:    machines[i%len(machines)],
			TargetOutput: 100,
			ActualOutput: actual(i),
			SpeedRPM:     850,
			TemperatureC: 34,
		}))
	}
}

func TestGetDashboard_Empty(t *testing.T) {
	repo := postgres.NewEmptyMockRepository(100)
	s := newTestService(repo)

	data, err := s.GetDashboard(context.Background())
	require.NoError(t, err)
	s.WaitBackground()

	assert.False(t, data.KPIs.StreamActive)
	assert.Zero(t, data.KPIs.CurrentEfficiency)
	assert.Zero(t, data.KPIs.TotalOutput)
	assert.Equal(t, EfficiencyBelowTarget, data.KPIs.EfficiencyStatus)
	assert.Equal(t, domain.RiskUnknown, data.ProductionRisk.RiskLevel)
	assert.Equal(t, domain.RiskUnknown, data.SupplierDelay.RiskLevel)
	assert.Equal(t, inference.FallbackEfficiency, data.Efficiency.PredictedEfficiency)
	assert.Empty(t, data.Trends)
	assert.Empty(t, data.Production)
	assert.Len(t, repo.Assessments(), 1)
}

func TestGetDashboard_KPIs(t *testing.T) {
	repo := postgres.NewEmptyMockRepository(100)
	// newest row 96, older rows 90
	insertProduction(t, repo, testNow.Add(-30*time.Second), 10, []string{"M1", "M2"}, func(i int) float64 {
		if i == 0 {
			return 96
		}
		return 90
	})
	s := newTestService(repo)

	data, err := s.GetDashboard(context.Background())
	require.NoError(t, err)
	s.WaitBackground()

	k := data.KPIs
	assert.Equal(t, 96.0, k.CurrentEfficiency)
	assert.Equal(t, 90.6, k.AverageEfficiency)
	assert.Equal(t, 90.6, k.AverageOutput)
	assert.Equal(t, 5.4, k.OutputDelta)
	assert.Equal(t, int64(906), k.TotalOutput)
	assert.Equal(t, EfficiencyNormal, k.EfficiencyStatus)
	assert.True(t, k.StreamActive)
	assert.Equal(t, 0.5, k.MinutesSinceUpdate)
	assert.Equal(t, 10, k.ProductionRowCount)

	assert.Equal(t, inference.LabelHeuristic, data.ProductionRisk.ModelUsed)
	assert.Equal(t, inference.LabelEfficiencyFallback, data.Efficiency.ModelUsed)
	assert.False(t, data.Models.ModelsLoaded)

	saved := repo.Assessments()
	require.Len(t, saved, 1)
	assert.Equal(t, 5, saved[0].ProductionSampleSize)
	assert.Equal(t, data.ProductionRisk.RiskScore, saved[0].RiskScore)
}

func TestGetDashboard_StaleStream(t *testing.T) {
	repo := postgres.NewEmptyMockRepository(100)
	insertProduction(t, repo, testNow.Add(-10*time.Minute), 3, []string{"M1"}, func(int) float64 { return 70 })
	s := newTestService(repo)

	data, err := s.GetDashboard(context.Background())
	require.NoError(t, err)
	s.WaitBackground()

	assert.False(t, data.KPIs.StreamActive)
	assert.Equal(t, 10.0, data.KPIs.MinutesSinceUpdate)
	assert.Equal(t, EfficiencyBelowTarget, data.KPIs.EfficiencyStatus)
	assert.Equal(t, domain.StatusCritical, data.Production[0].Status)
}

func TestGetDashboard_TrendsKeepNewestPerMachine(t *testing.T) {
	repo := postgres.NewEmptyMockRepository(1000)
	insertProduction(t, repo, testNow, 60, []string{"M1", "M2", "M3", "M1"}, func(i int) float64 { return float64(100 - i) })
	s := newTestService(repo)

	data, err := s.GetDashboard(context.Background())
	require.NoError(t, err)
	s.WaitBackground()

	require.Len(t, data.Trends, 3)
	m1 := data.Trends["M1"]
	assert.Len(t, m1, trendPointsPerMachine)
	assert.Len(t, data.Trends["M2"], 15)
	for i := 1; i < len(m1); i++ {
		assert.True(t, m1[i].Timestamp.After(m1[i-1].Timestamp))
	}
	assert.Equal(t, testNow, m1[len(m1)-1].Timestamp)
	assert.Equal(t, 100.0, m1[len(m1)-1].ActualOutput)
}

type failingRepo struct {
	*postgres.MockRepository
	err error
}

func (r failingRepo) RecentSuppliers(context.Context, int) ([]domain.SupplierRow, error) {
	return nil, r.err
}

func (r failingRepo) TotalOutput(context.Context) (int64, error) {
	return 0, r.err
}

func TestGetDashboard_FetchError(t *testing.T) {
	boom := errors.New("connection refused")
	s := newTestService(failingRepo{MockRepository: postgres.NewEmptyMockRepository(10), err: boom})

	_, err := s.GetDashboard(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestScoreProductionRisk_EmptyBodyUsesRiskWindow(t *testing.T) {
	repo := postgres.NewEmptyMockRepository(100)
	insertProduction(t, repo, testNow, 8, []string{"M1"}, func(int) float64 { return 90 })
	s := newTestService(repo)

	res, err := s.ScoreProductionRisk(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.RiskScore)
	assert.Equal(t, domain.RiskLow, res.RiskLevel)

	res, err = s.ScoreProductionRisk(context.Background(), []domain.ProductionRow{{
		MachineID: "M1", TargetOutput: 100, ActualOutput: 60, TemperatureC: 40, DowntimeMinutes: 3,
	}})
	require.NoError(t, err)
	assert.Equal(t, 65.0, res.RiskScore)
	assert.Equal(t, domain.RiskHigh, res.RiskLevel)
}

func TestScoreSupplierDelay_FetchError(t *testing.T) {
	boom := errors.New("timeout")
	s := newTestService(failingRepo{MockRepository: postgres.NewEmptyMockRepository(10), err: boom})

	_, err := s.ScoreSupplierDelay(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestRecentViews(t *testing.T) {
	s := newTestService(postgres.NewMockRepository())

	prod, err := s.RecentProduction(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, prod, 7)
	assert.Equal(t, prod[0].ProductionRow.Efficiency(), prod[0].Efficiency)

	sup, err := s.RecentSuppliers(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, sup, 3)
	assert.Equal(t, sup[0].SupplierRow.DelayDays(), sup[0].DelayDays)

	assert.NoError(t, s.Health(context.Background()))
}
