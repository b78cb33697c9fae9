package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/internal/inference"
	"github.com/millops/backend/pkg/utils"
)

const (
	trendPointsPerMachine = 20
	efficiencyTarget      = 85.0
	assessmentTimeout     = 5 * time.Second
)

// Efficiency status labels
const (
	EfficiencyNormal      = "Normal"
	EfficiencyBelowTarget = "Below Target"
)

// DashboardConfig sizes the windows the dashboard reads
type DashboardConfig struct {
	RiskWindow       int
	ProductionWindow int
	SupplierWindow   int
	StaleAfter       time.Duration
}

// DashboardService aggregates stored rows and model scores
type DashboardService struct {
	repo   DataRepository
	engine *inference.Engine
	cfg    DashboardConfig
	logger *slog.Logger
	now    func() time.Time

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	repo DataRepository,
	engine *inference.Engine,
	cfg DashboardConfig,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		repo:   repo,
		engine: engine,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *DashboardService) WaitBackground() {
	s.wgBg.Wait()
}

// GetDashboard reads the configured windows concurrently, scores them and derives the KPIs
func (s *DashboardService) GetDashboard(ctx context.Context) (domain.DashboardData, error) {
	var (
		prod  []domain.ProductionRow
		sup   []domain.SupplierRow
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repo.RecentProduction(gctx, s.cfg.ProductionWindow)
		prod = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.RecentSuppliers(gctx, s.cfg.SupplierWindow)
		sup = rows
		return err
	})
	g.Go(func() error {
		t, err := s.repo.TotalOutput(gctx)
		if err != nil {
			// The all-time total is decorative; keep the dashboard up without it.
			s.logger.Warn("failed to fetch total output", "error", err)
			return nil
		}
		total = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardData{}, fmt.Errorf("service: failed to fetch dashboard data: %w", err)
	}

	now := s.now()
	risk := s.engine.ScoreProductionRisk(ctx, prod[:min(s.cfg.RiskWindow, len(prod))])
	delay := s.engine.ScoreSupplierDelay(ctx, sup)
	eff := s.forecast(ctx, prod)

	s.saveAssessment(domain.NewAssessment(risk, delay, eff, min(s.cfg.RiskWindow, len(prod)), len(sup)))

	return domain.DashboardData{
		KPIs:           s.computeKPIs(prod, len(sup), total, now),
		ProductionRisk: risk,
		SupplierDelay:  delay,
		Efficiency:     eff,
		Trends:         machineTrends(prod, trendPointsPerMachine),
		Production:     productionViews(prod),
		Suppliers:      supplierViews(sup),
		Models:         s.engine.ModelInfo(),
		Timestamp:      now,
	}, nil
}

// forecast predicts efficiency for the newest row's conditions
func (s *DashboardService) forecast(ctx context.Context, prod []domain.ProductionRow) domain.EfficiencyResult {
	if len(prod) == 0 {
		return domain.EfficiencyResult{
			PredictedEfficiency: inference.FallbackEfficiency,
			ModelUsed:           inference.LabelEfficiencyFallback,
		}
	}
	latest := prod[0]
	return s.engine.PredictEfficiency(ctx, domain.EfficiencyRequest{
		SpeedRPM:        latest.SpeedRPM,
		DowntimeMinutes: latest.DowntimeMinutes,
		TemperatureC:    latest.TemperatureC,
		TargetOutput:    latest.TargetOutput,
	})
}

// saveAssessment persists the snapshot asynchronously (tracked for graceful shutdown)
func (s *DashboardService) saveAssessment(a domain.Assessment) {
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), assessmentTimeout)
		defer cancel()
		if err := s.repo.SaveAssessment(bgCtx, a); err != nil {
			s.logger.Error("failed to save assessment", "id", a.ID, "error", err)
		}
	}()
}

func (s *DashboardService) computeKPIs(prod []domain.ProductionRow, supN int, total int64, now time.Time) domain.KPIs {
	kpis := domain.KPIs{
		TotalOutput:        total,
		EfficiencyStatus:   EfficiencyBelowTarget,
		ProductionRowCount: len(prod),
		SupplierRowCount:   supN,
	}
	if len(prod) == 0 {
		return kpis
	}

	latest := prod[0]
	avgEff := utils.MeanOf(prod, domain.ProductionRow.Efficiency)
	avgOut := utils.MeanOf(prod, func(r domain.ProductionRow) float64 { return r.ActualOutput })
	since := max(0, now.Sub(latest.Timestamp).Minutes())

	kpis.CurrentEfficiency = utils.RoundTo(latest.Efficiency(), 1)
	kpis.AverageEfficiency = utils.RoundTo(avgEff, 1)
	kpis.AverageOutput = utils.RoundTo(avgOut, 1)
	kpis.OutputDelta = utils.RoundTo(latest.ActualOutput-avgOut, 1)
	kpis.MinutesSinceUpdate = utils.RoundTo(since, 1)
	kpis.StreamActive = now.Sub(latest.Timestamp) <= s.cfg.StaleAfter
	if avgEff > efficiencyTarget {
		kpis.EfficiencyStatus = EfficiencyNormal
	}
	return kpis
}

// machineTrends keeps the newest n points per machine, oldest first
func machineTrends(prod []domain.ProductionRow, n int) map[string][]domain.TrendPoint {
	trends := make(map[string][]domain.TrendPoint)
	for i := len(prod) - 1; i >= 0; i-- {
		r := prod[i]
		trends[r.MachineID] = append(trends[r.MachineID], domain.TrendPoint{
			Timestamp:    r.Timestamp,
			ActualOutput: r.ActualOutput,
		})
	}
	for id, points := range trends {
		sort.SliceStable(points, func(a, b int) bool { return points[a].Timestamp.Before(points[b].Timestamp) })
		if len(points) > n {
			points = points[len(points)-n:]
		}
		trends[id] = points
	}
	return trends
}

func productionViews(rows []domain.ProductionRow) []domain.ProductionView {
	out := make([]domain.ProductionView, len(rows))
	for i, r := range rows {
		out[i] = domain.NewProductionView(r)
	}
	return out
}

func supplierViews(rows []domain.SupplierRow) []domain.SupplierView {
	out := make([]domain.SupplierView, len(rows))
	for i, r := range rows {
		out[i] = domain.NewSupplierView(r)
	}
	return out
}

// RecentProduction returns enriched production rows, newest first
func (s *DashboardService) RecentProduction(ctx context.Context, limit int) ([]domain.ProductionView, error) {
	rows, err := s.repo.RecentProduction(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch production data: %w", err)
	}
	return productionViews(rows), nil
}

// RecentSuppliers returns enriched delivery records, newest first
func (s *DashboardService) RecentSuppliers(ctx context.Context, limit int) ([]domain.SupplierView, error) {
	rows, err := s.repo.RecentSuppliers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch supplier data: %w", err)
	}
	return supplierViews(rows), nil
}

// ScoreProductionRisk scores the given rows, or the newest risk window when rows is empty
func (s *DashboardService) ScoreProductionRisk(ctx context.Context, rows []domain.ProductionRow) (domain.RiskResult, error) {
	if len(rows) == 0 {
		var err error
		rows, err = s.repo.RecentProduction(ctx, s.cfg.RiskWindow)
		if err != nil {
			return domain.RiskResult{}, fmt.Errorf("service: failed to fetch risk window: %w", err)
		}
	}
	return s.engine.ScoreProductionRisk(ctx, rows), nil
}

// ScoreSupplierDelay scores the given rows, or the newest supplier window when rows is empty
func (s *DashboardService) ScoreSupplierDelay(ctx context.Context, rows []domain.SupplierRow) (domain.DelayResult, error) {
	if len(rows) == 0 {
		var err error
		rows, err = s.repo.RecentSuppliers(ctx, s.cfg.SupplierWindow)
		if err != nil {
			return domain.DelayResult{}, fmt.Errorf("service: failed to fetch supplier window: %w", err)
		}
	}
	return s.engine.ScoreSupplierDelay(ctx, rows), nil
}

// PredictEfficiency forecasts efficiency for one set of machine conditions
func (s *DashboardService) PredictEfficiency(ctx context.Context, req domain.EfficiencyRequest) domain.EfficiencyResult {
	return s.engine.PredictEfficiency(ctx, req)
}

// ModelInfo reports which artifacts loaded at startup
func (s *DashboardService) ModelInfo() domain.ModelInfo {
	return s.engine.ModelInfo()
}

// ModelServiceHealth checks the external model service, if any artifact uses one
func (s *DashboardService) ModelServiceHealth(ctx context.Context) string {
	return s.engine.ModelServiceHealth(ctx)
}

// Health checks the backing store
func (s *DashboardService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
