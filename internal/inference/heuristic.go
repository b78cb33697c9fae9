package inference

import (
	"fmt"
	"math"

	"github.com/millops/backend/internal/domain"
	"github.com/millops/backend/pkg/utils"
)

// Labels reported in model_used
const (
	LabelHeuristic          = "Heuristic Fallback"
	LabelEfficiencyFallback = "Fallback"
)

// FallbackEfficiency is returned when the efficiency regressor cannot be used
const FallbackEfficiency = 85.0

// ProductionRiskLevel buckets a production risk score
func ProductionRiskLevel(score float64) string {
	switch {
	case score > 70:
		return domain.RiskCritical
	case score > 50:
		return domain.RiskHigh
	case score > 30:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// SupplierRiskLevel buckets a supplier delay probability
func SupplierRiskLevel(probability float64) string {
	switch {
	case probability > 60:
		return domain.DelayHighRisk
	case probability > 40:
		return domain.DelayModerate
	default:
		return domain.DelayLowRisk
	}
}

func emptyRisk() domain.RiskResult {
	return domain.RiskResult{
		RiskScore:           0,
		RiskLevel:           domain.RiskUnknown,
		ContributingFactors: map[string]string{},
	}
}

func emptyDelay() domain.DelayResult {
	return domain.DelayResult{
		DelayProbability:  0,
		RiskLevel:         domain.RiskUnknown,
		SupplierBreakdown: map[string]string{},
	}
}

// HeuristicProductionRisk scores a batch from its temperature and downtime means
func HeuristicProductionRisk(rows []domain.ProductionRow) domain.RiskResult {
	if len(rows) == 0 {
		return emptyRisk()
	}

	avgTemp := utils.MeanOf(rows, func(r domain.ProductionRow) float64 { return r.TemperatureC })
	avgDowntime := utils.MeanOf(rows, func(r domain.ProductionRow) float64 { return r.DowntimeMinutes })

	score := 20.0
	if avgTemp > 35 {
		score += (avgTemp - 35) * 3
	}
	if avgDowntime > 1.5 {
		score += avgDowntime * 10
	}
	score = utils.RoundTo(utils.Clamp(score, 0, 99), 1)

	return domain.RiskResult{
		RiskScore:           score,
		RiskLevel:           ProductionRiskLevel(score),
		ContributingFactors: HeuristicFactors(rows),
		ModelUsed:           LabelHeuristic,
	}
}

// HeuristicFactors explains a production batch without a model
func HeuristicFactors(rows []domain.ProductionRow) map[string]string {
	if len(rows) == 0 {
		return map[string]string{}
	}
	avgTemp := utils.MeanOf(rows, func(r domain.ProductionRow) float64 { return r.TemperatureC })
	avgEff := utils.MeanOf(rows, domain.ProductionRow.Efficiency)
	avgDowntime := utils.MeanOf(rows, func(r domain.ProductionRow) float64 { return r.DowntimeMinutes })

	return map[string]string{
		"Temperature Impact": fmt.Sprintf("%.1f°C above normal", math.Max(0, avgTemp-32)),
		"Efficiency Drop":    fmt.Sprintf("%.1f%% below target", math.Max(0, 90-avgEff)),
		"Downtime Factor":    fmt.Sprintf("%.2f min avg", avgDowntime),
	}
}

// HeuristicSupplierDelay uses the share of shipments flagged as delayed
func HeuristicSupplierDelay(rows []domain.SupplierRow) domain.DelayResult {
	if len(rows) == 0 {
		return emptyDelay()
	}

	delayed := 0
	for _, r := range rows {
		if r.IsDelayed() {
			delayed++
		}
	}
	p := utils.RoundTo(float64(delayed)/float64(len(rows))*100, 1)

	return domain.DelayResult{
		DelayProbability:  p,
		RiskLevel:         SupplierRiskLevel(p),
		SupplierBreakdown: map[string]string{},
		ModelUsed:         LabelHeuristic,
	}
}
