package domain

import (
	"time"

	"github.com/google/uuid"
)

// Production risk levels
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
	RiskUnknown  = "Unknown"
)

// Supplier delay risk levels
const (
	DelayLowRisk  = "LOW RISK"
	DelayModerate = "MODERATE"
	DelayHighRisk = "HIGH RISK"
)

// RiskResult is the production downtime risk of a batch
type RiskResult struct {
	RiskScore           float64           `json:"risk_score"`
	RiskLevel           string            `json:"risk_level"`
	ContributingFactors map[string]string `json:"contributing_factors"`
	ModelUsed           string            `json:"model_used,omitempty"`
}

// DelayResult is the supplier delay risk of a batch
type DelayResult struct {
	DelayProbability  float64           `json:"delay_probability"`
	RiskLevel         string            `json:"risk_level"`
	SupplierBreakdown map[string]string `json:"supplier_breakdown"`
	ModelUsed         string            `json:"model_used,omitempty"`
}

// EfficiencyResult is a single efficiency forecast
type EfficiencyResult struct {
	PredictedEfficiency float64 `json:"predicted_efficiency"`
	ModelUsed           string  `json:"model_used"`
}

// EfficiencyRequest carries the machine conditions for an efficiency forecast
type EfficiencyRequest struct {
	SpeedRPM        float64 `json:"speed_rpm"`
	DowntimeMinutes float64 `json:"downtime_minutes"`
	TemperatureC    float64 `json:"temperature_c"`
	TargetOutput    float64 `json:"target_output"`
}

// ModelStatus describes one loaded predictor
type ModelStatus struct {
	Loaded bool   `json:"loaded"`
	Type   string `json:"type"`
}

// ModelInfo summarises which artifacts were loaded at startup
type ModelInfo struct {
	ModelsLoaded        bool        `json:"models_loaded"`
	ProductionRiskModel ModelStatus `json:"production_risk_model"`
	SupplierDelayModel  ModelStatus `json:"supplier_delay_model"`
	EfficiencyModel     ModelStatus `json:"efficiency_model"`
	EncodersLoaded      []string    `json:"encoders_loaded"`
}

// Assessment is one persisted snapshot of the scoring results
type Assessment struct {
	ID                   uuid.UUID `json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	RiskScore            float64   `json:"risk_score"`
	RiskLevel            string    `json:"risk_level"`
	RiskModel            string    `json:"risk_model"`
	DelayProbability     float64   `json:"delay_probability"`
	DelayLevel           string    `json:"delay_level"`
	DelayModel           string    `json:"delay_model"`
	PredictedEfficiency  float64   `json:"predicted_efficiency"`
	ProductionSampleSize int       `json:"production_sample_size"`
	SupplierSampleSize   int       `json:"supplier_sample_size"`
}

// NewAssessment stamps a fresh assessment from the three scoring results
func NewAssessment(risk RiskResult, delay DelayResult, eff EfficiencyResult, prodN, supN int) Assessment {
	return Assessment{
		ID:                   uuid.New(),
		CreatedAt:            time.Now().UTC(),
		RiskScore:            risk.RiskScore,
		RiskLevel:            risk.RiskLevel,
		RiskModel:            risk.ModelUsed,
		DelayProbability:     delay.DelayProbability,
		DelayLevel:           delay.RiskLevel,
		DelayModel:           delay.ModelUsed,
		PredictedEfficiency:  eff.PredictedEfficiency,
		ProductionSampleSize: prodN,
		SupplierSampleSize:   supN,
	}
}
