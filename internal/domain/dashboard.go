package domain

import "time"

// KPIs are the headline numbers of the dashboard
type KPIs struct {
	CurrentEfficiency  float64 `json:"current_efficiency"`
	AverageEfficiency  float64 `json:"average_efficiency"`
	AverageOutput      float64 `json:"average_output"`
	OutputDelta        float64 `json:"output_delta"`
	TotalOutput        int64   `json:"total_output_all_time"`
	EfficiencyStatus   string  `json:"efficiency_status"`
	StreamActive       bool    `json:"stream_active"`
	MinutesSinceUpdate float64 `json:"minutes_since_update"`
	ProductionRowCount int     `json:"production_row_count"`
	SupplierRowCount   int     `json:"supplier_row_count"`
}

// TrendPoint is one sample of a machine output series
type TrendPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	ActualOutput float64   `json:"actual_output"`
}

// DashboardData aggregates everything the dashboard renders
type DashboardData struct {
	KPIs           KPIs                    `json:"kpis"`
	ProductionRisk RiskResult              `json:"production_risk"`
	SupplierDelay  DelayResult             `json:"supplier_delay"`
	Efficiency     EfficiencyResult        `json:"efficiency_forecast"`
	Trends         map[string][]TrendPoint `json:"trends"`
	Production     []ProductionView        `json:"production"`
	Suppliers      []SupplierView          `json:"suppliers"`
	Models         ModelInfo               `json:"models"`
	Timestamp      time.Time               `json:"timestamp"`
}
