package domain

import "time"

// ProductionRow is one machine observation from the production_data table
type ProductionRow struct {
	Timestamp       time.Time `json:"timestamp"`
	MachineID       string    `json:"machine_id"`
	TargetOutput    float64   `json:"target_output"`
	ActualOutput    float64   `json:"actual_output"`
	SpeedRPM        float64   `json:"speed_rpm"`
	DowntimeMinutes float64   `json:"downtime_minutes"`
	TemperatureC    float64   `json:"temperature_c"`
}

// Efficiency returns actual/target as a percentage. A zero target yields 0.
func (r ProductionRow) Efficiency() float64 {
	if r.TargetOutput == 0 {
		return 0
	}
	return r.ActualOutput / r.TargetOutput * 100
}

// OutputGap returns the units missing from the target
func (r ProductionRow) OutputGap() float64 {
	return r.TargetOutput - r.ActualOutput
}

// Production row status labels
const (
	StatusCritical = "Critical"
	StatusWarning  = "Warning"
	StatusNormal   = "Normal"
)

// Status buckets the row by efficiency
func (r ProductionRow) Status() string {
	eff := r.Efficiency()
	switch {
	case eff < 75:
		return StatusCritical
	case eff < 90:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// ProductionView is a ProductionRow enriched with derived metrics for display
type ProductionView struct {
	ProductionRow
	Efficiency float64 `json:"efficiency"`
	OutputGap  float64 `json:"output_gap"`
	Status     string  `json:"status"`
}

// NewProductionView derives the display fields of a row
func NewProductionView(r ProductionRow) ProductionView {
	return ProductionView{
		ProductionRow: r,
		Efficiency:    r.Efficiency(),
		OutputGap:     r.OutputGap(),
		Status:        r.Status(),
	}
}
