package domain

import (
	"math"
	"time"
)

// Transportation status values
const (
	TransportInTransit = "in-transit"
	TransportDelayed   = "delayed"
	TransportArrived   = "arrived"
)

// DateLayout is the wire format of delivery dates
const DateLayout = "2006-01-02"

// SupplierRow is one delivery record from the supplier_data table
type SupplierRow struct {
	Timestamp            time.Time `json:"timestamp"`
	SupplierID           string    `json:"supplier_id"`
	MaterialType         string    `json:"material_type"`
	ExpectedDeliveryDate time.Time `json:"expected_delivery_date"`
	ActualDeliveryDate   time.Time `json:"actual_delivery_date"`
	OrderQuantity        float64   `json:"order_quantity"`
	ReceivedQuantity     float64   `json:"received_quantity"`
	PricePerKg           float64   `json:"price_per_kg"`
	TransportationStatus string    `json:"transportation_status"`
}

// DelayDays returns actual minus expected delivery in whole days, floored; negative means early
func (r SupplierRow) DelayDays() int {
	return int(math.Floor(r.ActualDeliveryDate.Sub(r.ExpectedDeliveryDate).Hours() / 24))
}

// IsDelayed reports whether the shipment is flagged as delayed in transit
func (r SupplierRow) IsDelayed() bool {
	return r.TransportationStatus == TransportDelayed
}

// Supply risk labels
const (
	SupplyHighRisk     = "High Risk"
	SupplyModerateRisk = "Moderate Risk"
	SupplyOnTime       = "On Time"
)

// SupplyRisk buckets the row by delivery delay
func (r SupplierRow) SupplyRisk() string {
	d := r.DelayDays()
	switch {
	case d > 2:
		return SupplyHighRisk
	case d > 0:
		return SupplyModerateRisk
	default:
		return SupplyOnTime
	}
}

// SupplierView is a SupplierRow enriched with derived metrics for display
type SupplierView struct {
	SupplierRow
	DelayDays  int    `json:"delay_days"`
	SupplyRisk string `json:"supply_risk"`
}

// NewSupplierView derives the display fields of a row
func NewSupplierView(r SupplierRow) SupplierView {
	return SupplierView{
		SupplierRow: r,
		DelayDays:   r.DelayDays(),
		SupplyRisk:  r.SupplyRisk(),
	}
}
