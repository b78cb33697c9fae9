// Package sqlite stores the production and supplier tables in a local SQLite file.
// Timestamps are stored as unix milliseconds and delivery dates as YYYY-MM-DD text.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/millops/backend/internal/domain"
)

//go:embed schema.sql
var schema string

// Repository implements domain.DataRepository on SQLite
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path
func Open(path string) (*Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path not specified")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database %s: %w", path, err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

// Close releases the database handle
func (r *Repository) Close() error {
	return r.db.Close()
}

// Migrate creates the tables if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}
	return nil
}

// InsertProduction persists one machine observation
func (r *Repository) InsertProduction(ctx context.Context, row domain.ProductionRow) error {
	query := `
		INSERT INTO production_data (
			ts, machine_id, target_output, actual_output,
			speed_rpm, downtime_minutes, temperature_c
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		row.Timestamp.UnixMilli(), row.MachineID, row.TargetOutput, row.ActualOutput,
		row.SpeedRPM, row.DowntimeMinutes, row.TemperatureC,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save production data: %w", err)
	}
	return nil
}

// InsertSupplier persists one delivery record
func (r *Repository) InsertSupplier(ctx context.Context, row domain.SupplierRow) error {
	query := `
		INSERT INTO supplier_data (
			ts, supplier_id, material_type, expected_delivery_date, actual_delivery_date,
			order_quantity, received_quantity, price_per_kg, transportation_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		row.Timestamp.UnixMilli(), row.SupplierID, row.MaterialType,
		row.ExpectedDeliveryDate.Format(domain.DateLayout), row.ActualDeliveryDate.Format(domain.DateLayout),
		row.OrderQuantity, row.ReceivedQuantity, row.PricePerKg, row.TransportationStatus,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save supplier data: %w", err)
	}
	return nil
}

// RecentProduction retrieves the newest production rows
func (r *Repository) RecentProduction(ctx context.Context, limit int) ([]domain.ProductionRow, error) {
	query := `
		SELECT ts, machine_id, target_output, actual_output,
			   speed_rpm, downtime_minutes, temperature_c
		FROM production_data
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query production data: %w", err)
	}
	defer rows.Close()

	results := []domain.ProductionRow{}
	for rows.Next() {
		var (
			p  domain.ProductionRow
			ts int64
		)
		err := rows.Scan(
			&ts, &p.MachineID, &p.TargetOutput, &p.ActualOutput,
			&p.SpeedRPM, &p.DowntimeMinutes, &p.TemperatureC,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan production row: %w", err)
		}
		p.Timestamp = time.UnixMilli(ts).UTC()
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate production rows: %w", err)
	}
	return results, nil
}

// RecentSuppliers retrieves the newest delivery records
func (r *Repository) RecentSuppliers(ctx context.Context, limit int) ([]domain.SupplierRow, error) {
	query := `
		SELECT ts, supplier_id, material_type, expected_delivery_date, actual_delivery_date,
			   order_quantity, received_quantity, price_per_kg, transportation_status
		FROM supplier_data
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query supplier data: %w", err)
	}
	defer rows.Close()

	results := []domain.SupplierRow{}
	for rows.Next() {
		var (
			s                domain.SupplierRow
			ts               int64
			expected, actual string
		)
		err := rows.Scan(
			&ts, &s.SupplierID, &s.MaterialType, &expected, &actual,
			&s.OrderQuantity, &s.ReceivedQuantity, &s.PricePerKg, &s.TransportationStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan supplier row: %w", err)
		}
		s.Timestamp = time.UnixMilli(ts).UTC()
		if s.ExpectedDeliveryDate, err = time.Parse(domain.DateLayout, expected); err != nil {
			return nil, fmt.Errorf("sqlite: bad expected_delivery_date %q: %w", expected, err)
		}
		if s.ActualDeliveryDate, err = time.Parse(domain.DateLayout, actual); err != nil {
			return nil, fmt.Errorf("sqlite: bad actual_delivery_date %q: %w", actual, err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate supplier rows: %w", err)
	}
	return results, nil
}

// TotalOutput sums actual_output over every stored row
func (r *Repository) TotalOutput(ctx context.Context) (int64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(actual_output), 0.0) FROM production_data`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to sum output: %w", err)
	}
	return int64(math.Round(total)), nil
}

// SaveAssessment persists one scoring snapshot
func (r *Repository) SaveAssessment(ctx context.Context, a domain.Assessment) error {
	query := `
		INSERT INTO risk_assessments (
			id, created_at, risk_score, risk_level, risk_model,
			delay_probability, delay_level, delay_model,
			predicted_efficiency, production_sample_size, supplier_sample_size
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.CreatedAt.UnixMilli(), a.RiskScore, a.RiskLevel, a.RiskModel,
		a.DelayProbability, a.DelayLevel, a.DelayModel,
		a.PredictedEfficiency, a.ProductionSampleSize, a.SupplierSampleSize,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save assessment: %w", err)
	}
	return nil
}

// Health checks that the database file is reachable
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}
