package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/millops/backend/internal/domain"
)

//go:embed schema.sql
var schema string

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the tables if they do not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to apply schema: %w", err)
	}
	return nil
}

// InsertProduction persists one machine observation
func (r *PostgresRepository) InsertProduction(ctx context.Context, row domain.ProductionRow) error {
	query := `
		INSERT INTO production_data (
			timestamp, machine_id, target_output, actual_output,
			speed_rpm, downtime_minutes, temperature_c
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		row.Timestamp, row.MachineID, row.TargetOutput, row.ActualOutput,
		row.SpeedRPM, row.DowntimeMinutes, row.TemperatureC,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save production data: %w", err)
	}

	return nil
}

// InsertSupplier persists one delivery record
func (r *PostgresRepository) InsertSupplier(ctx context.Context, row domain.SupplierRow) error {
	query := `
		INSERT INTO supplier_data (
			timestamp, supplier_id, material_type, expected_delivery_date, actual_delivery_date,
			order_quantity, received_quantity, price_per_kg, transportation_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		row.Timestamp, row.SupplierID, row.MaterialType, row.ExpectedDeliveryDate, row.ActualDeliveryDate,
		row.OrderQuantity, row.ReceivedQuantity, row.PricePerKg, row.TransportationStatus,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save supplier data: %w", err)
	}

	return nil
}

// RecentProduction retrieves the newest production rows
func (r *PostgresRepository) RecentProduction(ctx context.Context, limit int) ([]domain.ProductionRow, error) {
	query := `
		SELECT timestamp, machine_id, target_output, actual_output,
			   speed_rpm, downtime_minutes, temperature_c
		FROM production_data
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query production data: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProductionRow, error) {
		var p domain.ProductionRow
		err := row.Scan(
			&p.Timestamp, &p.MachineID, &p.TargetOutput, &p.ActualOutput,
			&p.SpeedRPM, &p.DowntimeMinutes, &p.TemperatureC,
		)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan production row: %w", err)
	}

	return results, nil
}

// RecentSuppliers retrieves the newest delivery records
func (r *PostgresRepository) RecentSuppliers(ctx context.Context, limit int) ([]domain.SupplierRow, error) {
	query := `
		SELECT timestamp, supplier_id, material_type, expected_delivery_date, actual_delivery_date,
			   order_quantity, received_quantity, price_per_kg, transportation_status
		FROM supplier_data
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query supplier data: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SupplierRow, error) {
		var s domain.SupplierRow
		err := row.Scan(
			&s.Timestamp, &s.SupplierID, &s.MaterialType, &s.ExpectedDeliveryDate, &s.ActualDeliveryDate,
			&s.OrderQuantity, &s.ReceivedQuantity, &s.PricePerKg, &s.TransportationStatus,
		)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan supplier row: %w", err)
	}

	return results, nil
}

// TotalOutput sums actual_output over every stored row
func (r *PostgresRepository) TotalOutput(ctx context.Context) (int64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(actual_output), 0) FROM production_data`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to sum output: %w", err)
	}
	return int64(math.Round(total)), nil
}

// SaveAssessment persists one scoring snapshot
func (r *PostgresRepository) SaveAssessment(ctx context.Context, a domain.Assessment) error {
	query := `
		INSERT INTO risk_assessments (
			id, created_at, risk_score, risk_level, risk_model,
			delay_probability, delay_level, delay_model,
			predicted_efficiency, production_sample_size, supplier_sample_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.CreatedAt, a.RiskScore, a.RiskLevel, a.RiskModel,
		a.DelayProbability, a.DelayLevel, a.DelayModel,
		a.PredictedEfficiency, a.ProductionSampleSize, a.SupplierSampleSize,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save assessment: %w", err)
	}

	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
