package domain

import (
	"context"
)

// DataRepository defines the interface for data persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type DataRepository interface {
	// InsertProduction appends one machine observation
	InsertProduction(ctx context.Context, row ProductionRow) error

	// InsertSupplier appends one delivery record
	InsertSupplier(ctx context.Context, row SupplierRow) error

	// RecentProduction returns up to limit rows, newest first
	RecentProduction(ctx context.Context, limit int) ([]ProductionRow, error)

	// RecentSuppliers returns up to limit rows, newest first
	RecentSuppliers(ctx context.Context, limit int) ([]SupplierRow, error)

	// TotalOutput sums actual_output over the whole table
	TotalOutput(ctx context.Context) (int64, error)

	// SaveAssessment persists a scoring snapshot
	SaveAssessment(ctx context.Context, a Assessment) error

	// Migrate creates the schema if it does not exist
	Migrate(ctx context.Context) error

	// Health checks database connectivity
	Health(ctx context.Context) error
}
