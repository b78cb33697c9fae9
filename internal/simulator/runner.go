package simulator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/millops/backend/internal/domain"
)

// Runner writes generated rows to a repository on fixed intervals
type Runner struct {
	repo             domain.DataRepository
	gen              *Generator
	machineInterval  time.Duration
	supplierInterval time.Duration
	logger           *slog.Logger
}

// NewRunner creates a runner for both streams
func NewRunner(repo domain.DataRepository, gen *Generator, machineInterval, supplierInterval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		repo:             repo,
		gen:              gen,
		machineInterval:  machineInterval,
		supplierInterval: supplierInterval,
		logger:           logger,
	}
}

// Run streams both tables until ctx is cancelled. Insert failures are logged and the
// stream keeps going.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.loop(gctx, "machine", r.machineInterval, r.InsertMachine)
	})
	g.Go(func() error {
		return r.loop(gctx, "supplier", r.supplierInterval, r.InsertSupplier)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Once inserts a single row into each table
func (r *Runner) Once(ctx context.Context) error {
	return errors.Join(r.InsertMachine(ctx), r.InsertSupplier(ctx))
}

// InsertMachine generates and stores one production row
func (r *Runner) InsertMachine(ctx context.Context) error {
	row := r.gen.MachineRecord()
	if err := r.repo.InsertProduction(ctx, row); err != nil {
		return err
	}
	r.logger.Info("inserted production row",
		"machine_id", row.MachineID,
		"actual_output", row.ActualOutput,
		"temperature_c", row.TemperatureC,
		"downtime_minutes", row.DowntimeMinutes,
	)
	return nil
}

// InsertSupplier generates and stores one delivery record
func (r *Runner) InsertSupplier(ctx context.Context) error {
	row := r.gen.SupplierRecord()
	if err := r.repo.InsertSupplier(ctx, row); err != nil {
		return err
	}
	r.logger.Info("inserted supplier row",
		"supplier_id", row.SupplierID,
		"material_type", row.MaterialType,
		"status", row.TransportationStatus,
	)
	return nil
}

func (r *Runner) loop(ctx context.Context, stream string, interval time.Duration, insert func(context.Context) error) error {
	r.logger.Info("stream started", "stream", stream, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := insert(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("insert failed", "stream", stream, "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("stream stopped", "stream", stream)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
