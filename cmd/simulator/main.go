// Package main streams synthetic machine and supplier rows into the configured store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/millops/backend/internal/config"
	"github.com/millops/backend/internal/repository"
	"github.com/millops/backend/internal/simulator"
)

var (
	machineInterval  time.Duration
	supplierInterval time.Duration
	once             bool
	seed             uint64
)

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Manufacturing data simulator",
	Long: `Simulator writes live-looking production and supplier rows to the store named
by DATABASE_URL, so the dashboard and scoring endpoints have data to work on.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream rows until interrupted",
	Long: `Stream one machine observation every --machine-interval and one delivery
record every --supplier-interval until Ctrl+C.

Examples:
  simulator run
  simulator run --machine-interval 1s --supplier-interval 2s
  simulator run --once`,
	RunE: runSimulator,
}

func init() {
	runCmd.Flags().DurationVar(&machineInterval, "machine-interval", 0, "interval between machine rows (default MACHINE_INTERVAL)")
	runCmd.Flags().DurationVar(&supplierInterval, "supplier-interval", 0, "interval between supplier rows (default SUPPLIER_INTERVAL)")
	runCmd.Flags().BoolVar(&once, "once", false, "insert one row into each table and exit")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: current time)")

	rootCmd.AddCommand(runCmd)
}

func runSimulator(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.ConfigDir())
	if err != nil {
		return err
	}
	log, closeLog := config.SetupLogger(cfg.LogFile, cfg.SlogLevel())
	defer closeLog()

	if machineInterval <= 0 {
		machineInterval = cfg.MachineInterval
	}
	if supplierInterval <= 0 {
		supplierInterval = cfg.SupplierInterval
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	repo, closeRepo, err := repository.Open(openCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer closeRepo()

	runner := simulator.NewRunner(repo, simulator.NewGenerator(seed), machineInterval, supplierInterval, log)
	if once {
		return runner.Once(ctx)
	}

	log.Info("simulation running, press Ctrl+C to stop")
	if err := runner.Run(ctx); err != nil {
		return err
	}
	log.Info("simulation stopped")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
