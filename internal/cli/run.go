package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/convoy/internal/config"
	"github.com/roach88/convoy/internal/dispatch"
	"github.com/roach88/convoy/internal/sim"
	"github.com/roach88/convoy/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Name     string
	Realtime bool
	Speedup  float64
	Tick     time.Duration

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs sim.IDGenerator
}

// RunSummary is what a finished run reports.
type RunSummary struct {
	RunID         string `json:"run_id"`
	Fleet         string `json:"fleet"`
	ConfigHash    string `json:"config_hash"`
	End           string `json:"end"`
	Cycles        int    `json:"cycles"`
	Messages      int64  `json:"messages"`
	Dropped       int64  `json:"dropped"`
	Quiescent     bool   `json:"quiescent"`
	Routes        int    `json:"routes"`
	Deliveries    int    `json:"deliveries"`
	TotalDistance string `json:"total_distance_km"`
	TotalCost     string `json:"total_cost"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <fleet-file>",
		Short: "Simulate a fleet and persist the trace",
		Long: `Simulate the stores and carriers of a fleet file until every store is
settled, nothing is left to do, or the horizon is reached.

Every routed message and every delivered line is written to the SQLite
database (created if it doesn't exist) under a new run id, so the run can
later be traced, verified and exported.

By default the simulation uses the deterministic discrete-event scheduler.
With --realtime every actor runs in its own goroutine and simulated time
advances with the wall clock times --speedup.

Example:
  convoy run --db ./convoy.db ./fleet.yaml
  convoy run --db ./convoy.db --realtime --speedup 600 ./fleet.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run name (defaults to the fleet name)")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "use the goroutine-per-actor scheduler")
	cmd.Flags().Float64Var(&opts.Speedup, "speedup", 60, "simulated seconds per wall second (with --realtime)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", sim.DefaultTickInterval, "actor tick interval (with --realtime)")

	return cmd
}

func runSimulation(opts *RunOptions, fleetFile string, cmd *cobra.Command) error {
	if opts.Realtime && opts.Speedup <= 0 {
		return NewExitError(ExitCommandError, "--speedup must be positive")
	}

	slog.Info("loading fleet", "path", fleetFile)
	fleet, err := config.Load(fleetFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fleet", err)
	}
	slog.Info("fleet loaded", "fleet", fleet.Name, "stores", len(fleet.Stores), "carriers", len(fleet.Carriers))

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	ids := opts.RunIDs
	if ids == nil {
		ids = sim.UUIDv7Generator{}
	}
	runID := ids.Generate()
	name := opts.Name
	if name == "" {
		name = fleet.Name
	}
	if err := st.BeginRun(parentCtx, store.Run{
		ID:         runID,
		Name:       name,
		ConfigHash: fleet.Hash,
		Start:      fleet.Start,
		Horizon:    fleet.Horizon,
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}

	// Writes use the parent context so a signal stops the simulation
	// without losing the messages already routed.
	rec := st.Recorder(parentCtx, runID)
	simOpts := []dispatch.Option{dispatch.WithRecorder(rec), dispatch.WithSink(rec)}
	if opts.Realtime {
		simOpts = append(simOpts, dispatch.WithRealtime(opts.Speedup, opts.Tick))
	}
	s, err := dispatch.New(fleet, simOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to assemble fleet", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("simulation starting", "run", runID, "realtime", opts.Realtime)
	res, runErr := s.Run(ctx)

	if err := st.FinishRun(parentCtx, runID, store.Outcome{
		End:       res.End,
		Cycles:    res.Cycles,
		Messages:  res.Messages,
		Dropped:   res.Dropped,
		Quiescent: res.Quiescent,
		Err:       runErr,
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to record outcome", err)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			slog.Info("simulation interrupted", "run", runID, "at", res.End)
			return NewExitError(ExitFailure, fmt.Sprintf("run %s interrupted at %s", runID, res.End))
		}
		formatter := newFormatter(opts.RootOptions, cmd)
		if opts.Format == "json" {
			if err := formatter.Error(ErrCodeSimulation, runErr.Error(), map[string]string{"run_id": runID}); err != nil {
				return err
			}
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("run %s failed", runID), runErr)
	}

	sum := s.Summary()
	summary := RunSummary{
		RunID:         runID,
		Fleet:         fleet.Name,
		ConfigHash:    fleet.Hash,
		End:           res.End.String(),
		Cycles:        res.Cycles,
		Messages:      res.Messages,
		Dropped:       res.Dropped,
		Quiescent:     res.Quiescent,
		Routes:        sum.Routes,
		Deliveries:    sum.Deliveries,
		TotalDistance: sum.TotalDistance.StringFixed(2),
		TotalCost:     sum.TotalCost.StringFixed(2),
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summary, RunID: runID})
	}
	return outputRunText(cmd, summary, s)
}

func outputRunText(cmd *cobra.Command, sum RunSummary, s *dispatch.Simulation) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run %s (%s)\n", sum.RunID, sum.Fleet)
	fmt.Fprintf(w, "  Ended at %s after %d cycles, %d messages", sum.End, sum.Cycles, sum.Messages)
	if sum.Dropped > 0 {
		fmt.Fprintf(w, ", %d dropped", sum.Dropped)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	for _, snap := range s.Stores() {
		mark, delivered, requested := "✓", 0, 0
		for _, l := range snap.Lines {
			delivered += l.Delivered
			requested += l.Requested
			if !l.Settled() {
				mark = "✗"
			}
		}
		fmt.Fprintf(w, "%s %s %s (round %d, delivered %d/%d)\n", mark, snap.StoreID, snap.Phase, snap.Round, delivered, requested)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Routes: %d, delivered lines: %d\n", sum.Routes, sum.Deliveries)
	fmt.Fprintf(w, "Total distance: %s km, total cost: %s\n", sum.TotalDistance, sum.TotalCost)
	if !sum.Quiescent {
		fmt.Fprintln(w, "Warning: horizon reached before the fleet settled")
	}
	return nil
}
