package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/convoy/internal/config"
	"github.com/roach88/convoy/internal/reporting"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	RunID    string
	Fleet    string
	Out      string
}

// ExportResult describes a written schedule.
type ExportResult struct {
	RunID         string `json:"run_id"`
	Path          string `json:"path"`
	Format        string `json:"format"`
	Routes        int    `json:"routes"`
	Deliveries    int    `json:"deliveries"`
	TotalDistance string `json:"total_distance_km"`
	TotalCost     string `json:"total_cost"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the delivery schedule of a run",
		Long: `Rebuild the routes of a stored run from its delivery ledger and write
them as a schedule, one row per delivered line.

The output format follows the --out extension: .xlsx writes a workbook
with a schedule and a summary sheet, anything else writes CSV with a
summary footer. Without --out the CSV goes to stdout. The fleet file
supplies carrier costs and depots.

Examples:
  convoy export --db ./convoy.db --fleet ./fleet.yaml
  convoy export --db ./convoy.db --fleet ./fleet.yaml --run 0190f3c2-... --out schedule.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Fleet, "fleet", "", "fleet file the run was made from (required)")
	_ = cmd.MarkFlagRequired("fleet")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (defaults to the latest run)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (.csv or .xlsx, defaults to CSV on stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	fleet, err := config.Load(opts.Fleet)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fleet", err)
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}
	if run.ConfigHash != fleet.Hash {
		slog.Warn("fleet differs from the run's configuration", "run", run.ID, "fleet", opts.Fleet)
	}

	deliveries, err := st.ReadDeliveries(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read deliveries", err)
	}

	ledger := reporting.NewLedger(fleet.Catalog, fleet.Params)
	for _, dc := range deliveries {
		if err := ledger.Record(dc); err != nil {
			return WrapExitError(ExitFailure, "corrupted delivery ledger", err)
		}
	}
	routes := ledger.Routes()
	sum := ledger.Summary()

	format := "csv"
	if strings.EqualFold(filepath.Ext(opts.Out), ".xlsx") {
		format = "xlsx"
	}

	toStdout := opts.Out == "" || opts.Out == "-"
	if toStdout && format == "csv" && opts.Format != "json" {
		if err := reporting.WriteCSV(cmd.OutOrStdout(), routes); err != nil {
			return WrapExitError(ExitCommandError, "failed to write schedule", err)
		}
		return nil
	}
	if toStdout {
		return NewExitError(ExitCommandError, "--out is required with --format json")
	}

	if err := writeSchedule(opts.Out, format, func(w io.Writer) error {
		if format == "xlsx" {
			return reporting.ExportXLSX(w, routes)
		}
		return reporting.WriteCSV(w, routes)
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to write schedule", err)
	}

	result := ExportResult{
		RunID:         run.ID,
		Path:          opts.Out,
		Format:        format,
		Routes:        sum.Routes,
		Deliveries:    sum.Deliveries,
		TotalDistance: sum.TotalDistance.StringFixed(2),
		TotalCost:     sum.TotalCost.StringFixed(2),
	}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s: %d routes, %d delivered lines, %s km, cost %s\n",
		result.Path, result.Routes, result.Deliveries, result.TotalDistance, result.TotalCost)
	return nil
}

// writeSchedule writes to a temporary file next to path and renames it into
// place, so a failed export never leaves a truncated schedule behind.
func writeSchedule(path, format string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".convoy-export-*."+format)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
