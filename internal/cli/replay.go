package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/convoy/internal/config"
	"github.com/roach88/convoy/internal/dispatch"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/sim"
	"github.com/roach88/convoy/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Fleet    string // optional - re-simulate and compare
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID     string  `json:"run_id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Messages  int     `json:"messages"`
	LastSeq   int64   `json:"last_seq"`
	Corrupted []int64 `json:"corrupted,omitempty"` // seqs whose hash does not match
	// Set only with --fleet.
	Resimulated   bool  `json:"resimulated"`
	Deterministic bool  `json:"deterministic"`
	DivergesAt    int64 `json:"diverges_at,omitempty"`
}

// OK reports whether the run verified cleanly.
func (r ReplayRunResult) OK() bool {
	return len(r.Corrupted) == 0 && (!r.Resimulated || r.Deterministic)
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs      []ReplayRunResult `json:"runs"`
	TotalRuns int               `json:"total_runs"`
	AllOK     bool              `json:"all_ok"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify stored traces and determinism",
		Long: `Replay stored message traces and verify them.

Every stored message is re-encoded and its content hash compared with the
hash written at run time. With --fleet the fleet is simulated again with
the deterministic scheduler and the new trace is compared message by
message with the stored one. The fleet must hash to the configuration the
run was started with. Runs made with --realtime are not reproducible.

Exit codes:
  0 - All runs verified
  1 - Corrupted trace or non-deterministic replay detected
  2 - Command error (database not found, etc.)

Examples:
  convoy replay --db ./convoy.db
  convoy replay --db ./convoy.db --run 0190f3c2-...
  convoy replay --db ./convoy.db --run 0190f3c2-... --fleet ./fleet.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().StringVar(&opts.Fleet, "fleet", "", "fleet file to re-simulate (requires --run)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Fleet != "" && opts.RunID == "" {
		return NewExitError(ExitCommandError, "--fleet requires --run")
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := resolveRun(ctx, st, opts.RunID)
		if err != nil {
			return err
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	if len(runs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{Runs: []ReplayRunResult{}, AllOK: true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	var fleet *config.Fleet
	if opts.Fleet != "" {
		fleet, err = config.Load(opts.Fleet)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load fleet", err)
		}
		if fleet.Hash != runs[0].ConfigHash {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("fleet %s does not match run %s (config hash %s, run has %s)",
					opts.Fleet, runs[0].ID, fleet.Hash, runs[0].ConfigHash))
		}
	}

	result := ReplayResult{
		Runs:      make([]ReplayRunResult, 0, len(runs)),
		TotalRuns: len(runs),
		AllOK:     true,
	}

	for _, run := range runs {
		runResult, err := replayAndVerifyRun(ctx, st, run, fleet)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.OK() {
			result.AllOK = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRun checks the stored hashes of one run and, when fleet is
// set, compares the stored trace with a fresh simulation.
func replayAndVerifyRun(ctx context.Context, st *store.Store, run store.Run, fleet *config.Fleet) (ReplayRunResult, error) {
	mismatches, last, err := st.VerifyRun(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	var stored [][]byte
	err = st.Replay(ctx, run.ID, func(env message.Envelope) error {
		b, err := message.SnapshotBytes(env)
		if err != nil {
			return err
		}
		stored = append(stored, b)
		return nil
	})
	if err != nil {
		return ReplayRunResult{}, err
	}

	res := ReplayRunResult{
		RunID:    run.ID,
		Name:     run.Name,
		Status:   string(run.Status),
		Messages: len(stored),
		LastSeq:  last,
	}
	for _, m := range mismatches {
		res.Corrupted = append(res.Corrupted, m.Seq)
	}

	if fleet == nil {
		return res, nil
	}

	fresh, err := resimulate(ctx, fleet)
	if err != nil {
		return ReplayRunResult{}, fmt.Errorf("re-simulate: %w", err)
	}
	res.Resimulated = true
	res.Deterministic = true
	n := max(len(stored), len(fresh))
	for i := range n {
		if i >= len(stored) || i >= len(fresh) || !bytes.Equal(stored[i], fresh[i]) {
			res.Deterministic = false
			res.DivergesAt = int64(i + 1)
			break
		}
	}
	return res, nil
}

// resimulate runs fleet with the deterministic scheduler and returns the
// snapshot of every routed message.
func resimulate(ctx context.Context, fleet *config.Fleet) ([][]byte, error) {
	var out [][]byte
	s, err := dispatch.New(fleet, dispatch.WithRecorder(sim.RecorderFunc(func(env message.Envelope) error {
		b, err := message.SnapshotBytes(env)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})))
	if err != nil {
		return nil, err
	}
	if _, err := s.Run(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllOK {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeCorrupted,
			Message: "replay verification failed",
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.AllOK {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.OK() {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Name)
		fmt.Fprintf(w, "  Messages: %d, status: %s\n", run.Messages, run.Status)
		if verbose {
			fmt.Fprintf(w, "  Last seq: %d\n", run.LastSeq)
		}

		if len(run.Corrupted) > 0 {
			fmt.Fprintf(w, "  Warning: %d message(s) do not match their hash: %v\n", len(run.Corrupted), run.Corrupted)
		}
		if run.Resimulated {
			if run.Deterministic {
				fmt.Fprintln(w, "  Re-simulation matches the stored trace")
			} else {
				fmt.Fprintf(w, "  Warning: re-simulation diverges at message %d\n", run.DivergesAt)
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllOK {
		fmt.Fprintln(w, "✓ All runs verified")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
