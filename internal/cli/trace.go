package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Kind     string // optional - filter to one message kind
	Actor    string // optional - filter to messages sent or received by an actor
}

// TraceEvent represents a single message in the trace timeline.
type TraceEvent struct {
	Seq    int64          `json:"seq"`
	SentAt string         `json:"sent_at"`
	From   string         `json:"from"`
	To     string         `json:"to"`
	Kind   string         `json:"kind"`
	Body   map[string]any `json:"body"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string         `json:"run_id"`
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Timeline []TraceEvent   `json:"timeline"`
	Stats    map[string]int `json:"stats"` // messages per kind
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the message trace of a run",
		Long: `Print the messages of a stored run in the order they were routed.

Without --run the most recent run is shown. The timeline can be narrowed
to one message kind or to the messages one actor sent or received.

Examples:
  convoy trace --db ./convoy.db
  convoy trace --db ./convoy.db --run 0190f3c2-... --kind PROPOSE
  convoy trace --db ./convoy.db --actor T1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (defaults to the latest run)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one message kind")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "filter to messages from or to an actor")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	kind := message.Kind(strings.ToUpper(opts.Kind))
	if kind != "" && !slices.Contains(message.Kinds, kind) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown message kind %q: must be one of %v", opts.Kind, message.Kinds))
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

	envs, err := st.ReadMessages(ctx, run.ID, kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read messages", err)
	}

	timeline, err := buildTimeline(envs, opts.Actor)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build timeline", err)
	}

	result := TraceResult{
		RunID:    run.ID,
		Name:     run.Name,
		Status:   string(run.Status),
		Timeline: timeline,
		Stats:    make(map[string]int),
	}
	for _, ev := range timeline {
		result.Stats[ev.Kind]++
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTimeline converts stored envelopes to trace events. When actor is
// set only messages it sent or received are kept.
func buildTimeline(envs []message.Envelope, actor string) ([]TraceEvent, error) {
	timeline := []TraceEvent{}
	for _, env := range envs {
		if actor != "" && env.From != actor && env.To != actor {
			continue
		}
		snap, err := message.Snapshot(env)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", env.Seq, err)
		}
		body, _ := snap["body"].(map[string]any)
		timeline = append(timeline, TraceEvent{
			Seq:    env.Seq,
			SentAt: env.SentAt.String(),
			From:   env.From,
			To:     env.To,
			Kind:   string(env.Kind()),
			Body:   body,
		})
	}
	return timeline, nil
}

// outputTraceText outputs the trace as one line per message.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run %s (%s, %s)\n\n", result.RunID, result.Name, result.Status)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No messages found.")
		return nil
	}

	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "[%d] %s %-17s %s -> %s", ev.Seq, ev.SentAt, ev.Kind, ev.From, ev.To)
		if verbose {
			fmt.Fprintf(w, " %s", formatBody(ev.Body))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	kinds := make([]string, 0, len(result.Stats))
	for k := range result.Stats {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, result.Stats[k])
	}
	fmt.Fprintf(w, "%d message(s): %s\n", len(result.Timeline), strings.Join(parts, " "))
	return nil
}

func formatBody(body map[string]any) string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, body[k])
	}
	return strings.Join(parts, " ")
}

// openExisting opens a database that must already exist. store.Open would
// otherwise create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// resolveRun returns the named run, or the latest one when id is empty.
func resolveRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	var (
		run store.Run
		err error
	)
	if id == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, id)
	}
	switch {
	case errors.Is(err, store.ErrNotFound) && id == "":
		return store.Run{}, NewExitError(ExitCommandError, "no runs in database")
	case errors.Is(err, store.ErrNotFound):
		return store.Run{}, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	case err != nil:
		return store.Run{}, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}
