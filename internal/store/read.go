package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `id, name, config_hash, start_at, horizon, status, COALESCE(end_at, start_at), cycles, messages, dropped, quiescent, error`

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns every run in insertion order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                   Run
		start, horizon, end int64
		status              string
		quiescent           int
	)
	if err := sc.Scan(&r.ID, &r.Name, &r.ConfigHash, &start, &horizon, &status, &end,
		&r.Cycles, &r.Messages, &r.Dropped, &quiescent, &r.Error); err != nil {
		return Run{}, err
	}
	r.Start = model.TimeOfDay(start)
	r.Horizon = model.TimeOfDay(horizon)
	r.End = model.TimeOfDay(end)
	r.Status = RunStatus(status)
	r.Quiescent = quiescent != 0
	return r, nil
}

// ReadMessages returns the run's trace ordered by seq. An empty kind
// returns every message.
// Returns an empty slice (not nil) if the run has no messages.
func (s *Store) ReadMessages(ctx context.Context, runID string, kind message.Kind) ([]message.Envelope, error) {
	query := `
		SELECT seq, sent_at, from_actor, to_actor, kind, body
		FROM messages
		WHERE run_id = ?`
	args := []any{runID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	envs := []message.Envelope{}
	for rows.Next() {
		var (
			env     message.Envelope
			sentAt  int64
			k, body string
		)
		if err := rows.Scan(&env.Seq, &sentAt, &env.From, &env.To, &k, &body); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		env.SentAt = model.TimeOfDay(sentAt)
		env.Body, err = unmarshalBody(k, body)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", env.Seq, err)
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return envs, nil
}

// ReadDeliveries returns the run's delivered lines in recording order.
// Returns an empty slice (not nil) if nothing was delivered.
func (s *Store) ReadDeliveries(ctx context.Context, runID string) ([]message.DeliveryComplete, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT carrier_id, store_id, product_id, qty, departure, arrival, departure_from_store, leg_distance, stop_x, stop_y
		FROM deliveries
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := []message.DeliveryComplete{}
	for rows.Next() {
		var (
			dc            message.DeliveryComplete
			dep, arr, dfs int64
		)
		if err := rows.Scan(&dc.CarrierID, &dc.StoreID, &dc.ProductID, &dc.Qty, &dep, &arr, &dfs,
			&dc.LegDistance, &dc.StopX, &dc.StopY); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		dc.Departure = model.TimeOfDay(dep)
		dc.Arrival = model.TimeOfDay(arr)
		dc.DepartureFromStore = model.TimeOfDay(dfs)
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}
