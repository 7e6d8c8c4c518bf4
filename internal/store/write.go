package store

import (
	"context"
	"fmt"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one stored simulation.
type Run struct {
	ID         string
	Name       string
	ConfigHash string
	Start      model.TimeOfDay
	Horizon    model.TimeOfDay
	Status     RunStatus
	End        model.TimeOfDay
	Cycles     int
	Messages   int64
	Dropped    int64
	Quiescent  bool
	Error      string
}

// Outcome is what a finished run reports back.
type Outcome struct {
	End       model.TimeOfDay
	Cycles    int
	Messages  int64
	Dropped   int64
	Quiescent bool
	Err       error
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("begin run: missing id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, config_hash, start_at, horizon, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Name, r.ConfigHash, int64(r.Start), int64(r.Horizon), string(StatusRunning))
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun records the outcome. A non-nil Err marks the run failed.
func (s *Store) FinishRun(ctx context.Context, id string, o Outcome) error {
	status, msg := StatusCompleted, ""
	if o.Err != nil {
		status, msg = StatusFailed, o.Err.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, end_at = ?, cycles = ?, messages = ?, dropped = ?, quiescent = ?, error = ?
		WHERE id = ?
	`, string(status), int64(o.End), o.Cycles, o.Messages, o.Dropped, boolInt(o.Quiescent), msg, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteMessage appends one routed envelope.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a seq is ignored.
func (s *Store) WriteMessage(ctx context.Context, runID string, env message.Envelope) error {
	if env.Body == nil {
		return fmt.Errorf("write message %d: missing body", env.Seq)
	}
	body, err := marshalBody(env.Body)
	if err != nil {
		return fmt.Errorf("write message %d: %w", env.Seq, err)
	}
	hash, err := snapshotHash(env)
	if err != nil {
		return fmt.Errorf("write message %d: %w", env.Seq, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (run_id, seq, sent_at, from_actor, to_actor, kind, body, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, env.Seq, int64(env.SentAt), env.From, env.To, string(env.Kind()), body, hash)
	if err != nil {
		return fmt.Errorf("write message %d: %w", env.Seq, err)
	}
	return nil
}

// WriteDelivery appends one delivered line to the run's ledger.
func (s *Store) WriteDelivery(ctx context.Context, runID string, dc message.DeliveryComplete) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries
		(run_id, carrier_id, store_id, product_id, qty, departure, arrival, departure_from_store, leg_distance, stop_x, stop_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		dc.CarrierID,
		dc.StoreID,
		dc.ProductID,
		dc.Qty,
		int64(dc.Departure),
		int64(dc.Arrival),
		int64(dc.DepartureFromStore),
		dc.LegDistance,
		dc.StopX,
		dc.StopY,
	)
	if err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}
	return nil
}
