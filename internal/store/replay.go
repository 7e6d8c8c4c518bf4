package store

import (
	"context"
	"fmt"

	"github.com/roach88/convoy/internal/message"
)

// RunRecorder binds the store to one run. It persists the message trace
// for the bus and delivered lines for the reporter.
type RunRecorder struct {
	store *Store
	ctx   context.Context
	runID string
}

// Recorder returns a recorder writing into runID.
func (s *Store) Recorder(ctx context.Context, runID string) *RunRecorder {
	return &RunRecorder{store: s, ctx: ctx, runID: runID}
}

// Record persists one routed envelope.
func (r *RunRecorder) Record(env message.Envelope) error {
	return r.store.WriteMessage(r.ctx, r.runID, env)
}

// RecordDelivery persists one delivered line.
func (r *RunRecorder) RecordDelivery(dc message.DeliveryComplete) error {
	return r.store.WriteDelivery(r.ctx, r.runID, dc)
}

// Replay feeds the stored trace of a run to fn in seq order and stops at
// the first error.
func (s *Store) Replay(ctx context.Context, runID string, fn func(message.Envelope) error) error {
	envs, err := s.ReadMessages(ctx, runID, "")
	if err != nil {
		return fmt.Errorf("replay %s: %w", runID, err)
	}
	for _, env := range envs {
		if err := fn(env); err != nil {
			return fmt.Errorf("replay %s at seq %d: %w", runID, env.Seq, err)
		}
	}
	return nil
}

// Mismatch is a stored message whose content hash does not match its body.
type Mismatch struct {
	Seq    int64
	Stored string
	Actual string
}

// VerifyRun recomputes every message hash of a run. It returns the
// mismatches, empty when the trace is intact, and the last seq seen.
func (s *Store) VerifyRun(ctx context.Context, runID string) ([]Mismatch, int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, hash FROM messages WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, 0, fmt.Errorf("verify %s: %w", runID, err)
	}
	stored := map[int64]string{}
	for rows.Next() {
		var (
			seq  int64
			hash string
		)
		if err := rows.Scan(&seq, &hash); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("verify %s: %w", runID, err)
		}
		stored[seq] = hash
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("verify %s: %w", runID, err)
	}

	envs, err := s.ReadMessages(ctx, runID, "")
	if err != nil {
		return nil, 0, fmt.Errorf("verify %s: %w", runID, err)
	}

	var (
		bad  []Mismatch
		last int64
	)
	for _, env := range envs {
		actual, err := snapshotHash(env)
		if err != nil {
			return nil, 0, fmt.Errorf("verify %s: %w", runID, err)
		}
		if actual != stored[env.Seq] {
			bad = append(bad, Mismatch{Seq: env.Seq, Stored: stored[env.Seq], Actual: actual})
		}
		last = env.Seq
	}
	return bad, last, nil
}
