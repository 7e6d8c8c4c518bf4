package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/convoy/internal/dispatch"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/sim"
	"github.com/roach88/convoy/internal/store"
	"github.com/roach88/convoy/internal/testutil"
)

// DefaultRunID is the stored run id when a scenario does not set one.
const DefaultRunID = testutil.DefaultRunID

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database: the trace and delivery
// ledger are persisted and re-verified exactly as `convoy run` does it.
// Execution flow:
// 1. Build the fleet
// 2. Simulate it with the deterministic scheduler
// 3. Verify the stored trace and check system properties
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	fleet, err := scenario.LoadFleet()
	if err != nil {
		return nil, fmt.Errorf("failed to load fleet: %w", err)
	}

	st, err := store.Open(":memory:", store.WithLogger(slog.With("scenario", scenario.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := testutil.NewFixedGenerator(scenario.RunID).Generate()
	if err := st.BeginRun(ctx, store.Run{
		ID:         runID,
		Name:       scenario.Name,
		ConfigHash: fleet.Hash,
		Start:      fleet.Start,
		Horizon:    fleet.Horizon,
	}); err != nil {
		return nil, err
	}

	result := NewResult()
	rec := st.Recorder(ctx, runID)
	s, err := dispatch.New(fleet,
		dispatch.WithRecorder(sim.RecorderFunc(func(env message.Envelope) error {
			if err := result.AddEnvelope(env); err != nil {
				return err
			}
			return rec.Record(env)
		})),
		dispatch.WithSink(rec),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble fleet: %w", err)
	}

	res, runErr := s.Run(ctx)
	result.Run = res
	if err := st.FinishRun(ctx, runID, store.Outcome{
		End:       res.End,
		Cycles:    res.Cycles,
		Messages:  res.Messages,
		Dropped:   res.Dropped,
		Quiescent: res.Quiescent,
		Err:       runErr,
	}); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, fmt.Errorf("simulation failed: %w", runErr)
	}

	mismatches, _, err := st.VerifyRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, m := range mismatches {
		result.AddError(fmt.Sprintf("stored message %d does not match its hash", m.Seq))
	}

	deliveries, err := st.ReadDeliveries(ctx, runID)
	if err != nil {
		return nil, err
	}
	collectState(result, s, deliveries)

	for _, msg := range checkProperties(fleet, s, result.Trace) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// collectState flattens the final actor state into tables for final_state
// assertions. Measurements are rendered the way the trace renders them.
func collectState(result *Result, s *dispatch.Simulation, deliveries []message.DeliveryComplete) {
	var stores []Row
	for _, snap := range s.Stores() {
		row := Row{
			"id":          snap.StoreID,
			"phase":       string(snap.Phase),
			"round":       snap.Round,
			"outstanding": len(snap.Outstanding),
		}
		var requested, delivered, ordered int
		for _, l := range snap.Lines {
			requested += l.Requested
			delivered += l.Delivered
			ordered += l.Ordered
		}
		row["requested"], row["delivered"], row["ordered"] = requested, delivered, ordered
		stores = append(stores, row)
	}

	var carriers []Row
	for _, snap := range s.Carriers() {
		carriers = append(carriers, Row{
			"id":        snap.CarrierID,
			"load":      fixed(snap.Load),
			"busy":      snap.Busy,
			"queued":    len(snap.Queue),
			"routes":    len(snap.Routes),
			"next_free": snap.NextFree.String(),
		})
	}

	var routes []Row
	for _, r := range s.Routes() {
		routes = append(routes, Row{
			"id":             r.ID,
			"carrier_id":     r.CarrierID,
			"departure":      r.Departure.String(),
			"stops":          len(r.Stops),
			"store_sequence": storeSequence(r.Stops),
			"total_distance": fixed(r.TotalDistance),
			"total_cost":     fixed(r.TotalCost),
			"return_at":      r.ReturnAt.String(),
		})
	}

	var rows []Row
	for _, d := range deliveries {
		rows = append(rows, Row{
			"carrier_id":           d.CarrierID,
			"store_id":             d.StoreID,
			"product_id":           d.ProductID,
			"qty":                  d.Qty,
			"departure":            d.Departure.String(),
			"arrival":              d.Arrival.String(),
			"departure_from_store": d.DepartureFromStore.String(),
			"leg_distance":         fixed(d.LegDistance),
		})
	}

	result.State["stores"] = stores
	result.State["carriers"] = carriers
	result.State["routes"] = routes
	result.State["deliveries"] = rows
}

func storeSequence(stops []model.Stop) string {
	seq := ""
	for i, s := range stops {
		if i > 0 {
			seq += ","
		}
		seq += s.StoreID
	}
	return seq
}

// fixed renders a measurement with three decimals, matching trace bodies.
func fixed(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// tableNames lists the state tables in a stable order for error messages.
func tableNames(state map[string][]Row) []string {
	names := make([]string, 0, len(state))
	for k := range state {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
