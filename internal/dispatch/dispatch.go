// Package dispatch assembles a configured fleet into a running simulation.
//
// Stores are registered first, then carriers, then the reporter, each in
// file order. With the deterministic scheduler that order is the visiting
// order, so the same fleet always produces the same trace.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/convoy/internal/carrier"
	"github.com/roach88/convoy/internal/config"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/negotiation"
	"github.com/roach88/convoy/internal/reporting"
	"github.com/roach88/convoy/internal/sim"
)

// Scheduler is what both sim.Runtime and sim.Realtime provide.
type Scheduler interface {
	Register(a sim.Actor) error
	Run(ctx context.Context) (sim.Result, error)
}

// Option configures a Simulation.
type Option func(*options)

type options struct {
	recorder sim.Recorder
	sink     reporting.Sink
	realtime bool
	speedup  float64
	interval time.Duration
}

// WithRecorder receives every routed envelope.
func WithRecorder(r sim.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithSink receives every delivery the reporter records.
func WithSink(s reporting.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithRealtime switches to the goroutine-per-actor scheduler.
func WithRealtime(speedup float64, interval time.Duration) Option {
	return func(o *options) {
		o.realtime = true
		o.speedup = speedup
		o.interval = interval
	}
}

// Simulation is one assembled fleet.
type Simulation struct {
	fleet    *config.Fleet
	bus      *sim.Bus
	sched    Scheduler
	stores   []*negotiation.Coordinator
	carriers []*carrier.Carrier
	reporter *reporting.Reporter
}

// New builds every actor of fleet and registers it.
func New(fleet *config.Fleet, opts ...Option) (*Simulation, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bus := sim.NewBus(sim.NewClock(), o.recorder)
	var sched Scheduler
	if o.realtime {
		sched = sim.NewRealtime(bus, o.speedup, o.interval, fleet.RuntimeOptions()...)
	} else {
		sched = sim.NewRuntime(bus, fleet.RuntimeOptions()...)
	}

	s := &Simulation{fleet: fleet, bus: bus, sched: sched}

	for _, st := range fleet.Stores {
		c, err := negotiation.NewCoordinator(st, fleet.Demand[st.ID], fleet.Negotiation, bus)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", st.ID, err)
		}
		if err := sched.Register(c); err != nil {
			return nil, fmt.Errorf("register store %s: %w", st.ID, err)
		}
		s.stores = append(s.stores, c)
	}

	for _, spec := range fleet.Carriers {
		c, err := carrier.New(spec, fleet.Catalog, fleet.Params)
		if err != nil {
			return nil, fmt.Errorf("carrier %s: %w", spec.ID, err)
		}
		if err := sched.Register(c); err != nil {
			return nil, fmt.Errorf("register carrier %s: %w", spec.ID, err)
		}
		s.carriers = append(s.carriers, c)
	}

	s.reporter = reporting.NewReporter(reporting.DefaultID, reporting.NewLedger(fleet.Catalog, fleet.Params), o.sink)
	if err := sched.Register(s.reporter); err != nil {
		return nil, fmt.Errorf("register reporter: %w", err)
	}

	slog.Debug("fleet assembled", "fleet", fleet.Name, "stores", len(s.stores), "carriers", len(s.carriers))
	return s, nil
}

// Run drives the simulation to quiescence or the horizon. It must be called
// at most once.
func (s *Simulation) Run(ctx context.Context) (sim.Result, error) {
	defer s.bus.Close()
	res, err := s.sched.Run(ctx)
	if err != nil {
		return res, err
	}
	slog.Info("simulation finished",
		"fleet", s.fleet.Name, "end", res.End, "cycles", res.Cycles,
		"messages", res.Messages, "dropped", res.Dropped, "quiescent", res.Quiescent)
	return res, nil
}

// Fleet returns the configuration the simulation was built from.
func (s *Simulation) Fleet() *config.Fleet { return s.fleet }

// Stores returns the final state of every store, in file order.
func (s *Simulation) Stores() []negotiation.Snapshot {
	out := make([]negotiation.Snapshot, len(s.stores))
	for i, c := range s.stores {
		out[i] = c.Snapshot()
	}
	return out
}

// Carriers returns the final state of every carrier, in file order.
func (s *Simulation) Carriers() []carrier.Snapshot {
	out := make([]carrier.Snapshot, len(s.carriers))
	for i, c := range s.carriers {
		out[i] = c.Snapshot()
	}
	return out
}

// Routes returns the routes reconstructed by the reporter.
func (s *Simulation) Routes() []model.Route {
	return s.reporter.Ledger().Routes()
}

// Summary returns the reporter's totals.
func (s *Simulation) Summary() reporting.Summary {
	return s.reporter.Ledger().Summary()
}
