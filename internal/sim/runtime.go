package sim

import (
	"context"
	"log/slog"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// DefaultHorizon ends every run at the last second of the day.
const DefaultHorizon = model.EndOfDay

// Result summarizes a finished run.
type Result struct {
	Start     model.TimeOfDay
	End       model.TimeOfDay
	Cycles    int
	Messages  int64
	Dropped   int64
	Quiescent bool // false when the horizon cut the run short
}

type entry struct {
	actor Actor
	box   *Mailbox
}

// Runtime is the deterministic discrete-event scheduler.
//
// CRITICAL: actors are visited in registration order and mailboxes are
// FIFO; with the same actors and inputs Run produces the same trace.
type Runtime struct {
	bus       *Bus
	entries   []entry
	start     model.TimeOfDay
	horizon   model.TimeOfDay
	maxCycles int
	now       model.TimeOfDay
}

// Option configures a Runtime or a Realtime scheduler.
type Option func(*options)

type options struct {
	start     model.TimeOfDay
	horizon   model.TimeOfDay
	maxCycles int
}

// WithStart sets the simulated start time.
func WithStart(t model.TimeOfDay) Option {
	return func(o *options) { o.start = t }
}

// WithHorizon sets the simulated time at which the run stops.
func WithHorizon(t model.TimeOfDay) Option {
	return func(o *options) { o.horizon = t }
}

// WithMaxCyclesPerInstant sets the livelock quota.
func WithMaxCyclesPerInstant(n int) Option {
	return func(o *options) { o.maxCycles = n }
}

func buildOptions(opts []Option) options {
	o := options{horizon: DefaultHorizon, maxCycles: DefaultMaxCyclesPerInstant}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRuntime creates a deterministic scheduler routing through bus.
func NewRuntime(bus *Bus, opts ...Option) *Runtime {
	o := buildOptions(opts)
	return &Runtime{
		bus:       bus,
		start:     o.start,
		horizon:   o.horizon,
		maxCycles: o.maxCycles,
		now:       o.start,
	}
}

// Register adds an actor. Registration order is scheduling order.
func (r *Runtime) Register(a Actor) error {
	box, err := r.bus.Register(a.ID(), a.Role())
	if err != nil {
		return err
	}
	r.entries = append(r.entries, entry{actor: a, box: box})
	return nil
}

// Now returns the current virtual time.
func (r *Runtime) Now() model.TimeOfDay {
	return r.now
}

// Run drives actors until quiescence, the horizon, ctx cancellation or a
// runtime error.
func (r *Runtime) Run(ctx context.Context) (Result, error) {
	res := Result{Start: r.start}
	slog.Info("simulation starting", "actors", len(r.entries), "start", r.start, "horizon", r.horizon)

	r.now = r.start
	for _, e := range r.entries {
		if err := r.send(e.actor.ID(), e.actor.Start(r.now)); err != nil {
			return r.finish(res), err
		}
	}

	quota := NewQuotaEnforcer(r.maxCycles)
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation stopping: context cancelled", "at", r.now)
			return r.finish(res), err
		}

		progressed, err := r.cycle()
		res.Cycles++
		if err != nil {
			return r.finish(res), err
		}

		if !progressed {
			next, ok := r.nextWake()
			if !ok {
				res.Quiescent = true
				slog.Info("simulation quiescent", "at", r.now, "cycles", res.Cycles)
				return r.finish(res), nil
			}
			if next.After(r.now) {
				if next.After(r.horizon) {
					r.now = r.horizon
					slog.Info("simulation reached horizon", "at", r.now, "next_wake", next)
					return r.finish(res), nil
				}
				r.now = next
				quota.Reset()
				continue
			}
		}

		if err := quota.Check(r.now); err != nil {
			slog.Error("simulation livelocked", "at", r.now, "error", err)
			return r.finish(res), err
		}
	}
}

// cycle delivers every queued envelope and ticks every actor once.
func (r *Runtime) cycle() (bool, error) {
	progressed := false
	for _, e := range r.entries {
		for {
			env, ok := e.box.TryDequeue()
			if !ok {
				break
			}
			progressed = true
			if err := r.send(e.actor.ID(), e.actor.Handle(r.now, env)); err != nil {
				return progressed, err
			}
		}

		out := e.actor.Tick(r.now)
		if len(out) > 0 {
			progressed = true
		}
		if err := r.send(e.actor.ID(), out); err != nil {
			return progressed, err
		}
	}
	return progressed || r.bus.Pending() > 0, nil
}

func (r *Runtime) send(from string, out []message.Outgoing) error {
	if err := r.bus.Send(from, r.now, out); err != nil {
		return &RuntimeError{Code: ErrCodeRecorder, Message: err.Error(), ActorID: from}
	}
	return nil
}

// nextWake is the earliest wake over all actors.
func (r *Runtime) nextWake() (model.TimeOfDay, bool) {
	var best model.TimeOfDay
	found := false
	for _, e := range r.entries {
		at, ok := e.actor.NextWake()
		if !ok {
			continue
		}
		if !found || at.Before(best) {
			best = at
			found = true
		}
	}
	return best, found
}

func (r *Runtime) finish(res Result) Result {
	res.End = r.now
	res.Messages = r.bus.Delivered()
	res.Dropped = r.bus.Dropped()
	return res
}
