package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/convoy/internal/model"
)

// DefaultTickInterval is how often a realtime actor re-checks its deadlines
// when no message arrives.
const DefaultTickInterval = 100 * time.Millisecond

// errStop ends the errgroup without reporting a failure.
var errStop = errors.New("simulation stopped")

// Realtime runs each actor in its own goroutine against a wall clock.
type Realtime struct {
	bus      *Bus
	entries  []entry
	idle     []*atomic.Bool
	start    model.TimeOfDay
	horizon  model.TimeOfDay
	speedup  float64
	interval time.Duration
}

// NewRealtime creates a goroutine-per-actor scheduler. One wall second is
// speedup simulated seconds.
func NewRealtime(bus *Bus, speedup float64, interval time.Duration, opts ...Option) *Realtime {
	o := buildOptions(opts)
	if speedup <= 0 {
		speedup = 1
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Realtime{
		bus:      bus,
		start:    o.start,
		horizon:  o.horizon,
		speedup:  speedup,
		interval: interval,
	}
}

// Register adds an actor.
func (r *Realtime) Register(a Actor) error {
	box, err := r.bus.Register(a.ID(), a.Role())
	if err != nil {
		return err
	}
	r.entries = append(r.entries, entry{actor: a, box: box})
	r.idle = append(r.idle, &atomic.Bool{})
	return nil
}

// Run blocks until the horizon, quiescence, ctx cancellation or an error.
func (r *Realtime) Run(ctx context.Context) (Result, error) {
	epoch := time.Now()
	now := func() model.TimeOfDay {
		return r.start.Add(int64(time.Since(epoch).Seconds() * r.speedup))
	}

	slog.Info("realtime simulation starting", "actors", len(r.entries), "speedup", r.speedup)

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range r.entries {
		g.Go(func() error {
			return r.loop(gctx, e, r.idle[i], now)
		})
	}
	g.Go(func() error {
		return r.watch(gctx, now)
	})

	err := g.Wait()
	r.bus.Close()

	res := Result{
		Start:    r.start,
		End:      model.MinTime(now(), r.horizon),
		Messages: r.bus.Delivered(),
		Dropped:  r.bus.Dropped(),
	}
	switch {
	case errors.Is(err, errStop):
		res.Quiescent = res.End.Before(r.horizon)
		return res, nil
	case err != nil && ctx.Err() == nil:
		return res, err
	}
	return res, ctx.Err()
}

// loop is one actor's select loop: drain, tick, wait.
func (r *Realtime) loop(ctx context.Context, e entry, idle *atomic.Bool, now func() model.TimeOfDay) error {
	id := e.actor.ID()
	if err := r.bus.Send(id, now(), e.actor.Start(now())); err != nil {
		return &RuntimeError{Code: ErrCodeRecorder, Message: err.Error(), ActorID: id}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			env, ok := e.box.TryDequeue()
			if !ok {
				break
			}
			if err := r.bus.Send(id, now(), e.actor.Handle(now(), env)); err != nil {
				return &RuntimeError{Code: ErrCodeRecorder, Message: err.Error(), ActorID: id}
			}
		}
		t := now()
		if err := r.bus.Send(id, t, e.actor.Tick(t)); err != nil {
			return &RuntimeError{Code: ErrCodeRecorder, Message: err.Error(), ActorID: id}
		}

		_, hasWake := e.actor.NextWake()
		idle.Store(!hasWake && e.box.Len() == 0)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.box.Wait():
		case <-ticker.C:
		}
	}
}

// watch stops the run at the horizon, or once every actor stayed idle for
// a full tick with no message routed in between.
func (r *Realtime) watch(ctx context.Context, now func() model.TimeOfDay) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	last := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if now().After(r.horizon) {
			slog.Info("realtime simulation reached horizon", "at", r.horizon)
			return errStop
		}

		delivered := r.bus.Delivered()
		if delivered == last && r.allIdle() {
			slog.Info("realtime simulation quiescent", "at", now(), "messages", delivered)
			return errStop
		}
		last = delivered
	}
}

func (r *Realtime) allIdle() bool {
	for _, b := range r.idle {
		if !b.Load() {
			return false
		}
	}
	return r.bus.Pending() == 0
}
