package carrier

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// weightEpsilon absorbs float rounding in capacity comparisons.
const weightEpsilon = 1e-9

// Catalog is the reference data a carrier needs.
type Catalog interface {
	Stores
	UnitWeight(productID string) (float64, bool)
}

// offer is an outstanding PROPOSE.
type offer struct {
	round     int
	lines     []model.Line
	departure model.TimeOfDay
}

// PeerView is the last notice received from another carrier. It is
// replaced, never accumulated, so duplicate notices are harmless.
type PeerView struct {
	AcceptedStoreID string
	Weight          float64
	Qty             int
}

// Carrier is the per-truck actor.
type Carrier struct {
	spec    model.Carrier
	catalog Catalog
	params  feasibility.Params
	log     *slog.Logger

	load     float64
	pos      model.Position
	nextFree model.TimeOfDay
	busy     bool

	queue    []*model.QueuedOrder
	keys     map[string]bool // orders queued or en route
	offers   map[string]offer
	peers    map[string]PeerView
	needPlan bool

	route    *activeRoute
	routeSeq int
	routes   []model.Route
}

// New creates a carrier parked at its depot.
func New(spec model.Carrier, catalog Catalog, params feasibility.Params) (*Carrier, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("carrier: missing id")
	}
	if spec.Capacity <= 0 {
		return nil, fmt.Errorf("carrier %s: capacity must be positive, got %v", spec.ID, spec.Capacity)
	}
	if !spec.Availability.Valid() {
		return nil, fmt.Errorf("carrier %s: invalid availability %s", spec.ID, spec.Availability)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("carrier %s: %w", spec.ID, err)
	}
	return &Carrier{
		spec:    spec,
		catalog: catalog,
		params:  params,
		log:     slog.Default().With("carrier", spec.ID),
		pos:     spec.Depot,
		keys:    make(map[string]bool),
		offers:  make(map[string]offer),
		peers:   make(map[string]PeerView),
	}, nil
}

func (c *Carrier) ID() string         { return c.spec.ID }
func (c *Carrier) Role() message.Role { return message.RoleCarrier }

// Start records the initial state. Carriers only react to stores.
func (c *Carrier) Start(now model.TimeOfDay) []message.Outgoing {
	c.nextFree = now
	c.log.Debug("ready", "capacity", c.spec.Capacity, "depot", c.spec.Depot, "availability", c.spec.Availability)
	return nil
}

// Handle dispatches one message.
func (c *Carrier) Handle(now model.TimeOfDay, env message.Envelope) []message.Outgoing {
	if err := env.Body.Validate(); err != nil {
		c.log.Warn("dropping invalid message", "from", env.From, "kind", env.Kind(), "error", err)
		return nil
	}

	var out []message.Outgoing
	switch m := env.Body.(type) {
	case message.CFP:
		out = []message.Outgoing{c.onCFP(now, env.From, m)}
	case message.Accept:
		out = c.onAccept(now, env.From, m)
	case message.Reject:
		c.onReject(env.From, m)
	case message.ScheduleUpdated:
		c.onScheduleUpdated(m)
	default:
		c.log.Debug("ignoring message", "from", env.From, "kind", env.Kind())
	}

	c.checkInvariants()
	return out
}

// Tick advances the active route and plans a new one when idle.
func (c *Carrier) Tick(now model.TimeOfDay) []message.Outgoing {
	var out []message.Outgoing
	if c.route != nil {
		out = append(out, c.advance(now)...)
	}
	if c.route == nil && c.needPlan {
		out = append(out, c.plan(now)...)
		if c.route != nil {
			out = append(out, c.advance(now)...)
		}
	}
	c.checkInvariants()
	return out
}

// NextWake is when the current stop (or the route) completes.
func (c *Carrier) NextWake() (model.TimeOfDay, bool) {
	if c.route != nil && c.route.leg != nil {
		return c.route.leg.DepartureFromStore, true
	}
	return 0, false
}

func (c *Carrier) recomputeLoad() {
	load := 0.0
	for _, o := range c.queue {
		load += o.TotalWeight
	}
	if c.route != nil {
		for _, s := range c.route.plan.Stops[c.route.idx:] {
			load += s.Order.TotalWeight
		}
	}
	c.load = load
}

func (c *Carrier) checkInvariants() {
	if c.load > c.spec.Capacity+weightEpsilon {
		c.log.Error("load exceeds capacity", "load", c.load, "capacity", c.spec.Capacity)
	}
	if c.load != 0 && len(c.queue) == 0 && c.route == nil {
		c.log.Error("load without orders", "load", c.load)
	}
}

// Snapshot is a read-only view for assertions.
type Snapshot struct {
	CarrierID string
	Load      float64
	Capacity  float64
	Busy      bool
	Position  model.Position
	NextFree  model.TimeOfDay
	Queue     []model.QueuedOrder
	Offers    []string
	Peers     map[string]PeerView
	Routes    []model.Route
}

// Snapshot returns the current state.
func (c *Carrier) Snapshot() Snapshot {
	s := Snapshot{
		CarrierID: c.spec.ID,
		Load:      c.load,
		Capacity:  c.spec.Capacity,
		Busy:      c.busy,
		Position:  c.pos,
		NextFree:  c.nextFree,
		Peers:     make(map[string]PeerView, len(c.peers)),
		Routes:    slices.Clone(c.routes),
	}
	for _, o := range c.queue {
		q := *o
		q.Lines = model.CloneLines(o.Lines)
		s.Queue = append(s.Queue, q)
	}
	for id := range c.offers {
		s.Offers = append(s.Offers, id)
	}
	slices.Sort(s.Offers)
	for id, v := range c.peers {
		s.Peers[id] = v
	}
	return s
}

// Routes returns the executed routes.
func (c *Carrier) Routes() []model.Route {
	return slices.Clone(c.routes)
}
