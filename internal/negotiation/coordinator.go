package negotiation

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// Phase is the coordinator state.
type Phase string

const (
	PhaseNoOrder    Phase = "NO_ORDER"
	PhaseCollecting Phase = "COLLECTING"
	PhaseCommitted  Phase = "COMMITTED"
	PhaseFulfilled  Phase = "FULFILLED"
)

// Defaults for Config.
const (
	DefaultCollectionWindow = 60  // seconds
	DefaultRetryInterval    = 300 // seconds
)

// Config tunes the auction. RetryInterval must exceed CollectionWindow so
// rounds never overlap.
type Config struct {
	CollectionWindow int64
	RetryInterval    int64
	Weights          feasibility.Weights
}

// DefaultConfig returns the reference auction settings.
func DefaultConfig() Config {
	return Config{
		CollectionWindow: DefaultCollectionWindow,
		RetryInterval:    DefaultRetryInterval,
		Weights: feasibility.Weights{
			Cost: feasibility.DefaultCostWeight,
			Time: feasibility.DefaultTimeWeight,
		},
	}
}

// Validate checks the retry/window relation.
func (c Config) Validate() error {
	if c.CollectionWindow <= 0 {
		return fmt.Errorf("collection window must be positive, got %ds", c.CollectionWindow)
	}
	if c.RetryInterval <= c.CollectionWindow {
		return fmt.Errorf("retry interval (%ds) must be longer than the collection window (%ds)",
			c.RetryInterval, c.CollectionWindow)
	}
	return nil
}

// Directory resolves the carriers a CFP reaches.
type Directory interface {
	Lookup(role message.Role) []string
}

// bid is one proposal of the open round.
type bid struct {
	carrierID string
	lines     []model.Line
	cost      float64
	departure model.TimeOfDay
	arrival   model.TimeOfDay
	latency   int64
}

// Coordinator is the per-store negotiation actor.
type Coordinator struct {
	store  model.Store
	cfg    Config
	dir    Directory
	ledger *Ledger
	log    *slog.Logger

	phase Phase
	round int

	// open round
	roundOpen  bool
	cfpAt      model.TimeOfDay
	deadline   model.TimeOfDay
	roundLines map[string]int
	invited    []string
	answered   map[string]bool
	bids       []bid

	retryPending bool
	retryAt      model.TimeOfDay

	// rounds that ended in an ACCEPT
	acceptedRounds map[int]bool

	// carrier -> product -> units promised and not yet delivered
	commitments map[string]map[string]int
}

// NewCoordinator creates the actor for store with the given demand.
func NewCoordinator(store model.Store, demand []model.Line, cfg Config, dir Directory) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("store %s: %w", store.ID, err)
	}
	ledger, err := NewLedger(store.ID, demand)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		store:       store,
		cfg:         cfg,
		dir:         dir,
		ledger:      ledger,
		log:         slog.Default().With("store", store.ID),
		phase:          PhaseNoOrder,
		commitments:    make(map[string]map[string]int),
		acceptedRounds: make(map[int]bool),
	}, nil
}

func (c *Coordinator) ID() string         { return c.store.ID }
func (c *Coordinator) Role() message.Role { return message.RoleStore }

// Phase returns the current state.
func (c *Coordinator) Phase() Phase { return c.phase }

// Round returns the number of CFP rounds opened so far.
func (c *Coordinator) Round() int { return c.round }

// Ledger exposes the demand ledger for inspection.
func (c *Coordinator) Ledger() *Ledger { return c.ledger }

// Outstanding returns the undelivered promised units per carrier.
func (c *Coordinator) Outstanding() map[string]int {
	out := make(map[string]int, len(c.commitments))
	for carrier, lines := range c.commitments {
		n := 0
		for _, q := range lines {
			n += q
		}
		out[carrier] = n
	}
	return out
}

// Start opens the first round when there is anything to order.
func (c *Coordinator) Start(now model.TimeOfDay) []message.Outgoing {
	if c.ledger.RemainingQty() == 0 {
		c.log.Info("no demand, staying idle")
		return nil
	}
	return c.openRound(now)
}

// Handle dispatches one message.
func (c *Coordinator) Handle(now model.TimeOfDay, env message.Envelope) []message.Outgoing {
	if err := env.Body.Validate(); err != nil {
		c.log.Warn("dropping invalid message", "from", env.From, "kind", env.Kind(), "error", err)
		return nil
	}

	var out []message.Outgoing
	switch m := env.Body.(type) {
	case message.Propose:
		out = c.onPropose(now, env.From, m)
	case message.Refuse:
		out = c.onRefuse(now, env.From, m)
	case message.DeliveryComplete:
		out = c.onDelivery(now, env.From, m)
	case message.ScheduleChanged:
		out = c.onScheduleChanged(now, m)
	default:
		c.log.Debug("ignoring message", "from", env.From, "kind", env.Kind())
	}

	c.checkInvariants()
	return out
}

// Tick closes due rounds and fires retries.
func (c *Coordinator) Tick(now model.TimeOfDay) []message.Outgoing {
	if c.roundOpen && !now.Before(c.deadline) {
		return c.decide(now)
	}
	if c.retryPending && !now.Before(c.retryAt) {
		c.retryPending = false
		if c.phase != PhaseCollecting {
			return nil
		}
		if c.ledger.RemainingQty() == 0 {
			return c.settleIdle(now)
		}
		return c.openRound(now)
	}
	return nil
}

// NextWake is the round deadline or the retry time.
func (c *Coordinator) NextWake() (model.TimeOfDay, bool) {
	switch {
	case c.roundOpen:
		return c.deadline, true
	case c.retryPending:
		return c.retryAt, true
	}
	return 0, false
}

// openRound broadcasts a CFP for the remaining quantity.
func (c *Coordinator) openRound(now model.TimeOfDay) []message.Outgoing {
	c.retryPending = false
	c.phase = PhaseCollecting

	if now.After(c.store.Window.End) {
		c.log.Info("store window closed, no further auctions",
			"at", now, "window_end", c.store.Window.End, "remaining", c.ledger.RemainingQty())
		return nil
	}

	lines := c.ledger.Remaining()
	if len(lines) == 0 {
		return nil
	}

	invited := c.dir.Lookup(message.RoleCarrier)
	if len(invited) == 0 {
		c.log.Warn("no carriers registered, retrying later")
		c.scheduleRetry(now)
		return nil
	}

	c.round++
	c.roundOpen = true
	c.cfpAt = now
	c.deadline = now.Add(c.cfg.CollectionWindow)
	c.invited = invited
	c.answered = make(map[string]bool, len(invited))
	c.bids = nil
	c.roundLines = make(map[string]int, len(lines))
	for _, l := range lines {
		c.roundLines[l.ProductID] = l.Qty
	}

	c.log.Info("cfp", "round", c.round, "lines", len(lines), "qty", model.TotalQty(lines), "deadline", c.deadline)
	return []message.Outgoing{
		message.Broadcast(message.RoleCarrier, message.CFP{StoreID: c.store.ID, Round: c.round, Lines: lines}),
	}
}

func (c *Coordinator) scheduleRetry(now model.TimeOfDay) {
	c.retryPending = true
	c.retryAt = now.Add(c.cfg.RetryInterval)
}

func (c *Coordinator) reject(to string, round int, reason message.RejectReason) message.Outgoing {
	return message.To(to, message.Reject{StoreID: c.store.ID, Round: round, Reason: reason})
}

func (c *Coordinator) onPropose(now model.TimeOfDay, from string, m message.Propose) []message.Outgoing {
	switch {
	case m.StoreID != c.store.ID:
		return []message.Outgoing{c.reject(from, m.Round, message.RejectInvalidOffer)}
	case c.phase == PhaseFulfilled:
		return []message.Outgoing{c.reject(from, m.Round, message.RejectAllDelivered)}
	case !c.roundOpen || m.Round != c.round:
		reason := message.RejectInvalidOffer
		if c.acceptedRounds[m.Round] {
			reason = message.RejectAlreadyAccepted
		}
		c.log.Info("stale proposal", "from", from, "round", m.Round, "current", c.round, "reason", reason)
		return []message.Outgoing{c.reject(from, m.Round, reason)}
	}

	c.answered[from] = true
	for _, l := range m.Lines {
		if asked, ok := c.roundLines[l.ProductID]; !ok || l.Qty > asked {
			c.log.Warn("invalid offer", "from", from, "product", l.ProductID, "qty", l.Qty)
			return c.maybeClose(now, c.reject(from, m.Round, message.RejectInvalidOffer))
		}
	}
	if slices.ContainsFunc(c.bids, func(b bid) bool { return b.carrierID == from }) {
		c.log.Debug("duplicate proposal ignored", "from", from, "round", m.Round)
		return nil
	}

	c.bids = append(c.bids, bid{
		carrierID: from,
		lines:     model.CloneLines(m.Lines),
		cost:      m.Cost,
		departure: m.Departure,
		arrival:   m.Arrival,
		latency:   m.Arrival.Sub(c.cfpAt),
	})
	c.log.Debug("bid", "from", from, "round", m.Round, "cost", m.Cost, "arrival", m.Arrival)
	return c.maybeClose(now)
}

// maybeClose decides early once every invited carrier answered.
func (c *Coordinator) maybeClose(now model.TimeOfDay, pending ...message.Outgoing) []message.Outgoing {
	if !c.roundOpen {
		return pending
	}
	for _, id := range c.invited {
		if !c.answered[id] {
			return pending
		}
	}
	return append(pending, c.decide(now)...)
}

func (c *Coordinator) onRefuse(now model.TimeOfDay, from string, m message.Refuse) []message.Outgoing {
	if m.Handback() {
		return c.onHandback(now, from, m)
	}
	if !c.roundOpen || m.Round != c.round {
		return nil
	}
	c.log.Debug("refused", "from", from, "round", m.Round, "reason", m.Reason)
	c.answered[from] = true
	return c.maybeClose(now)
}

// onHandback cancels (part of) a commitment the carrier can no longer serve.
func (c *Coordinator) onHandback(now model.TimeOfDay, from string, m message.Refuse) []message.Outgoing {
	owed := c.commitments[from]
	if len(owed) == 0 {
		c.log.Debug("handback without commitment", "from", from)
		return nil
	}
	released := 0
	for _, l := range m.Lines {
		n := c.ledger.Release(l.ProductID, min(l.Qty, owed[l.ProductID]))
		owed[l.ProductID] -= n
		if owed[l.ProductID] == 0 {
			delete(owed, l.ProductID)
		}
		released += n
	}
	if len(owed) == 0 {
		delete(c.commitments, from)
	}
	c.log.Info("order handed back", "carrier", from, "reason", m.Reason, "released", released)
	return c.afterSettlement(now)
}

func (c *Coordinator) onDelivery(now model.TimeOfDay, from string, m message.DeliveryComplete) []message.Outgoing {
	if m.StoreID != c.store.ID {
		c.log.Warn("delivery for another store", "from", from, "target", m.StoreID)
		return nil
	}
	if _, ok := c.ledger.Line(m.ProductID); !ok {
		c.log.Warn("delivery of unrequested product", "carrier", m.CarrierID, "product", m.ProductID, "qty", m.Qty)
		return nil
	}

	owed := c.commitments[m.CarrierID]
	promised := owed[m.ProductID]
	credited := c.ledger.Deliver(m.ProductID, m.Qty, promised)

	fromOrder := min(m.Qty, promised)
	if owed != nil {
		owed[m.ProductID] -= fromOrder
		if owed[m.ProductID] <= 0 {
			delete(owed, m.ProductID)
		}
		if len(owed) == 0 {
			delete(c.commitments, m.CarrierID)
		}
	}
	if credited < m.Qty {
		c.log.Warn("over-delivery not credited", "carrier", m.CarrierID, "product", m.ProductID,
			"qty", m.Qty, "credited", credited)
	}

	line, _ := c.ledger.Line(m.ProductID)
	c.log.Info("delivered", "carrier", m.CarrierID, "product", m.ProductID, "qty", m.Qty,
		"delivered", line.Delivered, "requested", line.Requested, "at", now)
	return c.afterSettlement(now)
}

// afterSettlement moves on once nothing is outstanding.
func (c *Coordinator) afterSettlement(now model.TimeOfDay) []message.Outgoing {
	if len(c.commitments) > 0 || c.roundOpen {
		return nil
	}
	if c.ledger.AllDelivered() {
		if c.phase != PhaseFulfilled {
			c.phase = PhaseFulfilled
			c.retryPending = false
			c.log.Info("fulfilled", "rounds", c.round, "at", now)
		}
		return nil
	}
	if c.phase == PhaseCommitted {
		c.log.Info("shortfall, reopening bidding", "remaining", c.ledger.RemainingQty())
		return c.openRound(now)
	}
	return nil
}

// settleIdle handles a closed round with nothing left to ask for. Open
// commitments keep the store COMMITTED so a later handback reopens bidding.
func (c *Coordinator) settleIdle(now model.TimeOfDay) []message.Outgoing {
	if len(c.commitments) > 0 {
		c.phase = PhaseCommitted
	}
	return c.afterSettlement(now)
}

// onScheduleChanged prunes the sender's bid when its departure predates the
// sender's new next-free time. It recomputes from current state, so a
// duplicate notice changes nothing.
func (c *Coordinator) onScheduleChanged(now model.TimeOfDay, m message.ScheduleChanged) []message.Outgoing {
	if !c.roundOpen || len(c.bids) == 0 {
		return nil
	}
	kept := slices.DeleteFunc(slices.Clone(c.bids), func(b bid) bool {
		return b.carrierID == m.CarrierID && b.departure.Before(m.NextFree)
	})
	if len(kept) == len(c.bids) {
		return nil
	}
	c.log.Info("stale bid pruned", "carrier", m.CarrierID, "next_free", m.NextFree, "round", c.round)
	c.bids = kept
	if len(kept) > 0 {
		return nil
	}

	c.log.Info("bid pool emptied, restarting round", "round", c.round)
	c.roundOpen = false
	return c.openRound(now)
}

// decide scores the round and commits to the best bid.
func (c *Coordinator) decide(now model.TimeOfDay) []message.Outgoing {
	c.roundOpen = false

	if len(c.bids) == 0 {
		if c.ledger.RemainingQty() == 0 {
			// Unpromised deliveries covered the demand while the round was open.
			return c.settleIdle(now)
		}
		c.scheduleRetry(now)
		c.log.Info("no bids", "round", c.round, "retry_at", c.retryAt)
		return nil
	}

	cands := make([]feasibility.Candidate, len(c.bids))
	for i, b := range c.bids {
		cands[i] = feasibility.Candidate{Cost: b.cost, Time: float64(b.latency)}
	}
	best := c.cfg.Weights.Best(cands)
	winner := c.bids[best]

	var out []message.Outgoing
	for i, b := range c.bids {
		if i != best {
			out = append(out, c.reject(b.carrierID, c.round, message.RejectCheaperOfferSelected))
		}
	}

	// Clip to what is still unpromised; a stale delivery may have shrunk it.
	var accepted []model.Line
	for _, l := range winner.lines {
		line, _ := c.ledger.Line(l.ProductID)
		qty := min(l.Qty, line.Remaining())
		if qty <= 0 {
			continue
		}
		if err := c.ledger.Order(l.ProductID, qty); err != nil {
			c.log.Error("order failed", "error", err)
			continue
		}
		accepted = append(accepted, model.Line{ProductID: l.ProductID, Qty: qty})
	}
	if len(accepted) == 0 {
		out = append(out, c.reject(winner.carrierID, c.round, message.RejectAlreadyAccepted))
		c.bids = nil
		return append(out, c.afterSettlement(now)...)
	}

	owed := c.commitments[winner.carrierID]
	if owed == nil {
		owed = make(map[string]int, len(accepted))
		c.commitments[winner.carrierID] = owed
	}
	for _, l := range accepted {
		owed[l.ProductID] += l.Qty
	}
	c.phase = PhaseCommitted
	c.bids = nil
	c.acceptedRounds[c.round] = true

	c.log.Info("accepted", "carrier", winner.carrierID, "round", c.round, "qty", model.TotalQty(accepted),
		"cost", winner.cost, "arrival", winner.arrival, "rejected", len(out))
	accept := message.To(winner.carrierID, message.Accept{StoreID: c.store.ID, Round: c.round, Lines: accepted})
	return append([]message.Outgoing{accept}, out...)
}

func (c *Coordinator) checkInvariants() {
	if err := c.ledger.Check(); err != nil {
		c.log.Error("ledger invariant violated", "error", err)
	}
}

// Snapshot is a read-only view for assertions and reports.
type Snapshot struct {
	StoreID     string
	Phase       Phase
	Round       int
	Lines       []model.DemandLine
	Outstanding map[string]int
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	return Snapshot{
		StoreID:     c.store.ID,
		Phase:       c.phase,
		Round:       c.round,
		Lines:       c.ledger.Lines(),
		Outstanding: c.Outstanding(),
	}
}
