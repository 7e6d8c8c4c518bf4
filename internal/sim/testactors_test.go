package sim

import (
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// pinger sends one CFP to peer at each wake time.
type pinger struct {
	id, peer string
	wakes    []model.TimeOfDay
	round    int
	replies  []message.Envelope
}

func (p *pinger) ID() string         { return p.id }
func (p *pinger) Role() message.Role { return message.RoleStore }

func (p *pinger) Start(model.TimeOfDay) []message.Outgoing { return nil }

func (p *pinger) Handle(_ model.TimeOfDay, env message.Envelope) []message.Outgoing {
	p.replies = append(p.replies, env)
	return nil
}

func (p *pinger) Tick(now model.TimeOfDay) []message.Outgoing {
	var out []message.Outgoing
	for len(p.wakes) > 0 && !p.wakes[0].After(now) {
		p.wakes = p.wakes[1:]
		p.round++
		out = append(out, message.To(p.peer, message.CFP{
			StoreID: p.id,
			Round:   p.round,
			Lines:   []model.Line{{ProductID: "P1", Qty: 1}},
		}))
	}
	return out
}

func (p *pinger) NextWake() (model.TimeOfDay, bool) {
	if len(p.wakes) == 0 {
		return 0, false
	}
	return p.wakes[0], true
}

// echoer answers every CFP with a REFUSE. With loop set it also answers
// every REFUSE, which never settles.
type echoer struct {
	id    string
	loop  bool
	seen  []model.TimeOfDay
	peers []string
}

func (e *echoer) ID() string         { return e.id }
func (e *echoer) Role() message.Role { return message.RoleCarrier }

func (e *echoer) Start(model.TimeOfDay) []message.Outgoing { return nil }

func (e *echoer) Handle(now model.TimeOfDay, env message.Envelope) []message.Outgoing {
	e.seen = append(e.seen, now)
	e.peers = append(e.peers, env.From)
	switch body := env.Body.(type) {
	case message.CFP:
		return []message.Outgoing{message.To(env.From, message.Refuse{StoreID: body.StoreID, Round: body.Round, Reason: message.RefuseBusy})}
	case message.Refuse:
		if e.loop {
			return []message.Outgoing{message.To(env.From, body)}
		}
	}
	return nil
}

func (e *echoer) Tick(model.TimeOfDay) []message.Outgoing { return nil }

func (e *echoer) NextWake() (model.TimeOfDay, bool) { return 0, false }
