package negotiation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/testutil"
)

type staticDir []string

func (d staticDir) Lookup(role message.Role) []string {
	if role == message.RoleCarrier {
		return d
	}
	return nil
}

var t0800 = model.At(8, 0, 0)

func testStore() model.Store {
	return testutil.Store("S1", 10, 0)
}

func newCoordinator(t *testing.T, carriers []string, demand ...model.Line) *Coordinator {
	t.Helper()
	if len(demand) == 0 {
		demand = testutil.Lines("P1", 10)
	}
	c, err := NewCoordinator(testStore(), demand, DefaultConfig(), staticDir(carriers))
	require.NoError(t, err)
	return c
}

func from(id string, body message.Payload) message.Envelope {
	return message.Envelope{From: id, To: "S1", Body: body}
}

func propose(round int, qty int, cost float64, dep, arr model.TimeOfDay) message.Propose {
	return message.Propose{
		StoreID:            "S1",
		Round:              round,
		Lines:              []model.Line{{ProductID: "P1", Qty: qty}},
		Cost:               cost,
		Departure:          dep,
		Arrival:            arr,
		DepartureFromStore: arr.Add(400),
	}
}

func delivery(carrier string, qty int, at model.TimeOfDay) message.DeliveryComplete {
	return message.DeliveryComplete{
		StoreID: "S1", ProductID: "P1", Qty: qty, CarrierID: carrier,
		Departure: t0800, Arrival: at, DepartureFromStore: at.Add(400),
	}
}

// only returns the single outgoing message and fails otherwise.
func only(t *testing.T, out []message.Outgoing) message.Outgoing {
	t.Helper()
	require.Len(t, out, 1)
	return out[0]
}
