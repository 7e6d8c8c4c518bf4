package carrier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/convoy/internal/feasibility"
	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
	"github.com/roach88/convoy/internal/testutil"
)

var (
	t0800 = model.At(8, 0, 0)
	lines = testutil.Lines
)

func testCatalog() *model.Catalog {
	early := testutil.Store("S3", 10, 0)
	early.Window = model.Window{Start: model.At(7, 0, 0), End: model.At(8, 5, 0)}
	return model.NewCatalog(
		[]model.Product{testutil.Product("P1", 1), testutil.Product("P2", 5)},
		[]model.Store{testutil.Store("S1", 10, 0), testutil.Store("S2", 20, 0), early},
		nil,
	)
}

func testSpec() model.Carrier {
	return testutil.Carrier("T1", 100, 1)
}

func newCarrier(t *testing.T, mutate ...func(*model.Carrier)) *Carrier {
	t.Helper()
	spec := testSpec()
	for _, m := range mutate {
		m(&spec)
	}
	c, err := New(spec, testCatalog(), feasibility.DefaultParams())
	require.NoError(t, err)
	c.Start(t0800)
	return c
}

func env(from string, body message.Payload) message.Envelope {
	return message.Envelope{From: from, To: "T1", Body: body}
}

func cfp(store string, l ...model.Line) message.Envelope {
	return env(store, message.CFP{StoreID: store, Round: 1, Lines: l})
}

func accept(store string, l ...model.Line) message.Envelope {
	return env(store, message.Accept{StoreID: store, Round: 1, Lines: l})
}

func only(t *testing.T, out []message.Outgoing) message.Outgoing {
	t.Helper()
	require.Len(t, out, 1)
	return out[0]
}

func refusal(t *testing.T, out message.Outgoing) message.Refuse {
	t.Helper()
	r, ok := out.Body.(message.Refuse)
	require.True(t, ok, "want REFUSE, got %s", out.Body.Kind())
	return r
}
