package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/convoy/internal/message"
	"github.com/roach88/convoy/internal/model"
)

// createTestStore creates a new on-disk store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestRun inserts a run with fixed bounds.
func beginTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.BeginRun(context.Background(), Run{
		ID:      id,
		Name:    "test",
		Start:   model.At(8, 0, 0),
		Horizon: model.EndOfDay,
	})
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
}

func testEnvelope(seq int64, body message.Payload) message.Envelope {
	return message.Envelope{Seq: seq, From: "S1", To: "T1", SentAt: model.At(8, 0, 0), Body: body}
}

func testCFP() message.CFP {
	return message.CFP{StoreID: "S1", Round: 1, Lines: []model.Line{{ProductID: "P1", Qty: 10}}}
}

func testDelivery() message.DeliveryComplete {
	return message.DeliveryComplete{
		StoreID: "S1", ProductID: "P1", Qty: 10, CarrierID: "T1",
		Departure: model.At(8, 0, 0), Arrival: model.At(8, 12, 0), DepartureFromStore: model.At(8, 18, 40),
		LegDistance: 10, StopX: 10,
	}
}
