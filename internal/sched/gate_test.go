package sched

import (
	"context"
	"testing"

	"vedad/pkg/types"
)

func TestGateDropsNewestUnderBackpressure(t *testing.T) {
	s := New(Config{Clock: newFakeClock()})
	g := NewGate(s, types.WorkloadVision, types.PriorityNormal)
	nop := func(context.Context) error { return nil }

	if _, _, ok := g.Offer(nop); !ok {
		t.Fatalf("first offer must be accepted")
	}
	// Previous frame not consumed yet: the arriving one is discarded.
	if _, _, ok := g.Offer(nop); ok {
		t.Fatalf("second offer must be dropped while the first is queued")
	}
	if g.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", g.Dropped())
	}

	// Drain the pending frame; the gate accepts again.
	tk := s.next()
	if tk == nil {
		t.Fatalf("expected queued frame")
	}
	s.execute(context.Background(), tk)
	if _, _, ok := g.Offer(nop); !ok {
		t.Fatalf("offer after drain must be accepted")
	}
}
