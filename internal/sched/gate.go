package sched

import (
	"context"
	"sync"

	"vedad/pkg/types"
)

// Gate is a single-slot intake for camera-style producers: an arriving
// item is discarded when the previously offered one has not been consumed
// by the drain loop yet. It bounds queue growth without ever blocking the
// producer. Drop frames, never queue.
type Gate struct {
	mu       sync.Mutex
	sched    *Scheduler
	workload types.WorkloadID
	priority types.Priority
	lastID   string
	dropped  uint64
}

func NewGate(s *Scheduler, w types.WorkloadID, p types.Priority) *Gate {
	return &Gate{sched: s, workload: w, priority: p}
}

// Offer submits fn unless the previous offer is still waiting in the
// queue, in which case fn is dropped and Offer returns false.
func (g *Gate) Offer(fn func(context.Context) error) (string, <-chan types.TaskResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastID != "" && g.sched.pending(g.lastID) {
		g.dropped++
		return "", nil, false
	}
	id, res, err := g.sched.Schedule(g.workload, g.priority, fn)
	if err != nil {
		g.dropped++
		return "", nil, false
	}
	g.lastID = id
	return id, res, true
}

// Dropped returns how many offers were discarded.
func (g *Gate) Dropped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}
