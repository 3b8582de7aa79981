package sched

import (
	"container/heap"
	"context"
	"time"

	"vedad/pkg/types"
)

// task is one opaque unit of work: created by a caller, consumed exactly
// once by the drain loop.
type task struct {
	id       string
	workload types.WorkloadID
	priority types.Priority
	enqueued time.Time
	seq      uint64
	fn       func(context.Context) error
	result   chan types.TaskResult
	index    int // heap index, -1 once popped or removed
}

// taskQueue orders tasks priority-first, enqueue-order second (FIFO within
// a tier). There is no aging: only one task is ever in flight, so
// starvation prevention is not modeled.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

var _ heap.Interface = (*taskQueue)(nil)
