package sched

// schedClosedError signals a submission after the scheduler shut down.
type schedClosedError struct{}

func (schedClosedError) Error() string { return "scheduler closed" }

// IsClosed reports whether err indicates the scheduler no longer accepts
// work.
func IsClosed(err error) bool {
	_, ok := err.(schedClosedError)
	return ok
}

// taskNotFoundError signals a cancel for an id that is neither queued nor
// in flight.
type taskNotFoundError struct{ id string }

func (e taskNotFoundError) Error() string { return "task not found: " + e.id }

// IsTaskNotFound reports whether err indicates an unknown task id.
func IsTaskNotFound(err error) bool {
	_, ok := err.(taskNotFoundError)
	return ok
}

// invalidBudgetError signals a rejected budget; the prior budget stays
// active.
type invalidBudgetError struct{ msg string }

func (e invalidBudgetError) Error() string { return "invalid budget: " + e.msg }

// IsInvalidBudget reports whether err indicates a rejected budget update.
func IsInvalidBudget(err error) bool {
	_, ok := err.(invalidBudgetError)
	return ok
}

// invalidTaskError signals a malformed submission, rejected outright.
type invalidTaskError struct{ msg string }

func (e invalidTaskError) Error() string { return "invalid task: " + e.msg }

// cancelledError is delivered on the result channel of a task removed from
// the queue before it ran.
type cancelledError struct{ id string }

func (e cancelledError) Error() string { return "task cancelled: " + e.id }

// IsCancelled reports whether err indicates the task was cancelled while
// still queued.
func IsCancelled(err error) bool {
	_, ok := err.(cancelledError)
	return ok
}
