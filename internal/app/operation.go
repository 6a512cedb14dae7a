package app

import (
	"time"

	"apub-go/internal/pub"
)

// Operation tracks one CLI invocation. Its ID tags every log line written
// during the invocation and doubles as the run id of a publish.
type Operation struct {
	ID         string
	Command    string
	Parameters string
	Status     string // "running", "success" or "error"
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewOperation creates a running operation with a fresh ID.
func NewOperation(ids pub.IDGenerator, clock pub.Clock, command, parameters string) *Operation {
	return &Operation{
		ID:         ids.New(),
		Command:    command,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  clock.Now(),
	}
}

// Finish records the outcome of the operation. Only the first call counts.
func (op *Operation) Finish(clock pub.Clock, err error) {
	if op.Finished() {
		return
	}
	op.FinishedAt = clock.Now()
	op.Status = "success"
	if err != nil {
		op.Status = "error"
	}
}

// Finished returns true once Finish has been called.
func (op *Operation) Finished() bool {
	return !op.FinishedAt.IsZero()
}

// Elapsed returns how long the operation ran, or zero while it is running.
func (op *Operation) Elapsed() time.Duration {
	if !op.Finished() {
		return 0
	}
	return op.FinishedAt.Sub(op.StartedAt)
}
