package app

import "time"

// Operation tracks one CLI command from start to finish. Its ID tags every
// log line the command writes.
type Operation struct {
	ID        string
	Command   string
	Status    string // "running", "success" or "error"
	StartedAt time.Time
	Duration  time.Duration
}

// NewOperation starts tracking command at now.
func NewOperation(command string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Command:   command,
		Status:    "running",
		StartedAt: now,
	}
}

// Finish records the outcome of the command. Only the first call counts.
func (op *Operation) Finish(err error, now time.Time) {
	if op.Finished() {
		return
	}
	op.Status = "success"
	if err != nil {
		op.Status = "error"
	}
	op.Duration = now.Sub(op.StartedAt)
}

// Finished reports whether Finish has been called.
func (op *Operation) Finished() bool {
	return op.Status != "running"
}
