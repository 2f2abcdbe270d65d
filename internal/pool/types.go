// Package pool implements the bounded worker pool that runs CPU-bound
// packing tasks off the I/O goroutines. Workers are stateless; no
// task state survives past its own run.
package pool

import (
	"time"

	"github.com/cutflow/core/internal/packing"
)

// Kind distinguishes a 1D bar-packing task from a 2D sheet-packing task.
type Kind string

const (
	Kind1D Kind = "1D"
	Kind2D Kind = "2D"
)

// Status is a task's position in its lifecycle: queued -> running ->
// (completed | failed | cancelled | timeout).
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusTimedOut  Status = "TIMEOUT"
)

// TaskFunc is the unit of work a caller submits. The pool supplies a
// cancellation token (checked cooperatively by packing strategies) and a
// progress sink that forwards reports to the pool's subscribers.
type TaskFunc func(token *packing.CancellationToken, progress packing.ProgressSink) (packing.Result, error)

// Task is the public description of a unit of work, matching the
// contract. Payload is msgpack-encoded at the submission boundary so a
// task can, in principle, cross a process boundary unchanged.
type Task struct {
	ID        string
	Kind      Kind
	Payload   []byte
	TimeoutMs int
	CreatedAt time.Time
}

// Progress is a single progress update for a task.
type Progress struct {
	TaskID      string
	Phase       string
	Progress    float64 // in [0,1]
	Message     string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Stats summarizes pool throughput.
type Stats struct {
	Completed     int
	RunTimeMeanMs float64
	WaitTimeMeanMs float64
	Utilization   float64
	QueueSize     int
}
