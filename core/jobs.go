package core

import (
	"context"
	"time"
)

// Job contracts let the relay schedule ingestion runs on a queue backend
// without binding the packages below adapters/ to a concrete queue library.

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// Job nack dispositions. Retry requeues the delivery, the other three are
// terminal.
const (
	JobNackRetry      = "retry"
	JobNackDeadLetter = "dead_letter"
	JobNackFailed     = "failed"
	JobNackCanceled   = "canceled"
)

type JobNackOptions struct {
	Disposition string
	Delay       time.Duration
	Reason      string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
