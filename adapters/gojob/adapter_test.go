package gojob

import (
	"context"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/goliatone/go-signal-relay/core"
)

func TestRetryPolicy_NormalizeAttemptBoundsDelay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, MaxDelay: 10 * time.Second}

	out := policy.NormalizeAttempt(core.JobNackOptions{
		Disposition: core.JobNackRetry,
		Delay:       time.Minute,
		Reason:      "  transient  ",
	}, 1)
	if out.Delay != 10*time.Second {
		t.Fatalf("expected delay capped at 10s, got %v", out.Delay)
	}
	if out.Reason != "transient" {
		t.Fatalf("expected trimmed reason, got %q", out.Reason)
	}
	if out.Disposition != core.JobNackRetry {
		t.Fatalf("expected retry preserved, got %q", out.Disposition)
	}
}

func TestRetryPolicy_NormalizeAttemptStopsAtMaxAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, DeadLetterOnMax: true}

	out := policy.NormalizeAttempt(core.JobNackOptions{Disposition: core.JobNackRetry, Delay: time.Second}, 3)
	if out.Disposition != core.JobNackDeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %q", out.Disposition)
	}
	if out.Delay != 0 {
		t.Fatalf("expected no delay on a terminal disposition, got %v", out.Delay)
	}

	failed := RetryPolicy{MaxAttempts: 3}.NormalizeAttempt(core.JobNackOptions{Disposition: core.JobNackRetry}, 3)
	if failed.Disposition != core.JobNackFailed {
		t.Fatalf("expected failed at max attempts without dead letter, got %q", failed.Disposition)
	}
}

func TestRetryPolicy_NormalizeAttemptDefaultsToRetry(t *testing.T) {
	out := RetryPolicy{}.NormalizeAttempt(core.JobNackOptions{}, 0)
	if out.Disposition != core.JobNackRetry {
		t.Fatalf("expected retry fallback, got %+v", out)
	}
}

func TestNackOptionsMapping_ValidAgainstQueueContract(t *testing.T) {
	for _, disposition := range []string{
		core.JobNackRetry,
		core.JobNackDeadLetter,
		core.JobNackFailed,
		core.JobNackCanceled,
	} {
		mapped := ToNackOptions(core.JobNackOptions{Disposition: disposition, Reason: "worn out"})
		if err := queue.ValidateNackOptions(mapped); err != nil {
			t.Fatalf("disposition %q rejected by queue contract: %v", disposition, err)
		}
		back := FromNackOptions(mapped)
		if back.Disposition != disposition || back.Reason != "worn out" {
			t.Fatalf("round trip lost fields: %+v", back)
		}
	}
	if err := queue.ValidateNackOptions(ToNackOptions(core.JobNackOptions{Disposition: "bogus"})); err == nil {
		t.Fatalf("expected bogus disposition to be rejected")
	}
}

type recordingEnqueuer struct {
	messages []*job.ExecutionMessage
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	e.messages = append(e.messages, msg)
	return queue.EnqueueReceipt{DispatchID: "dispatch-1", EnqueuedAt: time.Now()}, nil
}

func TestEnqueuerAdapter_DispatchesIngestMessage(t *testing.T) {
	recorder := &recordingEnqueuer{}
	adapter := NewEnqueuerAdapter(recorder)

	window := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := adapter.Enqueue(context.Background(), NewIngestExecutionMessage(window)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(recorder.messages) != 1 {
		t.Fatalf("expected one enqueued message, got %d", len(recorder.messages))
	}
	if recorder.messages[0].JobID != JobIDRunIngest {
		t.Fatalf("unexpected job id %q", recorder.messages[0].JobID)
	}
}

func TestNewIngestExecutionMessage(t *testing.T) {
	window := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	msg := NewIngestExecutionMessage(window)

	if msg.JobID != JobIDRunIngest {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
	if msg.IdempotencyKey != "relay.ingest.run@2024-03-01T10:00:00Z" {
		t.Fatalf("unexpected idempotency key %q", msg.IdempotencyKey)
	}

	mapped := ToExecutionMessage(msg)
	if mapped.JobID != msg.JobID || string(mapped.DedupPolicy) != msg.DedupPolicy {
		t.Fatalf("mapping lost fields: %+v", mapped)
	}
	back := FromExecutionMessage(mapped)
	if back.IdempotencyKey != msg.IdempotencyKey {
		t.Fatalf("round trip lost idempotency key: %+v", back)
	}
}

func TestToExecutionMessage_NilSafe(t *testing.T) {
	if ToExecutionMessage(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	if FromExecutionMessage(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}
