package tryon

import (
	"context"
	"time"
)

// Remote job states reported by the synthesis queue.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// PollPolicy controls how long the orchestrator waits for a submitted job.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy checks once per second for up to 30 attempts.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: time.Second, MaxAttempts: 30}
}

// Clock suspends the caller between status checks.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pollUntilDone waits until the job reaches COMPLETED. Any other non pending state fails with
// CodeProcessFailed and exhausting the policy fails with CodeTimeout.
func (o *Orchestrator) pollUntilDone(ctx context.Context, requestID string) error {
	for attempt := 0; attempt < o.policy.MaxAttempts; attempt++ {
		status, err := o.synth.Status(ctx, requestID)
		if err != nil {
			return err
		}

		switch status {
		case StatusCompleted:
			return nil
		case StatusInQueue, StatusInProgress:
			o.logger.Debug("try-on pending", "request_id", requestID, "status", status, "attempt", attempt+1)
			if err := o.clock.Sleep(ctx, o.policy.Interval); err != nil {
				e := NewError(CodeTimeout, "try-on was interrupted while waiting for the result", err)
				e.Detail = status
				return e
			}
		default:
			e := NewError(CodeProcessFailed, "try-on failed: "+status, nil)
			e.Detail = status
			return e
		}
	}
	return NewError(CodeTimeout, "try-on timed out, please try again", nil)
}
