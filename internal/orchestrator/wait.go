package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/modelserve-dev/modelserve/internal/fabric"
)

// waitStarted polls a job at a fixed interval until it leaves the pending
// state. The wait is bounded: it ends on start, timeout, or context
// cancellation, never indefinitely. On timeout the job keeps running; the
// caller decides whether to kill it.
func waitStarted(ctx context.Context, client fabric.Client, job *fabric.Job, interval, timeout time.Duration) (*fabric.Job, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := job
	for current.Status.IsPending() {
		if time.Now().After(deadline) {
			return nil, &ReadinessTimeoutError{JobID: job.ID, Timeout: timeout}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for job %s interrupted: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}

		refreshed, err := client.GetJob(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll job %s: %w", job.ID, err)
		}
		current = refreshed
	}
	return current, nil
}
