package hypervisor

import (
	"context"
	"time"

	"github.com/R3E-Network/service_layer/infrastructure/resilience"
)

// taskWaiterConfig is the bounded exponential backoff named in §4.3:
// 1000ms initial, factor 2, capped at 60s, jitter, limited to 10 attempts.
var taskWaiterConfig = resilience.RetryConfig{
	MaxAttempts:  10,
	InitialDelay: 1000 * time.Millisecond,
	MaxDelay:     60 * time.Second,
	Multiplier:   2.0,
	Jitter:       0.2,
}

// WaitTask polls the backend's task-status endpoint until it reports a
// terminal (stopped) status, applying taskWaiterConfig's backoff between
// polls. Returns TaskNotCompleted(task_id) if the task is still running
// after 10 attempts.
func (c *Client) WaitTask(ctx context.Context, node string, task Task) (TaskRecord, error) {
	var last TaskRecord
	err := resilience.Retry(ctx, taskWaiterConfig, func() error {
		rec, err := c.GetTask(ctx, node, task)
		if err != nil {
			return err
		}
		last = rec
		if rec.Status != "stopped" {
			return taskNotCompleted(task.UPID)
		}
		return nil
	})
	if err != nil {
		return last, err
	}
	return last, nil
}
