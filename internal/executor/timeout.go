package executor

import (
	"context"
	"fmt"
	"time"
)

func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// TimeoutExecutor bounds every call to next by a deadline. The deadline is
// enforced even when next ignores its context; such a call keeps running in
// the background and its result is dropped.
type TimeoutExecutor struct {
	next    Executor
	timeout time.Duration
}

func NewTimeoutExecutor(next Executor, timeout time.Duration) *TimeoutExecutor {
	return &TimeoutExecutor{next: next, timeout: timeout}
}

func (t *TimeoutExecutor) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	if t.timeout <= 0 {
		return Safe(ctx, t.next, command, params)
	}

	callCtx, cancel := WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		value interface{}
		err   error
	}

	resultChan := make(chan result, 1)
	go func() {
		value, err := Safe(callCtx, t.next, command, params)
		resultChan <- result{value, err}
	}()

	select {
	case res := <-resultChan:
		return res.value, res.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("timed out after %v", t.timeout)
	}
}

func (t *TimeoutExecutor) Close() error {
	return Close(t.next)
}
