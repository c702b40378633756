package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	failing := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	b := NewBreakerExecutor(failing, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Execute(context.Background(), "get_timeline", nil)
		assert.EqualError(t, err, "connection refused")
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Execute(context.Background(), "get_timeline", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, calls, "open breaker must not reach the executor")
}

func TestBreakerIgnoresRemoteErrors(t *testing.T) {
	remote := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
		return nil, &RemoteError{Message: "category is required"}
	})

	b := NewBreakerExecutor(remote, BreakerConfig{MaxFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(context.Background(), "log_decision", nil)
		assert.EqualError(t, err, "category is required")
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	fail := true
	flaky := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
		if fail {
			return nil, errors.New("down")
		}
		return "ok", nil
	})

	b := NewBreakerExecutor(flaky, BreakerConfig{MaxFailures: 1, OpenTimeout: 20 * time.Millisecond})

	_, err := b.Execute(context.Background(), "get_timeline", nil)
	require.Error(t, err)
	assert.Equal(t, "open", b.State())

	fail = false
	time.Sleep(40 * time.Millisecond)

	result, err := b.Execute(context.Background(), "get_timeline", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", b.State())
}
