package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubExecutorAcknowledges(t *testing.T) {
	stub := NewStubExecutor()
	params := map[string]interface{}{"query": "mcu"}

	result, err := stub.Execute(context.Background(), "search_decisions", params)
	require.NoError(t, err)

	ack, ok := result.(Acknowledgement)
	require.True(t, ok)
	assert.True(t, ack.Success)
	assert.Equal(t, "Executed search_decisions with memory-bank", ack.Message)
	assert.Equal(t, "search_decisions", ack.Command)
	assert.Equal(t, params, ack.Params)

	raw, err := json.Marshal(ack)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"Executed search_decisions with memory-bank","command":"search_decisions","params":{"query":"mcu"}}`, string(raw))
}

func TestStubExecutorNilParams(t *testing.T) {
	result, err := NewStubExecutor().Execute(context.Background(), "get_timeline", nil)
	require.NoError(t, err)
	assert.NotNil(t, result.(Acknowledgement).Params)
}

func TestStubExecutorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStubExecutor().Execute(ctx, "get_timeline", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeRecoversPanics(t *testing.T) {
	panicky := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
		panic("kaboom")
	})

	_, err := Safe(context.Background(), panicky, "get_statistics", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestTimeoutExecutor(t *testing.T) {
	slow := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})

	t.Run("expires", func(t *testing.T) {
		_, err := NewTimeoutExecutor(slow, 20*time.Millisecond).Execute(context.Background(), "get_timeline", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out after 20ms")
	})

	t.Run("zero disables", func(t *testing.T) {
		result, err := NewTimeoutExecutor(slow, 0).Execute(context.Background(), "get_timeline", nil)
		require.NoError(t, err)
		assert.Equal(t, "late", result)
	})

	t.Run("fast call passes", func(t *testing.T) {
		fast := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
			return nil, errors.New("nope")
		})
		_, err := NewTimeoutExecutor(fast, time.Second).Execute(context.Background(), "get_timeline", nil)
		assert.EqualError(t, err, "nope")
	})

	t.Run("panic in background call", func(t *testing.T) {
		panicky := Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
			panic("kaboom")
		})
		_, err := NewTimeoutExecutor(panicky, time.Second).Execute(context.Background(), "get_timeline", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	})
}

func TestWithTimeoutNoop(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.False(t, ok)
}
