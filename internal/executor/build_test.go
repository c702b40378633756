package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/memory-bank-mcp/internal/config"
)

func TestFromConfigDefaultIsStub(t *testing.T) {
	e, err := FromConfig(config.Default().Executor)
	require.NoError(t, err)
	defer Close(e)

	_, ok := e.(*StubExecutor)
	assert.True(t, ok)
}

func TestFromConfigLayers(t *testing.T) {
	cfg := config.Default().Executor
	cfg.Breaker.Enabled = true
	cfg.CallTimeout = time.Second
	cfg.Routes = []config.RouteConfig{{Pattern: "get_*", Command: "memory-bank-analytics"}}

	e, err := FromConfig(cfg)
	require.NoError(t, err)
	defer Close(e)

	timeout, ok := e.(*TimeoutExecutor)
	require.True(t, ok)
	breaker, ok := timeout.next.(*BreakerExecutor)
	require.True(t, ok)
	router, ok := breaker.next.(*Router)
	require.True(t, ok)

	_, ok = router.Match("get_timeline").(*ProcessExecutor)
	assert.True(t, ok)
	_, ok = router.Match("log_decision").(*StubExecutor)
	assert.True(t, ok)

	result, err := e.Execute(context.Background(), "log_decision", nil)
	require.NoError(t, err)
	assert.True(t, result.(Acknowledgement).Success)
}

func TestFromConfigProcess(t *testing.T) {
	cfg := config.Default().Executor
	cfg.Kind = config.ExecutorProcess
	cfg.Command = "memory-bank-py"

	e, err := FromConfig(cfg)
	require.NoError(t, err)
	defer Close(e)

	p, ok := e.(*ProcessExecutor)
	require.True(t, ok)
	assert.Equal(t, "memory-bank-py", p.Stats().Command)
	assert.False(t, p.Stats().Running)
}

func TestFromConfigErrors(t *testing.T) {
	cfg := config.Default().Executor
	cfg.Kind = "grpc"
	_, err := FromConfig(cfg)
	assert.Error(t, err)

	cfg = config.Default().Executor
	cfg.Routes = []config.RouteConfig{{Pattern: "get_[", Command: "x"}}
	_, err = FromConfig(cfg)
	assert.Error(t, err)
}
