package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultEventually = 5 * time.Second
	pollInterval      = 10 * time.Millisecond
)

func named(name string) Executor {
	return Func(func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
		return name, nil
	})
}

func TestRouterMatch(t *testing.T) {
	router, err := NewRouter(named("fallback"),
		Route{Pattern: "get_*", Executor: named("analytics")},
		Route{Pattern: "{log,search}_decision*", Executor: named("store")},
	)
	require.NoError(t, err)

	tests := map[string]string{
		"get_timeline":     "analytics",
		"get_statistics":   "analytics",
		"log_decision":     "store",
		"search_decisions": "store",
		"init_memory_bank": "fallback",
		"setup_git_hooks":  "fallback",
	}

	for command, want := range tests {
		t.Run(command, func(t *testing.T) {
			got, err := router.Execute(context.Background(), command, nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestRouterFirstMatchWins(t *testing.T) {
	router, err := NewRouter(named("fallback"),
		Route{Pattern: "get_timeline", Executor: named("first")},
		Route{Pattern: "get_*", Executor: named("second")},
	)
	require.NoError(t, err)

	got, err := router.Execute(context.Background(), "get_timeline", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestNewRouterErrors(t *testing.T) {
	_, err := NewRouter(nil)
	assert.Error(t, err)

	_, err = NewRouter(named("fallback"), Route{Pattern: "get_[", Executor: named("x")})
	assert.Error(t, err)

	_, err = NewRouter(named("fallback"), Route{Pattern: "get_*"})
	assert.Error(t, err)
}

type closeRecorder struct {
	Executor
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestRouterCloseClosesAll(t *testing.T) {
	fallback := &closeRecorder{Executor: named("fallback")}
	routed := &closeRecorder{Executor: named("routed")}

	router, err := NewRouter(fallback, Route{Pattern: "*", Executor: routed})
	require.NoError(t, err)
	require.NoError(t, router.Close())

	assert.True(t, fallback.closed)
	assert.True(t, routed.closed)
}
