package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

var ErrBreakerOpen = errors.New("executor unavailable: circuit open")

type BreakerConfig struct {
	Name             string
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "executor",
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// BreakerExecutor stops calling next after MaxFailures consecutive transport
// failures. Errors reported by the executor itself count as successes.
type BreakerExecutor struct {
	next Executor
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerExecutor(next Executor, config BreakerConfig) *BreakerExecutor {
	defaults := DefaultBreakerConfig()
	if config.Name == "" {
		config.Name = defaults.Name
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = defaults.OpenTimeout
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = defaults.HalfOpenRequests
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("executor circuit state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsRemote(err)
		},
	}

	return &BreakerExecutor{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerExecutor) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return Safe(ctx, b.next, command, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w (%s)", ErrBreakerOpen, b.cb.Name())
	}
	return result, err
}

func (b *BreakerExecutor) State() string {
	return b.cb.State().String()
}

func (b *BreakerExecutor) Close() error {
	return Close(b.next)
}
