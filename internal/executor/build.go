package executor

import (
	"fmt"

	"github.com/alucardeht/memory-bank-mcp/internal/config"
)

// FromConfig assembles the executor chain described by cfg: the base
// executor, any routed processes in front of it, then the optional circuit
// breaker and call timeout.
func FromConfig(cfg config.ExecutorConfig) (Executor, error) {
	var base Executor
	switch cfg.Kind {
	case config.ExecutorStub, "":
		base = NewStubExecutor()
	case config.ExecutorProcess:
		base = NewProcessExecutor(ProcessConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			Dir:     cfg.Dir,
			Env:     cfg.Env,
		})
	default:
		return nil, fmt.Errorf("unknown executor kind: %q", cfg.Kind)
	}

	var e Executor = base
	if len(cfg.Routes) > 0 {
		routes := make([]Route, 0, len(cfg.Routes))
		for _, rc := range cfg.Routes {
			routes = append(routes, Route{
				Pattern: rc.Pattern,
				Executor: NewProcessExecutor(ProcessConfig{
					Command: rc.Command,
					Args:    rc.Args,
					Dir:     rc.Dir,
					Env:     cfg.Env,
				}),
			})
		}

		router, err := NewRouter(base, routes...)
		if err != nil {
			for _, route := range routes {
				Close(route.Executor)
			}
			return nil, err
		}
		e = router
	}

	if cfg.Breaker.Enabled {
		e = NewBreakerExecutor(e, BreakerConfig{
			MaxFailures:      cfg.Breaker.MaxFailures,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
		})
	}

	if cfg.CallTimeout > 0 {
		e = NewTimeoutExecutor(e, cfg.CallTimeout)
	}

	return e, nil
}
