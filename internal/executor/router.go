package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

type Route struct {
	Pattern  string
	Executor Executor
}

// Router picks an executor by matching the command name against glob
// patterns in order. Commands that match nothing go to the fallback.
type Router struct {
	routes   []Route
	fallback Executor
}

func NewRouter(fallback Executor, routes ...Route) (*Router, error) {
	if fallback == nil {
		return nil, fmt.Errorf("router needs a fallback executor")
	}
	for _, route := range routes {
		if !doublestar.ValidatePattern(route.Pattern) {
			return nil, fmt.Errorf("invalid route pattern: %q", route.Pattern)
		}
		if route.Executor == nil {
			return nil, fmt.Errorf("route %q has no executor", route.Pattern)
		}
	}
	return &Router{routes: routes, fallback: fallback}, nil
}

func (r *Router) Match(command string) Executor {
	for _, route := range r.routes {
		if ok, _ := doublestar.Match(route.Pattern, command); ok {
			return route.Executor
		}
	}
	return r.fallback
}

func (r *Router) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	return r.Match(command).Execute(ctx, command, params)
}

func (r *Router) Close() error {
	var errs []error
	for _, route := range r.routes {
		if err := Close(route.Executor); err != nil {
			errs = append(errs, err)
		}
	}
	if err := Close(r.fallback); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
