// Package executor holds the implementations of the contract the dispatcher
// delegates tool calls to: a command name plus a parameter object in, a
// result value or a single error message out.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/alucardeht/memory-bank-mcp/internal/logger"
)

var log = logger.ForComponent("executor")

var ErrClosed = errors.New("executor closed")

type Executor interface {
	Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error)
}

// Func adapts an ordinary function to Executor.
type Func func(ctx context.Context, command string, params map[string]interface{}) (interface{}, error)

func (f Func) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	return f(ctx, command, params)
}

// Safe runs e.Execute and turns a panic into an error.
func Safe(ctx context.Context, e Executor, command string, params map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panicked: %v", r)
			log.Error("executor panic recovered",
				"command", command,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	return e.Execute(ctx, command, params)
}

// Close closes e if it holds resources.
func Close(e Executor) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
