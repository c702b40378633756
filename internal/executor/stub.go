package executor

import (
	"context"
	"fmt"
)

// Acknowledgement is what StubExecutor answers for every command.
type Acknowledgement struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params"`
}

// StubExecutor acknowledges every command without doing any work. It stands
// in when no external executor is configured.
type StubExecutor struct{}

func NewStubExecutor() *StubExecutor {
	return &StubExecutor{}
}

func (s *StubExecutor) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	return Acknowledgement{
		Success: true,
		Message: fmt.Sprintf("Executed %s with memory-bank", command),
		Command: command,
		Params:  params,
	}, nil
}
