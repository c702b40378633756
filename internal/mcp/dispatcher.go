package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alucardeht/memory-bank-mcp/internal/executor"
	"github.com/alucardeht/memory-bank-mcp/internal/journal"
	"github.com/alucardeht/memory-bank-mcp/internal/logger"
	"github.com/alucardeht/memory-bank-mcp/internal/tools"
	"github.com/alucardeht/memory-bank-mcp/pkg/protocol"
)

// ArgumentValidator rejects arguments that do not fit a tool's schema.
type ArgumentValidator interface {
	Validate(name string, arguments map[string]interface{}) error
}

// Recorder receives one entry per completed tool call.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Dispatcher turns tool calls into results. Whatever the executor does,
// CallTool returns exactly one well-formed result; failures are reported
// through IsError and never as protocol errors.
type Dispatcher struct {
	registry  *tools.Registry
	executor  executor.Executor
	validator ArgumentValidator
	recorder  Recorder
	log       *slog.Logger
}

type Option func(*Dispatcher)

func WithValidator(v ArgumentValidator) Option {
	return func(d *Dispatcher) { d.validator = v }
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func NewDispatcher(registry *tools.Registry, exec executor.Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		executor: exec,
		log:      logger.ForComponent("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) ListTools() *protocol.ListToolsResult {
	defs := d.registry.List()
	result := &protocol.ListToolsResult{Tools: make([]protocol.Tool, len(defs))}
	for i, def := range defs {
		result.Tools[i] = protocol.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Schema,
		}
	}
	return result
}

func (d *Dispatcher) CallTool(ctx context.Context, name string, arguments map[string]interface{}) *protocol.CallToolResult {
	start := time.Now()
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	var result *protocol.CallToolResult
	value, err := d.execute(ctx, name, arguments)
	if err == nil {
		var text string
		text, err = RenderText(value)
		if err == nil {
			result = protocol.TextResult(text, false)
		}
	}
	if err != nil {
		d.log.Warn("tool call failed", "tool", name, "error", err)
		result = protocol.TextResult(tools.FailureText(name, err), true)
	}

	elapsed := time.Since(start)
	d.log.Debug("tool call", "tool", name, "is_error", result.IsError, "duration", elapsed)
	d.record(ctx, name, arguments, result, elapsed)

	return result
}

func (d *Dispatcher) execute(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error) {
	if name == "" {
		return nil, tools.NewNameRequiredError()
	}

	if _, ok := d.registry.Get(name); !ok {
		return nil, tools.NewToolNotFoundError(name)
	}

	if d.validator != nil {
		if err := d.validator.Validate(name, arguments); err != nil {
			return nil, err
		}
	}

	return executor.Safe(ctx, d.executor, name, arguments)
}

func (d *Dispatcher) record(ctx context.Context, name string, arguments map[string]interface{}, result *protocol.CallToolResult, elapsed time.Duration) {
	if d.recorder == nil {
		return
	}

	entry := journal.Entry{
		Tool:      name,
		Arguments: arguments,
		IsError:   result.IsError,
		Text:      result.Content[0].Text,
		Duration:  elapsed,
	}
	if _, err := d.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		d.log.Error("failed to record tool call", "tool", name, "error", err)
	}
}

// RenderText converts an executor result to the text sent to the client.
// Strings pass through; anything else becomes indented JSON.
func RenderText(value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("failed to render result: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
