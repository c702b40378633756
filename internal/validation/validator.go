// Package validation checks tool call arguments against the schema the tool
// advertises.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/alucardeht/memory-bank-mcp/internal/tools"
)

// ValidationError describes why arguments were rejected.
type ValidationError struct {
	Tool    string
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", e.Message)
}

type Config struct {
	MaxParamsSize int
}

func DefaultConfig() Config {
	return Config{MaxParamsSize: 1024 * 1024}
}

// Validator compiles each tool schema once and reuses it.
type Validator struct {
	registry      *tools.Registry
	maxParamsSize int

	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

func NewValidator(registry *tools.Registry, config Config) *Validator {
	if config.MaxParamsSize <= 0 {
		config.MaxParamsSize = DefaultConfig().MaxParamsSize
	}
	return &Validator{
		registry:      registry,
		maxParamsSize: config.MaxParamsSize,
		schemas:       make(map[string]*gojsonschema.Schema),
	}
}

func (v *Validator) Validate(name string, arguments map[string]interface{}) error {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	raw, err := json.Marshal(arguments)
	if err != nil {
		return &ValidationError{
			Tool:    name,
			Message: fmt.Sprintf("failed to serialize: %v", err),
			Code:    "INVALID_PARAMS_FORMAT",
		}
	}
	if len(raw) > v.maxParamsSize {
		return &ValidationError{
			Tool:    name,
			Message: fmt.Sprintf("size exceeds maximum of %d bytes", v.maxParamsSize),
			Code:    "PARAMS_TOO_LARGE",
		}
	}

	schema, err := v.schema(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationError{
			Tool:    name,
			Message: fmt.Sprintf("schema validation error: %v", err),
			Code:    "SCHEMA_VALIDATION_ERROR",
		}
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return &ValidationError{
			Tool:    name,
			Message: strings.Join(messages, "; "),
			Code:    "ARGUMENTS_SCHEMA_MISMATCH",
		}
	}

	return nil
}

func (v *Validator) schema(name string) (*gojsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if schema, ok := v.schemas[name]; ok {
		return schema, nil
	}

	def, ok := v.registry.Get(name)
	if !ok {
		return nil, tools.NewToolNotFoundError(name)
	}

	raw, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema for %s: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", name, err)
	}

	v.schemas[name] = schema
	return schema, nil
}
