package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/memory-bank-mcp/internal/tools"
)

func newValidator(t *testing.T, config Config) *Validator {
	t.Helper()
	reg, err := tools.NewMemoryBankRegistry()
	require.NoError(t, err)
	return NewValidator(reg, config)
}

func TestValidateDocumentedArguments(t *testing.T) {
	v := newValidator(t, DefaultConfig())

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"init_memory_bank", nil},
		{"init_memory_bank", map[string]interface{}{"project_path": ".", "project_name": "Test Project"}},
		{"log_decision", map[string]interface{}{"category": "architecture", "decision": "Use CAN bus"}},
		{"log_decision", map[string]interface{}{
			"category":     "component_selection",
			"decision":     "Selected STM32F407 over STM32F405",
			"rationale":    "Need USB OTG and Ethernet capabilities",
			"alternatives": []interface{}{"STM32F405", "STM32H7 series"},
			"impact":       "high",
			"tags":         []interface{}{"mcu", "connectivity"},
			"context":      map[string]interface{}{"board": "rev-b"},
		}},
		{"search_decisions", map[string]interface{}{"query": "power"}},
		{"get_timeline", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, v.Validate(tt.name, tt.args))
		})
	}
}

func TestValidateRejects(t *testing.T) {
	v := newValidator(t, DefaultConfig())

	tests := []struct {
		desc string
		name string
		args map[string]interface{}
		want string
	}{
		{"missing required", "log_decision", map[string]interface{}{"category": "testing"}, "decision"},
		{"bad enum", "log_decision", map[string]interface{}{"category": "vibes", "decision": "x"}, "category"},
		{"bad impact", "log_decision", map[string]interface{}{"category": "issue", "decision": "x", "impact": "meh"}, "impact"},
		{"wrong type", "search_decisions", map[string]interface{}{"query": 42}, "query"},
		{"bad array item", "search_decisions", map[string]interface{}{"query": "q", "tags": []interface{}{1}}, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := v.Validate(tt.name, tt.args)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "ARGUMENTS_SCHEMA_MISMATCH", verr.Code)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, strings.HasPrefix(err.Error(), "invalid arguments: "))
		})
	}
}

func TestValidateUnknownTool(t *testing.T) {
	v := newValidator(t, DefaultConfig())

	err := v.Validate("drop_tables", nil)
	require.Error(t, err)
	assert.Equal(t, "tool not found: drop_tables", err.Error())
}

func TestValidateSizeLimit(t *testing.T) {
	v := newValidator(t, Config{MaxParamsSize: 32})

	err := v.Validate("search_decisions", map[string]interface{}{"query": strings.Repeat("x", 64)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "PARAMS_TOO_LARGE", verr.Code)
}

func TestValidateCachesSchemas(t *testing.T) {
	v := newValidator(t, DefaultConfig())

	require.NoError(t, v.Validate("get_statistics", nil))
	require.NoError(t, v.Validate("get_statistics", nil))
	assert.Len(t, v.schemas, 1)
}
