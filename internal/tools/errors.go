package tools

import "fmt"

// ToolError is a failure attributed to a tool call before or during
// execution. Its message is what callers see after "Error executing <name>: ".
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Tool:    name,
		Message: fmt.Sprintf("tool not found: %s", name),
	}
}

func NewNameRequiredError() *ToolError {
	return &ToolError{Message: "tool name is required"}
}

// FailureText renders a failed call the way it is reported to clients.
func FailureText(name string, err error) string {
	return fmt.Sprintf("Error executing %s: %s", name, err.Error())
}
