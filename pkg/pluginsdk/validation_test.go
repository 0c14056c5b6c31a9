package pluginsdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolDefinitionValidateArgs(t *testing.T) {
	tool := ToolDefinition{
		Name: "get_forecast",
		Parameters: []byte(`{
			"type": "object",
			"additionalProperties": false,
			"required": ["city"],
			"properties": {
				"city": { "type": "string" }
			}
		}`),
	}

	assert.NoError(t, tool.ValidateArgs(map[string]any{"city": "Lisbon"}))
	assert.Error(t, tool.ValidateArgs(map[string]any{}))
	assert.Error(t, tool.ValidateArgs(map[string]any{"city": "Lisbon", "extra": true}))
}

func TestToolDefinitionValidateArgsNoSchema(t *testing.T) {
	tool := ToolDefinition{Name: "noop"}
	assert.NoError(t, tool.ValidateArgs(map[string]any{"anything": "goes"}))
}

func TestCompileSchemaCached(t *testing.T) {
	tool := ToolDefinition{
		Name:       "echo",
		Parameters: []byte(`{"type": "object"}`),
	}

	require.NoError(t, tool.ValidateArgs(map[string]any{}))
	require.NoError(t, tool.ValidateArgs(map[string]any{"again": 1}))
}
