package pluginsdk

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateArgs validates JSON-encoded tool call arguments against the
// JSON Schema declared in a tool's `parameters` field. A tool with no
// declared parameters schema accepts any arguments.
func (t ToolDefinition) ValidateArgs(args any) error {
	if len(t.Parameters) == 0 {
		return nil
	}

	schema, err := compileSchema(t.Parameters)
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", t.Name, err)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode tool args: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode tool args: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("tool %q args invalid: %w", t.Name, err)
	}
	return nil
}

var schemaCache sync.Map

func compileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString("tool.parameters.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
