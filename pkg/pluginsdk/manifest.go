// Package pluginsdk describes the on-disk shape of a JS/TS plugin: its
// manifest, declared permissions, and the tool/skill surface it exposes.
package pluginsdk

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestFilename is the required manifest name at the root of a plugin
// source tree and inside every installed plugin directory.
const ManifestFilename = "plugin.toml"

// Manifest is the parsed `plugin.toml` descriptor for a plugin. It is
// immutable after ParseManifest: callers that need a modified copy build
// a new one.
type Manifest struct {
	Plugin      PluginMetadata    `toml:"plugin"`
	Runtime     RuntimeConfig     `toml:"runtime"`
	Permissions PluginPermissions `toml:"permissions"`
	Tools       ToolDefinitions   `toml:"tools"`
	Skills      SkillDefinitions  `toml:"skills"`
}

// PluginMetadata is the `[plugin]` table.
type PluginMetadata struct {
	Name               string `toml:"name"`
	Version            string `toml:"version"`
	Description        string `toml:"description"`
	Author             string `toml:"author"`
	License            string `toml:"license"`
	OpenclawCompatible bool   `toml:"openclaw_compatible"`
	OpenclawSkillID    string `toml:"openclaw_skill_id"`
}

// RuntimeConfig is the `[runtime]` table.
type RuntimeConfig struct {
	Entry      string `toml:"entry"`
	SDKVersion string `toml:"sdk_version"`
}

// PluginPermissions is the `[permissions]` table: every field is optional
// and absent entries mean "no access", not "inherit".
type PluginPermissions struct {
	Network   []string `toml:"network"`
	FileRead  []string `toml:"file_read"`
	FileWrite bool     `toml:"file_write"`
	EnvVars   []string `toml:"env_vars"`
}

// IsEmpty reports whether the plugin has declared no permissions at all.
func (p PluginPermissions) IsEmpty() bool {
	return len(p.Network) == 0 && len(p.FileRead) == 0 && !p.FileWrite && len(p.EnvVars) == 0
}

// ToolDefinitions is the `[[tools.definitions]]` array-of-tables.
type ToolDefinitions struct {
	Definitions []ToolDefinition `toml:"definitions"`
}

// ToolDefinition describes one tool a plugin exposes to the host.
// Parameters is the tool's JSON Schema, re-encoded from the TOML table it
// was declared in — see rawToolDefinition for why the decode goes
// through toml.Primitive instead of landing here directly.
type ToolDefinition struct {
	Name        string          `toml:"name"`
	Description string          `toml:"description"`
	Parameters  json.RawMessage `toml:"parameters"`
}

// SkillDefinitions is the `[[skills.definitions]]` array-of-tables.
type SkillDefinitions struct {
	Definitions []SkillDefinition `toml:"definitions"`
}

// SkillDefinition describes one intent-matched skill a plugin exposes.
type SkillDefinition struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Patterns    []string `toml:"patterns"`
	Examples    []string `toml:"examples"`
}

// rawManifest mirrors Manifest but defers decoding each tool's
// `parameters` table: BurntSushi/toml has no way to decode an arbitrary
// TOML table straight into a []byte (json.RawMessage) field, so the
// table is captured as a toml.Primitive and re-decoded into a generic
// value via the decode's MetaData, then re-marshaled to JSON.
type rawManifest struct {
	Plugin      PluginMetadata     `toml:"plugin"`
	Runtime     RuntimeConfig      `toml:"runtime"`
	Permissions PluginPermissions  `toml:"permissions"`
	Tools       rawToolDefinitions `toml:"tools"`
	Skills      SkillDefinitions   `toml:"skills"`
}

type rawToolDefinitions struct {
	Definitions []rawToolDefinition `toml:"definitions"`
}

type rawToolDefinition struct {
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	Parameters  toml.Primitive `toml:"parameters"`
}

// ParseManifest decodes a plugin.toml document.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw rawManifest
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("decode plugin.toml: %w", err)
	}

	tools := make([]ToolDefinition, len(raw.Tools.Definitions))
	for i, rawTool := range raw.Tools.Definitions {
		schema, err := decodeSchemaPrimitive(meta, rawTool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("decode parameters for tool %q: %w", rawTool.Name, err)
		}
		tools[i] = ToolDefinition{Name: rawTool.Name, Description: rawTool.Description, Parameters: schema}
	}

	m := &Manifest{
		Plugin:      raw.Plugin,
		Runtime:     raw.Runtime,
		Permissions: raw.Permissions,
		Tools:       ToolDefinitions{Definitions: tools},
		Skills:      raw.Skills,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeSchemaPrimitive re-decodes a tool's deferred `parameters` table
// into a generic value and re-marshals it to JSON. A zero Primitive (the
// field was never set) yields nil, matching "a tool with no declared
// parameters schema" in pluginsdk.ToolDefinition.ValidateArgs.
func decodeSchemaPrimitive(meta toml.MetaData, prim toml.Primitive) (json.RawMessage, error) {
	var value any
	if err := meta.PrimitiveDecode(prim, &value); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

// ParseManifestFile reads and decodes a plugin.toml file from disk.
func ParseManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin.toml: %w", err)
	}
	return ParseManifest(data)
}

// Validate enforces the manifest's identity invariants: name nonempty and
// without whitespace or a path separator, entry relpath nonempty.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	name := strings.TrimSpace(m.Plugin.Name)
	if name == "" {
		return fmt.Errorf("plugin.name is required")
	}
	if strings.ContainsAny(name, " \t\n/") {
		return fmt.Errorf("plugin.name %q must not contain whitespace or '/'", name)
	}
	if strings.TrimSpace(m.Runtime.Entry) == "" {
		return fmt.Errorf("runtime.entry is required")
	}
	return nil
}
