package jsruntime

import (
	"context"

	"github.com/mmacedoeu/zeroclaw/internal/hookbus"
	"github.com/mmacedoeu/zeroclaw/internal/transpile"
)

// Sandbox is the isolated execution environment for plugin code: a
// worker pool, a source map registry for remapping stack traces back to
// plugin authors' original sources, one event bus that broadcasts every
// dispatched event to subscribers, and one hook registry whose handlers
// can veto or modify it.
type Sandbox struct {
	pool       *Pool
	sourceMaps *transpile.SourceMapRegistry
	events     *hookbus.Bus
	hooks      *hookbus.Registry
	config     SandboxConfig
}

// NewSandbox starts a pool sized per cfg and returns a ready Sandbox.
func NewSandbox(cfg SandboxConfig) *Sandbox {
	return &Sandbox{
		pool:       NewPool(cfg.toPoolConfig()),
		sourceMaps: transpile.NewSourceMapRegistry(),
		events:     hookbus.NewBus(),
		hooks:      hookbus.NewRegistry(nil),
		config:     cfg,
	}
}

// Close shuts down every worker in the sandbox's pool.
func (s *Sandbox) Close() {
	s.pool.Close()
}

// Config returns the sandbox's configuration.
func (s *Sandbox) Config() SandboxConfig { return s.config }

// Events returns the sandbox's event bus, the broadcast fan-out every
// subscriber observes a copy of every emitted event through.
func (s *Sandbox) Events() *hookbus.Bus { return s.events }

// Hooks returns the sandbox's hook registry, the priority-ordered
// veto/modify participant list dispatched separately from the broadcast
// bus per plugin.
func (s *Sandbox) Hooks() *hookbus.Registry { return s.hooks }

// Dispatch emits event on the sandbox's bus for passive subscribers and
// then runs it through the hook registry for ordered veto/modify
// handling, returning the registry's outcome.
func (s *Sandbox) Dispatch(ctx context.Context, event hookbus.Event) hookbus.DispatchOutcome {
	s.events.Emit(event)
	return s.hooks.Dispatch(ctx, event)
}

// LoadPlugin loads code into the sandbox under pluginID. filename is used
// only for error messages; pass "" to default to "plugin.js".
func (s *Sandbox) LoadPlugin(ctx context.Context, pluginID, code, filename string) (*PluginHandle, error) {
	if filename == "" {
		filename = "plugin.js"
	}
	handle, err := s.pool.LoadPlugin(ctx, PluginID(pluginID), code, filename)
	if err != nil {
		return nil, err
	}
	return &PluginHandle{pluginID: PluginID(pluginID), handle: handle, sandbox: s}, nil
}

// RegisterSourceMap attaches a source map to pluginID for stack remapping.
func (s *Sandbox) RegisterSourceMap(pluginID string, mapJSON []byte) {
	s.sourceMaps.Register(pluginID, mapJSON)
}

// PluginHandle lets a host execute code inside one loaded plugin's VM and
// remap its stack traces.
type PluginHandle struct {
	pluginID PluginID
	handle   *Handle
	sandbox  *Sandbox
}

// Execute runs code in this plugin's context.
func (h *PluginHandle) Execute(ctx context.Context, code string) (string, error) {
	return h.handle.Execute(ctx, code)
}

// PluginID returns the identifier this handle was loaded under.
func (h *PluginHandle) PluginID() PluginID { return h.pluginID }

// RemapStack rewrites a raw stack trace using this plugin's registered
// source map, if any.
func (h *PluginHandle) RemapStack(rawStack string) string {
	return h.sandbox.sourceMaps.RemapStack(string(h.pluginID), rawStack)
}
