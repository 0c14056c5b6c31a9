// Package jsruntime hosts the QuickJS worker pool that executes plugin
// code: one OS thread per worker, one VM per thread, plugins round-robin
// assigned across the pool.
package jsruntime

import "fmt"

// RuntimeError enumerates the ways a single execution call can fail.
type RuntimeError struct {
	Kind RuntimeErrorKind
	Msg  string
}

type RuntimeErrorKind int

const (
	RuntimeErrUnknown RuntimeErrorKind = iota
	RuntimeErrCPUQuotaExceeded
	RuntimeErrOutOfMemory
	RuntimeErrWorkerShutdown
	RuntimeErrExecution
)

func (e *RuntimeError) Error() string {
	switch e.Kind {
	case RuntimeErrCPUQuotaExceeded:
		return "cpu quota exceeded"
	case RuntimeErrOutOfMemory:
		return "memory limit exceeded"
	case RuntimeErrWorkerShutdown:
		return "worker thread died"
	case RuntimeErrExecution:
		return fmt.Sprintf("execution error: %s", e.Msg)
	default:
		return fmt.Sprintf("runtime error: %s", e.Msg)
	}
}

func ErrWorkerShutdown() error { return &RuntimeError{Kind: RuntimeErrWorkerShutdown} }
func ErrCPUQuotaExceeded() error { return &RuntimeError{Kind: RuntimeErrCPUQuotaExceeded} }
func ErrOutOfMemory() error      { return &RuntimeError{Kind: RuntimeErrOutOfMemory} }
func ErrExecution(msg string) error {
	return &RuntimeError{Kind: RuntimeErrExecution, Msg: msg}
}

// SandboxViolation is returned when a plugin attempts an operation its
// declared permissions do not cover.
type SandboxViolation struct {
	Kind SandboxViolationKind
	Host string
	Path string
}

type SandboxViolationKind int

const (
	SandboxViolationCPUQuota SandboxViolationKind = iota
	SandboxViolationMemory
	SandboxViolationNetworkBlocked
	SandboxViolationFileBlocked
)

func (e *SandboxViolation) Error() string {
	switch e.Kind {
	case SandboxViolationCPUQuota:
		return "cpu quota exceeded"
	case SandboxViolationMemory:
		return "memory limit exceeded"
	case SandboxViolationNetworkBlocked:
		return fmt.Sprintf("network access to %q not in allowlist", e.Host)
	case SandboxViolationFileBlocked:
		return fmt.Sprintf("file access to %q not allowed", e.Path)
	default:
		return "sandbox violation"
	}
}

// RegistryError is returned by registry-client and installer operations
// that talk to the plugin registry HTTP API or verify downloaded bytes.
type RegistryError struct {
	Kind RegistryErrorKind
	Msg  string
}

type RegistryErrorKind int

const (
	RegistryErrNotFound RegistryErrorKind = iota
	RegistryErrRequestFailed
	RegistryErrInvalidResponse
	RegistryErrIntegrityCheckFailed
)

func (e *RegistryError) Error() string {
	switch e.Kind {
	case RegistryErrNotFound:
		return "plugin not found in registry"
	case RegistryErrRequestFailed:
		return fmt.Sprintf("registry request failed: %s", e.Msg)
	case RegistryErrInvalidResponse:
		return fmt.Sprintf("invalid registry response: %s", e.Msg)
	case RegistryErrIntegrityCheckFailed:
		return "downloaded artifact failed integrity check"
	default:
		return "registry error"
	}
}

func ErrRegistryNotFound() error {
	return &PluginError{Kind: PluginErrRegistry, Registry: &RegistryError{Kind: RegistryErrNotFound}}
}
func ErrRegistryRequestFailed(msg string) error {
	return &PluginError{Kind: PluginErrRegistry, Registry: &RegistryError{Kind: RegistryErrRequestFailed, Msg: msg}}
}
func ErrRegistryInvalidResponse(msg string) error {
	return &PluginError{Kind: PluginErrRegistry, Registry: &RegistryError{Kind: RegistryErrInvalidResponse, Msg: msg}}
}
func ErrRegistryIntegrityCheckFailed() error {
	return &PluginError{Kind: PluginErrRegistry, Registry: &RegistryError{Kind: RegistryErrIntegrityCheckFailed}}
}

// PluginError is the unified error type returned by plugin-runtime
// operations. Kind says which detail is set (PluginName, Runtime, Sandbox
// or Registry); a runtime error also keeps the original error in Wrapped.
// Is/As-style callers should switch on Kind.
type PluginError struct {
	Kind       PluginErrorKind
	PluginName string
	Runtime    *RuntimeError
	Sandbox    *SandboxViolation
	Registry   *RegistryError
	Wrapped    error
}

type PluginErrorKind int

const (
	PluginErrTranspile PluginErrorKind = iota
	PluginErrBundle
	PluginErrRuntime
	PluginErrSandbox
	PluginErrRegistry
	PluginErrNotFound
	PluginErrMemory
	PluginErrIO
)

func (e *PluginError) Error() string {
	switch e.Kind {
	case PluginErrNotFound:
		return fmt.Sprintf("plugin %q not found", e.PluginName)
	case PluginErrRuntime:
		return fmt.Sprintf("runtime error: %v", e.Runtime)
	case PluginErrSandbox:
		return fmt.Sprintf("sandbox violation: %v", e.Sandbox)
	case PluginErrRegistry:
		return fmt.Sprintf("registry error: %v", e.Registry)
	default:
		if e.Wrapped != nil {
			return e.Wrapped.Error()
		}
		return "plugin error"
	}
}

func (e *PluginError) Unwrap() error { return e.Wrapped }

func NewNotFoundError(name string) error {
	return &PluginError{Kind: PluginErrNotFound, PluginName: name}
}

func wrapRuntimeErr(err error) error {
	if err == nil {
		return nil
	}
	var rerr *RuntimeError
	if re, ok := err.(*RuntimeError); ok {
		rerr = re
	} else {
		rerr = &RuntimeError{Kind: RuntimeErrExecution, Msg: err.Error()}
	}
	return &PluginError{Kind: PluginErrRuntime, Runtime: rerr, Wrapped: err}
}
