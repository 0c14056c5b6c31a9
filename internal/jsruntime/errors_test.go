package jsruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeErrorMessages(t *testing.T) {
	assert.Equal(t, "cpu quota exceeded", ErrCPUQuotaExceeded().Error())
	assert.Equal(t, "memory limit exceeded", ErrOutOfMemory().Error())
	assert.Equal(t, "worker thread died", ErrWorkerShutdown().Error())
	assert.Equal(t, "execution error: boom", ErrExecution("boom").Error())
}

func TestSandboxViolationMessages(t *testing.T) {
	assert.Equal(t, `network access to "evil.example" not in allowlist`,
		(&SandboxViolation{Kind: SandboxViolationNetworkBlocked, Host: "evil.example"}).Error())
	assert.Equal(t, `file access to "/etc/passwd" not allowed`,
		(&SandboxViolation{Kind: SandboxViolationFileBlocked, Path: "/etc/passwd"}).Error())
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("weather")
	assert.Equal(t, `plugin "weather" not found`, err.Error())

	pe, ok := err.(*PluginError)
	assert.True(t, ok)
	assert.Equal(t, PluginErrNotFound, pe.Kind)
}

func TestWrapRuntimeErr(t *testing.T) {
	assert.Nil(t, wrapRuntimeErr(nil))

	wrapped := wrapRuntimeErr(ErrCPUQuotaExceeded())
	pe, ok := wrapped.(*PluginError)
	assert.True(t, ok)
	assert.Equal(t, PluginErrRuntime, pe.Kind)
	assert.Equal(t, RuntimeErrCPUQuotaExceeded, pe.Runtime.Kind)
}
