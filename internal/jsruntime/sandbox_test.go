package jsruntime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxConfigDefaults(t *testing.T) {
	cfg := DefaultSandboxConfig()
	assert.Equal(t, defaultMemoryLimit, cfg.MemoryLimit)
	assert.Equal(t, 30*time.Second, cfg.CPUTimeLimit)
}

func TestSandboxLoadAndExecutePlugin(t *testing.T) {
	sb := NewSandbox(SandboxConfig{WorkerCount: 1})
	defer sb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handle, err := sb.LoadPlugin(ctx, "weather", "const x = 42;", "")
	require.NoError(t, err)

	result, err := handle.Execute(ctx, "1 + 1")
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}

func TestSandboxRegisterSourceMapAndRemapStack(t *testing.T) {
	sb := NewSandbox(SandboxConfig{WorkerCount: 1})
	defer sb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sb.RegisterSourceMap("weather", []byte(`{"version":3,"sources":["test.ts"],"mappings":"AAAA","names":[]}`))

	handle, err := sb.LoadPlugin(ctx, "weather", "const x = 1;", "plugin.js")
	require.NoError(t, err)

	result := handle.RemapStack("Error at plugin.js:10:5")
	assert.NotEmpty(t, result)
}
