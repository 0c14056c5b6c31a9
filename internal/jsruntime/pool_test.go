package jsruntime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolLoadAndExecutePlugin(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2})
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handle, err := pool.LoadPlugin(ctx, "weather", "const x = 1;", "plugin.js")
	require.NoError(t, err)
	assert.Equal(t, PluginID("weather"), handle.PluginID())

	result, err := handle.Execute(ctx, "1 + 1")
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}

func TestPoolAssignsPluginsRoundRobin(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2})
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h1, err := pool.LoadPlugin(ctx, "p1", "1;", "p1.js")
	require.NoError(t, err)
	h2, err := pool.LoadPlugin(ctx, "p2", "1;", "p2.js")
	require.NoError(t, err)
	h3, err := pool.LoadPlugin(ctx, "p3", "1;", "p3.js")
	require.NoError(t, err)

	assert.Equal(t, 0, h1.WorkerIndex())
	assert.Equal(t, 1, h2.WorkerIndex())
	assert.Equal(t, 0, h3.WorkerIndex())
}

func TestPoolStickyAssignmentForSamePlugin(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2})
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h1, err := pool.LoadPlugin(ctx, "weather", "1;", "w.js")
	require.NoError(t, err)
	h2, err := pool.LoadPlugin(ctx, "weather", "2;", "w.js")
	require.NoError(t, err)

	assert.Equal(t, h1.WorkerIndex(), h2.WorkerIndex())
}
