package jsruntime

import (
	"time"

	"github.com/mmacedoeu/zeroclaw/pkg/pluginsdk"
)

const (
	defaultMaxWorkers   = 4
	defaultMemoryLimit  = 64 * 1024 * 1024
	defaultCPUTimeLimit = 30 * time.Second
)

// PoolConfig governs the shared worker pool every plugin is scheduled onto.
type PoolConfig struct {
	MaxWorkers int
	// MemoryLimit caps the Go heap growth a single worker.execute or
	// loadModule call may cause, in bytes; breaching it fails that call
	// with ErrOutOfMemory. See worker.go's evalTracked for why this is a
	// post-hoc heap check rather than a native engine-side cap.
	MemoryLimit        int
	CPUTimeLimit       time.Duration
	DefaultPermissions pluginsdk.PluginPermissions
}

// DefaultPoolConfig returns the pool defaults used when the host does not
// override them.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers:   defaultMaxWorkers,
		MemoryLimit:  defaultMemoryLimit,
		CPUTimeLimit: defaultCPUTimeLimit,
	}
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = defaultMemoryLimit
	}
	if c.CPUTimeLimit <= 0 {
		c.CPUTimeLimit = defaultCPUTimeLimit
	}
	return c
}

// RuntimeConfig configures a single worker's VM for one plugin context.
type RuntimeConfig struct {
	PluginID     string
	MemoryLimit  int
	CPUTimeLimit time.Duration
	Permissions  pluginsdk.PluginPermissions
}

func runtimeConfigFromPool(pool PoolConfig, pluginID string) RuntimeConfig {
	return RuntimeConfig{
		PluginID:     pluginID,
		MemoryLimit:  pool.MemoryLimit,
		CPUTimeLimit: pool.CPUTimeLimit,
		Permissions:  pool.DefaultPermissions,
	}
}

// SandboxConfig is the configuration surface a host passes to NewSandbox.
type SandboxConfig struct {
	WorkerCount  int
	MemoryLimit  int
	CPUTimeLimit time.Duration
	Permissions  pluginsdk.PluginPermissions
}

// DefaultSandboxConfig mirrors DefaultPoolConfig but without a worker count
// override, so NewSandbox falls back to the pool default.
func DefaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		MemoryLimit:  defaultMemoryLimit,
		CPUTimeLimit: defaultCPUTimeLimit,
	}
}

func (c SandboxConfig) toPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers:         c.WorkerCount,
		MemoryLimit:        c.MemoryLimit,
		CPUTimeLimit:       c.CPUTimeLimit,
		DefaultPermissions: c.Permissions,
	}.withDefaults()
}
