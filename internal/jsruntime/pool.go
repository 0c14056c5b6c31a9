package jsruntime

import (
	"context"
	"sync"
)

// PluginID uniquely identifies a loaded plugin within a pool.
type PluginID string

// Pool manages a fixed set of QuickJS worker threads and assigns plugins
// to them round-robin. QuickJS contexts are not safe to share across
// goroutines, so each worker owns its own VM for its own lifetime.
type Pool struct {
	mu      sync.Mutex
	workers []*worker
	assign  map[PluginID]int
	config  PoolConfig
}

// NewPool starts cfg.MaxWorkers worker threads and returns a Pool ready to
// accept plugin loads.
func NewPool(cfg PoolConfig) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		workers: make([]*worker, cfg.MaxWorkers),
		assign:  make(map[PluginID]int),
		config:  cfg,
	}
	for i := range p.workers {
		w := newWorker(i, cfg)
		w.run()
		p.workers[i] = w
	}
	return p
}

// Close stops every worker thread. It does not wait for in-flight
// executions; callers should ensure no commands are in flight first.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.stop()
	}
}

// LoadPlugin assigns id to a worker (round-robin on first sight, sticky
// thereafter) and loads source into that worker's VM.
func (p *Pool) LoadPlugin(ctx context.Context, id PluginID, source, filename string) (*Handle, error) {
	idx := p.assignWorker(id)
	w := p.workers[idx]

	if err := w.loadModule(ctx, string(id), source, filename); err != nil {
		return nil, wrapRuntimeErr(err)
	}

	return &Handle{pluginID: id, workerIndex: idx, worker: w}, nil
}

func (p *Pool) assignWorker(id PluginID) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.assign[id]; ok {
		return idx
	}
	idx := len(p.assign) % len(p.workers)
	p.assign[id] = idx
	return idx
}

// Handle lets callers execute code in a specific plugin's worker-owned
// context. It is cheap to copy and safe for concurrent use; calls are
// serialized through the worker's command channel.
type Handle struct {
	pluginID    PluginID
	workerIndex int
	worker      *worker
}

// Execute runs code in this plugin's VM and returns its string rendering.
func (h *Handle) Execute(ctx context.Context, code string) (string, error) {
	result, err := h.worker.execute(ctx, code)
	if err != nil {
		return "", wrapRuntimeErr(err)
	}
	return result, nil
}

// PluginID returns the identifier this handle was loaded under.
func (h *Handle) PluginID() PluginID { return h.pluginID }

// WorkerIndex returns which pool worker this plugin is pinned to.
func (h *Handle) WorkerIndex() int { return h.workerIndex }
