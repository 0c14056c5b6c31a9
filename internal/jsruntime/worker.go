package jsruntime

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"modernc.org/quickjs"
)

// workerCommand is the sum type of operations a worker's command channel
// accepts. Only the fields for kind are populated, including that kind's
// one-shot reply channel (loadDone or execResult).
type workerCommand struct {
	kind workerCommandKind

	// loadModule fields
	pluginID string
	source   string
	filename string
	loadDone chan error

	// execute fields
	code       string
	execResult chan execResult
}

type workerCommandKind int

const (
	cmdLoadModule workerCommandKind = iota
	cmdExecute
)

type execResult struct {
	value string
	err   error
}

// worker owns exactly one QuickJS VM, pinned to the OS thread it was
// started on. All commands are serialized through cmdCh.
type worker struct {
	id       int
	cmdCh    chan workerCommand
	stopCh   chan struct{}
	timeout  time.Duration
	memLimit int

	// dead latches true once a command on this worker has wedged past
	// its CPU-time budget. There is no way to interrupt that Eval (see
	// execute's comment), so the worker's loop goroutine is gone for
	// good; dead lets every other method fail fast with
	// ErrWorkerShutdown instead of queuing behind a goroutine that will
	// never run again.
	dead atomic.Bool
}

func newWorker(id int, cfg PoolConfig) *worker {
	return &worker{
		id:       id,
		cmdCh:    make(chan workerCommand, 32),
		stopCh:   make(chan struct{}),
		timeout:  cfg.CPUTimeLimit,
		memLimit: cfg.MemoryLimit,
	}
}

// markDead latches the worker as wedged and takes over draining cmdCh so
// every command already queued behind the runaway Eval, and every command
// submitted afterward, resolves to ErrWorkerShutdown instead of waiting on
// a goroutine that will never come back.
func (w *worker) markDead() {
	if w.dead.CompareAndSwap(false, true) {
		go w.drainWithError(ErrWorkerShutdown())
	}
}

func (w *worker) run() {
	go w.loop()
}

func (w *worker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	vm, err := quickjs.NewVM()
	if err != nil {
		w.drainWithError(fmt.Errorf("worker %d: init VM: %w", w.id, err))
		return
	}
	defer vm.Close()

	for {
		select {
		case <-w.stopCh:
			return
		case cmd := <-w.cmdCh:
			w.handleSafely(vm, cmd)
			if w.dead.Load() {
				// A recovered panic marked this worker dead; stop
				// reading cmdCh so the drainWithError goroutine it
				// started is the only consumer left.
				return
			}
		}
	}
}

// handleSafely recovers a panic out of the QuickJS engine so one bad
// script's fault there kills the worker, not the process: the panicking
// command gets ErrExecution and every command behind it on this worker
// gets ErrWorkerShutdown via markDead, same as a wedged CPU quota.
func (w *worker) handleSafely(vm *quickjs.VM, cmd workerCommand) {
	defer func() {
		if r := recover(); r != nil {
			switch cmd.kind {
			case cmdLoadModule:
				cmd.loadDone <- ErrExecution(fmt.Sprintf("%s: engine panic: %v", cmd.filename, r))
			case cmdExecute:
				cmd.execResult <- execResult{err: ErrExecution(fmt.Sprintf("engine panic: %v", r))}
			}
			w.markDead()
		}
	}()
	w.handle(vm, cmd)
}

func (w *worker) drainWithError(err error) {
	for {
		select {
		case cmd := <-w.cmdCh:
			switch cmd.kind {
			case cmdLoadModule:
				cmd.loadDone <- err
			case cmdExecute:
				cmd.execResult <- execResult{err: err}
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *worker) handle(vm *quickjs.VM, cmd workerCommand) {
	switch cmd.kind {
	case cmdLoadModule:
		wrapper := fmt.Sprintf(`
			globalThis['PLUGIN_%[1]s'] = (function() {
				// --- plugin code start ---
				%[2]s
				// --- plugin code end ---
			})();
		`, cmd.pluginID, cmd.source)
		_, err, oom := w.evalTracked(vm, wrapper)
		if oom {
			cmd.loadDone <- ErrOutOfMemory()
			return
		}
		if err != nil {
			cmd.loadDone <- ErrExecution(fmt.Sprintf("%s: %v", cmd.filename, err))
			return
		}
		cmd.loadDone <- nil

	case cmdExecute:
		res, err, oom := w.evalTracked(vm, cmd.code)
		if oom {
			cmd.execResult <- execResult{err: ErrOutOfMemory()}
			return
		}
		if err != nil {
			cmd.execResult <- execResult{err: ErrExecution(err.Error())}
			return
		}
		cmd.execResult <- execResult{value: fmt.Sprint(res)}
	}
}

// evalTracked runs code through vm.Eval and reports whether the call grew
// the Go heap past memLimit. modernc.org/quickjs transpiles the QuickJS C
// engine straight to Go rather than binding a native library, so its
// allocations land on the Go heap and expose no separate per-context
// memory-limit knob the way the C API's JS_SetMemoryLimit does; tracking
// HeapAlloc growth around the call is the closest a host can get to that
// cap without one. It's a post-hoc check, not a preventive one: a script
// that allocates past the limit in one burst still finishes that Eval, but
// the call it ran in reports OutOfMemory instead of its result.
func (w *worker) evalTracked(vm *quickjs.VM, code string) (any, error, bool) {
	if w.memLimit <= 0 {
		res, err := vm.Eval(code, quickjs.EvalGlobal)
		return res, err, false
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	res, err := vm.Eval(code, quickjs.EvalGlobal)
	runtime.ReadMemStats(&after)

	grew := int64(after.HeapAlloc) - int64(before.HeapAlloc)
	return res, err, grew > int64(w.memLimit)
}

func (w *worker) stop() {
	close(w.stopCh)
}

func (w *worker) loadModule(ctx context.Context, pluginID, source, filename string) error {
	if w.dead.Load() {
		return ErrWorkerShutdown()
	}
	done := make(chan error, 1)
	cmd := workerCommand{kind: cmdLoadModule, pluginID: pluginID, source: source, filename: filename, loadDone: done}
	select {
	case w.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute submits code to the worker and enforces the pool's CPU time
// limit around the wait, not the evaluation itself: modernc.org/quickjs
// exposes no interrupt handle, so a timed-out Eval keeps running on the
// worker's single OS thread until it returns, and that thread never comes
// back to serve another command. Timing out here still surfaces
// CpuQuotaExceeded to the caller promptly rather than blocking them on a
// runaway script indefinitely, and it marks the worker dead so it doesn't
// silently swallow every command behind the wedge: callers after this one
// get ErrWorkerShutdown instead of each waiting out their own timeout.
func (w *worker) execute(ctx context.Context, code string) (string, error) {
	if w.dead.Load() {
		return "", ErrWorkerShutdown()
	}

	result := make(chan execResult, 1)
	cmd := workerCommand{kind: cmdExecute, code: code, execResult: result}
	select {
	case w.cmdCh <- cmd:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	var timeout <-chan time.Time
	if w.timeout > 0 {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-result:
		return res.value, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		w.markDead()
		return "", ErrCPUQuotaExceeded()
	}
}
