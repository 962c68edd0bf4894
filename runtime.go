// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Runtime owns a Platform and launches root fibers.
// Construct one per process or per isolated workload; all fibers a
// Runtime launches share its Platform.
type Runtime struct {
	platform Platform
	fibers   fiberRegistry
}

// NewRuntime creates a Runtime from the given options. Omitted
// concerns take the defaults described on each Option.
func NewRuntime(opts ...Option) *Runtime {
	return &Runtime{platform: newPlatform(opts)}
}

// Platform returns the Runtime's immutable configuration.
func (rt *Runtime) Platform() Platform {
	return rt.platform
}

// Shutdown stops the Runtime's own executors. Fibers still suspended
// afterwards never resume; call it only once all work is observed.
func (rt *Runtime) Shutdown() {
	if p, ok := rt.platform.Compute.(*ComputePool); ok {
		p.Close()
	}
	rt.platform.Blocking.Close()
}

// RunAsync constructs a fresh root fiber for e and begins stepping it
// synchronously on the calling thread as far as possible — the fast
// path for purely synchronous computations — continuing via the
// bridge or the blocking executor if it suspends. callback is invoked
// exactly once with the final Exit, on whichever thread completes the
// fiber. The returned fiber handle may be used for introspection or
// interruption.
func (rt *Runtime) RunAsync(e Effect, callback func(Exit)) *Fiber {
	f := newFiber(rt, nil)
	f.onExit(callback)
	f.evaluate(e)
	return f
}

// RunSync runs e to completion, blocking the calling thread until the
// Exit is delivered, then returns it without panicking. The handoff
// is a one-shot SPSC cell: the completing thread is the only
// producer, the blocked caller the only consumer, and the exactly-once
// callback guarantees a single element ever passes through.
func (rt *Runtime) RunSync(e Effect) Exit {
	var cell lfq.SPSC[Exit]
	cell.Init(2)
	rt.RunAsync(e, func(ex Exit) {
		slot := ex
		for cell.Enqueue(&slot) != nil {
			// Single producer, single element: cannot stay full.
		}
	})
	var bo iox.Backoff
	for {
		ex, err := cell.Dequeue()
		if err == nil {
			return ex
		}
		bo.Wait()
	}
}

// Run runs e to completion and returns its value. On failure it
// returns a *FailureError carrying the full Cause; this is the sole
// entry point that surfaces failures as an error rather than a value.
func (rt *Runtime) Run(e Effect) (any, error) {
	ex := rt.RunSync(e)
	if v, ok := ex.Value(); ok {
		return v, nil
	}
	c, _ := ex.Cause()
	return nil, &FailureError{Failure: c}
}

// FailureError wraps the Cause of a failed root computation for the
// Run entry point.
type FailureError struct {
	Failure Cause
}

// Error renders the wrapped cause tree.
func (e *FailureError) Error() string {
	return "fiber: run failed\n" + RenderCause(e.Failure)
}

// Unwrap exposes the first expected failure in the cause, so
// errors.Is and errors.As see through the wrapper.
func (e *FailureError) Unwrap() error {
	if err, ok := FirstFailure(e.Failure); ok {
		return err
	}
	return nil
}
