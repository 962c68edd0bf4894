// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"github.com/hashicorp/go-metrics"
)

// FiberStatus is the lifecycle state of a fiber.
type FiberStatus uint32

const (
	// StatusRunning means a carrier thread is reducing the fiber.
	StatusRunning FiberStatus = iota
	// StatusSuspended means the fiber awaits external completion.
	StatusSuspended
	// StatusDone means the fiber's Exit is final.
	StatusDone
)

// String returns the status name.
func (s FiberStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusDone:
		return "done"
	}
	return "unknown"
}

// Fiber is a lightweight, cooperatively scheduled unit of effect
// execution. At most one carrier thread drives a fiber at any
// instant; ownership transfers explicitly at suspension and
// resumption boundaries.
//
// The continuation stack and interrupt mask are owned by the driving
// thread. The interrupt-request transition is a single atomic CAS
// performable by any thread holding the fiber; everything else shared
// sits behind the fiber's mutex.
type Fiber struct {
	id       FiberID
	rt       *Runtime
	parentID FiberID

	// Owned by the driving thread.
	stack         []frame
	interruptible bool
	interrupting  bool

	// interruptOrigin doubles as the request flag: fiber ids start
	// at 1, so a nonzero value means RequestedBy(origin). Both words
	// are read across threads, so they use the sequentially consistent
	// stdlib atomics rather than the relaxed atomix ones.
	interruptOrigin atomic.Uint32
	status          atomic.Uint32

	mu        sync.Mutex
	susp      *suspension
	observers []*exitObserver
	exit      Exit
	completed bool
	children  map[FiberID]struct{}
	suspTrace []string
}

// exitObserver is a registered completion callback. removed is set by
// the unregister closure handed out by onExit.
type exitObserver struct {
	fn      func(Exit)
	removed bool
}

func newFiber(rt *Runtime, parent *Fiber) *Fiber {
	f := &Fiber{
		id:            nextFiberID(),
		rt:            rt,
		interruptible: true,
	}
	if parent != nil {
		f.parentID = parent.id
		parent.addChild(f.id)
	}
	rt.fibers.add(f)
	rt.platform.Supervisor.OnStart(f)
	metrics.IncrCounter(MetricFiberStartCount, 1)
	return f
}

// ID returns the fiber's unique, monotonically assigned identity.
func (f *Fiber) ID() FiberID {
	return f.id
}

// Status returns the fiber's current lifecycle state.
func (f *Fiber) Status() FiberStatus {
	return FiberStatus(f.status.Load())
}

// Poll returns the fiber's Exit without suspending.
// Returns iox.ErrWouldBlock while the fiber has not completed.
func (f *Fiber) Poll() (Exit, error) {
	if FiberStatus(f.status.Load()) != StatusDone {
		return Exit{}, iox.ErrWouldBlock
	}
	f.mu.Lock()
	ex := f.exit
	f.mu.Unlock()
	return ex, nil
}

// Await describes a computation suspending until this fiber
// completes, continuing with its Exit as an ordinary value.
// Failures of the target do not propagate to the awaiting fiber.
func (f *Fiber) Await() Effect {
	return awaitEffect{target: f}
}

// Join describes a computation suspending until this fiber completes,
// then continuing with its success value or failing with its cause.
func (f *Fiber) Join() Effect {
	return Bind(awaitEffect{target: f}, func(v any) Effect {
		ex := v.(Exit)
		if val, ok := ex.Value(); ok {
			return succeedEffect{value: val}
		}
		c, _ := ex.Cause()
		return failEffect{failure: c}
	})
}

// Interrupt describes a computation that requests interruption of
// this fiber and suspends until the target's Exit is known, so the
// interruptor deterministically observes completion of cleanup. The
// target's Exit is the continuation value.
func (f *Fiber) Interrupt() Effect {
	return interruptEffect{target: f}
}

// onExit registers fn to be called with the fiber's Exit. When the
// fiber is already done, fn runs immediately on the calling thread.
// The returned closure unregisters fn; it reports whether fn was
// still pending.
func (f *Fiber) onExit(fn func(Exit)) func() bool {
	f.mu.Lock()
	if f.completed {
		ex := f.exit
		f.mu.Unlock()
		fn(ex)
		return func() bool { return false }
	}
	ob := &exitObserver{fn: fn}
	f.observers = append(f.observers, ob)
	f.mu.Unlock()
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if ob.removed || f.completed {
			return false
		}
		ob.removed = true
		return true
	}
}

// requestInterrupt posts an interrupt request on behalf of origin.
// The first request wins the CAS; later requests are no-ops. The
// request is observed at the fiber's next interrupt checkpoint, or
// immediately when the fiber is suspended interruptibly.
func (f *Fiber) requestInterrupt(origin FiberID) {
	if f.interruptOrigin.CompareAndSwap(0, origin) {
		metrics.IncrCounter(MetricFiberInterruptCount, 1)
	}
	f.interruptSuspension()
}

// finish records the terminal Exit, notifies observers, and reports
// unobserved failures to the Platform's failure sink.
func (f *Fiber) finish(ex Exit) {
	f.mu.Lock()
	f.completed = true
	f.exit = ex
	f.susp = nil
	f.suspTrace = nil
	obs := f.observers
	f.observers = nil
	f.mu.Unlock()
	f.status.Store(uint32(StatusDone))

	f.rt.platform.Supervisor.OnEnd(f, ex)
	metrics.IncrCounter(MetricFiberDoneCount, 1)
	if ex.Interrupted() {
		metrics.IncrCounter(MetricFiberInterruptedCount, 1)
	}

	if p, ok := f.rt.fibers.lookup(f.parentID); ok {
		p.removeChild(f.id)
	}
	f.rt.fibers.remove(f.id)

	notified := false
	for _, ob := range obs {
		if ob.removed {
			continue
		}
		notified = true
		ob.fn(ex)
	}
	if !notified {
		if c, ok := ex.Cause(); ok {
			metrics.IncrCounter(MetricFiberUnobservedCount, 1)
			f.rt.platform.ReportFailure(c)
		}
	}
}

func (f *Fiber) addChild(id FiberID) {
	f.mu.Lock()
	if f.children == nil {
		f.children = make(map[FiberID]struct{})
	}
	f.children[id] = struct{}{}
	f.mu.Unlock()
}

func (f *Fiber) removeChild(id FiberID) {
	f.mu.Lock()
	delete(f.children, id)
	f.mu.Unlock()
}
