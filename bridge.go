// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import "code.hybscloud.com/kont"

// suspension is one async boundary crossing of a fiber.
//
// The gate is an affine (at-most-once) continuation: the external
// completion callback, the register fast path, and the interruptor
// all race through gate.TryResume, and exactly one wins the single
// armed→fired transition. Calls after the first are silently
// discarded with no observable effect.
//
// The remaining fields are guarded by the owning fiber's mutex.
type suspension struct {
	gate *kont.Affine[Exit, Exit]

	cancel             func()
	cancelRan          bool
	registered         bool
	interruptible      bool
	interruptRequested bool
}

func passExit(ex Exit) Exit { return ex }

// enterAsync suspends the fiber on an external completion. register
// runs exactly once on the current driving thread. A non-nil return
// continues the loop inline (the fast path for an immediate Exit);
// nil means the fiber is suspended and the driving thread is released.
func (f *Fiber) enterAsync(register AsyncRegister) Effect {
	s := &suspension{
		gate:          kont.Once(passExit),
		interruptible: f.interruptible,
	}
	f.mu.Lock()
	f.susp = s
	f.suspTrace = f.frameTrace()
	f.mu.Unlock()
	f.status.Store(uint32(StatusSuspended))

	immediate, cancel := f.callRegister(register, s)

	f.mu.Lock()
	s.registered = true
	s.cancel = cancel
	// Re-read the request word: a request posted after the last
	// checkpoint but before the suspension was published never went
	// through interruptSuspension.
	requested := s.interruptRequested ||
		(s.interruptible && f.interruptOrigin.Load() != 0)
	f.mu.Unlock()

	if immediate != nil {
		if ex, ok := s.gate.TryResume(*immediate); ok {
			f.clearSuspension(s)
			f.status.Store(uint32(StatusRunning))
			return exitToEffect(ex)
		}
		// The completion callback already won the gate; the scheduled
		// resumption owns the fiber now.
		return nil
	}
	if requested && cancel != nil {
		// An interrupt raced in while register was still running and
		// found no canceller yet; act on its behalf.
		f.fireInterrupt(s)
	}
	return nil
}

// callRegister invokes register, converting a panic into a defect
// resumption through the gate so the fiber still terminates.
func (f *Fiber) callRegister(register AsyncRegister, s *suspension) (immediate *Exit, cancel func()) {
	defer func() {
		if r := recover(); r != nil {
			immediate, cancel = nil, nil
			if ex, ok := s.gate.TryResume(Failure(DieCause{Defect: r})); ok {
				f.scheduleResume(s, ex)
			}
		}
	}()
	resume := func(ex Exit) {
		if v, ok := s.gate.TryResume(ex); ok {
			f.scheduleResume(s, v)
		}
	}
	return register(resume)
}

// scheduleResume hands the fiber's continuation to the compute
// executor. Resumption never runs inline on the completing thread,
// bounding stack depth and avoiding re-entrant locking.
func (f *Fiber) scheduleResume(s *suspension, ex Exit) {
	f.rt.platform.Compute.Submit(func() {
		f.clearSuspension(s)
		f.evaluate(exitToEffect(ex))
	})
}

func (f *Fiber) clearSuspension(s *suspension) {
	f.mu.Lock()
	if f.susp == s {
		f.susp = nil
		f.suspTrace = nil
	}
	f.mu.Unlock()
}

// interruptSuspension acts on a posted interrupt request while the
// fiber is suspended. With a canceller present the suspension is
// forced to an Interrupt resolution; with none it is left pending and
// the fiber resolves as interrupted as soon as the callback fires.
// Uninterruptible suspensions only latch the request.
func (f *Fiber) interruptSuspension() {
	f.mu.Lock()
	s := f.susp
	if s == nil || !s.interruptible {
		f.mu.Unlock()
		return
	}
	s.interruptRequested = true
	registered := s.registered
	cancel := s.cancel
	f.mu.Unlock()
	if !registered {
		// register is still running on the driving thread; it will
		// observe the request once the canceller is known.
		return
	}
	if cancel == nil {
		return
	}
	f.fireInterrupt(s)
}

// fireInterrupt runs the canceller at most once and resolves the
// suspension to an Interrupt Exit through the gate.
func (f *Fiber) fireInterrupt(s *suspension) {
	f.mu.Lock()
	ran := s.cancelRan
	s.cancelRan = true
	cancel := s.cancel
	f.mu.Unlock()
	if ran {
		return
	}
	if cancel != nil {
		f.runCanceller(cancel)
	}
	if ex, ok := s.gate.TryResume(Failure(InterruptCause{Origin: f.interruptOrigin.Load()})); ok {
		f.scheduleResume(s, ex)
	}
}

// runCanceller runs a cancellation action, reporting a panicking
// canceller to the failure sink instead of crashing the interruptor.
func (f *Fiber) runCanceller(cancel func()) {
	defer func() {
		if r := recover(); r != nil {
			f.rt.platform.ReportFailure(DieCause{Defect: r})
		}
	}()
	cancel()
}

// frameTrace labels the pending continuation frames, innermost first.
// Callers must hold f.mu; the driving thread records it at suspension
// boundaries so dumps never race frame reductions.
func (f *Fiber) frameTrace() []string {
	trace := make([]string, 0, len(f.stack))
	for i := len(f.stack) - 1; i >= 0; i-- {
		trace = append(trace, f.stack[i].frameKind())
	}
	return trace
}
