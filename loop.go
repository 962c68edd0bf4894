// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import "context"

// frame is a pending continuation on a fiber's explicit stack.
// The stack replaces native call recursion: arbitrarily long effect
// chains reduce in constant native stack space, and an interrupt
// checkpoint fits between every reduction.
type frame interface {
	frameKind() string
}

// bindFrame continues with a value handler.
type bindFrame struct {
	apply func(any) Effect
}

func (*bindFrame) frameKind() string { return "Bind" }

// foldFrame continues with a value handler or an error handler.
// Finalizer folds (interceptInterrupt) are the only frames that
// observe interruption causes during unwinding.
type foldFrame struct {
	onFail             func(Cause) Effect
	onSucceed          func(any) Effect
	interceptInterrupt bool
}

func (fr *foldFrame) frameKind() string {
	if fr.interceptInterrupt {
		return "Finalizer"
	}
	return "Fold"
}

// restoreMaskFrame restores the interrupt mask of an enclosing region.
type restoreMaskFrame struct {
	interruptible bool
}

func (*restoreMaskFrame) frameKind() string { return "RestoreMask" }

// shouldInterrupt reports whether the pending interrupt request must
// be acted upon now: one was posted, the fiber is not inside an
// uninterruptible region, and unwinding has not already begun.
func (f *Fiber) shouldInterrupt() bool {
	return !f.interrupting && f.interruptible && f.interruptOrigin.Load() != 0
}

// evaluate is the fiber execution loop. It reduces e against the
// continuation stack until the fiber completes or suspends; in the
// latter case ownership of the fiber transfers to whichever thread
// later fires the resumption. evaluate must only run on the fiber's
// current driving thread.
func (f *Fiber) evaluate(e Effect) {
	f.status.Store(uint32(StatusRunning))
	for e != nil {
		// Interrupt checkpoint between every reduction.
		if f.shouldInterrupt() {
			f.interrupting = true
			e = f.unwind(InterruptCause{Origin: f.interruptOrigin.Load()})
			continue
		}
		switch t := e.(type) {
		case succeedEffect:
			e = f.continueValue(t.value)
		case succeedWithEffect:
			v, c := runAnyThunk(t.thunk)
			if c != nil {
				e = f.unwind(c)
			} else {
				e = f.continueValue(v)
			}
		case failEffect:
			e = f.unwind(t.failure)
		case suspendEffect:
			e = runEffectThunk(t.thunk)
		case bindEffect:
			f.stack = append(f.stack, &bindFrame{apply: t.k})
			e = t.source
		case foldEffect:
			f.stack = append(f.stack, &foldFrame{
				onFail:             t.onFail,
				onSucceed:          t.onSucceed,
				interceptInterrupt: t.interceptInterrupt,
			})
			e = t.source
		case maskEffect:
			f.stack = append(f.stack, &restoreMaskFrame{interruptible: f.interruptible})
			f.interruptible = t.interruptible
			e = t.source
		case bracketEffect:
			e = f.expandBracket(t)
		case forkEffect:
			e = f.continueValue(f.fork(t.child))
		case yieldEffect:
			f.status.Store(uint32(StatusSuspended))
			f.rt.platform.Compute.Submit(func() {
				f.evaluate(succeedEffect{value: nil})
			})
			return
		case checkInterruptEffect:
			e = f.continueValue(nil)
		case asyncEffect:
			if e = f.enterAsync(t.register); e == nil {
				return
			}
		case blockingEffect:
			if e = f.enterBlocking(t); e == nil {
				return
			}
		case awaitEffect:
			if e = f.enterAsync(awaitRegister(t.target)); e == nil {
				return
			}
		case interruptEffect:
			t.target.requestInterrupt(f.id)
			if e = f.enterAsync(awaitRegister(t.target)); e == nil {
				return
			}
		default:
			panic("fiber: unknown effect in execution loop")
		}
	}
}

// continueValue pops frames until a value handler consumes v.
// An empty stack completes the fiber with Success(v).
func (f *Fiber) continueValue(v any) Effect {
	for n := len(f.stack); n > 0; n = len(f.stack) {
		fr := f.stack[n-1]
		f.stack = f.stack[:n-1]
		switch fr := fr.(type) {
		case *bindFrame:
			return runUserEffect(fr.apply, v)
		case *restoreMaskFrame:
			f.interruptible = fr.interruptible
			if f.shouldInterrupt() {
				// A request latched inside the masked region is
				// honored at the boundary, before any continuation
				// outside it runs.
				return succeedEffect{value: v}
			}
		case *foldFrame:
			if fr.onSucceed == nil {
				continue
			}
			return runUserEffect(fr.onSucceed, v)
		}
	}
	f.finish(Success(v))
	return nil
}

// unwind pops frames looking for the nearest error handler, skipping
// value handlers. While the fiber itself is being interrupted only
// finalizer folds observe the cause, so interruption can never be
// swallowed by ordinary error handling. An empty stack completes the
// fiber with Failure(c).
func (f *Fiber) unwind(c Cause) Effect {
	for n := len(f.stack); n > 0; n = len(f.stack) {
		fr := f.stack[n-1]
		f.stack = f.stack[:n-1]
		switch fr := fr.(type) {
		case *bindFrame:
		case *restoreMaskFrame:
			f.interruptible = fr.interruptible
		case *foldFrame:
			if f.interrupting && !fr.interceptInterrupt {
				continue
			}
			if fr.onFail == nil {
				continue
			}
			return runUserCause(fr.onFail, c)
		}
	}
	f.finish(Failure(c))
	return nil
}

// fork creates a child fiber, registers it as a weak child of f, and
// schedules it independently on the compute executor. The forking
// fiber continues with the child handle without waiting.
func (f *Fiber) fork(child Effect) *Fiber {
	cf := newFiber(f.rt, f)
	f.rt.platform.Compute.Submit(func() {
		cf.evaluate(child)
	})
	return cf
}

// expandBracket rewrites the acquire-release-use scope into masked
// folds at interpretation time, so the interruptibility restored for
// the use phase is the one actually in force at the bracket.
//
// acquire and release run masked; the finalizer folds intercept
// interruption, guaranteeing release runs exactly once per completed
// acquire on every path.
func (f *Fiber) expandBracket(b bracketEffect) Effect {
	restore := f.interruptible
	release := b.release
	use := b.use
	body := func(resource any) Effect {
		inner := maskEffect{
			source:        suspendEffect{thunk: func() Effect { return use(resource) }},
			interruptible: restore,
		}
		return foldEffect{
			source:             inner,
			interceptInterrupt: true,
			onFail: func(c Cause) Effect {
				return runRelease(release, resource, Failure(c),
					func(rc Cause) Cause { return ThenCause(c, rc) },
					failEffect{failure: c})
			},
			onSucceed: func(v any) Effect {
				return runRelease(release, resource, Success(v),
					func(rc Cause) Cause { return rc },
					succeedEffect{value: v})
			},
		}
	}
	return maskEffect{
		source:        bindEffect{source: b.acquire, k: body},
		interruptible: false,
	}
}

// runRelease runs the release action masked and combines a failing
// release with the original outcome.
func runRelease(release func(any, Exit) Effect, resource any, exit Exit, combine func(Cause) Cause, done Effect) Effect {
	rel := maskEffect{
		source:        suspendEffect{thunk: func() Effect { return release(resource, exit) }},
		interruptible: false,
	}
	return foldEffect{
		source:             rel,
		interceptInterrupt: true,
		onFail: func(rc Cause) Effect {
			return failEffect{failure: combine(rc)}
		},
		onSucceed: func(any) Effect {
			return done
		},
	}
}

// enterBlocking dispatches the thunk to the blocking pool through the
// async bridge. Interruptible calls receive a context cancelled on
// interruption; the cancelled context doubles as the bridge canceller,
// so interruption forces completion immediately. Non-interruptible
// calls register no canceller: interruption stays latched until the
// thunk itself returns and the resumption hits a checkpoint.
func (f *Fiber) enterBlocking(b blockingEffect) Effect {
	return f.enterAsync(func(resume func(Exit)) (*Exit, func()) {
		if b.interruptible {
			ctx, cancel := context.WithCancel(context.Background())
			f.rt.platform.Blocking.Submit(func() {
				resume(runBlockingThunk(b.run, ctx))
				cancel()
			})
			return nil, func() { cancel() }
		}
		f.rt.platform.Blocking.Submit(func() {
			resume(runBlockingThunk(b.run, context.Background()))
		})
		return nil, nil
	})
}

// awaitRegister adapts fiber completion to the async bridge.
// The canceller unregisters the observer, so an interrupted awaiter
// resolves immediately instead of waiting for the target.
func awaitRegister(target *Fiber) AsyncRegister {
	return func(resume func(Exit)) (*Exit, func()) {
		if ex, err := target.Poll(); err == nil {
			immediate := Success(ex)
			return &immediate, nil
		}
		unregister := target.onExit(func(ex Exit) {
			resume(Success(ex))
		})
		return nil, func() { unregister() }
	}
}

// exitToEffect resumes a fiber from an Exit delivered by the bridge.
func exitToEffect(ex Exit) Effect {
	if v, ok := ex.Value(); ok {
		return succeedEffect{value: v}
	}
	c, _ := ex.Cause()
	return failEffect{failure: c}
}

// runAnyThunk evaluates a user thunk, converting panics to defects.
func runAnyThunk(thunk func() any) (v any, c Cause) {
	defer func() {
		if r := recover(); r != nil {
			v, c = nil, DieCause{Defect: r}
		}
	}()
	v = thunk()
	return
}

// runEffectThunk evaluates a deferred effect construction, converting
// panics to defects and nil effects to unit.
func runEffectThunk(thunk func() Effect) (e Effect) {
	defer func() {
		if r := recover(); r != nil {
			e = failEffect{failure: DieCause{Defect: r}}
		}
	}()
	if e = thunk(); e == nil {
		e = succeedEffect{value: nil}
	}
	return
}

// runUserEffect applies a user continuation, converting panics to
// defects and nil effects to unit.
func runUserEffect(fn func(any) Effect, v any) (e Effect) {
	defer func() {
		if r := recover(); r != nil {
			e = failEffect{failure: DieCause{Defect: r}}
		}
	}()
	if e = fn(v); e == nil {
		e = succeedEffect{value: nil}
	}
	return
}

// runUserCause applies a user error handler, converting panics to
// defects sequenced after the original cause.
func runUserCause(fn func(Cause) Effect, c Cause) (e Effect) {
	defer func() {
		if r := recover(); r != nil {
			e = failEffect{failure: ThenCause(c, DieCause{Defect: r})}
		}
	}()
	if e = fn(c); e == nil {
		e = succeedEffect{value: nil}
	}
	return
}
