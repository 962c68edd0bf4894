// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import "context"

// Effect is an immutable description of a computation to be
// interpreted by a fiber, not the computation itself. It is a closed
// tagged union over a small fixed set of variants; richer combinators
// are built on top of these forms.
type Effect interface {
	effect() // unexported marker method
}

// succeedEffect completes immediately with a value.
type succeedEffect struct{ value any }

func (succeedEffect) effect() {}

// succeedWithEffect defers a side-effecting thunk until interpretation.
// Panics in the thunk become DieCause.
type succeedWithEffect struct{ thunk func() any }

func (succeedWithEffect) effect() {}

// failEffect fails immediately with a cause.
type failEffect struct{ failure Cause }

func (failEffect) effect() {}

// suspendEffect defers construction of an effect until interpretation.
// Self-referential chains (Forever) are built with it so that
// construction stays lazy and native stack depth stays bounded.
type suspendEffect struct{ thunk func() Effect }

func (suspendEffect) effect() {}

// bindEffect sequences source before the continuation k.
type bindEffect struct {
	source Effect
	k      func(any) Effect
}

func (bindEffect) effect() {}

// foldEffect sequences source before one of two continuations.
// interceptInterrupt marks finalizer folds, the only handlers that
// observe interruption causes during unwinding.
type foldEffect struct {
	source             Effect
	onFail             func(Cause) Effect
	onSucceed          func(any) Effect
	interceptInterrupt bool
}

func (foldEffect) effect() {}

// asyncEffect suspends the fiber on external completion.
type asyncEffect struct{ register AsyncRegister }

func (asyncEffect) effect() {}

// blockingEffect runs a thunk on the blocking pool.
type blockingEffect struct {
	run           func(ctx context.Context) (any, error)
	interruptible bool
}

func (blockingEffect) effect() {}

// forkEffect starts child in a new fiber and continues with *Fiber.
type forkEffect struct{ child Effect }

func (forkEffect) effect() {}

// bracketEffect is the acquire-release-use resource scope.
type bracketEffect struct {
	acquire Effect
	release func(resource any, exit Exit) Effect
	use     func(resource any) Effect
}

func (bracketEffect) effect() {}

// maskEffect sets the interruptibility of source, restoring the
// previous setting afterwards.
type maskEffect struct {
	source        Effect
	interruptible bool
}

func (maskEffect) effect() {}

// yieldEffect hands the carrier thread back to the compute executor.
type yieldEffect struct{}

func (yieldEffect) effect() {}

// checkInterruptEffect is an explicit interrupt checkpoint.
type checkInterruptEffect struct{}

func (checkInterruptEffect) effect() {}

// interruptEffect requests interruption of target and suspends until
// the target's Exit is known, continuing with that Exit as its value.
type interruptEffect struct{ target *Fiber }

func (interruptEffect) effect() {}

// awaitEffect suspends until target completes, continuing with its
// Exit as a value.
type awaitEffect struct{ target *Fiber }

func (awaitEffect) effect() {}

// AsyncRegister admits a callback-based asynchronous API. It receives
// a one-shot resume callback and returns (immediate, cancel):
// a non-nil immediate completes the suspension on the spot without a
// real suspension; cancel, if non-nil, is invoked when the enclosing
// fiber is interrupted while suspended, forcing completion.
//
// register is invoked exactly once, on the fiber's current carrier
// thread. It must either invoke resume (from any thread, any time) or
// return a non-nil immediate, never both. Calls to resume after the
// first are silently discarded.
type AsyncRegister func(resume func(Exit)) (immediate *Exit, cancel func())

// Succeed describes a computation that completes with v.
func Succeed(v any) Effect {
	return succeedEffect{value: v}
}

// SucceedWith describes a side-effecting computation evaluated at
// interpretation time. A panic in the thunk becomes a DieCause.
func SucceedWith(thunk func() any) Effect {
	return succeedWithEffect{thunk: thunk}
}

// Fail describes a computation failing with an expected error.
func Fail(err error) Effect {
	return failEffect{failure: FailCause{Err: err}}
}

// Die describes a computation failing with an unrecoverable defect.
func Die(defect any) Effect {
	return failEffect{failure: DieCause{Defect: defect}}
}

// Halt describes a computation failing with the given cause.
func Halt(c Cause) Effect {
	if c == nil {
		c = EmptyCause{}
	}
	return failEffect{failure: c}
}

// Suspend defers construction of an effect until interpretation time.
func Suspend(thunk func() Effect) Effect {
	return suspendEffect{thunk: thunk}
}

// Bind sequences m before the continuation f (monadic bind).
func Bind(m Effect, f func(any) Effect) Effect {
	return bindEffect{source: m, k: f}
}

// Map applies a pure function to the result of m.
func Map(m Effect, f func(any) any) Effect {
	return bindEffect{source: m, k: func(v any) Effect {
		return succeedEffect{value: f(v)}
	}}
}

// Then sequences m before n, discarding m's result.
func Then(m, n Effect) Effect {
	return bindEffect{source: m, k: func(any) Effect { return n }}
}

// Fold sequences m before one of two continuations: onFail receives
// the cause if m fails, onSucceed receives the value if it succeeds.
// While the running fiber is itself being interrupted, Fold is
// skipped; only finalizers run until the interrupt exit is final.
func Fold(m Effect, onFail func(Cause) Effect, onSucceed func(any) Effect) Effect {
	return foldEffect{source: m, onFail: onFail, onSucceed: onSucceed}
}

// Catch recovers expected failures raised by Fail. Defects pass
// through untouched, as does interruption of the running fiber.
func Catch(m Effect, recover func(err error) Effect) Effect {
	return Fold(m, func(c Cause) Effect {
		if err, ok := FirstFailure(c); ok && !Died(c) {
			return recover(err)
		}
		return failEffect{failure: c}
	}, nil)
}

// CatchCause recovers any cause raised by m, including defects. It
// cannot intercept interruption of the running fiber, but an
// InterruptCause re-raised as an ordinary failure (Join of an
// interrupted child, say) is a cause like any other and is handed
// to recover.
func CatchCause(m Effect, recover func(c Cause) Effect) Effect {
	return Fold(m, recover, nil)
}

// Ensuring runs finalizer after m on every completion path: success,
// failure, or interruption. A failure in the finalizer is recorded
// sequentially after m's own cause, never in place of it.
func Ensuring(m Effect, finalizer Effect) Effect {
	return Bracket(
		succeedEffect{value: nil},
		func(_ any, _ Exit) Effect { return finalizer },
		func(_ any) Effect { return m },
	)
}

// Bracket describes an acquire-release-use resource scope.
// acquire and release run uninterruptibly; interrupt requests arriving
// during either phase are latched until the phase completes. Once use
// begins, interruption is honored at the next checkpoint and release
// still runs with the interruption recorded in its Exit argument.
// For every completed acquire, release runs exactly once.
func Bracket(acquire Effect, release func(resource any, exit Exit) Effect, use func(resource any) Effect) Effect {
	return bracketEffect{acquire: acquire, release: release, use: use}
}

// Uninterruptible runs m with interruption masked. Requests arriving
// while masked are latched and honored once the mask is restored.
func Uninterruptible(m Effect) Effect {
	return maskEffect{source: m, interruptible: false}
}

// Interruptible runs m with interruption unmasked.
func Interruptible(m Effect) Effect {
	return maskEffect{source: m, interruptible: true}
}

// Async admits a callback-based asynchronous API into the fiber model.
// See AsyncRegister for the registration contract.
func Async(register AsyncRegister) Effect {
	return asyncEffect{register: register}
}

// Blocking runs thunk on the blocking executor, keeping carrier
// threads of the compute pool free. The call is not interruptible:
// interruption of the enclosing fiber is deferred until the thunk
// itself returns.
func Blocking(thunk func() (any, error)) Effect {
	return blockingEffect{run: func(context.Context) (any, error) { return thunk() }}
}

// BlockingContext runs f on the blocking executor with a context that
// is cancelled when the enclosing fiber is interrupted, giving the
// call a best-effort interrupt signal.
func BlockingContext(f func(ctx context.Context) (any, error)) Effect {
	return blockingEffect{run: f, interruptible: true}
}

// Fork starts m in a new fiber scheduled independently on the compute
// executor and continues immediately with the new *Fiber. The forking
// fiber does not wait.
func Fork(m Effect) Effect {
	return forkEffect{child: m}
}

// YieldNow hands the carrier thread back to the compute executor,
// letting other fibers run before this one continues.
func YieldNow() Effect {
	return yieldEffect{}
}

// CheckInterrupt is an explicit interrupt checkpoint. The interpreter
// already checks between every frame reduction; CheckInterrupt inserts
// an additional checkpoint inside long user-level computations.
func CheckInterrupt() Effect {
	return checkInterruptEffect{}
}

// Forever repeats m indefinitely. It terminates only by failure or
// interruption; the chain is constructed lazily so arbitrarily long
// repetition runs in bounded native stack space.
func Forever(m Effect) Effect {
	return bindEffect{source: m, k: func(any) Effect {
		return suspendEffect{thunk: func() Effect { return Forever(m) }}
	}}
}

// Repeat runs m the given number of times in sequence, continuing
// with the last result. times < 1 completes immediately with nil.
// Like Forever, the chain is constructed lazily.
func Repeat(m Effect, times int) Effect {
	if times < 1 {
		return succeedEffect{value: nil}
	}
	return bindEffect{source: m, k: func(v any) Effect {
		if times == 1 {
			return succeedEffect{value: v}
		}
		return suspendEffect{thunk: func() Effect { return Repeat(m, times-1) }}
	}}
}
