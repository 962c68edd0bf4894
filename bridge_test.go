// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/fiber"
	"code.hybscloud.com/iox"
)

func TestAsyncImmediate(t *testing.T) {
	rt := newRuntime(t)

	f := rt.RunAsync(fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		ex := fiber.Success(7)
		return &ex, nil
	}), func(fiber.Exit) {})

	// The immediate path resolves on the calling thread; the fiber is
	// done before RunAsync returns.
	if f.Status() != fiber.StatusDone {
		t.Fatalf("status %s after immediate resolution, want done", f.Status())
	}
	ex, err := f.Poll()
	if err != nil {
		t.Fatalf("Poll() error %v", err)
	}
	if v, _ := ex.Value(); v != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

func TestAsyncResumeFromAnotherGoroutine(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		go resume(fiber.Success("handed off"))
		return nil, nil
	})
	if got := runValue(t, rt, e); got != "handed off" {
		t.Fatalf("got %v, want %q", got, "handed off")
	}
}

func TestAsyncResumeFailureUnwinds(t *testing.T) {
	rt := newRuntime(t)
	errBoom := errors.New("boom")

	e := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		go resume(fiber.Failure(fiber.FailCause{Err: errBoom}))
		return nil, nil
	})
	c := runCause(t, rt, e)
	if err, _ := fiber.FirstFailure(c); err != errBoom {
		t.Fatalf("got cause %s, want %v", fiber.RenderCause(c), errBoom)
	}
}

// TestAsyncDuplicateResumeDiscarded drives one fiber across two
// suspensions while its first resume callback keeps being invoked
// from a timer: the first invocation resumes the fiber with 42,
// the one at 500ms lands after the gate fired and must vanish
// without corrupting the second suspension, which resolves to "ok"
// at 1000ms and decides the final value.
func TestAsyncDuplicateResumeDiscarded(t *testing.T) {
	rt := newRuntime(t)

	var sawFirst atomic.Int32
	first := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		go resume(fiber.Success(42))
		time.AfterFunc(500*time.Millisecond, func() {
			resume(fiber.Success(42))
		})
		return nil, nil
	})
	second := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		time.AfterFunc(1000*time.Millisecond, func() {
			resume(fiber.Success("ok"))
		})
		return nil, nil
	})
	e := fiber.Bind(first, func(v any) fiber.Effect {
		if v == 42 {
			sawFirst.Add(1)
		}
		return second
	})

	if got := runValue(t, rt, e); got != "ok" {
		t.Fatalf("got %v, want %q", got, "ok")
	}
	if sawFirst.Load() != 1 {
		t.Fatalf("first suspension observed %d times, want exactly 1", sawFirst.Load())
	}
}

func TestAsyncRegisterPanicBecomesDefect(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		panic("register blew up")
	})
	c := runCause(t, rt, e)
	if defect, ok := fiber.FirstDefect(c); !ok || defect != "register blew up" {
		t.Fatalf("got cause %s, want defect %q", fiber.RenderCause(c), "register blew up")
	}
}

// TestAsyncCancellerRunsOnInterrupt interrupts a suspended fiber that
// registered a canceller: the canceller runs exactly once and the
// suspension resolves immediately as interrupted.
func TestAsyncCancellerRunsOnInterrupt(t *testing.T) {
	rt := newRuntime(t)

	var cancelled atomic.Int32
	registered := make(chan struct{})
	e := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		close(registered)
		return nil, func() { cancelled.Add(1) }
	})

	v := runValue(t, rt, fiber.Fork(e))
	child := v.(*fiber.Fiber)
	waitSignal(t, registered)
	awaitStatus(t, child, fiber.StatusSuspended)

	ex := runExit(t, rt, child.Interrupt())
	childExit, _ := ex.Value()
	if !childExit.(fiber.Exit).Interrupted() {
		t.Fatalf("child exit %v, want interrupted", childExit)
	}
	if cancelled.Load() != 1 {
		t.Fatalf("canceller ran %d times, want exactly 1", cancelled.Load())
	}
}

// TestAsyncNoCancellerLeavesSuspensionPending interrupts a fiber
// whose registration offered no canceller: the fiber stays suspended
// until the external callback eventually fires, and then resolves as
// interrupted rather than with the callback's value.
func TestAsyncNoCancellerLeavesSuspensionPending(t *testing.T) {
	rt := newRuntime(t)

	resumeCh := make(chan func(fiber.Exit), 1)
	e := fiber.Async(func(resume func(fiber.Exit)) (*fiber.Exit, func()) {
		resumeCh <- resume
		return nil, nil
	})

	v := runValue(t, rt, fiber.Fork(e))
	child := v.(*fiber.Fiber)
	resume := <-resumeCh
	awaitStatus(t, child, fiber.StatusSuspended)

	done := make(chan fiber.Exit, 1)
	rt.RunAsync(child.Interrupt(), func(ex fiber.Exit) { done <- ex })

	// No canceller: the request alone cannot force completion.
	time.Sleep(20 * time.Millisecond)
	if _, err := child.Poll(); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("Poll() error %v, want iox.ErrWouldBlock", err)
	}

	resume(fiber.Success("late value"))
	ex := <-done
	childExit, _ := ex.Value()
	if !childExit.(fiber.Exit).Interrupted() {
		t.Fatalf("child exit %v, want interrupted", childExit)
	}
}

func TestAsyncResumeAfterCompletionIgnored(t *testing.T) {
	rt := newRuntime(t)

	var resume func(fiber.Exit)
	e := fiber.Async(func(r func(fiber.Exit)) (*fiber.Exit, func()) {
		resume = r
		ex := fiber.Success("first")
		return &ex, nil
	})
	if got := runValue(t, rt, e); got != "first" {
		t.Fatalf("got %v, want %q", got, "first")
	}

	// The suspension is spent; late invocations must be inert.
	resume(fiber.Success("second"))
	resume(fiber.Failure(fiber.DieCause{Defect: "late"}))
}
