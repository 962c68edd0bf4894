// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"testing"
	"time"

	"code.hybscloud.com/fiber"
)

// newRuntime creates a Runtime whose executors are torn down when the
// test ends. Tests must observe all their fibers before returning;
// Shutdown with work still suspended is undefined.
func newRuntime(tb testing.TB, opts ...fiber.Option) *fiber.Runtime {
	tb.Helper()
	rt := fiber.NewRuntime(opts...)
	tb.Cleanup(rt.Shutdown)
	return rt
}

// runExit launches e as a root fiber and blocks on the completion
// callback via a channel, keeping the test's main goroutine free of
// the SPSC handoff so it stays race-detector friendly.
func runExit(tb testing.TB, rt *fiber.Runtime, e fiber.Effect) fiber.Exit {
	tb.Helper()
	done := make(chan fiber.Exit, 1)
	rt.RunAsync(e, func(ex fiber.Exit) { done <- ex })
	select {
	case ex := <-done:
		return ex
	case <-time.After(10 * time.Second):
		tb.Fatal("fiber did not complete within 10s")
		return fiber.Exit{}
	}
}

// runValue is runExit asserting a successful Exit.
func runValue(tb testing.TB, rt *fiber.Runtime, e fiber.Effect) any {
	tb.Helper()
	ex := runExit(tb, rt, e)
	v, ok := ex.Value()
	if !ok {
		c, _ := ex.Cause()
		tb.Fatalf("fiber failed: %s", fiber.RenderCause(c))
	}
	return v
}

// runCause is runExit asserting a failed Exit.
func runCause(tb testing.TB, rt *fiber.Runtime, e fiber.Effect) fiber.Cause {
	tb.Helper()
	ex := runExit(tb, rt, e)
	c, ok := ex.Cause()
	if !ok {
		v, _ := ex.Value()
		tb.Fatalf("fiber succeeded with %v, want failure", v)
	}
	return c
}

// awaitStatus polls until f reports want, or fails the test.
func awaitStatus(tb testing.TB, f *fiber.Fiber, want fiber.FiberStatus) {
	tb.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.Status() != want {
		if time.Now().After(deadline) {
			tb.Fatalf("fiber #%d stuck in %s, want %s", f.ID(), f.Status(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitSignal blocks until ch is closed or written, or fails the test.
func waitSignal(tb testing.TB, ch <-chan struct{}) {
	tb.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		tb.Fatal("signal not delivered within 5s")
	}
}
