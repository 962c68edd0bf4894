// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/fiber"
)

func TestSucceed(t *testing.T) {
	rt := newRuntime(t)

	got := runValue(t, rt, fiber.Succeed(21))
	if got != 21 {
		t.Fatalf("got %v, want 21", got)
	}
}

func TestSucceedWithDefersThunk(t *testing.T) {
	rt := newRuntime(t)

	ran := false
	e := fiber.SucceedWith(func() any {
		ran = true
		return "effect"
	})
	if ran {
		t.Fatal("thunk ran at construction")
	}
	if got := runValue(t, rt, e); got != "effect" {
		t.Fatalf("got %v, want %q", got, "effect")
	}
	if !ran {
		t.Fatal("thunk never ran")
	}
}

func TestBindMapThen(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.Then(
		fiber.Succeed("ignored"),
		fiber.Map(
			fiber.Bind(fiber.Succeed(6), func(v any) fiber.Effect {
				return fiber.Succeed(v.(int) * 7)
			}),
			func(v any) any { return v.(int) + 1 },
		),
	)
	if got := runValue(t, rt, e); got != 43 {
		t.Fatalf("got %v, want 43", got)
	}
}

// TestBindChainDeep proves that sequencing depth costs heap frames,
// not native stack: a chain deep enough to overflow any goroutine
// stack still reduces to a value.
func TestBindChainDeep(t *testing.T) {
	rt := newRuntime(t)

	const depth = 200_000
	e := fiber.Succeed(0)
	for range depth {
		e = fiber.Bind(e, func(v any) fiber.Effect {
			return fiber.Succeed(v.(int) + 1)
		})
	}
	if got := runValue(t, rt, e); got != depth {
		t.Fatalf("got %v, want %d", got, depth)
	}
}

func TestFoldBothBranches(t *testing.T) {
	rt := newRuntime(t)
	errBoom := errors.New("boom")

	onFail := func(c fiber.Cause) fiber.Effect {
		err, _ := fiber.FirstFailure(c)
		return fiber.Succeed("recovered: " + err.Error())
	}
	onSucceed := func(v any) fiber.Effect {
		return fiber.Succeed(v.(int) * 2)
	}

	if got := runValue(t, rt, fiber.Fold(fiber.Succeed(4), onFail, onSucceed)); got != 8 {
		t.Fatalf("success branch got %v, want 8", got)
	}
	if got := runValue(t, rt, fiber.Fold(fiber.Fail(errBoom), onFail, onSucceed)); got != "recovered: boom" {
		t.Fatalf("failure branch got %v, want %q", got, "recovered: boom")
	}
}

func TestCatchRecoversExpectedFailure(t *testing.T) {
	rt := newRuntime(t)
	errBoom := errors.New("boom")

	e := fiber.Catch(fiber.Fail(errBoom), func(err error) fiber.Effect {
		return fiber.Succeed(err)
	})
	if got := runValue(t, rt, e); got != errBoom {
		t.Fatalf("got %v, want %v", got, errBoom)
	}
}

func TestCatchPassesDefectThrough(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.Catch(fiber.Die("bug"), func(err error) fiber.Effect {
		return fiber.Succeed("recovered")
	})
	c := runCause(t, rt, e)
	defect, ok := fiber.FirstDefect(c)
	if !ok || defect != "bug" {
		t.Fatalf("got cause %s, want defect %q", fiber.RenderCause(c), "bug")
	}
}

func TestCatchCauseRecoversDefect(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.CatchCause(fiber.Die("bug"), func(c fiber.Cause) fiber.Effect {
		defect, _ := fiber.FirstDefect(c)
		return fiber.Succeed(defect)
	})
	if got := runValue(t, rt, e); got != "bug" {
		t.Fatalf("got %v, want %q", got, "bug")
	}
}

func TestPanicBecomesDefect(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.SucceedWith(func() any {
		panic("unexpected state")
	})
	c := runCause(t, rt, e)
	defect, ok := fiber.FirstDefect(c)
	if !ok || defect != "unexpected state" {
		t.Fatalf("got cause %s, want defect %q", fiber.RenderCause(c), "unexpected state")
	}
}

func TestPanicInContinuationBecomesDefect(t *testing.T) {
	rt := newRuntime(t)

	e := fiber.Bind(fiber.Succeed(1), func(any) fiber.Effect {
		panic("k blew up")
	})
	c := runCause(t, rt, e)
	if defect, ok := fiber.FirstDefect(c); !ok || defect != "k blew up" {
		t.Fatalf("got cause %s, want defect %q", fiber.RenderCause(c), "k blew up")
	}
}

func TestHaltCarriesCause(t *testing.T) {
	rt := newRuntime(t)

	want := fiber.ThenCause(
		fiber.FailCause{Err: errors.New("boom")},
		fiber.DieCause{Defect: "bug"},
	)
	got := runCause(t, rt, fiber.Halt(want))
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSuspendLazyConstruction(t *testing.T) {
	rt := newRuntime(t)

	built := false
	e := fiber.Suspend(func() fiber.Effect {
		built = true
		return fiber.Succeed("late")
	})
	if built {
		t.Fatal("inner effect built at construction")
	}
	if got := runValue(t, rt, e); got != "late" {
		t.Fatalf("got %v, want %q", got, "late")
	}
}

func TestRepeat(t *testing.T) {
	rt := newRuntime(t)

	n := 0
	step := fiber.SucceedWith(func() any {
		n++
		return n
	})
	if got := runValue(t, rt, fiber.Repeat(step, 5)); got != 5 {
		t.Fatalf("got %v, want 5", got)
	}
	if n != 5 {
		t.Fatalf("ran %d times, want 5", n)
	}
	if got := runValue(t, rt, fiber.Repeat(step, 0)); got != nil {
		t.Fatalf("Repeat(m, 0) got %v, want nil", got)
	}
}

// TestForeverStopsOnFailure exercises lazy repetition: 10k iterations
// in bounded native stack, terminated by the first failure.
func TestForeverStopsOnFailure(t *testing.T) {
	rt := newRuntime(t)
	errDone := errors.New("done")

	n := 0
	step := fiber.Suspend(func() fiber.Effect {
		if n++; n >= 10_000 {
			return fiber.Fail(errDone)
		}
		return fiber.Succeed(nil)
	})
	c := runCause(t, rt, fiber.Forever(step))
	if err, _ := fiber.FirstFailure(c); err != errDone {
		t.Fatalf("got cause %s, want %v", fiber.RenderCause(c), errDone)
	}
	if n != 10_000 {
		t.Fatalf("ran %d iterations, want 10000", n)
	}
}
