// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"fmt"
	"strings"
)

// Cause is the structured failure reason of a fiber.
// It is a closed tagged union: FailCause (expected failure),
// DieCause (unexpected defect), InterruptCause (cancellation marker),
// SequentialCause and ParallelCause (composites recording how multiple
// causes combined), and EmptyCause. Composition is preserved, never
// collapsed, so diagnostics are lossless.
type Cause interface {
	cause() // unexported marker method
}

// EmptyCause is the identity cause. It carries no failure.
type EmptyCause struct{}

func (EmptyCause) cause() {}

// FailCause is an expected, typed failure raised by Fail.
// It is the only cause recoverable by Catch.
type FailCause struct{ Err error }

func (FailCause) cause() {}

// DieCause is an unexpected defect: a panic value or a bug surfaced by
// a user-supplied function. It is never treated as a normal failure;
// only defect-aware handlers (CatchCause) observe it.
type DieCause struct{ Defect any }

func (DieCause) cause() {}

// InterruptCause marks cancellation, recording the id of the fiber
// that requested the interrupt. While the interrupted fiber itself is
// unwinding, handlers are skipped so its own cancellation can never be
// swallowed; it observes the cause only via Exit inspection. A fiber
// that re-raises another fiber's interrupt exit, via Join, treats the
// cause as an ordinary one.
type InterruptCause struct{ Origin FiberID }

func (InterruptCause) cause() {}

// SequentialCause records two causes that occurred one after the
// other, e.g. a finalizer failing after the original failure.
type SequentialCause struct{ First, Second Cause }

func (SequentialCause) cause() {}

// ParallelCause records two causes that occurred concurrently.
type ParallelCause struct{ Left, Right Cause }

func (ParallelCause) cause() {}

// ThenCause combines two causes sequentially.
// EmptyCause is the identity element.
func ThenCause(first, second Cause) Cause {
	if isEmpty(first) {
		return second
	}
	if isEmpty(second) {
		return first
	}
	return SequentialCause{First: first, Second: second}
}

// BothCause combines two causes that occurred in parallel.
// EmptyCause is the identity element.
func BothCause(left, right Cause) Cause {
	if isEmpty(left) {
		return right
	}
	if isEmpty(right) {
		return left
	}
	return ParallelCause{Left: left, Right: right}
}

func isEmpty(c Cause) bool {
	if c == nil {
		return true
	}
	_, ok := c.(EmptyCause)
	return ok
}

// Interrupted reports whether c contains an InterruptCause anywhere
// in its tree.
func Interrupted(c Cause) bool {
	switch t := c.(type) {
	case InterruptCause:
		return true
	case SequentialCause:
		return Interrupted(t.First) || Interrupted(t.Second)
	case ParallelCause:
		return Interrupted(t.Left) || Interrupted(t.Right)
	}
	return false
}

// Failed reports whether c contains a FailCause anywhere in its tree.
func Failed(c Cause) bool {
	switch t := c.(type) {
	case FailCause:
		return true
	case SequentialCause:
		return Failed(t.First) || Failed(t.Second)
	case ParallelCause:
		return Failed(t.Left) || Failed(t.Right)
	}
	return false
}

// Died reports whether c contains a DieCause anywhere in its tree.
func Died(c Cause) bool {
	switch t := c.(type) {
	case DieCause:
		return true
	case SequentialCause:
		return Died(t.First) || Died(t.Second)
	case ParallelCause:
		return Died(t.Left) || Died(t.Right)
	}
	return false
}

// FirstFailure returns the leftmost expected failure in c, if any.
func FirstFailure(c Cause) (error, bool) {
	switch t := c.(type) {
	case FailCause:
		return t.Err, true
	case SequentialCause:
		if err, ok := FirstFailure(t.First); ok {
			return err, ok
		}
		return FirstFailure(t.Second)
	case ParallelCause:
		if err, ok := FirstFailure(t.Left); ok {
			return err, ok
		}
		return FirstFailure(t.Right)
	}
	return nil, false
}

// FirstDefect returns the leftmost defect in c, if any.
func FirstDefect(c Cause) (any, bool) {
	switch t := c.(type) {
	case DieCause:
		return t.Defect, true
	case SequentialCause:
		if d, ok := FirstDefect(t.First); ok {
			return d, ok
		}
		return FirstDefect(t.Second)
	case ParallelCause:
		if d, ok := FirstDefect(t.Left); ok {
			return d, ok
		}
		return FirstDefect(t.Right)
	}
	return nil, false
}

// RenderCause returns a human-readable multi-line rendering of the
// cause tree, used for operational debugging. The layout is not a
// stable format and must not be parsed.
func RenderCause(c Cause) string {
	var sb strings.Builder
	renderCause(&sb, c, 0)
	return sb.String()
}

func renderCause(sb *strings.Builder, c Cause, depth int) {
	indent(sb, depth)
	switch t := c.(type) {
	case nil, EmptyCause:
		sb.WriteString("Empty\n")
	case FailCause:
		sb.WriteString("Fail: ")
		sb.WriteString(t.Err.Error())
		sb.WriteByte('\n')
	case DieCause:
		fmt.Fprintf(sb, "Die: %v\n", t.Defect)
	case InterruptCause:
		fmt.Fprintf(sb, "Interrupt: by fiber #%d\n", t.Origin)
	case SequentialCause:
		sb.WriteString("Sequential:\n")
		renderCause(sb, t.First, depth+1)
		renderCause(sb, t.Second, depth+1)
	case ParallelCause:
		sb.WriteString("Parallel:\n")
		renderCause(sb, t.Left, depth+1)
		renderCause(sb, t.Right, depth+1)
	}
}

func indent(sb *strings.Builder, depth int) {
	for range depth {
		sb.WriteString("  ")
	}
}
