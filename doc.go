// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fiber provides a runtime for executing asynchronous,
// effectful computations as lightweight, cooperatively scheduled
// fibers multiplexed over a bounded pool of carrier threads, with a
// structured cancellation protocol.
//
// Computations are immutable [Effect] descriptions interpreted by a
// trampolined execution loop over an explicit continuation stack, so
// arbitrarily deep chains run in bounded native stack space and an
// interrupt checkpoint sits between every frame reduction.
//
// # Architecture
//
//   - Descriptions: [Succeed], [Fail], [Die], [Async], [Blocking], [Fork],
//     [Bracket], [Bind], [Fold] and friends build a closed tagged union;
//     no continuation is a closure over native stack.
//   - Execution: [Runtime.RunAsync] steps a root fiber synchronously as far
//     as possible, then continues via the bridge or the blocking pool.
//     [Runtime.RunSync] blocks on a one-shot [code.hybscloud.com/lfq] SPSC
//     handoff with [code.hybscloud.com/iox.Backoff]; [Runtime.Run] is the
//     sole failure-as-error surface.
//   - Interruption: a single CAS posts RequestedBy(origin); checkpoints act
//     on it cooperatively. [Bracket] scopes guarantee release runs exactly
//     once per completed acquire on every path.
//   - Bridge: [Async] admits callback-style completion; idempotency of the
//     one-shot callback is enforced by [code.hybscloud.com/kont.Affine]
//     continuations, and resumption always hops to the compute executor.
//   - Blocking: a cached worker pool, isolated from the compute pool,
//     reuses idle workers across calls and retires them after a timeout.
//   - Synchronization: [Promise] is a single-assignment cell with a
//     lock-free done fast path and a queued waiter list.
//
// # Failure Model
//
// Causes distinguish expected failures ([FailCause]), defects
// ([DieCause]), and cancellation ([InterruptCause]); composites
// ([SequentialCause], [ParallelCause]) record how multiple causes
// combined and are preserved losslessly. Interruption of the running
// fiber is not recoverable by [Catch] or [CatchCause]; the fiber
// observes its own cancellation only via [Exit] inspection.
// Failures that reach the top of a fiber with no
// observer are delivered to the Platform's failure reporter, never
// silently dropped.
//
// # Diagnostics
//
// [DumpFiber] captures an id/status/stack snapshot; [Snapshot.Pretty]
// renders it for humans. Telemetry counters are emitted through
// [github.com/hashicorp/go-metrics].
//
// # Example
//
//	rt := fiber.NewRuntime()
//	v, err := rt.Run(fiber.Bind(
//		fiber.Succeed(21),
//		func(n any) fiber.Effect { return fiber.Succeed(n.(int) * 2) },
//	))
//	// v == 42, err == nil
package fiber
