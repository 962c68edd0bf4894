// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"github.com/gammazero/deque"
)

// Promise state words. The Pending→Done transition happens at most
// once, decided by whichever resolution attempt wins the single CAS.
const (
	promisePending uint32 = iota
	promiseCommitting
	promiseDone
)

// Promise is a single-assignment synchronization cell holding an
// Exit. Reads take a lock-free fast path on the state word; waiters
// queue only in the contended pending case. Once Done, the cell is
// permanently immutable.
type Promise struct {
	// state publishes exit: the Done store is what makes the plain
	// exit write visible to the lock-free Poll fast path, so it must
	// carry release/acquire ordering.
	state   atomic.Uint32
	exit    Exit
	mu      sync.Mutex
	waiters deque.Deque[*promiseWaiter]
}

// promiseWaiter is one queued awaiter. cancelled entries are skipped
// on resolution; they belong to interrupted fibers that already
// resolved their suspension.
type promiseWaiter struct {
	fn        func(Exit)
	cancelled bool
}

// NewPromise creates an empty promise.
func NewPromise() *Promise {
	return &Promise{}
}

// Complete attempts the Pending→Done transition with ex. Only the
// winner's Exit is stored; every other attempt is a no-op returning
// false. All queued waiters are resumed with the winning Exit, in no
// guaranteed mutual order.
func (p *Promise) Complete(ex Exit) bool {
	if !p.state.CompareAndSwap(promisePending, promiseCommitting) {
		return false
	}
	p.exit = ex
	p.state.Store(promiseDone)

	p.mu.Lock()
	resumes := make([]func(Exit), 0, p.waiters.Len())
	for p.waiters.Len() > 0 {
		if w := p.waiters.PopFront(); !w.cancelled {
			resumes = append(resumes, w.fn)
		}
	}
	p.mu.Unlock()
	for _, fn := range resumes {
		fn(ex)
	}
	return true
}

// Succeed attempts to resolve the promise with a success value.
func (p *Promise) Succeed(v any) bool {
	return p.Complete(Success(v))
}

// Fail attempts to resolve the promise with an expected failure.
func (p *Promise) Fail(err error) bool {
	return p.Complete(Failure(FailCause{Err: err}))
}

// Halt attempts to resolve the promise with a cause.
func (p *Promise) Halt(c Cause) bool {
	return p.Complete(Failure(c))
}

// Poll returns the promise's Exit without suspending.
// Returns iox.ErrWouldBlock while the promise is pending.
func (p *Promise) Poll() (Exit, error) {
	if p.state.Load() != promiseDone {
		return Exit{}, iox.ErrWouldBlock
	}
	return p.exit, nil
}

// Await describes a computation suspending the calling fiber until
// the promise is Done, then continuing with the winning Exit: its
// success value flows on, its cause unwinds. An already-resolved
// promise continues immediately on the fast path. Interrupting the
// awaiting fiber removes its waiter and forces the suspension to an
// Interrupt resolution.
func (p *Promise) Await() Effect {
	return Async(func(resume func(Exit)) (*Exit, func()) {
		if ex, err := p.Poll(); err == nil {
			return &ex, nil
		}
		w := &promiseWaiter{fn: resume}
		p.mu.Lock()
		if p.state.Load() == promiseDone {
			// Lost the race against Complete's drain; resolve here.
			ex := p.exit
			p.mu.Unlock()
			return &ex, nil
		}
		p.waiters.PushBack(w)
		p.mu.Unlock()
		return nil, func() {
			p.mu.Lock()
			w.cancelled = true
			p.mu.Unlock()
		}
	})
}
