// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-metrics"
)

// defaultBlockingIdleTimeout is how long an idle blocking worker is
// retained for reuse before it is retired.
const defaultBlockingIdleTimeout = 60 * time.Second

// BlockingPool executes calls that occupy a carrier thread for
// unbounded time, isolated from the compute pool so blocking work
// never starves cooperative fibers. Idle workers are retained and
// reused across successive calls (cached policy) rather than spawned
// per call, and retired after an idle timeout.
type BlockingPool struct {
	mu          sync.Mutex
	idle        []chan func()
	idleTimeout time.Duration
	closed      bool
}

// NewBlockingPool creates a blocking executor with the default idle
// timeout.
func NewBlockingPool() *BlockingPool {
	return &BlockingPool{idleTimeout: defaultBlockingIdleTimeout}
}

// Submit dispatches task to an idle worker, or spawns a new one when
// none is parked. It never blocks the caller.
func (p *BlockingPool) Submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("fiber: submit on closed blocking pool")
	}
	if n := len(p.idle); n > 0 {
		ch := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		metrics.IncrCounter(MetricBlockingReuseCount, 1)
		ch <- task
		return
	}
	p.mu.Unlock()
	metrics.IncrCounter(MetricBlockingSpawnCount, 1)
	go p.worker(task)
}

// Close retires all parked workers. In-flight tasks run to completion.
func (p *BlockingPool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()
	for _, ch := range idle {
		close(ch)
	}
}

func (p *BlockingPool) worker(task func()) {
	task()
	ch := make(chan func())
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.idle = append(p.idle, ch)
		p.mu.Unlock()

		timer := time.NewTimer(p.idleTimeout)
		select {
		case t, ok := <-ch:
			timer.Stop()
			if !ok {
				return
			}
			t()
		case <-timer.C:
			// Expired, unless a Submit already claimed this worker;
			// then the handoff must still be honored.
			if p.unpark(ch) {
				return
			}
			t, ok := <-ch
			if !ok {
				return
			}
			t()
		}
	}
}

// unpark removes ch from the idle list. It reports false when a
// concurrent Submit already popped it and a task is in flight.
func (p *BlockingPool) unpark(ch chan func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.idle {
		if c == ch {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return true
		}
	}
	return false
}

// runBlockingThunk evaluates a blocking call on a pool worker,
// mapping an error return to an expected failure and a panic to a
// defect.
func runBlockingThunk(run func(context.Context) (any, error), ctx context.Context) (ex Exit) {
	defer func() {
		if r := recover(); r != nil {
			ex = Failure(DieCause{Defect: r})
		}
	}()
	v, err := run(ctx)
	if err != nil {
		return Failure(FailCause{Err: err})
	}
	return Success(v)
}
