// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"sync"

	"github.com/gammazero/deque"
)

// Executor schedules units of work onto carrier threads.
// Submit never blocks the caller and never runs the task inline.
type Executor interface {
	Submit(task func())
}

// ComputePool is the fixed-size compute executor driving fibers.
// Workers pull from an unbounded run queue; a fiber occupies a worker
// only while actively reducing steps, so a small pool multiplexes an
// unbounded number of fibers.
type ComputePool struct {
	mu    sync.Mutex
	queue deque.Deque[func()]
	wake  chan struct{}
}

// NewComputePool starts a compute executor with n worker goroutines.
// n < 1 is treated as 1.
func NewComputePool(n int) *ComputePool {
	if n < 1 {
		n = 1
	}
	p := &ComputePool{
		wake: make(chan struct{}, n),
	}
	for range n {
		go p.worker()
	}
	return p
}

// Submit enqueues task for execution. It never blocks and never runs
// task on the calling goroutine.
func (p *ComputePool) Submit(task func()) {
	p.mu.Lock()
	p.queue.PushBack(task)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker goroutines once the queue drains.
// Submitting after Close panics.
func (p *ComputePool) Close() {
	close(p.wake)
}

func (p *ComputePool) worker() {
	for {
		p.mu.Lock()
		if p.queue.Len() == 0 {
			p.mu.Unlock()
			if _, ok := <-p.wake; !ok {
				return
			}
			continue
		}
		task := p.queue.PopFront()
		p.mu.Unlock()
		task()
	}
}
