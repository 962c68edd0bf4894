// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"sync"
	"weak"
)

// fiberRegistry is the per-Runtime fiber table. Entries are weak
// pointers indexed by fiber id: parent/child bookkeeping resolves
// through the table, never through owning references, so a fiber's
// memory is reclaimed independently of its children's records.
type fiberRegistry struct {
	mu sync.Mutex
	m  map[FiberID]weak.Pointer[Fiber]
}

func (r *fiberRegistry) add(f *Fiber) {
	r.mu.Lock()
	if r.m == nil {
		r.m = make(map[FiberID]weak.Pointer[Fiber])
	}
	r.m[f.id] = weak.Make(f)
	r.mu.Unlock()
}

// lookup resolves a fiber id to a live fiber. Records whose fiber has
// been collected are pruned on the way.
func (r *fiberRegistry) lookup(id FiberID) (*Fiber, bool) {
	if id == 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.m[id]
	if !ok {
		return nil, false
	}
	f := p.Value()
	if f == nil {
		delete(r.m, id)
		return nil, false
	}
	return f, true
}

// remove drops a fiber's record.
func (r *fiberRegistry) remove(id FiberID) {
	r.mu.Lock()
	delete(r.m, id)
	r.mu.Unlock()
}
