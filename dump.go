// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"fmt"
	"strings"
)

// Snapshot is a point-in-time view of a fiber for operational
// debugging: identity, lifecycle status, pending continuation
// locations (innermost first), and interruption bookkeeping.
// It is rendered for humans and never parsed by other components.
type Snapshot struct {
	ID          FiberID
	Status      FiberStatus
	Stack       []string
	InterruptBy FiberID
	Children    []FiberID
}

// DumpFiber captures a snapshot of f. The continuation stack is the
// one recorded at the fiber's last suspension boundary; a running
// fiber reports only status, since its stack is owned by the driving
// thread.
func DumpFiber(f *Fiber) Snapshot {
	s := Snapshot{
		ID:          f.id,
		Status:      f.Status(),
		InterruptBy: f.interruptOrigin.Load(),
	}
	f.mu.Lock()
	if f.suspTrace != nil {
		s.Stack = append([]string(nil), f.suspTrace...)
	}
	for id := range f.children {
		s.Children = append(s.Children, id)
	}
	f.mu.Unlock()
	return s
}

// Pretty renders the snapshot as indented text.
func (s Snapshot) Pretty() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fiber #%d [%s]", s.ID, s.Status)
	if s.InterruptBy != 0 {
		fmt.Fprintf(&sb, " (interrupt requested by #%d)", s.InterruptBy)
	}
	sb.WriteByte('\n')
	for _, loc := range s.Stack {
		fmt.Fprintf(&sb, "  at %s\n", loc)
	}
	for _, id := range s.Children {
		fmt.Fprintf(&sb, "  child fiber #%d\n", id)
	}
	return sb.String()
}
