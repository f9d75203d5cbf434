// File: fake/yielder.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync/atomic"

	"github.com/momentics/hioload-arena/api"
)

// Yielder counts suspensions and optionally runs a hook on each one, which
// lets a test change the world while the task is "suspended".
type Yielder struct {
	count     int64
	unwinding int32
	OnYield   func(n int)
}

var (
	_ api.Yielder  = (*Yielder)(nil)
	_ api.Unwinder = (*Yielder)(nil)
)

// Yield records one suspension.
func (y *Yielder) Yield() {
	n := atomic.AddInt64(&y.count, 1)
	if y.OnYield != nil {
		y.OnYield(int(n))
	}
}

// Count returns the number of suspensions so far.
func (y *Yielder) Count() int {
	return int(atomic.LoadInt64(&y.count))
}

// Unwind makes every later Unwinding call report true, as a stopping
// scheduler does for a task it tears down.
func (y *Yielder) Unwind() {
	atomic.StoreInt32(&y.unwinding, 1)
}

// Unwinding reports whether Unwind was called.
func (y *Yielder) Unwinding() bool {
	return atomic.LoadInt32(&y.unwinding) == 1
}
