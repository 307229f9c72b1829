package core

import (
	"container/heap"
	"sync"
)

// timerEntry is one armed timer: task wakes at deadline unless canceled or
// replaced first.
type timerEntry struct {
	deadline Instant
	task     TaskID
	index    int
}

// timerHeap is a container/heap.Interface ordering entries by deadline,
// with TaskID as the deterministic tie-breaker for equal deadlines -- the
// same tie-break the ready queue applies, so that two timers firing at the
// identical instant always drain in the same order across runs.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].task < h[j].task
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// timerWheel holds every armed timer, keyed by the task that owns it. A
// task may have at most one armed timer outstanding (spec.md's "at most
// one timer per task" invariant); arming a second one cancels the first.
//
// Grounded on sim/eventqueue.go's container/heap-based eventHeap, with a
// side map added for the O(log n) cancel-by-task operation that the
// teacher's event queue never needed (akita events are never canceled
// once posted; core timers routinely are, e.g. select-style races between
// a timeout and a resource becoming available).
type timerWheel struct {
	mu     sync.Mutex
	h      timerHeap
	byTask map[TaskID]*timerEntry
}

func newTimerWheel() *timerWheel {
	return &timerWheel{byTask: make(map[TaskID]*timerEntry)}
}

// Arm schedules task to wake at deadline, replacing any timer the task
// already holds.
func (w *timerWheel) Arm(task TaskID, deadline Instant) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.byTask[task]; ok {
		heap.Remove(&w.h, old.index)
		delete(w.byTask, task)
	}

	e := &timerEntry{deadline: deadline, task: task}
	heap.Push(&w.h, e)
	w.byTask[task] = e
}

// Cancel removes task's armed timer, if any. Reports whether one was
// removed.
func (w *timerWheel) Cancel(task TaskID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.byTask[task]
	if !ok {
		return false
	}
	heap.Remove(&w.h, e.index)
	delete(w.byTask, task)
	return true
}

// Earliest reports the deadline of the next timer to fire, if any.
func (w *timerWheel) Earliest() (Instant, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.h) == 0 {
		return 0, false
	}
	return w.h[0].deadline, true
}

// DrainDue removes and returns, in deterministic (deadline, TaskID) order,
// every timer due at or before now.
func (w *timerWheel) DrainDue(now Instant) []TaskID {
	w.mu.Lock()
	defer w.mu.Unlock()

	var due []TaskID
	for len(w.h) > 0 && w.h[0].deadline <= now {
		e := heap.Pop(&w.h).(*timerEntry)
		delete(w.byTask, e.task)
		due = append(due, e.task)
	}
	return due
}

// Len reports how many timers are currently armed.
func (w *timerWheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.h)
}
