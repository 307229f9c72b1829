package core

import "sync/atomic"

// Waker is the handle a suspended task's collaborator stashes away (in a
// timer callback, a channel receive, an I/O completion) and later calls to
// make the task ready again. A Waker captures the generation the task was
// in when the Waker was minted; calling Wake after the task has moved on to
// a later generation (it was already resumed and suspended again, or it
// completed) is a harmless no-op rather than a duplicate or stale wake.
//
// Grounded on algao1-crumbs/coro/coro.go's resume-by-channel-send
// mechanics, adapted from a single always-valid resume channel to a
// generation-guarded one: a task may be suspended and resumed many times
// over a run, and a stale waker reference held by a slow collaborator
// must not resurrect a since-completed task.
type Waker struct {
	rt  *Runtime
	id  TaskID
	gen uint64
}

// Wake marks the owning task ready to run again, provided the task is still
// in the generation this Waker was minted for. Safe to call from any
// goroutine, any number of times, including after the task has already
// woken through some other path (self-wake, a second Waker, a timer).
func (w *Waker) Wake() {
	w.rt.wakeTask(w.id, w.gen)
}

// newWaker mints a Waker for t's current generation. Called by the task's
// own goroutine while it holds no lock other than the one briefly taken to
// read the generation counter.
func (t *Task) newWaker() *Waker {
	return &Waker{
		rt:  t.rt,
		id:  t.id,
		gen: atomic.LoadUint64(&t.gen),
	}
}
