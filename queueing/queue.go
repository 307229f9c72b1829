package queueing

import (
	"sync"

	"github.com/sarchlab/chronos/core"
)

// HookPosQueuePush marks when an element is accepted into a Queue.
var HookPosQueuePush = &core.HookPos{Name: "Queue Push"}

// HookPosQueuePop marks when an element is removed from a Queue.
var HookPosQueuePop = &core.HookPos{Name: "Queue Pop"}

// Queue is a capacity-bounded FIFO shared by any number of tasks. A push
// against a full queue suspends the pushing task until room opens up; a
// pop against an empty queue suspends the popping task until an element
// arrives. Every push and pop touches the queue's resource handle, so two
// tasks that share a Queue are never treated as permutable under POR.
type Queue[T any] struct {
	core.HookableBase

	name     string
	resource core.ResourceID
	capacity int

	mu          sync.Mutex
	elems       []T
	pushWaiters []*core.Waker
	popWaiters  []*core.Waker
}

// NewQueue creates an empty Queue of the given positive capacity, minting
// a fresh POR resource handle from rt.
func NewQueue[T any](rt *core.Runtime, name string, capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("queueing: capacity must be positive")
	}
	return &Queue[T]{
		name:     name,
		resource: rt.NewResourceID(),
		capacity: capacity,
	}
}

// Name returns the queue's diagnostic label.
func (q *Queue[T]) Name() string { return q.name }

// Resource returns the POR resource handle this queue touches on every
// push and pop.
func (q *Queue[T]) Resource() core.ResourceID { return q.resource }

// Capacity returns the queue's fixed capacity.
func (q *Queue[T]) Capacity() int { return q.capacity }

// Len reports the number of elements currently buffered.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.elems)
}

// CanPush reports whether the queue currently has room for one more
// element without blocking.
func (q *Queue[T]) CanPush() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.elems) < q.capacity
}

// Push enqueues v, suspending ctx's task until the queue has room if it
// is currently full.
func (q *Queue[T]) Push(ctx *core.TaskContext, v T) {
	ctx.Touch(q.resource)

	for {
		q.mu.Lock()
		if len(q.elems) < q.capacity {
			q.elems = append(q.elems, v)
			waiter := popWaiter(&q.popWaiters)
			q.mu.Unlock()

			q.InvokeHook(core.HookCtx{Domain: q, Pos: HookPosQueuePush, Now: ctx.Now(), Item: v})
			if waiter != nil {
				waiter.Wake()
			}
			return
		}

		waker := ctx.NewWaker()
		q.pushWaiters = append(q.pushWaiters, waker)
		q.mu.Unlock()

		ctx.Park()
	}
}

// Pop dequeues the oldest element, suspending ctx's task until one is
// available if the queue is currently empty.
func (q *Queue[T]) Pop(ctx *core.TaskContext) T {
	ctx.Touch(q.resource)

	for {
		q.mu.Lock()
		if len(q.elems) > 0 {
			v := q.elems[0]
			q.elems = q.elems[1:]
			waiter := popWaiter(&q.pushWaiters)
			q.mu.Unlock()

			q.InvokeHook(core.HookCtx{Domain: q, Pos: HookPosQueuePop, Now: ctx.Now(), Item: v})
			if waiter != nil {
				waiter.Wake()
			}
			return v
		}

		waker := ctx.NewWaker()
		q.popWaiters = append(q.popWaiters, waker)
		q.mu.Unlock()

		ctx.Park()
	}
}

// TryPush enqueues v without suspending if there is room, reporting
// whether it did. Still touches the POR resource, since a failed
// TryPush still observes the queue's shared state.
func (q *Queue[T]) TryPush(ctx *core.TaskContext, v T) bool {
	ctx.Touch(q.resource)

	q.mu.Lock()
	if len(q.elems) >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.elems = append(q.elems, v)
	waiter := popWaiter(&q.popWaiters)
	q.mu.Unlock()

	q.InvokeHook(core.HookCtx{Domain: q, Pos: HookPosQueuePush, Now: ctx.Now(), Item: v})
	if waiter != nil {
		waiter.Wake()
	}
	return true
}

// TryPop dequeues the oldest element without suspending if one is
// present, reporting whether it did.
func (q *Queue[T]) TryPop(ctx *core.TaskContext) (T, bool) {
	ctx.Touch(q.resource)

	q.mu.Lock()
	if len(q.elems) == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	v := q.elems[0]
	q.elems = q.elems[1:]
	waiter := popWaiter(&q.pushWaiters)
	q.mu.Unlock()

	q.InvokeHook(core.HookCtx{Domain: q, Pos: HookPosQueuePop, Now: ctx.Now(), Item: v})
	if waiter != nil {
		waiter.Wake()
	}
	return v, true
}

// popWaiter removes and returns the oldest waker in waiters, or nil if
// empty. The caller is responsible for calling Wake() itself, outside
// the queue's lock, so a woken task's immediate re-entry into Push/Pop
// never deadlocks against the lock its waker call is still holding.
func popWaiter(waiters *[]*core.Waker) *core.Waker {
	if len(*waiters) == 0 {
		return nil
	}
	w := (*waiters)[0]
	*waiters = (*waiters)[1:]
	return w
}
