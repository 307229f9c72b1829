// Package queueing provides the generic composable queue toolkit spec.md
// §1 lists as an out-of-scope collaborator: a capacity-bounded FIFO
// (Queue) and an unbounded broadcast topic (Topic). Each holds a
// core.ResourceID that it touches on every push/pop (publish/receive for
// a Topic) so the POR coordinator sees the conflict between tasks sharing
// one.
//
// Grounded on sim/buffer.go's bufferImpl (capacity, CanPush, hook
// positions), ported from akita's event-driven push/pop -- where a full
// buffer panics the synchronous caller -- to task-blocking push/pop: a
// push against a full queue suspends the pushing task on the queue's own
// waker list instead, since there is no synchronous caller here to push
// back pressure to.
package queueing
