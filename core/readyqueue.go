package core

import "sync"

// readyQueue holds the TaskIDs of tasks eligible to be polled during the
// current macrostep's drain phase. It is split into a primary bucket and a
// secondary bucket; the drain phase always exhausts the primary bucket
// before looking at the secondary one, so that primary tasks make
// deterministic forward progress even when a great many secondary tasks
// are also ready. Within a bucket, tasks are held in ascending TaskID
// order -- not arrival order and not time order -- which is what makes two
// runs with the same seed schedule identically.
//
// Grounded on sim/eventqueue.go's InsertionQueue (an insertion-sorted
// slice kept ordered on push rather than sorted lazily on pop), narrowed
// to order by TaskID instead of by event time and split into the two
// buckets spec.md's Lifecycle section requires.
type readyQueue struct {
	mu        sync.Mutex
	primary   []TaskID
	secondary []TaskID
	queued    map[TaskID]bool
}

func newReadyQueue() *readyQueue {
	return &readyQueue{queued: make(map[TaskID]bool)}
}

// push enqueues id into the appropriate bucket if it is not already
// pending. Re-pushing an already-queued task (a duplicate wake) is a
// silent no-op, which is what gives Waker.Wake its idempotence guarantee.
func (q *readyQueue) push(id TaskID, primary bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued[id] {
		return
	}
	q.queued[id] = true

	bucket := &q.secondary
	if primary {
		bucket = &q.primary
	}
	*bucket = insertSorted(*bucket, id)
}

func insertSorted(s []TaskID, id TaskID) []TaskID {
	i := 0
	for i < len(s) && s[i] < id {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = id
	return s
}

// pop removes and returns the lowest TaskID in the primary bucket, or if
// that bucket is empty, the lowest TaskID in the secondary bucket. The
// second return value is false once both buckets are empty.
func (q *readyQueue) pop() (TaskID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.primary) > 0 {
		id := q.primary[0]
		q.primary = q.primary[1:]
		delete(q.queued, id)
		return id, true
	}
	if len(q.secondary) > 0 {
		id := q.secondary[0]
		q.secondary = q.secondary[1:]
		delete(q.queued, id)
		return id, true
	}
	return 0, false
}

// peekActive returns, without removing anything, the contents of
// whichever bucket pop would draw from next: the primary bucket if it
// holds anything, else the secondary bucket. Used by a ScheduleChooser
// (package explore) to pick among the tasks actually eligible for the
// next poll, in the same primary-before-secondary order pop itself
// honors.
func (q *readyQueue) peekActive() []TaskID {
	q.mu.Lock()
	defer q.mu.Unlock()

	src := q.primary
	if len(src) == 0 {
		src = q.secondary
	}
	out := make([]TaskID, len(src))
	copy(out, src)
	return out
}

// popID removes id from whichever bucket currently holds it, reporting
// whether it was found. Unlike remove, this is meant for the normal
// "poll this one next" path (a ScheduleChooser's choice), not cleanup --
// both end up doing the same bucket surgery, but popID also keeps
// queued's invariant.
func (q *readyQueue) popID(id TaskID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.queued[id] {
		return false
	}
	delete(q.queued, id)
	q.primary = removeID(q.primary, id)
	q.secondary = removeID(q.secondary, id)
	return true
}

// len reports the total number of tasks pending across both buckets.
func (q *readyQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.primary) + len(q.secondary)
}

// remove drops id from whichever bucket holds it, if any, without polling
// it. Used when a task completes or panics while still marked pending
// elsewhere (defensive; the executor's own bookkeeping should normally
// prevent this from being needed).
func (q *readyQueue) remove(id TaskID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.queued[id] {
		return
	}
	delete(q.queued, id)
	q.primary = removeID(q.primary, id)
	q.secondary = removeID(q.secondary, id)
}

func removeID(s []TaskID, id TaskID) []TaskID {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
