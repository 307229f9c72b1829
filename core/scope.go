package core

// TaskContext is the handle a running task's body uses to talk back to
// the Runtime: read the clock, sleep, arm a raw timer, touch a resource
// for POR tracking, spawn children, or get at the task's own RNG. It is
// always passed explicitly as the first argument of a TaskFunc, since Go
// has no thread-local storage to stash an "ambient current task" the way
// a thread-local-backed scope would; an explicit parameter is the
// idiomatic Go substitute for that pattern.
type TaskContext struct {
	rt   *Runtime
	task *Task
}

// TaskID returns the identity of the task this context belongs to.
func (c *TaskContext) TaskID() TaskID { return c.task.id }

// Group returns the task's group label, or "" if it was spawned ungrouped.
func (c *TaskContext) Group() string { return c.task.group }

// Primary reports whether the task is a primary task.
func (c *TaskContext) Primary() bool { return c.task.primary }

// Now returns the current virtual instant.
func (c *TaskContext) Now() Instant { return c.rt.clock.Now() }

// Rng returns the task's own RNG, seeded by default from the spawning
// parent's seed and this task's TaskID (spec.md §4.5's seed_override
// attribute) so that every task draws from an independent, reproducible
// stream rather than contending over one Runtime-wide generator. Every
// collaborator must source randomness through here rather than
// math/rand's global generator, or determinism breaks across machines
// and Go versions.
func (c *TaskContext) Rng() *RNG { return c.task.rng }

// Sleep suspends the calling task until at least d has elapsed, then
// returns. Implemented by arming a timer and waiting for the executor's
// time-advancement phase to fire it; never busy-waits and never advances
// the clock itself.
func (c *TaskContext) Sleep(d Duration) {
	c.ArmTimer(d)
	c.task.suspend(false, "Sleep")
}

// ArmTimer schedules the task to be woken at Now()+d without suspending
// it. Pair with a subsequent suspend (directly, or via Sleep/Select-style
// helpers built on top) to actually wait for it. Replaces any timer the
// task already holds, per the at-most-one-timer-per-task invariant.
func (c *TaskContext) ArmTimer(d Duration) {
	if d < 0 {
		panic("core: cannot arm a timer with a negative duration")
	}
	c.rt.timers.Arm(c.task.id, c.Now().Add(d))
}

// CancelTimer cancels the task's armed timer, if any. Reports whether one
// was canceled.
func (c *TaskContext) CancelTimer() bool {
	return c.rt.timers.Cancel(c.task.id)
}

// ArmTimerAt is the §6 `arm_timer(deadline) -> waker` collaborator
// primitive: it registers an absolute deadline rather than a duration
// relative to Now(), for collaborators (netsim's retransmit timers,
// queueing's deadline-based waits) that compute a deadline once and want
// to re-arm against it verbatim rather than re-deriving an offset every
// time. Returns ErrTimerMonotonicityViolation if deadline is already in
// the past, and a Waker that fires when the timer is drained; the
// returned Waker is otherwise equivalent to one taken via NewWaker after
// an ArmTimer/Sleep suspend.
func (c *TaskContext) ArmTimerAt(deadline Instant) (*Waker, error) {
	if deadline.Before(c.Now()) {
		return nil, &TimerMonotonicityError{Now: c.Now(), Deadline: deadline}
	}
	c.rt.timers.Arm(c.task.id, deadline)
	return c.task.newWaker(), nil
}

// Touch records that the task is about to access resource's shared state.
// Collaborators must call this before touching any state a concurrently
// scheduled task might also touch, whenever partial-order reduction is
// enabled; it is a no-op otherwise.
func (c *TaskContext) Touch(resource ResourceID) {
	c.rt.por.Touch(c.task.id, resource)
}

// Park suspends the task with no timer armed. The task becomes ready only
// when some other task calls Wake on a Waker minted from this suspension
// (via NewWaker, taken before calling Park). Collaborators that block a
// task on a condition another task must satisfy -- a queue with room, a
// socket with a packet -- build their wait on top of Park plus NewWaker.
func (c *TaskContext) Park() {
	c.task.suspend(false, "Park")
}

// SelfWake suspends the task and immediately re-enqueues it, without
// arming a timer or waiting on an external Waker. Used by collaborators
// implementing busy-poll-style waits (checking a condition, yielding if
// not yet satisfied). Counted against the Runtime's self-wake budget;
// exceeding the budget within one macrostep aborts the run with
// ErrSelfWakeLivelock.
func (c *TaskContext) SelfWake() {
	c.task.suspend(true, "SelfWake")
}

// NewWaker mints a Waker bound to the task's current generation. The
// waker can be handed to any collaborator (a queue, a socket, a future
// resource) and called back later, from the same logical thread of
// control, to make the task ready again.
func (c *TaskContext) NewWaker() *Waker {
	return c.task.newWaker()
}

// SpawnDetached starts fn as a child task without a typed result, for
// collaborators that only care about side effects (e.g. a background
// retransmit loop). Use the package-level generic core.Spawn(ctx, ...)
// instead when the child's return value matters. Returns the zero TaskID
// if the owning Runtime has already finished; in practice this cannot
// happen from within a running task's own body, since the macrostep loop
// cannot have returned while that task's poll is still in progress.
func (c *TaskContext) SpawnDetached(opts SpawnOptions, fn func(ctx *TaskContext) error) TaskID {
	t, err := c.spawnRaw(opts, fn)
	if err != nil {
		return 0
	}
	return t.id
}

// spawnRaw implements the spawner interface, delegating to the owning
// Runtime so a child spawned from within a task is registered the same
// way a top-level task is. The child's default RNG seed derives from
// this task's own seed rather than the Runtime's, so a subtree of
// descendants reproduces independently of how many unrelated tasks the
// rest of the run has spawned.
func (c *TaskContext) spawnRaw(opts SpawnOptions, fn TaskFunc) (*Task, error) {
	return c.rt.spawnFromSeed(c.task.rng.Seed(), opts, fn)
}
