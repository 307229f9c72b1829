package core

import "sort"

// Macrostep runs one iteration of the scheduler: a drain phase that polls
// every ready task (possibly several times each, for self-waking tasks)
// until none remain ready, then a time-advancement phase that jumps the
// clock to the earliest armed timer and wakes whatever it releases. It
// returns whether any task was polled during the drain phase, and a
// non-nil error if the run must abort (a task failed, a task livelocked
// on self-wakes, or the simulation got stuck).
//
// Grounded on sim.SerialEngine's event loop (sim/serialengine.go), which
// merges a heap of timed events with serial dispatch; generalized here
// into a drain/advance/terminate split, since this package's "events"
// are task polls rather than timed Handle(Event) calls.
func (r *Runtime) Macrostep() (bool, error) {
	r.InvokeHook(HookCtx{Domain: r, Pos: HookPosBeforeMacrostep, Now: r.clock.Now()})

	progressed, err := r.drain()
	if err != nil {
		return progressed, err
	}

	r.advance()

	r.InvokeHook(HookCtx{Domain: r, Pos: HookPosAfterMacrostep, Now: r.clock.Now(), Detail: progressed})

	if r.isFinished() {
		return progressed, nil
	}

	if r.ready.len() == 0 && r.timers.Len() == 0 {
		return progressed, r.stuckError()
	}

	return progressed, nil
}

// drain polls every ready task to completion of readiness: a task that
// self-wakes is immediately re-enqueued and may be polled again later in
// the same drain, up to the Runtime's self-wake budget.
func (r *Runtime) drain() (bool, error) {
	progressed := false
	selfWakes := make(map[TaskID]int)

	for {
		id, ok := r.nextReady()
		if !ok {
			return progressed, nil
		}

		t := r.lookupTask(id)
		if t == nil {
			continue
		}

		r.InvokeHook(HookCtx{Domain: r, Pos: HookPosBeforePoll, Now: r.clock.Now(), Item: id})
		rep := t.poll()
		r.InvokeHook(HookCtx{Domain: r, Pos: HookPosAfterPoll, Now: r.clock.Now(), Item: id, Detail: rep.kind})
		progressed = true

		switch rep.kind {
		case reportCompleted:
			r.completeTask(t, nil)

		case reportPanic:
			r.completeTask(t, rep.err)
			return progressed, rep.err

		case reportSelfWake:
			selfWakes[id]++
			if selfWakes[id] > r.selfWakeBudget {
				return progressed, &SelfWakeLivelockError{Task: id, Budget: r.selfWakeBudget}
			}
			r.ready.push(id, t.primary)

		case reportSuspended:
			// Parked on a timer or an external Waker; nothing to
			// re-enqueue until one of those fires.
		}
	}
}

// nextReady draws the next task to poll: the installed ScheduleChooser's
// pick if one is set and the ready queue is non-empty, otherwise the
// ready queue's own ascending-TaskID order.
func (r *Runtime) nextReady() (TaskID, bool) {
	if r.chooser == nil {
		return r.ready.pop()
	}

	candidates := r.ready.peekActive()
	if len(candidates) == 0 {
		return 0, false
	}
	if len(candidates) == 1 {
		id := candidates[0]
		r.ready.popID(id)
		return id, true
	}

	chosen := r.chooser(candidates)
	if !r.ready.popID(chosen) {
		// Chooser returned something not actually eligible; fall back to
		// the deterministic default rather than stalling the drain.
		return r.ready.pop()
	}
	return chosen, true
}

// advance jumps the clock to the next armed timer's deadline, if the
// ready queue is empty, and wakes every task whose timer is due at or
// before that deadline. Per spec.md §4.4 phase 2's precondition, this
// never runs once every primary task has completed -- a secondary task's
// still-armed timer is never fired once nothing primary is left to
// observe it firing, so completing the last primary at t must leave
// Elapsed() at t, not jump ahead to a secondary's later deadline.
func (r *Runtime) advance() {
	if r.isFinished() {
		return
	}

	if r.ready.len() != 0 {
		return
	}

	deadline, ok := r.timers.Earliest()
	if !ok {
		return
	}

	r.InvokeHook(HookCtx{Domain: r, Pos: HookPosBeforeAdvance, Now: r.clock.Now(), Detail: deadline})
	r.clock.AdvanceTo(deadline)

	due := r.timers.DrainDue(deadline)
	for _, id := range due {
		t := r.lookupTask(id)
		if t != nil {
			r.ready.push(id, t.primary)
		}
	}

	r.InvokeHook(HookCtx{Domain: r, Pos: HookPosAfterAdvance, Now: r.clock.Now(), Detail: len(due)})
}

func (r *Runtime) completeTask(t *Task, err error) {
	r.mu.Lock()
	delete(r.tasks, t.id)
	if t.primary {
		r.primaryRemaining--
	}
	r.mu.Unlock()

	r.timers.Cancel(t.id)
	r.ready.remove(t.id)

	r.InvokeHook(HookCtx{Domain: r, Pos: HookPosTaskCompleted, Now: r.clock.Now(), Item: t.id, Detail: err})
}

func (r *Runtime) isFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primaryRemaining == 0
}

// TaskDiagnostics returns a snapshot of every currently live task,
// ordered by TaskID. Intended for introspection (the monitor package's
// HTTP task listing); not used by the macrostep loop itself, which keeps
// its own direct map access.
func (r *Runtime) TaskDiagnostics() []TaskDiagnostic {
	r.mu.Lock()
	ids := make([]TaskID, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	diags := make([]TaskDiagnostic, 0, len(ids))
	for _, id := range ids {
		diags = append(diags, r.tasks[id].diagnostic())
	}
	r.mu.Unlock()

	return diags
}

// ReadyLen reports how many tasks are currently pending in the ready
// queue, for introspection.
func (r *Runtime) ReadyLen() int { return r.ready.len() }

// TimerLen reports how many timers are currently armed, for
// introspection.
func (r *Runtime) TimerLen() int { return r.timers.Len() }

func (r *Runtime) stuckError() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	diags := make([]TaskDiagnostic, 0, len(r.tasks))
	for _, t := range r.tasks {
		diags = append(diags, t.diagnostic())
	}
	return &StuckError{Now: r.clock.Now(), LiveTasks: diags}
}

// Run drives Macrostep until every primary task has completed or one
// aborts the run with an error. Every task still live when Run returns --
// necessarily a secondary task, since Run only stops once primaries are
// gone -- has any outstanding JoinHandle resolved with ErrTaskAbandoned.
func (r *Runtime) Run() error {
	var runErr error

	for !r.isFinished() {
		r.waitIfPaused()

		_, err := r.Macrostep()
		if err != nil {
			runErr = err
			break
		}
	}

	r.mu.Lock()
	r.finished = true
	r.finishErr = runErr
	hooks := r.abandonHooks
	r.abandonHooks = nil
	handlers := r.finishHandlers
	r.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	for _, fh := range handlers {
		fh(runErr)
	}

	return runErr
}
