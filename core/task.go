package core

import (
	"fmt"
	"sync/atomic"
)

// TaskFunc is the body of a spawned task. It receives a TaskContext bound
// to the task that is running it and returns an error if it fails; a
// non-nil return aborts the run with a TaskPanicError (a recovered Go
// panic is wrapped the same way, so callers never need to distinguish the
// two).
type TaskFunc func(ctx *TaskContext) error

// Task is one cooperatively scheduled unit of work. Exactly one task's
// goroutine is ever unblocked at a time; every other live task is parked
// on resumeCh. This is the "Futures without async/await" design from
// SPEC_FULL.md: the executor drives the task by sending on resumeCh and
// receiving on reportCh, which is indistinguishable in effect from polling
// a Future once, but needs no language support for async functions.
//
// Grounded on algao1-crumbs/coro/coro.go's goroutine-plus-channel
// coroutine, with a per-task generation counter layered on top so a
// stale Waker can never resurrect a since-completed task (see Waker).
type Task struct {
	id    TaskID
	name  string
	group string

	// primary tasks keep the simulation alive; the run terminates once
	// every primary task has completed, regardless of any still-live
	// secondary tasks (spec.md §4, "Lifecycle").
	primary bool

	rt  *Runtime
	fn  TaskFunc
	rng *RNG // derived from the spawning parent's seed + this task's TaskID, unless SeedOverride was set

	gen uint64 // atomic; bumped every time the task resumes from a suspension

	resumeCh chan struct{}
	reportCh chan taskReport

	selfWakeCount int
	lastSuspendAt string
}

type taskReportKind int

const (
	reportSuspended taskReportKind = iota
	reportSelfWake
	reportCompleted
	reportPanic
)

type taskReport struct {
	kind taskReportKind
	err  error
}

func newTask(rt *Runtime, id TaskID, name, group string, primary bool, seed uint64, fn TaskFunc) *Task {
	return &Task{
		id:       id,
		name:     name,
		group:    group,
		primary:  primary,
		rt:       rt,
		fn:       fn,
		rng:      NewRNG(seed),
		resumeCh: make(chan struct{}),
		reportCh: make(chan taskReport),
	}
}

// start launches the task's goroutine. It blocks immediately on resumeCh;
// the task's body does not run until the executor polls it for the first
// time.
func (t *Task) start() {
	go t.loop()
}

func (t *Task) loop() {
	<-t.resumeCh

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				var cause error
				if e, ok := r.(error); ok {
					cause = e
				} else {
					cause = fmt.Errorf("%v", r)
				}
				err = &TaskPanicError{Task: t.id, Name: t.name, Cause: cause}
			}
		}()

		ctx := &TaskContext{rt: t.rt, task: t}
		err = t.fn(ctx)
	}()

	if err != nil {
		if _, ok := err.(*TaskPanicError); !ok {
			err = &TaskPanicError{Task: t.id, Name: t.name, Cause: err}
		}
		t.reportCh <- taskReport{kind: reportPanic, err: err}
		return
	}

	t.reportCh <- taskReport{kind: reportCompleted}
}

// poll resumes the task for exactly one round trip and returns its report.
// Called only from the executor's drain phase.
func (t *Task) poll() taskReport {
	t.resumeCh <- struct{}{}
	return <-t.reportCh
}

// suspend reports back to the executor that the calling task (running on
// its own goroutine) is yielding, then blocks until resumed. selfWake asks
// the executor to re-enqueue the task immediately rather than waiting on a
// timer or an external Waker; site is a short description recorded for
// diagnostics (StuckError, monitor dumps).
func (t *Task) suspend(selfWake bool, site string) {
	t.lastSuspendAt = site

	kind := reportSuspended
	if selfWake {
		kind = reportSelfWake
		t.selfWakeCount++
	}

	t.reportCh <- taskReport{kind: kind}
	<-t.resumeCh

	// The task is live again as of this point; any Waker minted during
	// the episode that just ended is now stale. Bumping here, rather than
	// before the suspend, keeps a Waker valid for the entire time its
	// task is actually parked.
	atomic.AddUint64(&t.gen, 1)
}

func (t *Task) diagnostic() TaskDiagnostic {
	return TaskDiagnostic{
		ID:            t.id,
		Name:          t.name,
		Group:         t.group,
		Primary:       t.primary,
		LastSuspendAt: t.lastSuspendAt,
		SelfWakeCount: t.selfWakeCount,
	}
}
