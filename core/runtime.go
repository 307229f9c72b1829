package core

import (
	"sync"
	"sync/atomic"
)

// Runtime is the façade a host program drives: construct one, spawn the
// initial primary task(s), call Run, then inspect JoinHandles for
// results. Everything else in this package exists to serve Runtime's
// single macrostep loop.
//
// Grounded on sim.SerialEngine's shape (sim/serialengine.go) -- a single
// owner of the event queue, the clock, and the run/pause state -- adapted
// from akita's event-object model to this package's task/goroutine model.
type Runtime struct {
	HookableBase

	clock  *Clock
	timers *timerWheel
	ready  *readyQueue
	por     *porCoordinator
	rng     *RNG
	ids     *idGenerator
	groups  *groupRegistry
	chooser ScheduleChooser

	selfWakeBudget int

	mu               sync.Mutex
	tasks            map[TaskID]*Task
	primaryRemaining int
	abandonHooks     []func()
	finishHandlers   []func(error)
	finished         bool
	finishErr        error

	pauseMu sync.Mutex
	pauseCh chan struct{}
}

// Option configures a Runtime at construction time. Every option that
// affects determinism (seed, self-wake budget, POR) is construction-time
// only by design (spec.md §4.7, §9); there is deliberately no setter for
// any of them once a Runtime exists.
type Option func(*Runtime)

// WithSeed fixes the Runtime's RNG seed. Two runs built with the same
// seed and the same task graph schedule identically.
func WithSeed(seed uint64) Option {
	return func(r *Runtime) { r.rng = NewRNG(seed) }
}

// WithSelfWakeBudget overrides the default self-wake budget (1024) a
// single task may consume within one macrostep before the run aborts with
// ErrSelfWakeLivelock.
func WithSelfWakeBudget(n int) Option {
	return func(r *Runtime) { r.selfWakeBudget = n }
}

// WithPartialOrderReduction enables or disables the union-find POR
// coordinator. Disabled by default; Touch becomes a no-op and Permutable
// always reports true when disabled.
func WithPartialOrderReduction(enabled bool) Option {
	return func(r *Runtime) { r.por = newPORCoordinator(enabled) }
}

// ScheduleChooser picks which of the currently-eligible ready tasks to
// poll next, out of the set pop would otherwise draw from in TaskID
// order. It must return one of the IDs in ready; returning anything else
// is treated as "no override" for that poll. This is spec.md §4.6's
// "scheduling choice point" made concrete: package explore installs one
// to drive every permutation a POR-pruned search needs to visit.
type ScheduleChooser func(ready []TaskID) TaskID

// WithScheduleChooser installs a ScheduleChooser the drain phase
// consults before every poll. Nil (the default) leaves the ready
// queue's own deterministic TaskID ordering in force.
func WithScheduleChooser(fn ScheduleChooser) Option {
	return func(r *Runtime) { r.chooser = fn }
}

const defaultSelfWakeBudget = 1024

// NewRuntime constructs a Runtime with no tasks spawned yet.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		clock:          NewClock(),
		timers:         newTimerWheel(),
		ready:          newReadyQueue(),
		por:            newPORCoordinator(false),
		rng:            NewRNG(1),
		ids:            newIDGenerator(),
		groups:         newGroupRegistry(),
		tasks:          make(map[TaskID]*Task),
		selfWakeBudget: defaultSelfWakeBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the current virtual instant.
func (r *Runtime) Now() Instant { return r.clock.Now() }

// Elapsed returns the duration simulated so far.
func (r *Runtime) Elapsed() Duration { return Duration(r.clock.Now()) }

// Rng returns the Runtime's own RNG, whose seed every top-level task's RNG
// is derived from. Tasks draw from their own RNGs via TaskContext.Rng.
func (r *Runtime) Rng() *RNG { return r.rng }

// Seed returns the seed the Runtime's RNG was constructed with.
func (r *Runtime) Seed() uint64 { return r.rng.Seed() }

// GroupByName returns the TaskIDs spawned under the given group label.
func (r *Runtime) GroupByName(name string) []TaskID { return r.groups.ByName(name) }

// NewResourceID mints a fresh ResourceID for a collaborator (queueing,
// netsim) to hand out to a newly constructed resource -- a queue, a
// socket, a link -- before any task touches it. Drawn from the same
// sequential generator that mints TaskIDs; the two are disjoint types so
// callers never confuse a resource handle for a task identity even though
// the underlying integers are not reserved into separate ranges.
func (r *Runtime) NewResourceID() ResourceID {
	return ResourceID(r.ids.Next())
}

// Touch records that the calling code -- typically a collaborator acting
// on behalf of the task named by id -- accesses resource's shared state.
// Exposed alongside TaskContext.Touch for collaborators that learn a
// task's TaskID once (e.g. at resource construction) and touch on its
// behalf from a callback rather than holding a TaskContext.
func (r *Runtime) Touch(task TaskID, resource ResourceID) {
	r.por.Touch(task, resource)
}

// Permutable reports whether a and b belong to different POR sets, i.e.
// whether their relative poll order within the current macrostep could be
// swapped without changing observable outcome. Used by the explore
// package at each scheduling choice point. Always true when partial-order
// reduction is disabled.
func (r *Runtime) Permutable(a, b TaskID) bool {
	return r.por.Permutable(a, b)
}

// PORSnapshot returns a mark the explore package can later roll back to
// with PORRestore, when backtracking out of one branch of a schedule
// search.
func (r *Runtime) PORSnapshot() int {
	return r.por.Snapshot()
}

// PORRestore undoes every POR union performed since mark was taken.
func (r *Runtime) PORRestore(mark int) {
	r.por.Restore(mark)
}

// OnFinish registers a callback invoked exactly once when Run returns,
// with the same error Run itself returns (nil on a clean finish).
// Grounded on sim.SerialEngine's RegisterSimulationEndHandler.
func (r *Runtime) OnFinish(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishHandlers = append(r.finishHandlers, fn)
}

// Finished reports whether Run has returned.
func (r *Runtime) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// FinishErr returns the error Run finished with, if Finished.
func (r *Runtime) FinishErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishErr
}

// Pause blocks the macrostep loop before its next iteration, once the
// macrostep currently in flight (if any) completes. Idempotent.
func (r *Runtime) Pause() {
	r.pauseMu.Lock()
	defer r.pauseMu.Unlock()
	if r.pauseCh == nil {
		r.pauseCh = make(chan struct{})
	}
}

// Resume releases a paused macrostep loop. A no-op if not paused.
func (r *Runtime) Resume() {
	r.pauseMu.Lock()
	defer r.pauseMu.Unlock()
	if r.pauseCh != nil {
		close(r.pauseCh)
		r.pauseCh = nil
	}
}

func (r *Runtime) waitIfPaused() {
	r.pauseMu.Lock()
	ch := r.pauseCh
	r.pauseMu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (r *Runtime) lookupTask(id TaskID) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

// spawnRaw implements the spawner interface for top-level spawns (those
// passed *Runtime directly, seeding a run's initial tasks). The new
// task's default RNG seed derives from the Runtime's own seed, per
// spec.md §4.5's seed_override attribute.
func (r *Runtime) spawnRaw(opts SpawnOptions, fn TaskFunc) (*Task, error) {
	return r.spawnFromSeed(r.rng.Seed(), opts, fn)
}

// spawnFromSeed is the shared implementation behind Runtime.spawnRaw and
// TaskContext.spawnRaw: parentSeed is the spawning party's own RNG seed
// (the Runtime's for a top-level spawn, the spawning task's for a child),
// folded together with the new TaskID to produce the child's default
// seed unless opts.SeedOverride pins one explicitly.
//
// Returns ErrNoActiveRuntime once Run has already returned, per spec.md
// §4.5's "Spawn may only be called from within a running simulation"
// precondition: a task's goroutine spawned after the macrostep loop has
// stopped driving polls would never be resumed, leaking it forever
// blocked on resumeCh, so this refuses to start one.
func (r *Runtime) spawnFromSeed(parentSeed uint64, opts SpawnOptions, fn TaskFunc) (*Task, error) {
	if r.Finished() {
		return nil, ErrNoActiveRuntime
	}

	id := TaskID(r.ids.Next())

	seed := deriveTaskSeed(parentSeed, id)
	if opts.SeedOverride != nil {
		seed = *opts.SeedOverride
	}

	t := newTask(r, id, opts.Name, opts.Group, opts.Primary, seed, fn)

	r.mu.Lock()
	r.tasks[id] = t
	if opts.Primary {
		r.primaryRemaining++
	}
	r.mu.Unlock()

	r.groups.add(opts.Group, id)
	t.start()
	r.ready.push(id, opts.Primary)

	r.InvokeHook(HookCtx{Domain: r, Pos: HookPosTaskSpawned, Now: r.clock.Now(), Item: id})
	return t, nil
}

func (r *Runtime) registerAbandonHook(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		fn()
		return
	}
	r.abandonHooks = append(r.abandonHooks, fn)
}

// wakeTask makes task id ready again, provided gen still matches its
// current generation (see Waker).
func (r *Runtime) wakeTask(id TaskID, gen uint64) {
	t := r.lookupTask(id)
	if t == nil {
		return
	}
	if atomic.LoadUint64(&t.gen) != gen {
		return
	}
	r.ready.push(id, t.primary)
}
