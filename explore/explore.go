// Package explore drives a POR-reduced exhaustive exploration of a
// scenario's schedule space: it runs the scenario once per distinct
// schedule, using the runtime's partial-order-reduction coordinator at
// every scheduling choice point to decide which orderings are worth a
// separate run and which are commutative with one already explored.
//
// Grounded on akita's tracing/sqlite.go for the persistence shape (one
// append-only table, batched inserts, atexit-registered flush); the
// search itself has no akita counterpart, since akita never explores
// alternate schedules -- it is new code built directly from spec.md §4.6
// and §8's POR-reduction scenarios.
package explore

import (
	"fmt"
	"time"

	"github.com/sarchlab/chronos/core"
)

// Scenario spawns a run's initial tasks against a freshly constructed
// Runtime. The Explorer calls it once per explored schedule, so it must
// be able to build its queues, links, and tasks from scratch every time
// -- nothing from a previous call may be reused.
type Scenario func(rt *core.Runtime)

// Schedule is the outcome of exploring one path through the decision
// tree: the sequence of scheduling choices that were forced to reach it,
// and what running the scenario under those choices produced.
type Schedule struct {
	Index    int
	Seed     uint64
	Path     []core.TaskID
	Err      error
	WallCost time.Duration
}

// Outcome renders a short human-readable summary of how a schedule
// finished, for the sqlite store and for CLI output.
func (s Schedule) Outcome() string {
	if s.Err == nil {
		return "ok"
	}
	return s.Err.Error()
}

// Explorer holds the configuration for one exploration run.
type Explorer struct {
	scenario     Scenario
	seed         uint64
	maxSchedules int
	store        *Store
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithSeed fixes the RNG seed every spawned Runtime is constructed with.
// Every explored schedule shares the same seed; it is the scheduling
// choice, not the RNG stream, that varies between schedules.
func WithSeed(seed uint64) Option {
	return func(e *Explorer) { e.seed = seed }
}

// WithMaxSchedules caps how many distinct schedules Run will explore
// before stopping, a backstop against a scenario whose conflict graph
// makes the schedule space too large to enumerate in full.
func WithMaxSchedules(n int) Option {
	return func(e *Explorer) { e.maxSchedules = n }
}

// WithStore attaches a Store that Run persists one row to per explored
// schedule.
func WithStore(s *Store) Option {
	return func(e *Explorer) { e.store = s }
}

const defaultMaxSchedules = 10000

// New constructs an Explorer over scenario.
func New(scenario Scenario, opts ...Option) *Explorer {
	e := &Explorer{
		scenario:     scenario,
		maxSchedules: defaultMaxSchedules,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run explores the scenario's schedule space depth-first: it runs once
// with no forced choices, discovers every branch point the run's
// POR-reduced decisions expose, then re-runs once per discovered branch
// with that branch's choice forced, recursively, until the frontier is
// exhausted or MaxSchedules is reached.
//
// Each run only discovers the branches rooted at its own first
// unforced decision point; deeper branches are discovered by the runs
// that descend into them with a longer forced prefix. This is the
// classic "explore one unvisited node, queue its children" shape of a
// depth-first schedule search, and it is what lets a fully independent
// scenario (spec.md §8 scenario 6's two tasks on two unrelated queues)
// terminate after exactly one run: at the first and only decision point
// the two tasks fall into separate (mutually permutable) conflict classes,
// so no branch is ever recorded.
func (e *Explorer) Run() ([]Schedule, error) {
	var schedules []Schedule
	pending := [][]core.TaskID{{}}

	for len(pending) > 0 && len(schedules) < e.maxSchedules {
		prefix := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		sched, branches := e.runWithPrefix(len(schedules), prefix)
		schedules = append(schedules, sched)

		if e.store != nil {
			if err := e.store.Write(sched); err != nil {
				return schedules, fmt.Errorf("explore: persisting schedule %d: %w", sched.Index, err)
			}
		}

		for _, b := range branches {
			next := make([]core.TaskID, len(prefix)+1)
			copy(next, prefix)
			next[len(prefix)] = b
			pending = append(pending, next)
		}
	}

	return schedules, nil
}

// runWithPrefix runs the scenario once, forcing the scheduler to choose
// prefix[i] at decision point i for every i < len(prefix), and reports
// the alternate choices available at the first decision point beyond the
// prefix -- the new branches this run discovered.
func (e *Explorer) runWithPrefix(index int, prefix []core.TaskID) (Schedule, []core.TaskID) {
	var rt *core.Runtime
	var path []core.TaskID
	var branches []core.TaskID

	decisionIdx := 0
	var firstUnforced []core.TaskID
	chooser := func(ready []core.TaskID) core.TaskID {
		defer func() { decisionIdx++ }()

		if decisionIdx < len(prefix) {
			choice := prefix[decisionIdx]
			path = append(path, choice)
			return choice
		}

		if decisionIdx == len(prefix) {
			firstUnforced = append([]core.TaskID(nil), ready...)
		}
		canon := groupByConflict(rt, ready)[0]
		path = append(path, canon[0])
		return canon[0]
	}

	rt = core.NewRuntime(
		core.WithSeed(e.seed),
		core.WithPartialOrderReduction(true),
		core.WithScheduleChooser(chooser),
	)

	e.scenario(rt)

	start := time.Now()
	err := rt.Run()
	wall := time.Since(start)

	// A task joins a resource's POR set only when it touches that resource
	// during its own poll, so the first unforced decision's ready set is
	// grouped once the run has finished and every touch is recorded.
	if firstUnforced != nil {
		branches = groupByConflict(rt, firstUnforced)[0][1:]
	}

	return Schedule{
		Index:    index,
		Seed:     e.seed,
		Path:     path,
		Err:      err,
		WallCost: wall,
	}, branches
}

// groupByConflict partitions ready (already in ascending-TaskID order,
// per core.Runtime's ScheduleChooser contract) into POR conflict classes:
// two tasks land in the same group iff rt.Permutable reports them
// non-permutable, i.e. some chain of touched resources connects them.
// The group containing the lowest TaskID is always groups[0], since that
// task is necessarily the first one processed and starts its own group.
func groupByConflict(rt *core.Runtime, ready []core.TaskID) [][]core.TaskID {
	var groups [][]core.TaskID

	for _, id := range ready {
		placed := false
		for gi, g := range groups {
			if !rt.Permutable(g[0], id) {
				groups[gi] = append(groups[gi], id)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []core.TaskID{id})
		}
	}

	return groups
}
