package core

import "sync"

// SpawnOptions configures a new task. Primary marks the task as one whose
// completion the Runtime waits for before ending the run (spec.md's
// Lifecycle); Name and Group are purely diagnostic/addressing labels.
//
// SeedOverride fixes the task's own RNG seed (spec.md §4.5's
// seed_override spawn attribute) instead of letting it derive from the
// spawning parent's seed and the new task's TaskID, the default every
// task gets otherwise. Leave nil unless a test needs one specific task's
// draws pinned independently of where it lands in the TaskID sequence.
type SpawnOptions struct {
	Name         string
	Primary      bool
	Group        string
	SeedOverride *uint64
}

// spawner is implemented by both *Runtime and *TaskContext so the generic
// Spawn function below can be called from the top level (seeding the
// first primary tasks) or from within a running task (spawning children),
// with the same bookkeeping either way. spawnRaw reports ErrNoActiveRuntime
// instead of a Task when the owning Runtime's Run has already returned.
type spawner interface {
	spawnRaw(opts SpawnOptions, fn TaskFunc) (*Task, error)
}

// JoinHandle is the caller-held reference to a spawned task's eventual
// result, generic over the task's output type, in the spirit of Rust's
// std/tokio JoinHandle, adapted to Go's lack of async/await: Wait blocks
// the calling goroutine on a channel rather than being an awaitable value.
type JoinHandle[T any] struct {
	id   TaskID
	done chan struct{}

	mu     sync.Mutex
	result T
	err    error
}

// Wait blocks until the task completes, is abandoned at run end, or fails,
// then returns its result. Intended to be called by the host goroutine
// after Runtime.Run returns (results are only meaningful once the run has
// ended); calling it from inside a running task would deadlock the
// simulation; thus it is deliberately not exposed as a method on
// TaskContext.
func (h *JoinHandle[T]) Wait() (T, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

// TaskID returns the identity of the spawned task.
func (h *JoinHandle[T]) TaskID() TaskID { return h.id }

func (h *JoinHandle[T]) resolve(v T, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return
	default:
	}
	h.result = v
	h.err = err
	close(h.done)
}

func (h *JoinHandle[T]) abandon() {
	var zero T
	h.resolve(zero, ErrTaskAbandoned)
}

// Spawn starts fn as a new task under s (a *Runtime or a *TaskContext) and
// returns a handle to its eventual result. Use core.Spawn(runtime, ...) to
// seed a run's initial tasks, or core.Spawn(ctx, ...) from within a
// running task.
//
// If s's owning Runtime has already finished (Run returned), no task is
// started; the returned handle resolves immediately with
// ErrNoActiveRuntime, per spec.md §4.5.
func Spawn[T any](s spawner, opts SpawnOptions, fn func(ctx *TaskContext) (T, error)) *JoinHandle[T] {
	jh := &JoinHandle[T]{done: make(chan struct{})}

	task, err := s.spawnRaw(opts, func(ctx *TaskContext) error {
		v, err := fn(ctx)
		jh.resolve(v, err)
		return err
	})
	if err != nil {
		var zero T
		jh.resolve(zero, err)
		return jh
	}
	jh.id = task.id

	task.rt.registerAbandonHook(jh.abandon)

	return jh
}
