package core

import "sync"

// HookPos names a site in the macrostep loop where hooks can be invoked.
// Ported from sim.HookPos (sim/hook.go), renamed for task-poll semantics
// instead of akita's event-handling semantics.
type HookPos struct {
	Name string
}

// HookCtx carries everything a Hook needs about the site that triggered it.
// Mirrors sim.HookCtx field for field.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Now    Instant
	Item   interface{}
	Detail interface{}
}

// Hookable is implemented by anything that accepts hooks: the Runtime in
// this package, and collaborator types that embed HookableBase
// (netsim.Link, queueing.Queue, queueing.Topic).
type Hookable interface {
	AcceptHook(hook Hook)
}

// Hook positions recognized by the Runtime.
var (
	HookPosBeforeMacrostep = &HookPos{Name: "BeforeMacrostep"}
	HookPosAfterMacrostep  = &HookPos{Name: "AfterMacrostep"}
	HookPosBeforePoll      = &HookPos{Name: "BeforePoll"}
	HookPosAfterPoll       = &HookPos{Name: "AfterPoll"}
	HookPosBeforeAdvance   = &HookPos{Name: "BeforeAdvance"}
	HookPosAfterAdvance    = &HookPos{Name: "AfterAdvance"}
	HookPosTaskSpawned     = &HookPos{Name: "TaskSpawned"}
	HookPosTaskCompleted   = &HookPos{Name: "TaskCompleted"}
)

// Hook is a short piece of program invoked by a Hookable object.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase provides a reusable implementation of Hookable.
type HookableBase struct {
	mu    sync.RWMutex
	hooks []Hook
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns how many hooks are registered.
func (h *HookableBase) NumHooks() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks)
}

// InvokeHook triggers every registered hook with ctx.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	h.mu.RLock()
	hooks := h.hooks
	h.mu.RUnlock()

	for _, hook := range hooks {
		hook.Func(ctx)
	}
}
