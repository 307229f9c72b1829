package core

import (
	"log"
	"time"
)

// TraceHook logs one line per poll and per time-advancement event,
// mirroring sim/eventlogger.go's format-string style (one printf per
// event, no structured logging library in the corpus for this). Install
// with runtime.AcceptHook(core.NewTraceHook(logger)) to get a
// human-readable record of a run's poll order, useful for debugging a
// StuckSimulation diagnostic or confirming a seed reproduces the same
// trace twice.
type TraceHook struct {
	Logger *log.Logger
}

// NewTraceHook returns a TraceHook that writes through logger.
func NewTraceHook(logger *log.Logger) *TraceHook {
	return &TraceHook{Logger: logger}
}

// Func implements Hook.
func (h *TraceHook) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosBeforePoll:
		h.Logger.Printf("%s, poll task=%d", ctx.Now, ctx.Item)
	case HookPosAfterAdvance:
		h.Logger.Printf("%s, advance drained=%v", ctx.Now, ctx.Detail)
	case HookPosTaskSpawned:
		h.Logger.Printf("%s, spawn task=%d", ctx.Now, ctx.Item)
	case HookPosTaskCompleted:
		if err, _ := ctx.Detail.(error); err != nil {
			h.Logger.Printf("%s, complete task=%d err=%v", ctx.Now, ctx.Item, err)
			return
		}
		h.Logger.Printf("%s, complete task=%d", ctx.Now, ctx.Item)
	}
}

// StallHook logs a warning whenever a single macrostep's drain phase
// takes longer in wall-clock time than Threshold to settle -- useful for
// spotting a macrostep that is technically progressing (so it will never
// trip ErrSelfWakeLivelock or ErrStuckSimulation) but is doing far more
// work than expected, e.g. a collaborator spinning through thousands of
// SelfWake suspensions just under the budget. Has no opinion about
// virtual time, only the wall-clock cost of computing one macrostep.
type StallHook struct {
	Logger    *log.Logger
	Threshold time.Duration

	start time.Time
}

// NewStallHook returns a StallHook warning on drain phases slower than
// threshold.
func NewStallHook(logger *log.Logger, threshold time.Duration) *StallHook {
	return &StallHook{Logger: logger, Threshold: threshold}
}

// Func implements Hook.
func (h *StallHook) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosBeforeMacrostep:
		h.start = time.Now()
	case HookPosAfterMacrostep:
		if h.start.IsZero() {
			return
		}
		if elapsed := time.Since(h.start); elapsed > h.Threshold {
			h.Logger.Printf("%s, macrostep stalled: %s wall-clock (threshold %s)",
				ctx.Now, elapsed, h.Threshold)
		}
	}
}
