package core

import (
	"sync/atomic"

	"github.com/rs/xid"
)

// TaskID opaquely and stably identifies a task for the lifetime of a
// simulation run. IDs are never reused within a run. Ordering over TaskID
// is the deterministic tie-breaker the ready queue and the timer wheel use
// when two tasks are otherwise equally ready.
type TaskID uint64

// ResourceID opaquely identifies a resource handle minted by a
// collaborator for POR purposes (via Runtime.NewResourceID).
type ResourceID uint64

// idGenerator mints the sequential identifiers that back both TaskID and
// ResourceID. Determinism requires monotonically increasing integers, not
// merely host-unique ones, so unlike sim.IDGenerator the "parallel" variant
// below is never the default -- it exists only because a caller may
// legitimately want non-deterministic diagnostic IDs in a context that
// doesn't feed the scheduler (e.g. a monitor session ID), and the teacher's
// two-implementation shape is worth keeping for that case.
//
// Grounded on sim/idgenerator.go's sequentialIDGenerator/parallelIDGenerator
// pair and its singleton-with-mutex pattern, narrowed to a per-Runtime
// instance (a running simulation must never share ID state with another
// concurrently running simulation, so the package-level singleton from the
// teacher is dropped in favor of one generator per Runtime).
type idGenerator struct {
	next uint64
}

func newIDGenerator() *idGenerator {
	return &idGenerator{}
}

// Next returns the next sequential ID, starting at 1.
func (g *idGenerator) Next() uint64 {
	return atomic.AddUint64(&g.next, 1)
}

// NonDeterministicID returns a host-unique, non-deterministic string
// identifier. Never used for TaskID/ResourceID minting; reserved for
// diagnostic labels (e.g. monitor.ProgressBar IDs) that must never influence
// scheduling.
func NonDeterministicID() string {
	return xid.New().String()
}
