// Package core implements the deterministic discrete-event simulation
// engine: the virtual clock, the timer wheel, the cooperative task
// scheduler, the partial-order-reduction coordinator, and the
// deterministic RNG that everything else in a simulation run draws from.
//
// Collaborator packages (queueing, netsim, monitor, explore) never reach
// into the runtime's internal state directly; they go through the
// TaskContext and Runtime handles documented on each exported type.
package core
