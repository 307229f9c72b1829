// Package netsim is the UDP-style virtual network collaborator spec.md
// §1 treats as out of scope for the core: a Link carries packets between
// Sockets with simulated latency and loss, sampled from the sending
// task's deterministic RNG rather than any real network stack.
//
// Grounded on sim/port.go's buffered, capacity-limited delivery model and
// on other_examples/sabdullahi18-satnet-simulator__simulation.go and
// other_examples/edgedlt-hotstuff2__clock.go for the latency/loss shape of
// a simulated unreliable link. Every Send/Recv touches the Link's POR
// resource handle per the collaborator contract in spec.md §6.
package netsim
