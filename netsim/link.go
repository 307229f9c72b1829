package netsim

import (
	"fmt"
	"sync"

	"github.com/sarchlab/chronos/core"
)

// HookPosPacketSent marks when a packet is accepted for delivery (loss
// already decided against; the jittered delivery task has been spawned).
var HookPosPacketSent = &core.HookPos{Name: "Netsim Packet Sent"}

// HookPosPacketDropped marks when a packet was sampled as lost and never
// spawned a delivery task.
var HookPosPacketDropped = &core.HookPos{Name: "Netsim Packet Dropped"}

// HookPosPacketDelivered marks when a packet lands in its destination
// socket's inbox.
var HookPosPacketDelivered = &core.HookPos{Name: "Netsim Packet Delivered"}

// Packet is one unit of payload carried across a Link.
type Packet struct {
	Src     string
	Dst     string
	Payload []byte
	SentAt  core.Instant
}

// Link models one simulated unreliable broadcast medium: every Socket
// bound to it can address every other bound Socket by name. Every packet
// independently risks loss (LossProbability) and, if not lost, is
// delivered after a latency drawn uniformly from [LatencyLo, LatencyHi).
type Link struct {
	core.HookableBase

	name     string
	rt       *core.Runtime
	resource core.ResourceID

	lossProbability float64
	latencyLo       core.Duration
	latencyHi       core.Duration

	mu      sync.Mutex
	sockets map[string]*Socket
}

// NewLink creates a Link with the given loss probability (clamped to
// [0,1] by the underlying RNG call) and latency range. A zero-width
// latency range ([d, d)) delivers every surviving packet after exactly d.
func NewLink(rt *core.Runtime, name string, lossProbability float64, latencyLo, latencyHi core.Duration) *Link {
	if latencyHi < latencyLo {
		panic("netsim: latencyHi must be >= latencyLo")
	}
	return &Link{
		name:            name,
		rt:              rt,
		resource:        rt.NewResourceID(),
		lossProbability: lossProbability,
		latencyLo:       latencyLo,
		latencyHi:       latencyHi,
		sockets:         make(map[string]*Socket),
	}
}

// Name returns the link's diagnostic label.
func (l *Link) Name() string { return l.name }

// Resource returns the POR resource handle every Send/Recv on this link
// touches.
func (l *Link) Resource() core.ResourceID { return l.resource }

// Bind creates and registers a new Socket addressed as addr on this
// link. Binding the same address twice panics; addresses are a link-wide
// namespace, not a per-task one.
func (l *Link) Bind(addr string) *Socket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.sockets[addr]; exists {
		panic(fmt.Sprintf("netsim: address %q already bound on link %q", addr, l.name))
	}

	s := &Socket{addr: addr, link: l}
	l.sockets[addr] = s
	return s
}

func (l *Link) socket(addr string) *Socket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sockets[addr]
}

func (l *Link) jitter(ctx *core.TaskContext) core.Duration {
	if l.latencyHi == l.latencyLo {
		return l.latencyLo
	}
	return ctx.Rng().GenDuration(l.latencyLo, l.latencyHi)
}

// Socket is one named endpoint bound to a Link.
type Socket struct {
	addr string
	link *Link

	mu     sync.Mutex
	inbox  []Packet
	waiter *core.Waker
}

// Addr returns the socket's bound address.
func (s *Socket) Addr() string { return s.addr }

// Send transmits payload to dst. Touches the link's POR resource
// immediately; loss is sampled immediately (so the send "happens" at
// Now()) but successful delivery lands asynchronously after a jittered
// latency, modeled as a detached child task spawned from ctx so it
// survives ctx's own task suspending or completing.
func (s *Socket) Send(ctx *core.TaskContext, dst string, payload []byte) {
	s.link.rt.Touch(ctx.TaskID(), s.link.resource)

	pkt := Packet{Src: s.addr, Dst: dst, Payload: payload, SentAt: ctx.Now()}

	if ctx.Rng().BoolWithProbability(s.link.lossProbability) {
		s.link.InvokeHook(core.HookCtx{Domain: s.link, Pos: HookPosPacketDropped, Now: ctx.Now(), Item: pkt})
		return
	}

	latency := s.link.jitter(ctx)

	ctx.SpawnDetached(core.SpawnOptions{Name: "netsim-deliver", Group: "netsim"},
		func(dctx *core.TaskContext) error {
			dctx.Sleep(latency)
			s.link.deliver(dctx, pkt)
			return nil
		})

	s.link.InvokeHook(core.HookCtx{Domain: s.link, Pos: HookPosPacketSent, Now: ctx.Now(), Item: pkt})
}

func (l *Link) deliver(ctx *core.TaskContext, pkt Packet) {
	dst := l.socket(pkt.Dst)
	if dst == nil {
		return // addressed to nothing bound; dropped silently, like a real UDP send to a closed port
	}

	dst.mu.Lock()
	dst.inbox = append(dst.inbox, pkt)
	waiter := dst.waiter
	dst.waiter = nil
	dst.mu.Unlock()

	l.InvokeHook(core.HookCtx{Domain: l, Pos: HookPosPacketDelivered, Now: ctx.Now(), Item: pkt})

	if waiter != nil {
		waiter.Wake()
	}
}

// Recv suspends the calling task until a packet arrives in this socket's
// inbox, then returns it.
func (s *Socket) Recv(ctx *core.TaskContext) Packet {
	s.link.rt.Touch(ctx.TaskID(), s.link.resource)

	for {
		s.mu.Lock()
		if len(s.inbox) > 0 {
			p := s.inbox[0]
			s.inbox = s.inbox[1:]
			s.mu.Unlock()
			return p
		}
		s.waiter = ctx.NewWaker()
		s.mu.Unlock()

		ctx.Park()
	}
}

// Pending reports how many undelivered packets are queued in this
// socket's inbox.
func (s *Socket) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbox)
}
