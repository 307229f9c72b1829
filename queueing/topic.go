package queueing

import (
	"sync"

	"github.com/sarchlab/chronos/core"
)

// HookPosTopicPublish marks when a value is broadcast to every current
// subscriber of a Topic.
var HookPosTopicPublish = &core.HookPos{Name: "Topic Publish"}

// Topic is an unbounded broadcast channel: every value Published is
// delivered to every Subscription active at the time of the Publish.
// Subscriptions created afterwards never see it. Publish and Recv both
// touch the topic's resource handle.
type Topic[T any] struct {
	core.HookableBase

	name     string
	resource core.ResourceID

	mu   sync.Mutex
	subs []*Subscription[T]
}

// NewTopic creates an empty Topic, minting a fresh POR resource handle
// from rt.
func NewTopic[T any](rt *core.Runtime, name string) *Topic[T] {
	return &Topic[T]{name: name, resource: rt.NewResourceID()}
}

// Name returns the topic's diagnostic label.
func (t *Topic[T]) Name() string { return t.name }

// Resource returns the POR resource handle Publish and Recv touch.
func (t *Topic[T]) Resource() core.ResourceID { return t.resource }

// Subscription is a per-listener unbounded mailbox fed by Topic.Publish.
type Subscription[T any] struct {
	resource core.ResourceID

	mu     sync.Mutex
	elems  []T
	waiter *core.Waker
}

// Subscribe registers a new Subscription that receives every value
// Published after this call returns.
func (t *Topic[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{resource: t.resource}

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	return sub
}

// Unsubscribe removes sub from the topic; any values already queued in
// sub remain available to Recv, but sub receives nothing further.
func (t *Topic[T]) Unsubscribe(sub *Subscription[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every currently subscribed Subscription,
// waking any of them that are parked in Recv.
func (t *Topic[T]) Publish(ctx *core.TaskContext, v T) {
	ctx.Touch(t.resource)

	t.mu.Lock()
	subs := make([]*Subscription[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(v)
	}

	t.InvokeHook(core.HookCtx{Domain: t, Pos: HookPosTopicPublish, Now: ctx.Now(), Item: v, Detail: len(subs)})
}

func (s *Subscription[T]) deliver(v T) {
	s.mu.Lock()
	s.elems = append(s.elems, v)
	waiter := s.waiter
	s.waiter = nil
	s.mu.Unlock()

	if waiter != nil {
		waiter.Wake()
	}
}

// Recv suspends ctx's task until a value arrives on this subscription,
// then returns the oldest undelivered one.
func (s *Subscription[T]) Recv(ctx *core.TaskContext) T {
	ctx.Touch(s.resource)

	for {
		s.mu.Lock()
		if len(s.elems) > 0 {
			v := s.elems[0]
			s.elems = s.elems[1:]
			s.mu.Unlock()
			return v
		}
		s.waiter = ctx.NewWaker()
		s.mu.Unlock()

		ctx.Park()
	}
}

// Len reports how many undelivered values are queued for this
// subscription.
func (s *Subscription[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elems)
}
