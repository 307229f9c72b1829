package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sarchlab/chronos/core"
)

// Grounded on sim/eventqueue_test.go's gomock.Controller/NewMockEvent
// pattern, carried over to the go.uber.org/mock successor of
// github.com/golang/mock and retargeted at core.Hook, the interface every
// collaborator package (queueing, netsim, monitor) registers against.
var _ = Describe("Hook", func() {
	var mockCtrl *gomock.Controller

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("is invoked at the macrostep boundaries", func() {
		hook := NewMockHook(mockCtrl)

		var seen []*core.HookPos
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx core.HookCtx) { seen = append(seen, ctx.Pos) }).
			MinTimes(1)

		rt := core.NewRuntime(core.WithSeed(1))
		rt.AcceptHook(hook)

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sleeper"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(core.Millisecond)
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
		Expect(seen).To(ContainElement(core.HookPosBeforeMacrostep))
		Expect(seen).To(ContainElement(core.HookPosAfterMacrostep))
	})
})
