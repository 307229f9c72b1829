package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/chronos/core"
)

var _ = Describe("Runtime", func() {
	It("advances time monotonically while a single primary sleeps", func() {
		rt := core.NewRuntime(core.WithSeed(1))
		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sleeper"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(5 * core.Second)
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
		Expect(rt.Now()).To(Equal(core.Zero.Add(5 * core.Second)))
		Expect(rt.Finished()).To(BeTrue())
	})

	It("schedules identically across two runs with the same seed", func() {
		run := func() []core.Instant {
			rt := core.NewRuntime(core.WithSeed(42))
			var observed []core.Instant
			for i := 0; i < 3; i++ {
				d := core.Duration(i+1) * core.Millisecond
				core.Spawn(rt, core.SpawnOptions{Primary: true},
					func(ctx *core.TaskContext) (struct{}, error) {
						n := ctx.Rng().UniformRange(0, 100)
						ctx.Sleep(d + core.Duration(n)*core.Microsecond)
						observed = append(observed, ctx.Now())
						return struct{}{}, nil
					})
			}
			Expect(rt.Run()).To(Succeed())
			return observed
		}

		Expect(run()).To(Equal(run()))
	})

	It("ends the run once every primary completes, abandoning secondaries", func() {
		rt := core.NewRuntime(core.WithSeed(1))

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "quick"},
			func(ctx *core.TaskContext) (struct{}, error) {
				return struct{}{}, nil
			})

		secondary := core.Spawn(rt, core.SpawnOptions{Primary: false, Name: "forever"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(10 * core.Second)
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())

		_, err := secondary.Wait()
		Expect(errors.Is(err, core.ErrTaskAbandoned)).To(BeTrue())
	})

	It("runs two staggered primaries to the slower one's deadline", func() {
		rt := core.NewRuntime(core.WithSeed(1))

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "fast"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(1 * core.Second)
				return struct{}{}, nil
			})
		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "slow"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(3 * core.Second)
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
		Expect(rt.Now()).To(Equal(core.Zero.Add(3 * core.Second)))
	})

	It("aborts with a self-wake livelock once a task exceeds its budget", func() {
		rt := core.NewRuntime(core.WithSeed(1), core.WithSelfWakeBudget(8))

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "spinner"},
			func(ctx *core.TaskContext) (struct{}, error) {
				for {
					ctx.SelfWake()
				}
			})

		err := rt.Run()
		var livelock *core.SelfWakeLivelockError
		Expect(errors.As(err, &livelock)).To(BeTrue())
		Expect(errors.Is(err, core.ErrSelfWakeLivelock)).To(BeTrue())
	})

	It("reports a stuck simulation when a primary parks with no path to wake", func() {
		rt := core.NewRuntime(core.WithSeed(1))

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "stuck"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.NewWaker() // minted, never called
				ctx.Park()
				return struct{}{}, nil
			})

		err := rt.Run()
		var stuck *core.StuckError
		Expect(errors.As(err, &stuck)).To(BeTrue())
		Expect(errors.Is(err, core.ErrStuckSimulation)).To(BeTrue())
		Expect(stuck.LiveTasks).To(HaveLen(1))
	})

	It("wakes a parked task through an external Waker", func() {
		rt := core.NewRuntime(core.WithSeed(1))
		var waker *core.Waker
		ready := make(chan struct{})

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "waiter"},
			func(ctx *core.TaskContext) (struct{}, error) {
				waker = ctx.NewWaker()
				close(ready)
				ctx.Park()
				return struct{}{}, nil
			})

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "waker"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.SelfWake() // let the waiter run first and mint its waker
				<-ready
				waker.Wake()
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
	})

	It("surfaces a task's own error as the run's error", func() {
		rt := core.NewRuntime(core.WithSeed(1))
		boom := errors.New("boom")

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "faulty"},
			func(ctx *core.TaskContext) (struct{}, error) {
				return struct{}{}, boom
			})

		err := rt.Run()
		var panicErr *core.TaskPanicError
		Expect(errors.As(err, &panicErr)).To(BeTrue())
		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("replaces a task's armed timer rather than stacking timers", func() {
		rt := core.NewRuntime(core.WithSeed(1))

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "rearm"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.ArmTimer(10 * core.Second)
				ctx.ArmTimer(1 * core.Second)
				ctx.Park()
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
		Expect(rt.Now()).To(Equal(core.Zero.Add(1 * core.Second)))
	})

	It("rejects an external ArmTimerAt deadline that precedes now", func() {
		rt := core.NewRuntime(core.WithSeed(1))

		core.Spawn(rt, core.SpawnOptions{Primary: true},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(1 * core.Second)

				past := core.Instant(int64(ctx.Now()) - int64(core.Second))
				_, err := ctx.ArmTimerAt(past)
				Expect(errors.Is(err, core.ErrTimerMonotonicityViolation)).To(BeTrue())

				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
	})

	It("never fires a secondary's timer once every primary has completed", func() {
		rt := core.NewRuntime(core.WithSeed(1))

		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "quick"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(1 * core.Second)
				return struct{}{}, nil
			})
		core.Spawn(rt, core.SpawnOptions{Primary: false, Name: "slow"},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Sleep(5 * core.Second)
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
		Expect(rt.Now()).To(Equal(core.Zero.Add(1 * core.Second)))
	})

	It("derives independent, reproducible per-task RNG streams", func() {
		run := func() (a, b int64) {
			rt := core.NewRuntime(core.WithSeed(7))
			var drawA, drawB int64
			core.Spawn(rt, core.SpawnOptions{Primary: true},
				func(ctx *core.TaskContext) (struct{}, error) {
					drawA = ctx.Rng().UniformRange(0, 1<<30)
					return struct{}{}, nil
				})
			core.Spawn(rt, core.SpawnOptions{Primary: true},
				func(ctx *core.TaskContext) (struct{}, error) {
					drawB = ctx.Rng().UniformRange(0, 1<<30)
					return struct{}{}, nil
				})
			Expect(rt.Run()).To(Succeed())
			return drawA, drawB
		}

		a1, b1 := run()
		a2, b2 := run()
		Expect(a1).To(Equal(a2))
		Expect(b1).To(Equal(b2))
		Expect(a1).NotTo(Equal(b1))
	})

	It("honors SeedOverride instead of deriving a task's seed", func() {
		seed := uint64(12345)
		rt := core.NewRuntime(core.WithSeed(1))
		var draw int64

		core.Spawn(rt, core.SpawnOptions{Primary: true, SeedOverride: &seed},
			func(ctx *core.TaskContext) (struct{}, error) {
				draw = ctx.Rng().UniformRange(0, 1<<30)
				return struct{}{}, nil
			})
		Expect(rt.Run()).To(Succeed())

		Expect(draw).To(Equal(core.NewRNG(seed).UniformRange(0, 1<<30)))
	})

	It("fails a Spawn issued after Run has already returned", func() {
		rt := core.NewRuntime(core.WithSeed(1))
		core.Spawn(rt, core.SpawnOptions{Primary: true},
			func(ctx *core.TaskContext) (struct{}, error) { return struct{}{}, nil })

		Expect(rt.Run()).To(Succeed())

		late := core.Spawn(rt, core.SpawnOptions{Primary: true},
			func(ctx *core.TaskContext) (struct{}, error) { return struct{}{}, nil })

		_, err := late.Wait()
		Expect(errors.Is(err, core.ErrNoActiveRuntime)).To(BeTrue())
	})
})

var _ = Describe("Partial order reduction", func() {
	It("treats tasks that never touch a shared resource as permutable", func() {
		rt := core.NewRuntime(core.WithSeed(1), core.WithPartialOrderReduction(true))

		a := core.Spawn(rt, core.SpawnOptions{Primary: true},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Touch(core.ResourceID(1))
				return struct{}{}, nil
			})
		b := core.Spawn(rt, core.SpawnOptions{Primary: true},
			func(ctx *core.TaskContext) (struct{}, error) {
				ctx.Touch(core.ResourceID(2))
				return struct{}{}, nil
			})

		Expect(rt.Run()).To(Succeed())
		Expect(rt.Permutable(a.TaskID(), b.TaskID())).To(BeTrue())
	})
})
