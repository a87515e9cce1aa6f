package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/vitalsim/vitalsim/population"
)

// observerModule is a module that also observes deaths.
type observerModule struct {
	*MockModule
	*MockDeathObserver
}

var _ = Describe("Simulation", func() {
	var (
		mockCtrl *gomock.Controller
		s        *Simulation
		module   *MockModule
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		s = MakeBuilder().
			WithNumAgents(10).
			WithTimeline(2000, 2004, 1).
			Build()

		module = NewMockModule(mockCtrl)
		module.EXPECT().Name().Return("mockmod").AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject duplicated module names", func() {
		other := NewMockModule(mockCtrl)
		other.EXPECT().Name().Return("mockmod").AnyTimes()

		s.RegisterModule(module)

		Expect(func() {
			s.RegisterModule(other)
		}).To(Panic())
	})

	It("should find modules by name", func() {
		s.RegisterModule(module)

		Expect(s.GetModuleByName("mockmod")).To(
			BeIdenticalTo(Module(module)))
		Expect(func() {
			s.GetModuleByName("absent")
		}).To(Panic())
	})

	It("should pre-init and post-init modules on Init", func() {
		s.RegisterModule(module)

		module.EXPECT().PreInit(s)
		module.EXPECT().PostInit()

		s.Init()
	})

	It("should refuse to init twice", func() {
		s.Init()

		Expect(func() { s.Init() }).To(Panic())
	})

	It("should refuse to register modules after Init", func() {
		s.Init()

		Expect(func() {
			s.RegisterModule(module)
		}).To(Panic())
	})

	It("should refuse to step before Init", func() {
		Expect(func() { s.Step() }).To(Panic())
	})

	It("should step modules and record results", func() {
		s.RegisterModule(module)

		module.EXPECT().PreInit(s)
		module.EXPECT().PostInit()
		module.EXPECT().Step()
		module.EXPECT().UpdateResults()

		s.Init()
		s.Step()

		Expect(s.TI()).To(Equal(1))
		Expect(s.Results().Get("n_alive").Values[0]).To(Equal(10.0))
	})

	It("should advance ages by dt each step", func() {
		s.Init()

		before := s.People().Age(0)
		s.Step()

		Expect(s.People().Age(0)).To(BeNumerically("~", before+1, 1e-12))
	})

	It("should advance the clock along the timeline", func() {
		s.Init()

		Expect(float64(s.Now())).To(Equal(2000.0))
		s.Step()
		Expect(float64(s.Now())).To(Equal(2001.0))
	})

	It("should run the whole timeline and finalize", func() {
		s.RegisterModule(module)

		module.EXPECT().PreInit(s)
		module.EXPECT().PostInit()
		module.EXPECT().Step().Times(5)
		module.EXPECT().UpdateResults().Times(5)
		module.EXPECT().Finalize()

		s.Init()
		err := s.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(s.Finalized()).To(BeTrue())
	})

	It("should refuse to step after finalization", func() {
		s.Init()
		s.Finalize()

		Expect(func() { s.Step() }).To(Panic())
	})

	It("should refuse to finalize twice", func() {
		s.Init()
		s.Finalize()

		Expect(func() { s.Finalize() }).To(Panic())
	})

	It("should notify death observers with the committed batch", func() {
		observer := &observerModule{
			MockModule:        module,
			MockDeathObserver: NewMockDeathObserver(mockCtrl),
		}
		s.RegisterModule(observer)

		module.EXPECT().PreInit(s)
		module.EXPECT().PostInit()
		module.EXPECT().Step().Do(func() {
			s.People().RequestDeath(population.UIDs{2, 5})
		})
		module.EXPECT().UpdateResults()
		observer.MockDeathObserver.EXPECT().
			UpdateDeath(population.UIDs{2, 5})

		s.Init()
		s.Step()

		Expect(s.People().Alive(2)).To(BeFalse())
		Expect(s.People().NumAlive()).To(Equal(8))
		Expect(s.Results().Get("n_alive").Values[0]).To(Equal(8.0))
	})

	It("should cascade deaths requested by observers within the step", func() {
		observer := &observerModule{
			MockModule:        module,
			MockDeathObserver: NewMockDeathObserver(mockCtrl),
		}
		s.RegisterModule(observer)

		module.EXPECT().PreInit(s)
		module.EXPECT().PostInit()
		module.EXPECT().Step().Do(func() {
			s.People().RequestDeath(population.UIDs{2})
		})
		module.EXPECT().UpdateResults()

		// The observer pulls agent 3 down with agent 2.
		observer.MockDeathObserver.EXPECT().
			UpdateDeath(population.UIDs{2}).
			Do(func(population.UIDs) {
				s.People().RequestDeath(population.UIDs{3})
			})
		observer.MockDeathObserver.EXPECT().
			UpdateDeath(population.UIDs{3})

		s.Init()
		s.Step()

		Expect(s.People().Alive(3)).To(BeFalse())
		Expect(s.People().DeathStep(3)).To(Equal(0))
	})

	It("should scale results by popScale at finalization", func() {
		s = MakeBuilder().
			WithNumAgents(10).
			WithTimeline(2000, 2004, 1).
			WithPopScale(100).
			Build()

		s.Init()
		err := s.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(s.Results().Get("n_alive").Values[0]).To(Equal(1000.0))
	})
})

var _ = Describe("Stream", func() {
	It("should replay identically for the same seed", func() {
		a := NewStream(7, "pregnancy.p_fertility")
		b := NewStream(7, "pregnancy.p_fertility")

		for uid := population.UID(0); uid < 10; uid++ {
			Expect(a.Uniform(uid)).To(Equal(b.Uniform(uid)))
		}
	})

	It("should differ across seeds", func() {
		a := NewStream(7, "pregnancy.p_fertility")
		b := NewStream(8, "pregnancy.p_fertility")

		Expect(a.Uniform(3)).ToNot(Equal(b.Uniform(3)))
	})

	It("should differ across stream names", func() {
		a := NewStream(7, "pregnancy.p_fertility")
		b := NewStream(7, "deaths.p_death")

		Expect(a.Uniform(3)).ToNot(Equal(b.Uniform(3)))
	})

	It("should differ across steps after a jump", func() {
		s := NewStream(7, "deaths.p_death")

		Expect(s.Jump(0).Uniform(3)).ToNot(Equal(s.Jump(1).Uniform(3)))
	})

	It("should stay within [0, 1)", func() {
		s := NewStream(7, "x")

		for uid := population.UID(0); uid < 1000; uid++ {
			v := s.Uniform(uid)
			Expect(v).To(BeNumerically(">=", 0))
			Expect(v).To(BeNumerically("<", 1))
		}
	})
})
