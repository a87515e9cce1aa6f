package sim

import (
	"log"
	"sync"

	"github.com/vitalsim/vitalsim/population"
)

// A Simulation advances a population through simulated time, invoking each
// registered module once per timestep in registration order. Execution is
// single-threaded and step-synchronous; Pause and Continue only gate the
// loop between steps.
type Simulation struct {
	HookableBase

	id       string
	timeline Timeline
	seed     uint64
	popScale float64

	slotScale float64
	minSlots  int

	people  *population.People
	nAgents int

	modules      []Module
	modNameIndex map[string]int

	results *Results

	ti          int
	initialized bool
	finalized   bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex
}

// ID returns the run identifier.
func (s *Simulation) ID() string { return s.id }

// People returns the agent arena.
func (s *Simulation) People() *population.People { return s.people }

// Timeline returns the simulated period and timestep.
func (s *Simulation) Timeline() Timeline { return s.timeline }

// TI returns the current step index.
func (s *Simulation) TI() int { return s.ti }

// Now returns the current simulated time in years.
func (s *Simulation) Now() Years { return s.timeline.Time(s.ti) }

// DT returns the timestep in years.
func (s *Simulation) DT() float64 { return float64(s.timeline.DT) }

// NumSteps returns the total number of timesteps.
func (s *Simulation) NumSteps() int { return s.timeline.NumSteps() }

// PopScale returns the factor that converts agent counts to
// real-population counts.
func (s *Simulation) PopScale() float64 { return s.popScale }

// Seed returns the run-level random seed.
func (s *Simulation) Seed() uint64 { return s.seed }

// Stream derives a deterministic random stream from the run seed and the
// given identifier, conventionally "<module>.<purpose>".
func (s *Simulation) Stream(name string) Stream {
	return NewStream(s.seed, name)
}

// SlotRange returns the reserved slot range [low, high) for unborn agents.
// The range starts above the initial population and is sized to at least
// max(slotScale*nAgents, minSlots), so embryo slots cannot collide with
// live-birth UID assignment even in small populations.
func (s *Simulation) SlotRange() (low, high int) {
	low = s.nAgents + 1
	high = int(s.slotScale * float64(s.nAgents))
	if high < s.minSlots {
		high = s.minSlots
	}

	return low, high
}

// Results returns the simulation-level result series (n_alive).
func (s *Simulation) Results() *Results { return s.results }

// RegisterModule adds a module to the step order. Modules step in
// registration order; duplicated names panic.
func (s *Simulation) RegisterModule(m Module) {
	if s.initialized {
		log.Panic("cannot register modules after initialization")
	}

	name := m.Name()
	if _, exists := s.modNameIndex[name]; exists {
		log.Panicf("module %s already registered", name)
	}

	s.modules = append(s.modules, m)
	s.modNameIndex[name] = len(s.modules) - 1
}

// GetModuleByName returns the registered module with the given name.
func (s *Simulation) GetModuleByName(name string) Module {
	i, ok := s.modNameIndex[name]
	if !ok {
		log.Panicf("no module named %s", name)
	}

	return s.modules[i]
}

// Modules returns the registered modules in step order.
func (s *Simulation) Modules() []Module { return s.modules }

// Init runs pre-init and post-init for every module, in step order. It
// must be called exactly once, before Step or Run.
func (s *Simulation) Init() {
	if s.initialized {
		log.Panic("simulation is already initialized")
	}

	for _, m := range s.modules {
		m.PreInit(s)
	}
	for _, m := range s.modules {
		m.PostInit()
	}

	s.results.Add(NewResult(
		"n_alive", "Number of agents alive", s.NumSteps(), true))

	s.initialized = true
}

// Step advances the simulation by one timestep: every module steps in
// order, requested deaths are committed (cascading through death
// observers), results are recorded, and ages advance by dt.
func (s *Simulation) Step() {
	if !s.initialized {
		log.Panic("cannot step a simulation that is not initialized")
	}
	if s.finalized {
		log.Panic("cannot step a finalized simulation")
	}
	if s.ti >= s.NumSteps() {
		log.Panicf("stepping past the end of the timeline (ti=%d)", s.ti)
	}

	hookCtx := HookCtx{Domain: s, Pos: HookPosBeforeStep, Item: s.ti}
	s.InvokeHook(hookCtx)

	for _, m := range s.modules {
		hookCtx.Pos = HookPosBeforeModuleStep
		hookCtx.Item = m
		s.InvokeHook(hookCtx)

		m.Step()

		hookCtx.Pos = HookPosAfterModuleStep
		s.InvokeHook(hookCtx)
	}

	s.resolveDeaths()

	for _, m := range s.modules {
		m.UpdateResults()
	}
	s.results.Get("n_alive").Values[s.ti] = float64(s.people.NumAlive())

	s.people.AdvanceAges(s.DT())

	hookCtx.Pos = HookPosAfterStep
	hookCtx.Item = s.ti
	s.InvokeHook(hookCtx)

	s.ti++
}

// resolveDeaths commits requested deaths and notifies death observers.
// Observers may request further deaths (e.g. neonatal loss following a
// maternal death); the cascade loops until no requests remain, all within
// the same step.
func (s *Simulation) resolveDeaths() {
	for s.people.HasPendingDeaths() {
		dead := s.people.CommitPendingDeaths(s.ti)
		for _, m := range s.modules {
			if ob, ok := m.(DeathObserver); ok {
				ob.UpdateDeath(dead)
			}
		}
	}
}

// Run steps through the remaining timeline and finalizes. The pause lock
// is taken per step, so a paused simulation stops between steps.
func (s *Simulation) Run() error {
	if !s.initialized {
		log.Panic("cannot run a simulation that is not initialized")
	}

	for s.ti < s.NumSteps() {
		s.pauseLock.Lock()
		s.Step()
		s.pauseLock.Unlock()
	}

	s.Finalize()

	return nil
}

// Finalize finalizes every module, computes simulation-level derived
// metrics, and marks the run terminal. Stepping afterwards is an error.
func (s *Simulation) Finalize() {
	if s.finalized {
		log.Panic("simulation is already finalized")
	}

	// Simulation-level counts are scaled first so that module finalizers
	// deriving rates from them see the same scale as their own counts.
	s.results.ScaleAll(s.popScale)
	for _, m := range s.modules {
		m.Finalize()
	}
	s.finalized = true

	hookCtx := HookCtx{Domain: s, Pos: HookPosSimFinalize}
	s.InvokeHook(hookCtx)
}

// Finalized reports whether the run has been finalized.
func (s *Simulation) Finalized() bool { return s.finalized }

// Pause prevents the simulation from starting new steps.
func (s *Simulation) Pause() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		return
	}

	s.pauseLock.Lock()
	s.isPaused = true
}

// Continue allows a paused simulation to step again.
func (s *Simulation) Continue() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if !s.isPaused {
		return
	}

	s.pauseLock.Unlock()
	s.isPaused = false
}
