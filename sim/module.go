package sim

import (
	"log"

	"github.com/vitalsim/vitalsim/population"
)

// A Module is one demographic process stepped once per timestep. The
// lifecycle is constructed -> pre-initialized -> ready -> stepping ->
// finalized; the simulation drives the transitions in that order and
// panics on any violation.
type Module interface {
	// Name returns the unique module name.
	Name() string

	// PreInit binds the module to its simulation: it registers state
	// arrays with the population, registers result series, and resolves
	// time-varying parameters to the simulation's timestep.
	PreInit(s *Simulation)

	// PostInit materializes initial values for the declared states. It is
	// the last initialization step.
	PostInit()

	// Step performs the module's per-timestep effect. It must not be
	// called before PostInit or after Finalize.
	Step()

	// UpdateResults records this step's counters at the current time index.
	UpdateResults()

	// Finalize computes derived metrics and marks the module terminal.
	Finalize()

	// Results returns the module's result series.
	Results() *Results
}

// A DeathObserver is a module that must be told which agents were removed
// this step, so dependent state stays consistent.
type DeathObserver interface {
	// UpdateDeath is invoked once per committed death batch with the UIDs
	// actually removed. Implementations may request further deaths; those
	// are committed within the same step's cascade.
	UpdateDeath(uids population.UIDs)
}

// ModuleBase carries the bookkeeping shared by all modules: the name, the
// back-reference to the simulation, the result series, and the lifecycle
// flags.
type ModuleBase struct {
	name    string
	sim     *Simulation
	results *Results

	preInitialized bool
	initialized    bool
	finalized      bool
}

// NewModuleBase creates the base for a named module.
func NewModuleBase(name string) ModuleBase {
	return ModuleBase{
		name:    name,
		results: NewResults(name),
	}
}

// Name returns the module name.
func (m *ModuleBase) Name() string { return m.name }

// Results returns the module's result series.
func (m *ModuleBase) Results() *Results { return m.results }

// Sim returns the owning simulation. It is only valid after PreInit.
func (m *ModuleBase) Sim() *Simulation {
	if m.sim == nil {
		log.Panicf("module %s is not bound to a simulation yet", m.name)
	}

	return m.sim
}

// BindSim links the module to its simulation. Modules call it at the top
// of PreInit; binding twice is a lifecycle error.
func (m *ModuleBase) BindSim(s *Simulation) {
	if m.preInitialized {
		log.Panicf("module %s is already pre-initialized", m.name)
	}

	m.sim = s
	m.preInitialized = true
}

// PostInit marks the module ready. Modules that materialize state values
// override it and call this base version last.
func (m *ModuleBase) PostInit() {
	if !m.preInitialized {
		log.Panicf("module %s cannot post-initialize before pre-init", m.name)
	}

	m.initialized = true
}

// Initialized reports whether the module finished initialization.
func (m *ModuleBase) Initialized() bool { return m.initialized }

// Finalized reports whether the module has been finalized.
func (m *ModuleBase) Finalized() bool { return m.finalized }

// UpdateResults is a no-op by default.
func (m *ModuleBase) UpdateResults() {}

// Finalize rescales scalable result series by the population scale factor
// and marks the module terminal. Modules computing derived metrics override
// it and call this base version first, so the derived metrics see the
// scaled counts.
func (m *ModuleBase) Finalize() {
	if m.finalized {
		log.Panicf("module %s is already finalized", m.name)
	}

	m.results.ScaleAll(m.Sim().PopScale())
	m.finalized = true
}
