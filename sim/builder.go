package sim

import (
	"log"

	"github.com/rs/xid"

	"github.com/vitalsim/vitalsim/population"
)

// Builder can be used to build a simulation.
type Builder struct {
	nAgents   int
	timeline  Timeline
	seed      uint64
	popScale  float64
	slotScale float64
	minSlots  int
	maxAge    float64
}

// MakeBuilder creates a builder with the default configuration: 1000
// agents over 2000-2030 at a one-year timestep.
func MakeBuilder() Builder {
	return Builder{
		nAgents:   1000,
		timeline:  Timeline{Start: 2000, Stop: 2030, DT: 1},
		seed:      1,
		popScale:  1,
		slotScale: 5,
		minSlots:  100,
		maxAge:    60,
	}
}

// WithNumAgents sets the initial population size.
func (b Builder) WithNumAgents(n int) Builder {
	b.nAgents = n
	return b
}

// WithTimeline sets the simulated period and timestep, in years.
func (b Builder) WithTimeline(start, stop, dt Years) Builder {
	b.timeline = Timeline{Start: start, Stop: stop, DT: dt}
	return b
}

// WithSeed sets the run-level random seed.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithPopScale sets the factor converting agent counts into
// real-population counts.
func (b Builder) WithPopScale(scale float64) Builder {
	b.popScale = scale
	return b
}

// WithSlotRange sets the sizing of the reserved slot range for unborn
// agents: high = max(scale*nAgents, minSlots).
func (b Builder) WithSlotRange(scale float64, minSlots int) Builder {
	b.slotScale = scale
	b.minSlots = minSlots
	return b
}

// WithInitialMaxAge sets the upper bound of the uniform initial age
// distribution.
func (b Builder) WithInitialMaxAge(age float64) Builder {
	b.maxAge = age
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.nAgents <= 0 {
		log.Panicf("population size must be positive, got %d", b.nAgents)
	}
	if b.popScale <= 0 {
		log.Panicf("population scale must be positive, got %v", b.popScale)
	}
	if b.slotScale <= 0 {
		log.Panicf("slot scale must be positive, got %v", b.slotScale)
	}

	b.timeline.mustBeValid()
}

// Build builds the simulation, creating the agent arena with uniformly
// distributed initial ages and a balanced sex ratio.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:           xid.New().String(),
		timeline:     b.timeline,
		seed:         b.seed,
		popScale:     b.popScale,
		slotScale:    b.slotScale,
		minSlots:     b.minSlots,
		nAgents:      b.nAgents,
		modNameIndex: make(map[string]int),
	}

	s.results = NewResults("sim")
	s.people = population.New(b.nAgents)

	ageStream := s.Stream("people.age_init")
	sexStream := s.Stream("people.sex_init")
	for _, uid := range s.people.AliveUIDs() {
		s.people.SetAge(uid, ageStream.Uniform(uid)*b.maxAge)
		s.people.SetFemale(uid, sexStream.Uniform(uid) < 0.5)
	}

	return s
}
