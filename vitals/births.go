package vitals

import (
	"math"

	"github.com/vitalsim/vitalsim/dists"
	"github.com/vitalsim/vitalsim/rates"
	"github.com/vitalsim/vitalsim/sim"
)

// BirthsPars carries the parameters of the Births module.
type BirthsPars struct {
	// BirthRate is the crude birth rate per capita per year, in Units.
	BirthRate rates.Source

	// RelBirth scales the resolved birth rate.
	RelBirth float64

	// SexRatio is the probability that a newborn is female.
	SexRatio *dists.Bernoulli

	// Units converts the rate values to a per-capita annual probability.
	Units float64
}

// Births adds agents to the population at a population-level crude birth
// rate. Newborns enter with age zero, draw a sex from the configured sex
// ratio, and are not linked to a parent.
type Births struct {
	sim.ModuleBase

	pars BirthsPars

	nBirths int
}

// NewBirths creates a Births module. Recognized parameters are
// "birth_rate", "rel_birth", "sex_ratio", and "units". Unknown
// parameters trigger a panic listing every offending key.
func NewBirths(pars sim.Pars) *Births {
	b := &Births{
		ModuleBase: sim.NewModuleBase("births"),
		pars: BirthsPars{
			BirthRate: rates.Constant(30),
			RelBirth:  1,
			SexRatio:  dists.NewBernoulli(0.5),
			Units:     1e-3,
		},
	}

	var unknown []string
	for _, k := range pars.SortedKeys() {
		v := pars[k]
		switch k {
		case "birth_rate":
			b.pars.BirthRate = asSource(b.Name(), k, v)
		case "rel_birth":
			b.pars.RelBirth = sim.AsFloat(b.Name(), k, v)
		case "sex_ratio":
			b.pars.SexRatio = dists.NewBernoulli(sim.AsFloat(b.Name(), k, v))
		case "units":
			b.pars.Units = sim.AsFloat(b.Name(), k, v)
		default:
			unknown = append(unknown, k)
		}
	}
	sim.RejectUnknownPars(b.Name(), unknown)

	return b
}

// PreInit binds the module to the simulation and declares its results.
func (b *Births) PreInit(s *sim.Simulation) {
	b.BindSim(s)

	b.pars.SexRatio.Bind(s.Stream("births.sex_ratio"))

	npts := s.NumSteps()
	b.Results().Add(sim.NewResult("new", "New births", npts, true))
	b.Results().Add(sim.NewResult("cumulative", "Cumulative births", npts, true))
	b.Results().Add(sim.NewResult("cbr", "Crude birth rate", npts, false))
}

// Step grows the population by the number of births scheduled for the
// current timestep. Newborn sexes come from a sex-ratio draw.
func (b *Births) Step() {
	s := b.Sim()
	people := s.People()

	b.pars.SexRatio.StepTo(s.TI())

	b.nBirths = b.birthCount()
	newUIDs := people.Grow(b.nBirths, nil)
	female := b.pars.SexRatio.RVs(newUIDs)
	for i, uid := range newUIDs {
		people.SetAge(uid, 0)
		people.SetFemale(uid, female[i])
	}
}

// birthCount converts the crude birth rate at the current time into a
// whole number of new agents. The per-capita probability is clipped to
// [0, 1] before scaling by the living population.
func (b *Births) birthCount() int {
	s := b.Sim()

	rate := b.pars.BirthRate.ScalarAt(float64(s.Now()))
	prob := dists.ClipProb(rate * b.pars.Units * b.pars.RelBirth * s.DT())

	return int(math.Floor(float64(s.People().NumAlive()) * prob))
}

// UpdateResults records the births of the current timestep.
func (b *Births) UpdateResults() {
	b.Results().Get("new").Values[b.Sim().TI()] = float64(b.nBirths)
}

// Finalize scales the raw counts and derives the cumulative and crude
// rate series from them.
func (b *Births) Finalize() {
	b.ModuleBase.Finalize()

	res := b.Results()
	newBirths := res.Get("new")
	sim.CumSum(res.Get("cumulative"), newBirths)

	nAlive := b.Sim().Results().Get("n_alive")
	cbr := res.Get("cbr")
	dtYears := b.Sim().DT()
	for i := range cbr.Values {
		cbr.Values[i] = (1 / b.pars.Units) *
			sim.SafeDivide(newBirths.Values[i]/dtYears, nAlive.Values[i])
	}
}
