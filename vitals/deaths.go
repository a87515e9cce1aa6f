package vitals

import (
	"log"

	"github.com/vitalsim/vitalsim/dists"
	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/rates"
	"github.com/vitalsim/vitalsim/sim"
)

// DeathsPars carries the parameters of the Deaths module.
type DeathsPars struct {
	// DeathRate is the background mortality rate per capita per year, in
	// Units. Age- and sex-stratified tables resolve per agent.
	DeathRate rates.Source

	// RelDeath scales the resolved death rate.
	RelDeath float64

	// Units converts the rate values to a per-capita annual probability.
	Units float64
}

// Deaths applies background mortality to every living agent each
// timestep. Deaths are requested through the population's pending-death
// queue, so other modules observe them in the same step.
type Deaths struct {
	sim.ModuleBase

	pars   DeathsPars
	pDeath *dists.Bernoulli

	nDeaths int
}

// NewDeaths creates a Deaths module. Recognized parameters are
// "death_rate", "rel_death", and "units".
func NewDeaths(pars sim.Pars) *Deaths {
	d := &Deaths{
		ModuleBase: sim.NewModuleBase("deaths"),
		pars: DeathsPars{
			DeathRate: rates.Constant(20),
			RelDeath:  1,
			Units:     1e-3,
		},
	}

	var unknown []string
	for _, k := range pars.SortedKeys() {
		v := pars[k]
		switch k {
		case "death_rate":
			d.pars.DeathRate = asSource(d.Name(), k, v)
		case "rel_death":
			d.pars.RelDeath = sim.AsFloat(d.Name(), k, v)
		case "units":
			d.pars.Units = sim.AsFloat(d.Name(), k, v)
		default:
			unknown = append(unknown, k)
		}
	}
	sim.RejectUnknownPars(d.Name(), unknown)

	d.pDeath = dists.NewBernoulliFn(d.deathProbs)

	return d
}

// PreInit binds the module to the simulation and declares its results.
func (d *Deaths) PreInit(s *sim.Simulation) {
	d.BindSim(s)
	d.pDeath.Bind(s.Stream("deaths.p_death"))

	npts := s.NumSteps()
	d.Results().Add(sim.NewResult("new", "New deaths", npts, true))
	d.Results().Add(sim.NewResult("cumulative", "Cumulative deaths", npts, true))
	d.Results().Add(sim.NewResult("cmr", "Crude mortality rate", npts, false))
}

// deathProbs resolves the mortality probability for the full living
// population. Restricting mortality to a subset would silently exempt
// agents, so anything short of the full alive set is a consistency error.
func (d *Deaths) deathProbs(uids population.UIDs) []float64 {
	s := d.Sim()
	people := s.People()

	if len(uids) != people.NumAlive() {
		log.Panicf("mortality must be evaluated over all %d living agents, got %d",
			people.NumAlive(), len(uids))
	}

	ages := make([]float64, len(uids))
	female := make([]bool, len(uids))
	for i, uid := range uids {
		ages[i] = people.Age(uid)
		female[i] = people.Female(uid)
	}

	resolved := d.pars.DeathRate.Resolve(rates.Query{
		Year:   float64(s.Now()),
		Ages:   ages,
		Female: female,
	})

	probs := make([]float64, len(uids))
	factor := d.pars.Units * d.pars.RelDeath * s.DT()
	for i, r := range resolved {
		probs[i] = dists.ClipProb(r * factor)
	}

	return probs
}

// Step draws deaths over the living population and requests them.
func (d *Deaths) Step() {
	people := d.Sim().People()

	d.pDeath.StepTo(d.Sim().TI())
	deathUIDs := d.pDeath.Filter(people.AliveUIDs())
	people.RequestDeath(deathUIDs)
	d.nDeaths = len(deathUIDs)
}

// UpdateResults records the deaths requested by this module in the
// current timestep.
func (d *Deaths) UpdateResults() {
	d.Results().Get("new").Values[d.Sim().TI()] = float64(d.nDeaths)
}

// Finalize scales the raw counts and derives the cumulative and crude
// rate series from them.
func (d *Deaths) Finalize() {
	d.ModuleBase.Finalize()

	res := d.Results()
	newDeaths := res.Get("new")
	sim.CumSum(res.Get("cumulative"), newDeaths)

	nAlive := d.Sim().Results().Get("n_alive")
	cmr := res.Get("cmr")
	dtYears := d.Sim().DT()
	for i := range cmr.Values {
		cmr.Values[i] = (1 / d.pars.Units) *
			sim.SafeDivide(newDeaths.Values[i]/dtYears, nAlive.Values[i])
	}
}
