package vitals

import (
	"math"

	"github.com/vitalsim/vitalsim/dists"
	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/rates"
	"github.com/vitalsim/vitalsim/sim"
)

// PregnancyLitePars carries the parameters of the PregnancyLite module.
type PregnancyLitePars struct {
	DurPregnancy  float64
	DurPostpartum *dists.LogNormal
	FertilityRate rates.Source
	RelFertility  float64
	SexRatio      *dists.Bernoulli
	MinAge        float64
	MaxAge        float64
	Units         float64
	Burnin        bool
}

// PregnancyLite is a reduced pregnancy model for runs that do not need
// fecundity tracking, maternal mortality, or mother-child networks.
// Eligibility is purely demographic: female, within the fertile age
// range, and neither pregnant nor postpartum. Fertility rates are
// applied as given, with no rescaling for the pregnant fraction.
type PregnancyLite struct {
	sim.ModuleBase

	pars PregnancyLitePars

	pregnant   *population.BoolState
	postpartum *population.BoolState
	childUID   *population.UIDState

	tiDelivery   *population.FloatState
	tiPostpartum *population.FloatState

	pFertility  *dists.Bernoulli
	chooseSlots *dists.UniformInt

	effTI int

	nPregnancies int
	nBirths      int
}

// NewPregnancyLite creates a PregnancyLite module. Recognized parameters
// are "dur_pregnancy", "dur_postpartum", "fertility_rate",
// "rel_fertility", "sex_ratio", "min_age", "max_age", "units", and
// "burnin".
func NewPregnancyLite(pars sim.Pars) *PregnancyLite {
	p := &PregnancyLite{
		ModuleBase: sim.NewModuleBase("pregnancylite"),
		pars: PregnancyLitePars{
			DurPregnancy:  0.75,
			DurPostpartum: dists.NewLogNormal(0.5, 0.5),
			FertilityRate: rates.Constant(25),
			RelFertility:  1,
			SexRatio:      dists.NewBernoulli(0.5),
			MinAge:        15,
			MaxAge:        50,
			Units:         1e-3,
			Burnin:        true,
		},
	}

	var unknown []string
	for _, k := range pars.SortedKeys() {
		v := pars[k]
		switch k {
		case "dur_pregnancy":
			p.pars.DurPregnancy = sim.AsFloat(p.Name(), k, v)
		case "dur_postpartum":
			p.pars.DurPostpartum = mustLogNormal(p.Name(), k, v)
		case "fertility_rate":
			p.pars.FertilityRate = asSource(p.Name(), k, v)
		case "rel_fertility":
			p.pars.RelFertility = sim.AsFloat(p.Name(), k, v)
		case "sex_ratio":
			p.pars.SexRatio = dists.NewBernoulli(sim.AsFloat(p.Name(), k, v))
		case "min_age":
			p.pars.MinAge = sim.AsFloat(p.Name(), k, v)
		case "max_age":
			p.pars.MaxAge = sim.AsFloat(p.Name(), k, v)
		case "units":
			p.pars.Units = sim.AsFloat(p.Name(), k, v)
		case "burnin":
			p.pars.Burnin = sim.AsBool(p.Name(), k, v)
		default:
			unknown = append(unknown, k)
		}
	}
	sim.RejectUnknownPars(p.Name(), unknown)

	p.pregnant = population.NewBoolState("lite_pregnant", "Pregnant")
	p.postpartum = population.NewBoolState("lite_postpartum", "Postpartum")
	p.childUID = population.NewUIDState("lite_child_uid", "UID of unborn child")
	p.tiDelivery = population.NewFloatState("lite_ti_delivery", "Step of delivery")
	p.tiPostpartum = population.NewFloatState("lite_ti_postpartum", "Step of postpartum end")

	p.pFertility = dists.NewBernoulliFn(p.fertilityProbs)

	return p
}

// Pregnant reports whether the agent currently carries a pregnancy.
func (p *PregnancyLite) Pregnant(uid population.UID) bool { return p.pregnant.Get(uid) }

// Postpartum reports whether the agent is in the postpartum period.
func (p *PregnancyLite) Postpartum(uid population.UID) bool { return p.postpartum.Get(uid) }

// PreInit binds the module, registers its agent states, binds random
// streams, and declares its results.
func (p *PregnancyLite) PreInit(s *sim.Simulation) {
	p.BindSim(s)

	people := s.People()
	people.RegisterState(p.pregnant)
	people.RegisterState(p.postpartum)
	people.RegisterState(p.childUID)
	people.RegisterState(p.tiDelivery)
	people.RegisterState(p.tiPostpartum)

	p.pFertility.Bind(s.Stream("pregnancylite.p_fertility"))
	p.pars.DurPostpartum.Bind(s.Stream("pregnancylite.dur_postpartum"))
	p.pars.SexRatio.Bind(s.Stream("pregnancylite.sex_ratio"))

	low, high := s.SlotRange()
	p.chooseSlots = dists.NewUniformInt(low, high)
	p.chooseSlots.Bind(s.Stream("pregnancylite.choose_slots"))

	npts := s.NumSteps()
	p.Results().Add(sim.NewResult("pregnancies", "New pregnancies", npts, true))
	p.Results().Add(sim.NewResult("births", "New births", npts, true))
	p.Results().Add(sim.NewResult("cbr", "Crude birth rate", npts, false))
	p.Results().Add(sim.NewResult("n_pregnant", "Number currently pregnant", npts, true))
	p.Results().Add(sim.NewResult("n_postpartum", "Number currently postpartum", npts, true))
}

// fertilityProbs resolves the conception probability per candidate.
// Ineligible agents are already excluded from the candidate set, so
// every candidate gets its resolved rate.
func (p *PregnancyLite) fertilityProbs(uids population.UIDs) []float64 {
	s := p.Sim()
	people := s.People()
	now := float64(s.Timeline().Time(p.effTI))

	var perUID []float64
	switch src := p.pars.FertilityRate.(type) {
	case *rates.Table:
		yi := src.NearestYearIndex(now - p.pars.DurPregnancy)
		binRates := src.RatesAt(yi, rates.FemaleSex)
		perUID = make([]float64, len(uids))
		for i, uid := range uids {
			perUID[i] = binRates[src.BinIndex(people.Age(uid))]
		}
	default:
		ages := make([]float64, len(uids))
		female := make([]bool, len(uids))
		for i, uid := range uids {
			ages[i] = people.Age(uid)
			female[i] = people.Female(uid)
		}
		perUID = src.Resolve(rates.Query{Year: now, Ages: ages, Female: female})
	}

	factor := p.pars.Units * p.pars.RelFertility * s.DT()
	probs := make([]float64, len(uids))
	for i := range uids {
		probs[i] = dists.ClipProb(perUID[i] * factor)
	}

	return probs
}

// candidates narrows living females down to those able to conceive:
// neither pregnant nor postpartum, and within the fertile age range.
// Filtering here rather than zeroing probabilities keeps the per-step
// work proportional to the eligible set.
func (p *PregnancyLite) candidates() population.UIDs {
	people := p.Sim().People()

	var eligible population.UIDs
	for _, uid := range people.FemaleUIDs() {
		if p.pregnant.Get(uid) || p.postpartum.Get(uid) {
			continue
		}
		age := people.Age(uid)
		if age < p.pars.MinAge || age >= p.pars.MaxAge {
			continue
		}
		eligible = append(eligible, uid)
	}

	return eligible
}

// Step runs burn-in on the first timestep, then updates the current one.
func (p *PregnancyLite) Step() {
	s := p.Sim()

	if s.TI() == 0 && p.pars.Burnin {
		n := int(math.Ceil(p.pars.DurPregnancy / s.DT()))
		for dti := -n; dti < 0; dti++ {
			p.update(dti)
		}
	}

	p.update(s.TI())
}

func (p *PregnancyLite) update(ti int) {
	p.effTI = ti
	p.pFertility.StepTo(ti)
	p.pars.DurPostpartum.StepTo(ti)
	p.pars.SexRatio.StepTo(ti)
	p.chooseSlots.StepTo(ti)

	p.updateStates(ti)
	conceive := p.makePregnancies(ti)
	p.nPregnancies = len(conceive)
	p.makeEmbryos(conceive, ti)
}

// updateStates processes deliveries and postpartum exits that have come
// due.
func (p *PregnancyLite) updateStates(ti int) {
	people := p.Sim().People()
	fti := float64(ti)

	p.nBirths = 0
	for _, uid := range people.AliveUIDs() {
		if p.pregnant.Get(uid) && p.tiDelivery.Defined(uid) && p.tiDelivery.Get(uid) <= fti {
			p.pregnant.Set(uid, false)
			p.postpartum.Set(uid, true)
			p.nBirths++
		}
	}

	for _, uid := range people.AliveUIDs() {
		if p.postpartum.Get(uid) && p.tiPostpartum.Defined(uid) && p.tiPostpartum.Get(uid) <= fti {
			p.postpartum.Set(uid, false)
			p.childUID.Clear(uid)
		}
	}
}

func (p *PregnancyLite) makePregnancies(ti int) population.UIDs {
	fti := float64(ti)
	dt := p.Sim().DT()
	durPregSteps := p.pars.DurPregnancy / dt

	conceive := p.pFertility.Filter(p.candidates())

	postpartumYears := p.pars.DurPostpartum.RVs(conceive)
	for i, uid := range conceive {
		p.pregnant.Set(uid, true)
		tiDel := fti + durPregSteps
		p.tiDelivery.Set(uid, tiDel)
		p.tiPostpartum.Set(uid, tiDel+postpartumYears[i]/dt)
	}

	return conceive
}

func (p *PregnancyLite) makeEmbryos(conceive population.UIDs, ti int) population.UIDs {
	if len(conceive) == 0 {
		return nil
	}

	s := p.Sim()
	people := s.People()
	dt := s.DT()

	slots := p.chooseSlots.RVs(conceive)
	newUIDs := people.Grow(len(conceive), slots)

	female := p.pars.SexRatio.RVs(conceive)
	for i, uid := range newUIDs {
		people.SetAge(uid, -p.pars.DurPregnancy)
		people.SetFemale(uid, female[i])
		people.SetParent(uid, conceive[i])
		p.childUID.Set(conceive[i], uid)
	}

	if ti < 0 {
		for _, uid := range newUIDs {
			people.SetAge(uid, people.Age(uid)+float64(-ti)*dt)
		}
	}

	return newUIDs
}

// UpdateDeath releases a mother from her pregnancy when the embryo dies.
func (p *PregnancyLite) UpdateDeath(dead population.UIDs) {
	people := p.Sim().People()

	for _, uid := range dead {
		if people.Age(uid) >= 0 {
			continue
		}
		mother := people.Parent(uid)
		if mother == population.NilUID || !people.Alive(mother) {
			continue
		}
		p.pregnant.Set(mother, false)
		p.postpartum.Set(mother, false)
		p.childUID.Clear(mother)
		p.tiDelivery.Clear(mother)
		p.tiPostpartum.Clear(mother)
	}
}

// UpdateResults records the step's conceptions, deliveries, and current
// pregnancy prevalence.
func (p *PregnancyLite) UpdateResults() {
	ti := p.Sim().TI()
	people := p.Sim().People()
	res := p.Results()

	res.Get("pregnancies").Values[ti] = float64(p.nPregnancies)
	res.Get("births").Values[ti] = float64(p.nBirths)
	res.Get("n_pregnant").Values[ti] = float64(p.pregnant.Count(people))
	res.Get("n_postpartum").Values[ti] = float64(p.postpartum.Count(people))
}

// Finalize scales the raw counts and derives the crude birth rate.
func (p *PregnancyLite) Finalize() {
	p.ModuleBase.Finalize()

	res := p.Results()
	births := res.Get("births")

	nAlive := p.Sim().Results().Get("n_alive")
	cbr := res.Get("cbr")
	dtYears := p.Sim().DT()
	for i := range cbr.Values {
		cbr.Values[i] = (1 / p.pars.Units) *
			sim.SafeDivide(births.Values[i]/dtYears, nAlive.Values[i])
	}
}
