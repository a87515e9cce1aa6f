package vitals

import (
	"log"
	"math"

	"github.com/vitalsim/vitalsim/dists"
	"github.com/vitalsim/vitalsim/network"
	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/rates"
	"github.com/vitalsim/vitalsim/sim"
)

// PregnancyPars carries the parameters of the Pregnancy module.
type PregnancyPars struct {
	// DurPregnancy is the gestation length in years.
	DurPregnancy float64

	// DurPostpartum draws the per-agent postpartum duration in years.
	DurPostpartum *dists.LogNormal

	// FertilityRate is the annual conception rate among eligible females,
	// in Units. Tables resolve per age bin.
	FertilityRate rates.Source

	// RelFertility scales the resolved fertility rate.
	RelFertility float64

	// MaternalDeathProb is the per-pregnancy probability that the mother
	// dies at delivery.
	MaternalDeathProb *dists.Bernoulli

	// NeonatalDeathProb is the probability that an unborn child dies when
	// its mother dies while pregnant.
	NeonatalDeathProb *dists.Bernoulli

	// SexRatio is the probability that a newborn is female.
	SexRatio *dists.Bernoulli

	// MinAge and MaxAge bound fertility: agents conceive only while
	// MinAge <= age < MaxAge.
	MinAge, MaxAge float64

	// Units converts the fertility rate to a per-agent probability.
	Units float64

	// Burnin seeds in-progress pregnancies before the first timestep so
	// that deliveries start immediately rather than one gestation late.
	Burnin bool
}

// Pregnancy models conception, gestation, delivery, and the postpartum
// period on individual agents. Children exist from conception as embryos
// with negative age, linked to their mother, and optionally connected
// through prenatal and postnatal network layers.
type Pregnancy struct {
	sim.ModuleBase

	pars PregnancyPars
	nets *network.Set

	infertile  *population.BoolState
	fecund     *population.BoolState
	pregnant   *population.BoolState
	postpartum *population.BoolState
	childUID   *population.UIDState

	durPostpartum *population.FloatState
	tiPregnant    *population.FloatState
	tiDelivery    *population.FloatState
	tiPostpartum  *population.FloatState
	tiDead        *population.FloatState

	pFertility  *dists.Bernoulli
	chooseSlots *dists.UniformInt

	// effTI is the step the module is currently updating. It trails the
	// simulation clock only during burn-in, where it is negative.
	effTI int

	nPregnancies int
	nBirths      int
}

// NewPregnancy creates a Pregnancy module. Recognized parameters are
// "dur_pregnancy", "dur_postpartum", "fertility_rate", "rel_fertility",
// "maternal_death_prob", "neonatal_death_prob", "sex_ratio", "min_age",
// "max_age", "units", and "burnin".
func NewPregnancy(pars sim.Pars) *Pregnancy {
	p := &Pregnancy{
		ModuleBase: sim.NewModuleBase("pregnancy"),
		pars: PregnancyPars{
			DurPregnancy:      0.75,
			DurPostpartum:     dists.NewLogNormal(0.5, 0.5),
			FertilityRate:     rates.Constant(0),
			RelFertility:      1,
			MaternalDeathProb: dists.NewBernoulli(0),
			NeonatalDeathProb: dists.NewBernoulli(0.6),
			SexRatio:          dists.NewBernoulli(0.5),
			MinAge:            15,
			MaxAge:            50,
			Units:             1e-3,
			Burnin:            true,
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
		case "maternal_death_prob":
			p.pars.MaternalDeathProb = dists.NewBernoulli(sim.AsFloat(p.Name(), k, v))
		case "neonatal_death_prob":
			p.pars.NeonatalDeathProb = dists.NewBernoulli(sim.AsFloat(p.Name(), k, v))
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

	p.infertile = population.NewBoolState("infertile", "Infertile")
	p.fecund = population.NewBoolStateWithDefault("fecund", "Fecund", true)
	p.pregnant = population.NewBoolState("pregnant", "Pregnant")
	p.postpartum = population.NewBoolState("postpartum", "Postpartum")
	p.childUID = population.NewUIDState("child_uid", "UID of unborn child")
	p.durPostpartum = population.NewFloatState("dur_postpartum", "Postpartum duration")
	p.tiPregnant = population.NewFloatState("ti_pregnant", "Step of conception")
	p.tiDelivery = population.NewFloatState("ti_delivery", "Step of delivery")
	p.tiPostpartum = population.NewFloatState("ti_postpartum", "Step of postpartum end")
	p.tiDead = population.NewFloatState("ti_dead", "Step of maternal death")

	p.pFertility = dists.NewBernoulliFn(p.fertilityProbs)

	return p
}

func mustLogNormal(module, key string, v any) *dists.LogNormal {
	d, ok := v.(*dists.LogNormal)
	if !ok {
		log.Panicf("parameter %s of %s must be a *dists.LogNormal, got %T",
			key, module, v)
	}

	return d
}

// WithNetworks attaches prenatal and postnatal network layers. Pairs are
// added at conception and moved from the prenatal layer to every
// postnatal layer at delivery.
func (p *Pregnancy) WithNetworks(nets *network.Set) *Pregnancy {
	p.nets = nets
	return p
}

// Pregnant reports whether the agent currently carries a pregnancy.
func (p *Pregnancy) Pregnant(uid population.UID) bool { return p.pregnant.Get(uid) }

// Postpartum reports whether the agent is in the postpartum period.
func (p *Pregnancy) Postpartum(uid population.UID) bool { return p.postpartum.Get(uid) }

// Fecund reports whether the agent can currently conceive.
func (p *Pregnancy) Fecund(uid population.UID) bool { return p.fecund.Get(uid) }

// ChildUID returns the unborn child of a pregnant agent, or NilUID.
func (p *Pregnancy) ChildUID(uid population.UID) population.UID { return p.childUID.Get(uid) }

// DeliveryStep returns the scheduled delivery step of a pregnant agent.
func (p *Pregnancy) DeliveryStep(uid population.UID) float64 { return p.tiDelivery.Get(uid) }

// PreInit binds the module, registers its agent states, binds random
// streams, and declares its results.
func (p *Pregnancy) PreInit(s *sim.Simulation) {
	p.BindSim(s)

	people := s.People()
	people.RegisterState(p.infertile)
	people.RegisterState(p.fecund)
	people.RegisterState(p.pregnant)
	people.RegisterState(p.postpartum)
	people.RegisterState(p.childUID)
	people.RegisterState(p.durPostpartum)
	people.RegisterState(p.tiPregnant)
	people.RegisterState(p.tiDelivery)
	people.RegisterState(p.tiPostpartum)
	people.RegisterState(p.tiDead)

	p.pFertility.Bind(s.Stream("pregnancy.p_fertility"))
	p.pars.DurPostpartum.Bind(s.Stream("pregnancy.dur_postpartum"))
	p.pars.MaternalDeathProb.Bind(s.Stream("pregnancy.maternal_death"))
	p.pars.NeonatalDeathProb.Bind(s.Stream("pregnancy.neonatal_death"))
	p.pars.SexRatio.Bind(s.Stream("pregnancy.sex_ratio"))

	low, high := s.SlotRange()
	p.chooseSlots = dists.NewUniformInt(low, high)
	p.chooseSlots.Bind(s.Stream("pregnancy.choose_slots"))

	npts := s.NumSteps()
	p.Results().Add(sim.NewResult("pregnancies", "New pregnancies", npts, true))
	p.Results().Add(sim.NewResult("births", "New births", npts, true))
	p.Results().Add(sim.NewResult("cbr", "Crude birth rate", npts, false))
	p.Results().Add(sim.NewResult("n_pregnant", "Number currently pregnant", npts, true))
	p.Results().Add(sim.NewResult("n_postpartum", "Number currently postpartum", npts, true))
}

// fertilityProbs resolves per-agent conception probabilities for the
// candidate set. When the fertility rate comes from an age-binned table,
// the rate of each bin is rescaled so that the expected number of
// conceptions matches the bin's full female population even though
// currently-pregnant agents cannot conceive: the numerator counts all
// candidates in the bin, the denominator only the non-pregnant ones. A
// bin with no eligible denominator gets rate zero.
func (p *Pregnancy) fertilityProbs(uids population.UIDs) []float64 {
	s := p.Sim()
	people := s.People()
	now := float64(s.Timeline().Time(p.effTI))

	var perUID []float64
	switch src := p.pars.FertilityRate.(type) {
	case *rates.Table:
		perUID = p.tableFertility(src, uids, now)
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
	for i, uid := range uids {
		age := people.Age(uid)
		switch {
		case p.infertile.Get(uid) || !p.fecund.Get(uid):
			probs[i] = 0
		case age < p.pars.MinAge || age >= p.pars.MaxAge:
			probs[i] = 0
		default:
			probs[i] = dists.ClipProb(perUID[i] * factor)
		}
	}

	return probs
}

// tableFertility resolves per-agent rates from an age-binned fertility
// table. The lookup year is shifted back by one gestation so that the
// rate governing conceptions now reflects the births it will produce.
func (p *Pregnancy) tableFertility(
	src *rates.Table,
	uids population.UIDs,
	now float64,
) []float64 {
	people := p.Sim().People()

	yi := src.NearestYearIndex(now - p.pars.DurPregnancy)
	binRates := src.RatesAt(yi, rates.FemaleSex)

	bins := make([]int, len(uids))
	candidates := make([]float64, src.NumBins())
	pregnantN := make([]float64, src.NumBins())
	for i, uid := range uids {
		bins[i] = src.BinIndex(people.Age(uid))
		candidates[bins[i]]++
		if p.pregnant.Get(uid) {
			pregnantN[bins[i]]++
		}
	}

	for b := range binRates {
		denom := candidates[b] - pregnantN[b]
		if denom > 0 {
			binRates[b] = binRates[b] * candidates[b] / denom
		} else {
			binRates[b] = 0
		}
	}

	perUID := make([]float64, len(uids))
	for i := range uids {
		perUID[i] = binRates[bins[i]]
	}

	return perUID
}

// Step runs burn-in on the first timestep, then updates the current one.
func (p *Pregnancy) Step() {
	s := p.Sim()

	if s.TI() == 0 && p.pars.Burnin {
		n := int(math.Ceil(p.pars.DurPregnancy / s.DT()))
		for dti := -n; dti < 0; dti++ {
			p.update(dti)
		}
	}

	p.update(s.TI())
}

// update advances the pregnancy state machine by one step at step index
// ti. During burn-in, ti is negative while the simulation clock stays at
// zero.
func (p *Pregnancy) update(ti int) {
	p.effTI = ti
	p.stepDists(ti)

	p.updateStates(ti)
	conceive := p.makePregnancies(ti)
	p.nPregnancies = len(conceive)
	p.makeEmbryos(conceive, ti)
}

func (p *Pregnancy) stepDists(ti int) {
	p.pFertility.StepTo(ti)
	p.pars.DurPostpartum.StepTo(ti)
	p.pars.MaternalDeathProb.StepTo(ti)
	p.pars.NeonatalDeathProb.StepTo(ti)
	p.pars.SexRatio.StepTo(ti)
	p.chooseSlots.StepTo(ti)
}

// updateStates processes deliveries, postpartum exits, and scheduled
// maternal deaths whose timestamps have come due.
func (p *Pregnancy) updateStates(ti int) {
	people := p.Sim().People()
	fti := float64(ti)

	var deliveries population.UIDs
	for _, uid := range people.AliveUIDs() {
		if p.pregnant.Get(uid) && p.tiDelivery.Defined(uid) && p.tiDelivery.Get(uid) <= fti {
			deliveries = append(deliveries, uid)
		}
	}
	p.nBirths = len(deliveries)
	for _, uid := range deliveries {
		p.pregnant.Set(uid, false)
		p.postpartum.Set(uid, true)
		p.fecund.Set(uid, false)
	}

	if p.nets != nil && p.nBirths > 0 {
		p.promotePairs(deliveries, fti)
	}

	for _, uid := range people.AliveUIDs() {
		if p.postpartum.Get(uid) && p.tiPostpartum.Defined(uid) && p.tiPostpartum.Get(uid) <= fti {
			p.postpartum.Set(uid, false)
			p.fecund.Set(uid, true)
			p.childUID.Clear(uid)
		}
	}
	if p.nets != nil {
		// Postnatal edges expire with the postpartum window.
		for _, layer := range p.nets.PostnatalLayers() {
			layer.EndPairs(fti)
		}
	}

	var maternalDeaths population.UIDs
	for _, uid := range people.AliveUIDs() {
		if p.tiDead.Defined(uid) && p.tiDead.Get(uid) <= fti {
			maternalDeaths = append(maternalDeaths, uid)
		}
	}
	people.RequestDeath(maternalDeaths)
}

// promotePairs moves the mother-child pairs ending now from the prenatal
// layer into every postnatal layer, with the per-mother postpartum
// duration as the new pair duration.
func (p *Pregnancy) promotePairs(deliveries population.UIDs, fti float64) {
	prenatal := p.nets.ThePrenatal()
	mothers, children := prenatal.EndingPairs(fti)

	if !sameUIDSet(mothers, deliveries) {
		log.Panicf("prenatal pairs ending at step %v do not match the %d agents delivering",
			fti, len(deliveries))
	}

	durs := make([]float64, len(mothers))
	for i, uid := range mothers {
		durs[i] = p.durPostpartum.Get(uid)
	}

	prenatal.EndPairs(fti)
	for _, layer := range p.nets.PostnatalLayers() {
		layer.AddPairs(mothers, children, durs, fti)
	}
}

// makePregnancies draws new conceptions among living females. Drawing a
// conception for an agent that is already pregnant means the eligibility
// filters are broken, so it panics rather than double-booking the womb.
func (p *Pregnancy) makePregnancies(ti int) population.UIDs {
	people := p.Sim().People()

	conceive := p.pFertility.Filter(people.FemaleUIDs())

	alreadyPregnant := 0
	for _, uid := range conceive {
		if p.pregnant.Get(uid) {
			alreadyPregnant++
		}
	}
	if alreadyPregnant > 0 {
		log.Panicf("%d new conceptions registered in already-pregnant agents at step %d",
			alreadyPregnant, ti)
	}

	if len(conceive) > 0 {
		p.setPrognoses(conceive, ti)
	}

	return conceive
}

// setPrognoses schedules delivery, the postpartum period, and any
// maternal death for newly conceived pregnancies.
func (p *Pregnancy) setPrognoses(uids population.UIDs, ti int) {
	dt := p.Sim().DT()
	fti := float64(ti)
	durPregSteps := p.pars.DurPregnancy / dt

	postpartumYears := p.pars.DurPostpartum.RVs(uids)
	maternalDeath := p.pars.MaternalDeathProb.RVs(uids)

	for i, uid := range uids {
		p.fecund.Set(uid, false)
		p.pregnant.Set(uid, true)
		p.tiPregnant.Set(uid, fti)

		tiDel := fti + durPregSteps
		ppSteps := postpartumYears[i] / dt
		p.tiDelivery.Set(uid, tiDel)
		p.tiPostpartum.Set(uid, tiDel+ppSteps)
		p.durPostpartum.Set(uid, ppSteps)

		if maternalDeath[i] {
			p.tiDead.Set(uid, tiDel)
		}
	}
}

// makeEmbryos grows the population by one embryo per conception. Embryos
// start at age -DurPregnancy so they reach age zero at delivery, take a
// slot from the reserved range keyed by their mother, and are linked to
// the mother both ways.
func (p *Pregnancy) makeEmbryos(conceive population.UIDs, ti int) population.UIDs {
	if len(conceive) == 0 {
		return nil
	}

	s := p.Sim()
	people := s.People()
	dt := s.DT()
	fti := float64(ti)

	slots := p.chooseSlots.RVs(conceive)
	newUIDs := people.Grow(len(conceive), slots)

	female := p.pars.SexRatio.RVs(conceive)
	for i, uid := range newUIDs {
		people.SetAge(uid, -p.pars.DurPregnancy)
		people.SetFemale(uid, female[i])
		people.SetParent(uid, conceive[i])
		p.childUID.Set(conceive[i], uid)
	}

	if p.nets != nil {
		durs := fill(len(conceive), p.pars.DurPregnancy/dt)
		for _, layer := range p.nets.PrenatalLayers() {
			layer.AddPairs(conceive, newUIDs, durs, fti)
		}
	}

	// Burn-in embryos age forward to the start of the timeline here,
	// since population-wide aging only runs on real steps.
	if ti < 0 {
		for _, uid := range newUIDs {
			people.SetAge(uid, people.Age(uid)+float64(-ti)*dt)
		}
	}

	return newUIDs
}

// UpdateDeath reacts to deaths elsewhere in the population. A dying
// pregnant mother exposes her unborn child to neonatal death; a dying
// embryo releases its mother from the pregnancy.
func (p *Pregnancy) UpdateDeath(dead population.UIDs) {
	people := p.Sim().People()

	if p.nets != nil {
		for _, layer := range p.nets.Layers() {
			layer.RemovePairsWith(dead)
		}
	}

	var unborn population.UIDs
	for _, uid := range dead {
		if p.pregnant.Get(uid) && p.childUID.Defined(uid) {
			unborn = append(unborn, p.childUID.Get(uid))
		}
	}
	if len(unborn) > 0 {
		lost := p.pars.NeonatalDeathProb.Filter(unborn)
		people.RequestDeath(lost)
	}

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
		p.fecund.Set(mother, true)
		p.childUID.Clear(mother)
		p.tiDelivery.Clear(mother)
		p.tiPostpartum.Clear(mother)
	}
}

// UpdateResults records the step's conceptions, deliveries, and current
// pregnancy prevalence.
func (p *Pregnancy) UpdateResults() {
	ti := p.Sim().TI()
	people := p.Sim().People()
	res := p.Results()

	res.Get("pregnancies").Values[ti] = float64(p.nPregnancies)
	res.Get("births").Values[ti] = float64(p.nBirths)
	res.Get("n_pregnant").Values[ti] = float64(p.pregnant.Count(people))
	res.Get("n_postpartum").Values[ti] = float64(p.postpartum.Count(people))
}

// Finalize scales the raw counts and derives the crude birth rate.
func (p *Pregnancy) Finalize() {
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
