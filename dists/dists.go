// Package dists provides the distribution objects demographic modules draw
// from. Every distribution is bound to a per-UID random stream and stepped
// through the timeline, so the variate an agent receives depends only on
// the run seed, the stream identifier, the timestep, and the agent's UID.
package dists

import (
	"log"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/sim"
)

// A ProbFunc computes a per-candidate probability for a Bernoulli filter.
// The returned slice is aligned with uids.
type ProbFunc func(uids population.UIDs) []float64

// Bernoulli selects a subset of candidate UIDs with one independent trial
// per candidate. The probability is either a constant or a callback
// resolved against the candidate set at filter time.
type Bernoulli struct {
	base   sim.Stream
	stream sim.Stream
	bound  bool

	p   float64
	pfn ProbFunc
}

// NewBernoulli creates a constant-probability Bernoulli distribution.
func NewBernoulli(p float64) *Bernoulli {
	return &Bernoulli{p: p}
}

// NewBernoulliFn creates a Bernoulli distribution whose probability is
// computed per candidate at filter time.
func NewBernoulliFn(fn ProbFunc) *Bernoulli {
	return &Bernoulli{pfn: fn}
}

// Bind attaches the distribution to its random stream. Filtering before
// binding is a lifecycle error.
func (b *Bernoulli) Bind(stream sim.Stream) {
	b.base = stream
	b.stream = stream.Jump(0)
	b.bound = true
}

// StepTo advances the distribution to a timestep. An agent's draw at a
// step is fixed, so repeating a filter within the same step repeats its
// outcome.
func (b *Bernoulli) StepTo(ti int) {
	b.mustBeBound()
	b.stream = b.base.Jump(ti)
}

// SetProb replaces the constant probability.
func (b *Bernoulli) SetProb(p float64) {
	b.p = p
	b.pfn = nil
}

// SetProbFn replaces the probability callback.
func (b *Bernoulli) SetProbFn(fn ProbFunc) { b.pfn = fn }

func (b *Bernoulli) probs(uids population.UIDs) []float64 {
	if b.pfn != nil {
		p := b.pfn(uids)
		if len(p) != len(uids) {
			log.Panicf("probability callback returned %d values for %d candidates",
				len(p), len(uids))
		}

		return p
	}

	p := make([]float64, len(uids))
	for i := range p {
		p[i] = b.p
	}

	return p
}

// Filter returns the candidates whose trial succeeds. Each candidate
// appears at most once, and a candidate's draw is independent of the rest
// of the candidate set.
func (b *Bernoulli) Filter(uids population.UIDs) population.UIDs {
	b.mustBeBound()

	p := b.probs(uids)
	selected := population.UIDs{}
	for i, uid := range uids {
		if p[i] < 0 || p[i] > 1 {
			log.Panicf("probability %v for agent %d is outside [0, 1]", p[i], uid)
		}
		if b.stream.Uniform(uid) < p[i] {
			selected = append(selected, uid)
		}
	}

	return selected
}

// RVs returns the raw trial outcome per candidate.
func (b *Bernoulli) RVs(uids population.UIDs) []bool {
	b.mustBeBound()

	p := b.probs(uids)
	out := make([]bool, len(uids))
	for i, uid := range uids {
		out[i] = b.stream.Uniform(uid) < p[i]
	}

	return out
}

func (b *Bernoulli) mustBeBound() {
	if !b.bound {
		log.Panic("distribution is not bound to a random stream")
	}
}

// LogNormal draws positive durations, parameterized by the mean and
// standard deviation of the resulting distribution (not of the underlying
// normal).
type LogNormal struct {
	base   sim.Stream
	stream sim.Stream
	bound  bool

	mean float64
	std  float64
}

// NewLogNormal creates a log-normal distribution with the given mean and
// standard deviation.
func NewLogNormal(mean, std float64) *LogNormal {
	if mean <= 0 || std <= 0 {
		log.Panicf("log-normal mean and std must be positive, got %v, %v",
			mean, std)
	}

	return &LogNormal{mean: mean, std: std}
}

// Bind attaches the distribution to its random stream.
func (d *LogNormal) Bind(stream sim.Stream) {
	d.base = stream
	d.stream = stream.Jump(0)
	d.bound = true
}

// StepTo advances the distribution to a timestep.
func (d *LogNormal) StepTo(ti int) {
	if !d.bound {
		log.Panic("distribution is not bound to a random stream")
	}
	d.stream = d.base.Jump(ti)
}

// Mean returns the configured mean.
func (d *LogNormal) Mean() float64 { return d.mean }

// RVs draws one variate per agent.
func (d *LogNormal) RVs(uids population.UIDs) []float64 {
	if !d.bound {
		log.Panic("distribution is not bound to a random stream")
	}

	ratio := 1 + (d.std*d.std)/(d.mean*d.mean)
	mu := math.Log(d.mean / math.Sqrt(ratio))
	sigma := math.Sqrt(math.Log(ratio))

	out := make([]float64, len(uids))
	for i, uid := range uids {
		ln := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: d.stream.Source(uid)}
		out[i] = ln.Rand()
	}

	return out
}

// UniformInt draws integers uniformly from [low, high), one per agent.
// Pregnancy uses it to pick reserved slots for unborn agents.
type UniformInt struct {
	base   sim.Stream
	stream sim.Stream
	bound  bool

	low  int
	high int
}

// NewUniformInt creates a uniform integer distribution over [low, high).
func NewUniformInt(low, high int) *UniformInt {
	if high <= low {
		log.Panicf("uniform int range [%d, %d) is empty", low, high)
	}

	return &UniformInt{low: low, high: high}
}

// Bind attaches the distribution to its random stream.
func (d *UniformInt) Bind(stream sim.Stream) {
	d.base = stream
	d.stream = stream.Jump(0)
	d.bound = true
}

// StepTo advances the distribution to a timestep.
func (d *UniformInt) StepTo(ti int) {
	if !d.bound {
		log.Panic("distribution is not bound to a random stream")
	}
	d.stream = d.base.Jump(ti)
}

// RVs draws one integer per agent.
func (d *UniformInt) RVs(uids population.UIDs) []int {
	if !d.bound {
		log.Panic("distribution is not bound to a random stream")
	}

	out := make([]int, len(uids))
	for i, uid := range uids {
		r := rand.New(d.stream.Source(uid))
		out[i] = d.low + r.Intn(d.high-d.low)
	}

	return out
}

// ClipProb clips a scaled rate into a valid probability.
func ClipProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}

	return p
}
