package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/rates"
	"github.com/vitalsim/vitalsim/sim"
)

func testSim(n int, start, stop, dt float64) *sim.Simulation {
	return sim.MakeBuilder().
		WithNumAgents(n).
		WithTimeline(sim.Years(start), sim.Years(stop), sim.Years(dt)).
		Build()
}

func TestBirthsRejectsUnknownPars(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		msg, ok := r.(string)
		require.True(t, ok)
		assert.Contains(t, msg, "birthrate")
		assert.Contains(t, msg, "unit")
	}()

	NewBirths(sim.Pars{"birthrate": 30, "unit": 1e-3})
}

func TestBirthsGrowsPopulationByCrudeRate(t *testing.T) {
	s := testSim(1000, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{"birth_rate": 30}))
	s.Init()

	s.Step()

	// 1000 agents at 30 per 1000 per year is exactly 30 newborns.
	births := s.GetModuleByName("births").Results()
	assert.Equal(t, 30.0, births.Get("new").Values[0])
	assert.Equal(t, 1030, s.People().NumAlive())
}

func TestBirthsNewbornsStartAtAgeZero(t *testing.T) {
	s := testSim(100, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{"birth_rate": 100}))
	s.Init()

	s.Step()

	// 10 newborns, aged once by the end-of-step aging pass.
	require.Equal(t, 110, s.People().NumAlive())
	assert.InDelta(t, 1.0, s.People().Age(100), 1e-12)
}

func TestBirthsClipsExcessiveRate(t *testing.T) {
	s := testSim(100, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{
		"birth_rate": 5000, // would be probability 5
	}))
	s.Init()

	s.Step()

	assert.Equal(t, 200, s.People().NumAlive())
}

func TestBirthsNewbornSexesFollowTheSexRatio(t *testing.T) {
	s := testSim(100, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{
		"birth_rate": 200,
		"sex_ratio":  1.0,
	}))
	s.Init()

	s.Step()

	people := s.People()
	require.Equal(t, 120, people.NumAlive())
	for uid := 100; uid < 120; uid++ {
		assert.True(t, people.Female(population.UID(uid)))
	}
}

func TestBirthsDefaultSexRatioProducesBothSexes(t *testing.T) {
	s := testSim(1000, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{"birth_rate": 200}))
	s.Init()

	s.Step()

	people := s.People()
	require.Equal(t, 1200, people.NumAlive())

	females := 0
	for uid := 1000; uid < 1200; uid++ {
		if people.Female(population.UID(uid)) {
			females++
		}
	}
	assert.Greater(t, females, 0)
	assert.Less(t, females, 200)
}

func TestBirthsRelBirthScalesTheRate(t *testing.T) {
	s := testSim(1000, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{
		"birth_rate": 30,
		"rel_birth":  2.0,
	}))
	s.Init()

	s.Step()

	assert.Equal(t, 1060, s.People().NumAlive())
}

func TestBirthsRateFromTableFollowsYears(t *testing.T) {
	table, err := rates.NewTable([]rates.Record{
		{Values: map[string]float64{"Time": 2000, "CBR": 100}},
		{Values: map[string]float64{"Time": 2001, "CBR": 0}},
	}, rates.Metadata{YearCol: "Time", ValueCol: "CBR"})
	require.NoError(t, err)

	s := testSim(100, 2000, 2010, 1)
	s.RegisterModule(NewBirths(sim.Pars{"birth_rate": table}))
	s.Init()

	s.Step()
	require.Equal(t, 110, s.People().NumAlive())

	s.Step()
	assert.Equal(t, 110, s.People().NumAlive())
}

func TestBirthsFinalizeDerivesCumulativeAndRate(t *testing.T) {
	s := testSim(1000, 2000, 2001, 1)
	s.RegisterModule(NewBirths(sim.Pars{"birth_rate": 30}))
	s.Init()

	err := s.Run()
	require.NoError(t, err)

	births := s.GetModuleByName("births").Results()
	newBirths := births.Get("new").Values
	cumulative := births.Get("cumulative").Values
	cbr := births.Get("cbr").Values
	nAlive := s.Results().Get("n_alive").Values

	assert.Equal(t, newBirths[0]+newBirths[1], cumulative[1])
	assert.InDelta(t, 1000*newBirths[0]/nAlive[0], cbr[0], 1e-9)
}

func TestBirthsCrudeRateIsZeroWhenNobodyIsAlive(t *testing.T) {
	s := testSim(10, 2000, 2001, 1)
	s.RegisterModule(NewBirths(sim.Pars{"birth_rate": 0}))
	s.RegisterModule(NewDeaths(sim.Pars{"death_rate": 1, "units": 1.0}))
	s.Init()

	err := s.Run()
	require.NoError(t, err)

	births := s.GetModuleByName("births").Results()
	assert.Equal(t, 0.0, births.Get("cbr").Values[1])
}
