package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/rates"
	"github.com/vitalsim/vitalsim/sim"
)

func TestDeathsRejectsUnknownPars(t *testing.T) {
	assert.Panics(t, func() {
		NewDeaths(sim.Pars{"mortality": 20})
	})
}

func TestDeathsCertainRateKillsEveryone(t *testing.T) {
	s := testSim(100, 2000, 2010, 1)
	s.RegisterModule(NewDeaths(sim.Pars{
		"death_rate": 1,
		"units":      1.0,
	}))
	s.Init()

	s.Step()

	deaths := s.GetModuleByName("deaths").Results()
	assert.Equal(t, 100.0, deaths.Get("new").Values[0])
	assert.Equal(t, 0, s.People().NumAlive())
	assert.Equal(t, 0.0, s.Results().Get("n_alive").Values[0])
}

func TestDeathsZeroRateKillsNobody(t *testing.T) {
	s := testSim(100, 2000, 2010, 1)
	s.RegisterModule(NewDeaths(sim.Pars{"death_rate": 0}))
	s.Init()

	s.Step()
	s.Step()

	assert.Equal(t, 100, s.People().NumAlive())
}

func TestDeathsRecordDeathStep(t *testing.T) {
	s := testSim(10, 2000, 2010, 1)
	s.RegisterModule(NewDeaths(sim.Pars{
		"death_rate": 1,
		"units":      1.0,
	}))
	s.Init()

	s.Step()

	for uid := population.UID(0); uid < 10; uid++ {
		assert.Equal(t, 0, s.People().DeathStep(uid))
	}
}

func TestDeathsSexStratifiedRates(t *testing.T) {
	table, err := rates.NewTable([]rates.Record{
		{
			Values: map[string]float64{"Time": 2000, "mx": 1},
			Labels: map[string]string{"Sex": "Female"},
		},
		{
			Values: map[string]float64{"Time": 2000, "mx": 0},
			Labels: map[string]string{"Sex": "Male"},
		},
	}, rates.Metadata{
		YearCol:  "Time",
		SexCol:   "Sex",
		ValueCol: "mx",
		SexKeys:  map[string]rates.Sex{"Female": rates.FemaleSex, "Male": rates.MaleSex},
	})
	require.NoError(t, err)

	s := testSim(10, 2000, 2010, 1)
	people := s.People()
	for uid := population.UID(0); uid < 5; uid++ {
		people.SetFemale(uid, true)
	}
	for uid := population.UID(5); uid < 10; uid++ {
		people.SetFemale(uid, false)
	}

	s.RegisterModule(NewDeaths(sim.Pars{
		"death_rate": table,
		"units":      1.0,
	}))
	s.Init()

	s.Step()

	// All female agents die; all male agents survive.
	assert.Equal(t, 5, people.NumAlive())
	for uid := population.UID(0); uid < 5; uid++ {
		assert.False(t, people.Alive(uid))
	}
	for uid := population.UID(5); uid < 10; uid++ {
		assert.True(t, people.Alive(uid))
	}
}

func TestDeathsFinalizeDerivesCrudeRate(t *testing.T) {
	s := testSim(1000, 2000, 2001, 1)
	s.RegisterModule(NewDeaths(sim.Pars{"death_rate": 20}))
	s.Init()

	err := s.Run()
	require.NoError(t, err)

	deaths := s.GetModuleByName("deaths").Results()
	newDeaths := deaths.Get("new").Values
	cmr := deaths.Get("cmr").Values
	nAlive := s.Results().Get("n_alive").Values

	if nAlive[0] > 0 {
		assert.InDelta(t, 1000*newDeaths[0]/nAlive[0], cmr[0], 1e-9)
	}
	assert.Equal(t, newDeaths[0]+newDeaths[1],
		deaths.Get("cumulative").Values[1])
}

func TestDeathsProbRequiresFullAliveSet(t *testing.T) {
	s := testSim(10, 2000, 2010, 1)
	d := NewDeaths(sim.Pars{})
	s.RegisterModule(d)
	s.Init()

	assert.Panics(t, func() {
		d.deathProbs(population.UIDs{0, 1})
	})
}
