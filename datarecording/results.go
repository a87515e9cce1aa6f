package datarecording

import (
	"log"

	"github.com/vitalsim/vitalsim/sim"
)

// RunRow is one row of the runs table, describing a finished run.
type RunRow struct {
	RunID     string
	Seed      uint64
	Start     float64
	Stop      float64
	DT        float64
	NumAgents int
}

// ResultRow is one point of one result series.
type ResultRow struct {
	RunID  string
	Module string
	Name   string
	Label  string
	Step   int
	Time   float64
	Value  float64
}

// RecordSimulation writes a finalized simulation's metadata and every
// result series, module-level and simulation-level, to the recorder.
func RecordSimulation(rec DataRecorder, s *sim.Simulation) {
	if !s.Finalized() {
		log.Panic("cannot record a simulation that is not finalized")
	}

	rec.CreateTable("runs", RunRow{})
	rec.CreateTable("results", ResultRow{})

	tl := s.Timeline()
	rec.InsertData("runs", RunRow{
		RunID:     s.ID(),
		Seed:      s.Seed(),
		Start:     float64(tl.Start),
		Stop:      float64(tl.Stop),
		DT:        float64(tl.DT),
		NumAgents: s.People().NumAgents(),
	})

	recordResults(rec, s, s.Results())
	for _, m := range s.Modules() {
		recordResults(rec, s, m.Results())
	}

	rec.Flush()
}

func recordResults(rec DataRecorder, s *sim.Simulation, results *sim.Results) {
	tl := s.Timeline()

	for _, res := range results.All() {
		for ti, v := range res.Values {
			rec.InsertData("results", ResultRow{
				RunID:  s.ID(),
				Module: results.Module(),
				Name:   res.Name,
				Label:  res.Label,
				Step:   ti,
				Time:   float64(tl.Time(ti)),
				Value:  v,
			})
		}
	}
}
