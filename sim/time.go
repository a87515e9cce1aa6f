package sim

import (
	"log"
	"math"
)

// Years measures simulated time in calendar years.
type Years float64

// A Timeline defines the simulated period and the timestep size. Steps are
// indexed by an integer ti; step ti corresponds to time Start + ti*DT.
type Timeline struct {
	Start Years
	Stop  Years
	DT    Years
}

// MakeTimeline creates a timeline, panicking on degenerate input.
func MakeTimeline(start, stop, dt Years) Timeline {
	t := Timeline{Start: start, Stop: stop, DT: dt}
	t.mustBeValid()

	return t
}

func (t Timeline) mustBeValid() {
	if math.IsNaN(float64(t.Start)) || math.IsNaN(float64(t.Stop)) {
		log.Panic("invalid timeline bounds")
	}
	if t.DT <= 0 {
		log.Panicf("timestep must be positive, got %v", t.DT)
	}
	if t.Stop <= t.Start {
		log.Panicf("timeline stop %v is not after start %v", t.Stop, t.Start)
	}
}

// NumSteps returns the number of timesteps, including the step at Start.
func (t Timeline) NumSteps() int {
	return int(math.Floor(float64((t.Stop-t.Start)/t.DT))) + 1
}

// Time returns the simulated time of step ti.
func (t Timeline) Time(ti int) Years {
	return t.Start + Years(ti)*t.DT
}

// StepsPerYear returns the number of steps in one simulated year.
func (t Timeline) StepsPerYear() float64 {
	return 1.0 / float64(t.DT)
}
