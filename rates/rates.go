// Package rates resolves demographic rate inputs into per-agent
// instantaneous rates. A rate source is either a scalar, a year/age/sex
// stratified table, or a callback; tables are validated when built, so
// resolution itself never fails.
package rates

// Sex selects a stratum of a sex-stratified table.
type Sex int

// The supported sex strata. Both is used by tables without a sex axis.
const (
	Both Sex = iota
	FemaleSex
	MaleSex
)

// A Query asks for one rate per agent at a point in simulated time. Ages
// and Female are aligned; Female may be nil when the caller has no sex
// information, in which case sex-stratified tables cannot be resolved.
type Query struct {
	Year   float64
	Ages   []float64
	Female []bool
}

// A Source produces per-agent rates. It is one of Constant, *Table, or
// Callback.
type Source interface {
	// Resolve returns one rate per query entry.
	Resolve(q Query) []float64

	// ScalarAt returns the population-level rate at a point in time, for
	// sources used without age/sex stratification.
	ScalarAt(year float64) float64
}

// Constant is a degenerate rate table with no time, age, or sex axes.
type Constant float64

// Resolve returns the constant for every query entry.
func (c Constant) Resolve(q Query) []float64 {
	out := make([]float64, len(q.Ages))
	for i := range out {
		out[i] = float64(c)
	}

	return out
}

// ScalarAt returns the constant.
func (c Constant) ScalarAt(year float64) float64 { return float64(c) }

// Callback computes rates with user logic, e.g. a calibration override.
type Callback func(q Query) []float64

// Resolve invokes the callback.
func (f Callback) Resolve(q Query) []float64 { return f(q) }

// ScalarAt resolves the callback for a single ageless entry.
func (f Callback) ScalarAt(year float64) float64 {
	return f(Query{Year: year, Ages: []float64{0}})[0]
}
