package sim

import "log"

// A Result is one named time series owned by a module, with one entry per
// timestep. Results marked Scale are multiplied by the population scale
// factor at finalize, turning agent counts into real-population counts.
type Result struct {
	Name   string
	Label  string
	Scale  bool
	Values []float64
}

// NewResult creates a zero-filled result series covering npts steps.
func NewResult(name, label string, npts int, scale bool) *Result {
	return &Result{
		Name:   name,
		Label:  label,
		Scale:  scale,
		Values: make([]float64, npts),
	}
}

// Results is the collection of result series owned by one module.
type Results struct {
	module string
	order  []string
	byName map[string]*Result
}

// NewResults creates an empty collection for the named module.
func NewResults(module string) *Results {
	return &Results{
		module: module,
		byName: make(map[string]*Result),
	}
}

// Module returns the owning module's name.
func (r *Results) Module() string { return r.module }

// Add registers result series; duplicate names panic.
func (r *Results) Add(results ...*Result) {
	for _, res := range results {
		if _, exists := r.byName[res.Name]; exists {
			log.Panicf("result %s.%s already registered", r.module, res.Name)
		}

		r.byName[res.Name] = res
		r.order = append(r.order, res.Name)
	}
}

// Get returns the named series, panicking if absent.
func (r *Results) Get(name string) *Result {
	res, ok := r.byName[name]
	if !ok {
		log.Panicf("no result %s.%s", r.module, name)
	}

	return res
}

// All returns the series in registration order.
func (r *Results) All() []*Result {
	out := make([]*Result, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}

	return out
}

// ScaleAll multiplies every scalable series by factor. Called once at
// finalize, before derived metrics are computed.
func (r *Results) ScaleAll(factor float64) {
	for _, name := range r.order {
		res := r.byName[name]
		if !res.Scale {
			continue
		}
		for i := range res.Values {
			res.Values[i] *= factor
		}
	}
}

// CumSum fills dst with the running sum of src. The two series must have
// the same length.
func CumSum(dst, src *Result) {
	if len(dst.Values) != len(src.Values) {
		log.Panicf("cumsum length mismatch: %d vs %d",
			len(dst.Values), len(src.Values))
	}

	total := 0.0
	for i, v := range src.Values {
		total += v
		dst.Values[i] = total
	}
}

// SafeDivide returns a/b, or 0 when b is zero or negative. Crude-rate
// normalization uses it so an empty population yields 0 rather than Inf.
func SafeDivide(a, b float64) float64 {
	if b <= 0 {
		return 0
	}

	return a / b
}
