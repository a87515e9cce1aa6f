// Package vitals implements the demographic modules that drive population
// vital dynamics: rate-driven births, background deaths, and the pregnancy
// state machine. Demographic modules are expected to be registered before
// network and disease processes so that each timestep starts from an
// up-to-date population.
package vitals

import (
	"log"
	"sort"

	"github.com/vitalsim/vitalsim/population"
	"github.com/vitalsim/vitalsim/rates"
)

func asSource(module, key string, v any) rates.Source {
	switch x := v.(type) {
	case rates.Source:
		return x
	case float64:
		return rates.Constant(x)
	case float32:
		return rates.Constant(float64(x))
	case int:
		return rates.Constant(float64(x))
	case int64:
		return rates.Constant(float64(x))
	default:
		log.Panicf("parameter %s of %s must be a rate source or a number, got %T",
			key, module, v)
		return nil
	}
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}

// sameUIDSet reports whether two UID lists contain the same identities,
// ignoring order.
func sameUIDSet(a, b population.UIDs) bool {
	if len(a) != len(b) {
		return false
	}

	as := append(population.UIDs{}, a...)
	bs := append(population.UIDs{}, b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })

	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}

	return true
}
