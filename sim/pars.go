package sim

import (
	"log"
	"sort"
	"strings"
)

// Pars carries named parameter overrides for a module. Modules pull out the
// keys they recognize at construction time; leftovers are rejected by name.
type Pars map[string]any

// SortedKeys returns the parameter names in a deterministic order.
func (p Pars) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// RejectUnknownPars panics when a module received parameter keys it does
// not define, listing all offending keys in one message.
func RejectUnknownPars(module string, unknown []string) {
	if len(unknown) == 0 {
		return
	}

	sort.Strings(unknown)
	log.Panicf("%d unrecognized argument(s) for %s: %s",
		len(unknown), module, strings.Join(unknown, ", "))
}

// AsFloat converts a numeric parameter value, panicking on anything else.
func AsFloat(module, key string, v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		log.Panicf("parameter %s of %s must be numeric, got %T", key, module, v)
		return 0
	}
}

// AsBool converts a boolean parameter value, panicking on anything else.
func AsBool(module, key string, v any) bool {
	b, ok := v.(bool)
	if !ok {
		log.Panicf("parameter %s of %s must be a bool, got %T", key, module, v)
	}

	return b
}
