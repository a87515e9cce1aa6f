package sim

import (
	"hash/fnv"

	"golang.org/x/exp/rand"

	"github.com/vitalsim/vitalsim/population"
)

// A Stream is a deterministic random stream keyed by agent UID. Draws
// depend only on (run seed, stream name, UID), never on call order or on
// the shape of the candidate set, so replaying a run with the same seed
// reproduces every selection, and adding or removing other candidates does
// not perturb the draw an agent receives.
type Stream struct {
	key uint64
}

// NewStream derives a stream from a run-level seed and a stream
// identifier, conventionally "<module>.<purpose>".
func NewStream(seed uint64, name string) Stream {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))

	return Stream{key: splitmix64(seed ^ h.Sum64())}
}

// Jump derives the stream for one timestep. Without jumping, an agent
// would receive the same draw at every step; with it, the draw depends on
// (seed, name, step, UID) and nothing else. Negative step indices are
// valid, so burn-in steps get their own draws.
func (s Stream) Jump(ti int) Stream {
	return Stream{key: splitmix64(s.key ^ splitmix64(uint64(int64(ti))))}
}

// U64 returns the agent's 64-bit draw on this stream.
func (s Stream) U64(uid population.UID) uint64 {
	return splitmix64(s.key ^ splitmix64(uint64(uid)+0x9e3779b97f4a7c15))
}

// Uniform returns the agent's draw as a float64 in [0, 1).
func (s Stream) Uniform(uid population.UID) float64 {
	return float64(s.U64(uid)>>11) / (1 << 53)
}

// Source returns a rand source seeded with the agent's draw, usable as the
// Src of a gonum distribution. Each call returns a fresh source, so the
// first variate drawn from it is reproducible per UID.
func (s Stream) Source(uid population.UID) rand.Source {
	return rand.NewSource(s.U64(uid))
}

// splitmix64 is the finalizer of the SplitMix64 generator. It is a strong
// 64-bit mixer, which is all the keyed construction needs.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb

	return x ^ (x >> 31)
}
