// Package network stores mother-child relationship edges used for vertical
// transmission modeling. A prenatal layer holds edges from conception to
// delivery; a postnatal layer holds edges from delivery to the end of the
// postpartum window.
package network

import (
	"log"

	"github.com/vitalsim/vitalsim/population"
)

// A Layer is a directed edge list between mothers (P1) and children (P2).
// Edge times are expressed in simulation step units.
type Layer struct {
	name      string
	prenatal  bool
	postnatal bool

	p1    population.UIDs
	p2    population.UIDs
	start []float64
	end   []float64
}

// NewPrenatal creates a layer tagged as prenatal.
func NewPrenatal(name string) *Layer {
	return &Layer{name: name, prenatal: true}
}

// NewPostnatal creates a layer tagged as postnatal.
func NewPostnatal(name string) *Layer {
	return &Layer{name: name, postnatal: true}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Prenatal reports whether the layer holds conception-to-delivery edges.
func (l *Layer) Prenatal() bool { return l.prenatal }

// Postnatal reports whether the layer holds delivery-to-postpartum edges.
func (l *Layer) Postnatal() bool { return l.postnatal }

// Len returns the number of edges currently in the layer.
func (l *Layer) Len() int { return len(l.p1) }

// AddPairs appends one edge per (p1[i], p2[i]) pair, each starting at start
// and lasting dur[i] steps.
func (l *Layer) AddPairs(
	p1, p2 population.UIDs,
	dur []float64,
	start float64,
) {
	if len(p1) != len(p2) || len(p1) != len(dur) {
		log.Panicf("layer %s: adding %d:%d pairs with %d durations",
			l.name, len(p1), len(p2), len(dur))
	}

	for i := range p1 {
		l.p1 = append(l.p1, p1[i])
		l.p2 = append(l.p2, p2[i])
		l.start = append(l.start, start)
		l.end = append(l.end, start+dur[i])
	}
}

// EndingPairs returns the (p1, p2) UIDs of all edges that end at or before
// ti, in insertion order.
func (l *Layer) EndingPairs(ti float64) (population.UIDs, population.UIDs) {
	var p1, p2 population.UIDs
	for i := range l.p1 {
		if l.end[i] <= ti {
			p1 = append(p1, l.p1[i])
			p2 = append(p2, l.p2[i])
		}
	}

	return p1, p2
}

// EndPairs removes all edges that end at or before ti.
func (l *Layer) EndPairs(ti float64) {
	keepP1 := l.p1[:0]
	keepP2 := l.p2[:0]
	keepStart := l.start[:0]
	keepEnd := l.end[:0]

	for i := range l.p1 {
		if l.end[i] > ti {
			keepP1 = append(keepP1, l.p1[i])
			keepP2 = append(keepP2, l.p2[i])
			keepStart = append(keepStart, l.start[i])
			keepEnd = append(keepEnd, l.end[i])
		}
	}

	l.p1, l.p2, l.start, l.end = keepP1, keepP2, keepStart, keepEnd
}

// RemovePairsWith drops every edge that touches any of the given UIDs on
// either endpoint.
func (l *Layer) RemovePairsWith(uids population.UIDs) {
	keepP1 := l.p1[:0]
	keepP2 := l.p2[:0]
	keepStart := l.start[:0]
	keepEnd := l.end[:0]

	for i := range l.p1 {
		if uids.Contains(l.p1[i]) || uids.Contains(l.p2[i]) {
			continue
		}
		keepP1 = append(keepP1, l.p1[i])
		keepP2 = append(keepP2, l.p2[i])
		keepStart = append(keepStart, l.start[i])
		keepEnd = append(keepEnd, l.end[i])
	}

	l.p1, l.p2, l.start, l.end = keepP1, keepP2, keepStart, keepEnd
}

// P1 returns the mother endpoint of edge i.
func (l *Layer) P1(i int) population.UID { return l.p1[i] }

// P2 returns the child endpoint of edge i.
func (l *Layer) P2(i int) population.UID { return l.p2[i] }

// End returns the end time of edge i in step units.
func (l *Layer) End(i int) float64 { return l.end[i] }

// A Set is the collection of maternal layers a pregnancy module operates on.
type Set struct {
	layers []*Layer
}

// NewSet groups layers into a set. When the set contains any postnatal
// layer, exactly one prenatal layer must be present; violating that is a
// configuration error.
func NewSet(layers ...*Layer) *Set {
	s := &Set{layers: layers}

	nPre := len(s.PrenatalLayers())
	if len(s.PostnatalLayers()) > 0 && nPre != 1 {
		log.Panicf(
			"a maternal network set with postnatal layers requires exactly "+
				"one prenatal layer, found %d", nPre)
	}

	return s
}

// Layers returns all layers in the set.
func (s *Set) Layers() []*Layer { return s.layers }

// PrenatalLayers returns the layers tagged prenatal.
func (s *Set) PrenatalLayers() []*Layer {
	var out []*Layer
	for _, l := range s.layers {
		if l.prenatal {
			out = append(out, l)
		}
	}

	return out
}

// PostnatalLayers returns the layers tagged postnatal.
func (s *Set) PostnatalLayers() []*Layer {
	var out []*Layer
	for _, l := range s.layers {
		if l.postnatal {
			out = append(out, l)
		}
	}

	return out
}

// ThePrenatal returns the single prenatal layer of the set.
func (s *Set) ThePrenatal() *Layer {
	pre := s.PrenatalLayers()
	if len(pre) != 1 {
		log.Panicf("expected exactly one prenatal layer, found %d", len(pre))
	}

	return pre[0]
}
