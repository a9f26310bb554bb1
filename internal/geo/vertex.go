package geo

import (
	"math"

	"qroute/internal/earth"
	"qroute/internal/population"
)

// VertexID is a stable handle; it survives removals of other vertices.
type VertexID uint32

// EdgeID is a stable handle for an edge.
type EdgeID uint32

// Vertex is a candidate station site.
type Vertex struct {
	earth.Point
	// Weight is the inverse population-proximity score; lower is more
	// desirable. +Inf when no sample lies within the proximity radius.
	Weight float64

	id        VertexID
	evaluated bool
	index     int
	graph     *Graph
	edges     map[EdgeID]*Edge
}

// NewVertex returns an unevaluated vertex at p.
func NewVertex(p earth.Point) *Vertex {
	return &Vertex{Point: p, Weight: math.NaN(), index: -1}
}

// ID returns the handle assigned by the owning graph, or zero.
func (v *Vertex) ID() VertexID { return v.id }

// Evaluated reports whether Weight has been computed.
func (v *Vertex) Evaluated() bool { return v.evaluated }

// Degree returns the number of incident edges.
func (v *Vertex) Degree() int { return len(v.edges) }

// Neighbors returns the vertices sharing an edge with v, in no particular order.
func (v *Vertex) Neighbors() []*Vertex {
	out := make([]*Vertex, 0, len(v.edges))
	for _, e := range v.edges {
		out = append(out, e.Other(v))
	}
	return out
}

// Eval scores v against pop: weight = 1 / sum(population/distance) over
// samples within radiusKm, or +Inf when that sum is zero.
func (v *Vertex) Eval(pop *population.Index, radiusKm float64) float64 {
	score := pop.Score(v.Point, radiusKm)
	if score > 0 {
		v.Weight = 1 / score
	} else {
		v.Weight = math.Inf(1)
	}
	v.evaluated = true
	return v.Weight
}

// Edge is an undirected connection; (a,b) and (b,a) are the same edge.
type Edge struct {
	// Cost is the transition cost placed in the adjacency matrix.
	Cost float64

	id    EdgeID
	a, b  *Vertex
	index int
}

func (e *Edge) ID() EdgeID { return e.id }

// Endpoints returns both vertices in insertion order.
func (e *Edge) Endpoints() (*Vertex, *Vertex) { return e.a, e.b }

// Other returns the endpoint opposite v.
func (e *Edge) Other(v *Vertex) *Vertex {
	if e.a == v {
		return e.b
	}
	return e.a
}

// Eval recomputes the cost as w(a) * w(b) * d(a,b)^2 * EdgeScale, clamped to
// [MinEdgeCost, MaxEdgeCost]. Coincident endpoints cost zero.
//
// An unpopulated endpoint has weight +Inf. Its edges cost
// MaxEdgeCost * (d/ConnectRadiusKm)^2 instead, so they stay dearer than
// populated ones but still order by length.
func (e *Edge) Eval(opts Options) float64 {
	d := earth.DistanceKm(e.a.Point, e.b.Point)
	if d == 0 {
		e.Cost = 0
		return e.Cost
	}
	var c float64
	if math.IsInf(e.a.Weight, 1) || math.IsInf(e.b.Weight, 1) {
		r := d / opts.ConnectRadiusKm
		c = opts.MaxEdgeCost * r * r
	} else {
		c = e.a.Weight * e.b.Weight * d * d * opts.EdgeScale
	}
	switch {
	case math.IsNaN(c) || c > opts.MaxEdgeCost:
		c = opts.MaxEdgeCost
	case c < opts.MinEdgeCost:
		c = opts.MinEdgeCost
	}
	e.Cost = c
	return c
}
