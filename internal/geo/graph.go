// Package geo maintains the weighted station-site graph over geographic
// coordinates.
//
// Vertices and edges carry stable handles (VertexID, EdgeID) assigned by the
// owning graph. Positional indices are derived from the vertex sequence and
// recomputed lazily after removals, right before any index-based access or
// matrix export. A Graph is not safe for concurrent mutation; share it
// read-only and mutate a Clone.
package geo

import (
	"math"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/sirupsen/logrus"

	"qroute/internal/earth"
	"qroute/internal/errs"
	"qroute/internal/population"
)

var log = logrus.WithField("module", "geo")

const (
	// SelfCost is the diagonal of the adjacency matrix. Staying at a vertex
	// across a hop is free, which makes the hop count an upper bound.
	SelfCost = 0.0

	DefaultProximityRadiusKm = 1.0
	DefaultConnectRadiusKm   = 4.0
	// DefaultEdgeScale brings w(a)*w(b)*d^2 (weights ~1e-4, d in km) into the
	// 1..1e4 range, well below DefaultNoEdgeCost.
	DefaultEdgeScale   = 1e10
	DefaultMinEdgeCost = 1e-6
	DefaultMaxEdgeCost = 1e6
	DefaultNoEdgeCost  = 1e7
)

// Options control vertex scoring, connectivity and edge cost scaling.
// EdgeScale, MaxEdgeCost and NoEdgeCost must be tuned together with the
// QUBO penalty: the penalty is derived from the largest matrix entry.
type Options struct {
	ProximityRadiusKm float64 `yaml:"proximityRadiusKm"`
	ConnectRadiusKm   float64 `yaml:"connectRadiusKm"`
	EdgeScale         float64 `yaml:"edgeScale"`
	MinEdgeCost       float64 `yaml:"minEdgeCost"`
	MaxEdgeCost       float64 `yaml:"maxEdgeCost"`
	NoEdgeCost        float64 `yaml:"noEdgeCost"`
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		ProximityRadiusKm: DefaultProximityRadiusKm,
		ConnectRadiusKm:   DefaultConnectRadiusKm,
		EdgeScale:         DefaultEdgeScale,
		MinEdgeCost:       DefaultMinEdgeCost,
		MaxEdgeCost:       DefaultMaxEdgeCost,
		NoEdgeCost:        DefaultNoEdgeCost,
	}
}

// Validate checks that the cost constants are ordered.
func (o Options) Validate() error {
	if o.ProximityRadiusKm <= 0 || o.ConnectRadiusKm < 0 || o.EdgeScale <= 0 {
		return errs.InvalidInput("graph radii and edge scale must be positive")
	}
	if !(o.MinEdgeCost > 0 && o.MinEdgeCost < o.MaxEdgeCost && o.MaxEdgeCost < o.NoEdgeCost) {
		return errs.InvalidInput("need 0 < minEdgeCost < maxEdgeCost < noEdgeCost")
	}
	if math.IsInf(o.NoEdgeCost, 0) || math.IsNaN(o.NoEdgeCost) {
		return errs.InvalidInput("noEdgeCost must be finite")
	}
	return nil
}

type pair struct{ lo, hi VertexID }

func pairOf(a, b VertexID) pair {
	if a > b {
		a, b = b, a
	}
	return pair{lo: a, hi: b}
}

// Graph owns an ordered vertex sequence and an ordered edge sequence.
type Graph struct {
	opts Options
	pop  *population.Index

	vertices []*Vertex
	edges    []*Edge
	byID     map[VertexID]*Vertex
	pairs    map[pair]*Edge

	nextVertex VertexID
	nextEdge   EdgeID
	// stale is set by removals; compact rebuilds sequences and indices.
	stale bool
}

// New returns an empty graph scoring vertices against pop. pop may be nil,
// in which case unevaluated vertices get an infinite weight.
func New(pop *population.Index, opts Options) *Graph {
	return &Graph{
		opts:  opts,
		pop:   pop,
		byID:  map[VertexID]*Vertex{},
		pairs: map[pair]*Edge{},
	}
}

func (g *Graph) Options() Options { return g.opts }

func (g *Graph) Population() *population.Index { return g.pop }

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.byID) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.pairs) }

// Vertices returns the vertex sequence in index order.
func (g *Graph) Vertices() []*Vertex {
	g.compact()
	return append([]*Vertex(nil), g.vertices...)
}

// Edges returns the edge sequence in index order.
func (g *Graph) Edges() []*Edge {
	g.compact()
	return append([]*Edge(nil), g.edges...)
}

// Vertex returns the vertex at index i.
func (g *Graph) Vertex(i int) (*Vertex, bool) {
	g.compact()
	if i < 0 || i >= len(g.vertices) {
		return nil, false
	}
	return g.vertices[i], true
}

// VertexByID returns the vertex with the given handle.
func (g *Graph) VertexByID(id VertexID) (*Vertex, bool) {
	v, ok := g.byID[id]
	return v, ok
}

// IndexOf returns the current position of v in the vertex sequence.
func (g *Graph) IndexOf(v *Vertex) (int, bool) {
	if v == nil || v.graph != g {
		return 0, false
	}
	if _, ok := g.byID[v.id]; !ok {
		return 0, false
	}
	g.compact()
	return v.index, true
}

// EdgeBetween returns the edge joining a and b in either orientation.
func (g *Graph) EdgeBetween(a, b *Vertex) (*Edge, bool) {
	if a == nil || b == nil {
		return nil, false
	}
	e, ok := g.pairs[pairOf(a.id, b.id)]
	return e, ok
}

// AddVertex appends v, evaluates it if needed and connects it to every
// existing vertex within the connect radius. It returns v's index.
func (g *Graph) AddVertex(v *Vertex) (int, error) {
	if v == nil {
		return 0, errs.InvalidInput("nil vertex")
	}
	if v.graph != nil {
		return 0, errs.InvalidInput("vertex already belongs to a graph")
	}
	if !v.evaluated {
		v.Eval(g.pop, g.opts.ProximityRadiusKm)
	}
	g.compact()
	g.nextVertex++
	v.id = g.nextVertex
	v.graph = g
	v.index = len(g.vertices)
	v.edges = map[EdgeID]*Edge{}
	existing := g.vertices
	g.vertices = append(g.vertices, v)
	g.byID[v.id] = v

	for _, u := range existing {
		if earth.DistanceKm(u.Point, v.Point) <= g.opts.ConnectRadiusKm {
			g.link(u, v)
		}
	}
	return v.index, nil
}

// ConnectVertices joins the vertices at indices i and j. It returns a nil
// edge and no error when the pair is already connected.
func (g *Graph) ConnectVertices(i, j int) (*Edge, error) {
	a, ok := g.Vertex(i)
	if !ok {
		return nil, errs.InvalidInput("vertex index %d out of range [0,%d)", i, g.Len())
	}
	b, ok := g.Vertex(j)
	if !ok {
		return nil, errs.InvalidInput("vertex index %d out of range [0,%d)", j, g.Len())
	}
	if a == b {
		return nil, errs.InvalidInput("cannot connect vertex %d to itself", i)
	}
	if _, dup := g.pairs[pairOf(a.id, b.id)]; dup {
		return nil, nil
	}
	return g.link(a, b), nil
}

func (g *Graph) link(a, b *Vertex) *Edge {
	g.nextEdge++
	e := &Edge{id: g.nextEdge, a: a, b: b, index: len(g.edges)}
	e.Eval(g.opts)
	g.edges = append(g.edges, e)
	g.pairs[pairOf(a.id, b.id)] = e
	a.edges[e.id] = e
	b.edges[e.id] = e
	return e
}

// RemoveVertex removes the vertex at index i and every incident edge.
// Later vertices shift down by one. An out-of-range index is an
// ErrInvalidInput and leaves the graph untouched.
func (g *Graph) RemoveVertex(i int) error {
	v, ok := g.Vertex(i)
	if !ok {
		return errs.InvalidInput("vertex index %d out of range [0,%d)", i, g.Len())
	}
	g.detach(v)
	g.compact()
	return nil
}

// RemoveVertexByID removes the vertex with the given handle.
func (g *Graph) RemoveVertexByID(id VertexID) error {
	v, ok := g.byID[id]
	if !ok {
		return errs.InvalidInput("unknown vertex %d", id)
	}
	g.detach(v)
	return nil
}

// detach unlinks v and cascades to its edges. The sequences keep dangling
// entries until the next compact.
func (g *Graph) detach(v *Vertex) {
	for id, e := range v.edges {
		other := e.Other(v)
		if other != nil {
			delete(other.edges, id)
		}
		delete(g.pairs, pairOf(e.a.id, e.b.id))
		e.a, e.b = nil, nil
	}
	v.edges = nil
	delete(g.byID, v.id)
	v.graph = nil
	v.index = -1
	g.stale = true
}

// compact drops removed vertices and dangling edges and renumbers both
// sequences.
func (g *Graph) compact() {
	if !g.stale {
		return
	}
	vs := g.vertices[:0]
	for _, v := range g.vertices {
		if v.graph == g {
			v.index = len(vs)
			vs = append(vs, v)
		}
	}
	clear(g.vertices[len(vs):])
	g.vertices = vs

	es := g.edges[:0]
	for _, e := range g.edges {
		if e.a != nil && e.b != nil {
			e.index = len(es)
			es = append(es, e)
		}
	}
	clear(g.edges[len(es):])
	g.edges = es
	g.stale = false
}

// CullNotInRect removes every vertex strictly outside the closed rectangle
// with corners v1 and v2, except v1 and v2 themselves. It returns the
// number of removed vertices.
func (g *Graph) CullNotInRect(v1, v2 *Vertex) (int, error) {
	if v1 == nil || v2 == nil || v1.graph != g || v2.graph != g {
		return 0, errs.InvalidInput("cull corners must belong to the graph")
	}
	rect := earth.RectFrom(v1.Point, v2.Point)
	g.compact()
	removed := 0
	for i := len(g.vertices) - 1; i >= 0; i-- {
		v := g.vertices[i]
		if v == v1 || v == v2 || rect.Contains(v.Point) {
			continue
		}
		g.detach(v)
		removed++
	}
	g.compact()
	log.Debugf("culled %d vertices outside %+v, %d left", removed, rect, g.Len())
	return removed, nil
}

// GenMatrix exports the adjacency matrix: SelfCost on the diagonal, the edge
// cost for connected pairs and NoEdgeCost otherwise.
func (g *Graph) GenMatrix() (*matrix.Dense, error) {
	g.compact()
	n := len(g.vertices)
	if n == 0 {
		return nil, errs.InvalidInput("graph has no vertices")
	}
	m, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, errs.GraphConsistency("adjacency matrix %dx%d: %v", n, n, err)
	}
	err = m.Apply(func(i, j int, _ float64) float64 {
		if i == j {
			return SelfCost
		}
		return g.opts.NoEdgeCost
	})
	if err != nil {
		return nil, errs.GraphConsistency("fill adjacency matrix: %v", err)
	}
	for _, e := range g.edges {
		i, j := e.a.index, e.b.index
		if err := m.Set(i, j, e.Cost); err != nil {
			return nil, errs.GraphConsistency("edge %d: %v", e.id, err)
		}
		if err := m.Set(j, i, e.Cost); err != nil {
			return nil, errs.GraphConsistency("edge %d: %v", e.id, err)
		}
	}
	return m, nil
}

// Clone returns an independent deep copy with the same handles, indices,
// weights and costs.
func (g *Graph) Clone() *Graph {
	g.compact()
	c := &Graph{
		opts:       g.opts,
		pop:        g.pop,
		vertices:   make([]*Vertex, len(g.vertices)),
		edges:      make([]*Edge, len(g.edges)),
		byID:       make(map[VertexID]*Vertex, len(g.byID)),
		pairs:      make(map[pair]*Edge, len(g.pairs)),
		nextVertex: g.nextVertex,
		nextEdge:   g.nextEdge,
	}
	for i, v := range g.vertices {
		nv := &Vertex{
			id:        v.id,
			Point:     v.Point,
			Weight:    v.Weight,
			evaluated: v.evaluated,
			index:     i,
			graph:     c,
			edges:     make(map[EdgeID]*Edge, len(v.edges)),
		}
		c.vertices[i] = nv
		c.byID[nv.id] = nv
	}
	for i, e := range g.edges {
		a, b := c.vertices[e.a.index], c.vertices[e.b.index]
		ne := &Edge{id: e.id, a: a, b: b, Cost: e.Cost, index: i}
		c.edges[i] = ne
		c.pairs[pairOf(a.id, b.id)] = ne
		a.edges[ne.id] = ne
		b.edges[ne.id] = ne
	}
	return c
}

// Check verifies the graph invariants.
func (g *Graph) Check() error {
	g.compact()
	if len(g.vertices) != len(g.byID) {
		return errs.GraphConsistency("%d vertices in sequence, %d by handle", len(g.vertices), len(g.byID))
	}
	for i, v := range g.vertices {
		if v.index != i || v.graph != g {
			return errs.GraphConsistency("vertex %d has index %d", i, v.index)
		}
	}
	if len(g.edges) != len(g.pairs) {
		return errs.GraphConsistency("%d edges in sequence, %d distinct pairs", len(g.edges), len(g.pairs))
	}
	for i, e := range g.edges {
		if e.a == nil || e.b == nil || e.a.graph != g || e.b.graph != g {
			return errs.GraphConsistency("edge %d has a dangling endpoint", i)
		}
		if e.index != i {
			return errs.GraphConsistency("edge %d has index %d", i, e.index)
		}
		if g.pairs[pairOf(e.a.id, e.b.id)] != e {
			return errs.GraphConsistency("edge %d duplicates another edge", i)
		}
	}
	return nil
}
