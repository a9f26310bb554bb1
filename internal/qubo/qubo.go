// Package qubo encodes "visit one vertex per hop from start to end at
// minimum transition cost" as a quadratic objective over binary variables.
//
// Penalty terms are expanded with x*x == x, so an objective is a constant
// offset plus linear and pairwise coefficients. At any assignment that
// satisfies every constraint the penalty contributions cancel exactly and the
// objective equals the summed transition cost.
package qubo

import (
	"math"
	"slices"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/sirupsen/logrus"

	"qroute/internal/errs"
)

var log = logrus.WithField("module", "qubo")

// DefaultPenaltyFloor is the smallest penalty ever used.
const DefaultPenaltyFloor = 99999.0

// Options tune the encoding.
type Options struct {
	// PenaltyFloor bounds the penalty from below. Zero means DefaultPenaltyFloor.
	PenaltyFloor float64 `yaml:"penaltyFloor" json:"penaltyFloor"`
	// ExclusiveVisits adds the one-hop-per-vertex constraint. It also forbids
	// staying on a vertex across consecutive hops.
	ExclusiveVisits bool `yaml:"exclusiveVisits" json:"exclusiveVisits"`
}

// Term is a pairwise coefficient on variables I < J.
type Term struct {
	I, J int
	Coef float64
}

// Neighbor is one side of a Term as seen from the other variable.
type Neighbor struct {
	Var  int
	Coef float64
}

// Objective is offset + sum(Linear[i]*x[i]) + sum(Coef*x[I]*x[J]).
type Objective struct {
	Layout  Layout
	Start   int
	End     int
	Penalty float64
	// CostScale is the largest finite transition coefficient.
	CostScale       float64
	ExclusiveVisits bool

	Offset float64
	Linear []float64
	Quad   []Term

	adj [][]Neighbor
}

// Len returns the number of variables.
func (o *Objective) Len() int { return len(o.Linear) }

// Build formulates the path objective over the square cost matrix m for hops
// hops between the vertices at indices start and end.
func Build(m matrix.Matrix, hops, start, end int, opts Options) (*Objective, error) {
	costs, err := rowsOf(m)
	if err != nil {
		return nil, err
	}
	n := len(costs)
	allZero := true
	maxEntry := 0.0
	for _, row := range costs {
		for _, c := range row {
			if c != 0 {
				allZero = false
			}
			if c != Unreachable {
				maxEntry = math.Max(maxEntry, math.Abs(c))
			}
		}
	}
	if allZero {
		return nil, errs.InvalidInput("adjacency matrix is entirely zero")
	}
	if start < 0 || start >= n {
		return nil, errs.InvalidInput("start index %d out of range [0,%d)", start, n)
	}
	if end < 0 || end >= n {
		return nil, errs.InvalidInput("end index %d out of range [0,%d)", end, n)
	}
	if hops < 1 {
		return nil, errs.InvalidInput("hop count must be positive, got %d", hops)
	}
	if hops == 1 && start != end {
		return nil, errs.InfeasibleRequest("a single hop cannot start at %d and end at %d", start, end)
	}
	if opts.ExclusiveVisits {
		if hops > 1 && start == end {
			return nil, errs.InfeasibleRequest("exclusive visits cannot start and end at %d over %d hops", start, hops)
		}
		if hops > n {
			return nil, errs.InfeasibleRequest("exclusive visits need %d distinct vertices, matrix has %d", hops, n)
		}
	}

	floor := opts.PenaltyFloor
	if floor <= 0 {
		floor = DefaultPenaltyFloor
	}
	p := math.Max(floor, float64(hops)*maxEntry+1)

	lay := Layout{Hops: hops, Vertices: n}
	o := &Objective{
		Layout:          lay,
		Start:           start,
		End:             end,
		Penalty:         p,
		CostScale:       maxEntry,
		ExclusiveVisits: opts.ExclusiveVisits,
		Linear:          make([]float64, lay.Len()),
	}
	quad := map[[2]int]float64{}
	addQuad := func(a, b int, c float64) {
		if c == 0 {
			return
		}
		if a > b {
			a, b = b, a
		}
		quad[[2]int{a, b}] += c
	}

	for i := 0; i+1 < hops; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				c := costs[j][k]
				if c == Unreachable {
					c = p
				}
				addQuad(lay.Index(i, j), lay.Index(i+1, k), c)
			}
		}
	}

	// P*(1 - x)^2 == P - P*x
	o.Offset += 2 * p
	o.Linear[lay.Index(0, start)] -= p
	o.Linear[lay.Index(hops-1, end)] -= p

	// P*(1 - sum x)^2 == P - P*sum x + 2P*sum_{j<k} x_j x_k
	for i := 0; i < hops; i++ {
		o.Offset += p
		for j := 0; j < n; j++ {
			o.Linear[lay.Index(i, j)] -= p
			for k := j + 1; k < n; k++ {
				addQuad(lay.Index(i, j), lay.Index(i, k), 2*p)
			}
		}
	}

	// P*count*(count-1) == 2P*sum_{i<i'} x_i x_i'
	if opts.ExclusiveVisits {
		for j := 0; j < n; j++ {
			for i := 0; i < hops; i++ {
				for i2 := i + 1; i2 < hops; i2++ {
					addQuad(lay.Index(i, j), lay.Index(i2, j), 2*p)
				}
			}
		}
	}

	o.Quad = make([]Term, 0, len(quad))
	for k, c := range quad {
		if c != 0 {
			o.Quad = append(o.Quad, Term{I: k[0], J: k[1], Coef: c})
		}
	}
	slices.SortFunc(o.Quad, func(a, b Term) int {
		if a.I != b.I {
			return a.I - b.I
		}
		return a.J - b.J
	})
	o.buildAdjacency()
	log.Debugf("objective: %d hops x %d vertices, %d quadratic terms, penalty %g", hops, n, len(o.Quad), p)
	return o, nil
}

func (o *Objective) buildAdjacency() {
	o.adj = make([][]Neighbor, len(o.Linear))
	for _, t := range o.Quad {
		o.adj[t.I] = append(o.adj[t.I], Neighbor{Var: t.J, Coef: t.Coef})
		o.adj[t.J] = append(o.adj[t.J], Neighbor{Var: t.I, Coef: t.Coef})
	}
}

// Neighbors returns the variables sharing a quadratic term with v.
func (o *Objective) Neighbors(v int) []Neighbor {
	if o.adj == nil {
		o.buildAdjacency()
	}
	return o.adj[v]
}

// Evaluate returns the objective value at x.
func (o *Objective) Evaluate(x []uint8) float64 {
	e := o.Offset
	for i, c := range o.Linear {
		if x[i] == 1 {
			e += c
		}
	}
	for _, t := range o.Quad {
		if x[t.I] == 1 && x[t.J] == 1 {
			e += t.Coef
		}
	}
	return e
}

// FlipDelta returns the change in objective value if variable v were flipped.
func (o *Objective) FlipDelta(x []uint8, v int) float64 {
	d := o.Linear[v]
	for _, nb := range o.Neighbors(v) {
		if x[nb.Var] == 1 {
			d += nb.Coef
		}
	}
	if x[v] == 1 {
		return -d
	}
	return d
}

// Violations lists the constraints an assignment breaks.
type Violations struct {
	Start bool `json:"start,omitempty"`
	End   bool `json:"end,omitempty"`
	// EmptyHops and CrowdedHops select zero and several vertices respectively.
	EmptyHops   []int `json:"emptyHops,omitempty"`
	CrowdedHops []int `json:"crowdedHops,omitempty"`
	// Revisited vertices appear at more than one hop. Only checked with
	// ExclusiveVisits.
	Revisited []int `json:"revisited,omitempty"`
}

// Feasible reports whether no constraint is broken.
func (v Violations) Feasible() bool {
	return !v.Start && !v.End && len(v.EmptyHops) == 0 && len(v.CrowdedHops) == 0 && len(v.Revisited) == 0
}

// Check reports the constraints x violates.
func (o *Objective) Check(x []uint8) Violations {
	lay := o.Layout
	var v Violations
	v.Start = x[lay.Index(0, o.Start)] != 1
	v.End = x[lay.Index(lay.Hops-1, o.End)] != 1
	for i := 0; i < lay.Hops; i++ {
		count := 0
		for j := 0; j < lay.Vertices; j++ {
			count += int(x[lay.Index(i, j)])
		}
		switch {
		case count == 0:
			v.EmptyHops = append(v.EmptyHops, i)
		case count > 1:
			v.CrowdedHops = append(v.CrowdedHops, i)
		}
	}
	if o.ExclusiveVisits {
		for j := 0; j < lay.Vertices; j++ {
			count := 0
			for i := 0; i < lay.Hops; i++ {
				count += int(x[lay.Index(i, j)])
			}
			if count > 1 {
				v.Revisited = append(v.Revisited, j)
			}
		}
	}
	return v
}

// TransitionCost sums the matrix cost over consecutive selected vertices of
// a feasible assignment.
func TransitionCost(m matrix.Matrix, lay Layout, x []uint8) float64 {
	total := 0.0
	for i := 0; i+1 < lay.Hops; i++ {
		for j := 0; j < lay.Vertices; j++ {
			if x[lay.Index(i, j)] != 1 {
				continue
			}
			for k := 0; k < lay.Vertices; k++ {
				if x[lay.Index(i+1, k)] == 1 {
					c, _ := m.At(j, k)
					total += c
				}
			}
		}
	}
	return total
}

// Assignment returns the feasible assignment visiting path[i] at hop i.
func (o *Objective) Assignment(path []int) []uint8 {
	x := make([]uint8, o.Len())
	for i, j := range path {
		if i < o.Layout.Hops && j >= 0 && j < o.Layout.Vertices {
			x[o.Layout.Index(i, j)] = 1
		}
	}
	return x
}
