// Package decode turns a raw hop x vertex assignment into a vertex path.
//
// Hops that select zero or several vertices are not an error: every selected
// vertex is kept in hop order and the path is flagged Degraded. A degraded
// path may not start or end at the requested vertices.
package decode

import (
	"github.com/samber/lo"

	"qroute/internal/errs"
	"qroute/internal/qubo"
)

// Path is a decoded route.
type Path struct {
	// Vertices are graph indices in visiting order, first occurrence kept.
	Vertices    []int `json:"vertices"`
	Degraded    bool  `json:"degraded"`
	EmptyHops   []int `json:"emptyHops,omitempty"`
	CrowdedHops []int `json:"crowdedHops,omitempty"`
}

// Decode walks the hops in order, collects the selected vertices and drops
// repeats.
func Decode(x []uint8, lay qubo.Layout) (Path, error) {
	if lay.Hops <= 0 || lay.Vertices <= 0 {
		return Path{}, errs.InvalidInput("empty variable layout %dx%d", lay.Hops, lay.Vertices)
	}
	if len(x) != lay.Len() {
		return Path{}, errs.InvalidInput("assignment has %d variables, layout needs %d", len(x), lay.Len())
	}
	var p Path
	raw := make([]int, 0, lay.Hops)
	for i := 0; i < lay.Hops; i++ {
		count := 0
		for j := 0; j < lay.Vertices; j++ {
			if x[lay.Index(i, j)] == 1 {
				raw = append(raw, j)
				count++
			}
		}
		switch {
		case count == 0:
			p.EmptyHops = append(p.EmptyHops, i)
		case count > 1:
			p.CrowdedHops = append(p.CrowdedHops, i)
		}
	}
	p.Vertices = lo.Uniq(raw)
	p.Degraded = len(p.EmptyHops) > 0 || len(p.CrowdedHops) > 0
	return p, nil
}

// DecodeNamed decodes an assignment keyed by variable name.
func DecodeNamed(vars map[string]uint8, lay qubo.Layout) (Path, error) {
	x, err := lay.FromNamed(vars)
	if err != nil {
		return Path{}, err
	}
	return Decode(x, lay)
}

// Reaches reports whether the path starts at start and ends at end.
func (p Path) Reaches(start, end int) bool {
	return len(p.Vertices) > 0 && p.Vertices[0] == start && p.Vertices[len(p.Vertices)-1] == end
}
