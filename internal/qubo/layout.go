package qubo

import (
	"fmt"

	"qroute/internal/errs"
)

// Layout maps the hop x vertex variable grid onto a flat index:
// variable (hop, vertex) lives at hop*Vertices + vertex.
type Layout struct {
	Hops     int `json:"hops"`
	Vertices int `json:"vertices"`
}

// Len returns the number of binary variables.
func (l Layout) Len() int { return l.Hops * l.Vertices }

func (l Layout) Index(hop, vertex int) int { return hop*l.Vertices + vertex }

// Split is the inverse of Index.
func (l Layout) Split(i int) (hop, vertex int) { return i / l.Vertices, i % l.Vertices }

// Name returns the variable name x_<hop>_<vertex>.
func (l Layout) Name(i int) string {
	hop, vertex := l.Split(i)
	return fmt.Sprintf("x_%d_%d", hop, vertex)
}

// Parse resolves a variable name produced by Name.
func (l Layout) Parse(name string) (int, error) {
	var hop, vertex int
	if _, err := fmt.Sscanf(name, "x_%d_%d", &hop, &vertex); err != nil {
		return 0, errs.InvalidInput("variable %q: %v", name, err)
	}
	if hop < 0 || hop >= l.Hops || vertex < 0 || vertex >= l.Vertices {
		return 0, errs.InvalidInput("variable %q outside %dx%d grid", name, l.Hops, l.Vertices)
	}
	return l.Index(hop, vertex), nil
}

// Named converts a flat assignment into the variable-name mapping used at the
// oracle boundary.
func (l Layout) Named(x []uint8) map[string]uint8 {
	out := make(map[string]uint8, len(x))
	for i, v := range x {
		out[l.Name(i)] = v
	}
	return out
}

// FromNamed is the inverse of Named. Missing variables are zero.
func (l Layout) FromNamed(m map[string]uint8) ([]uint8, error) {
	x := make([]uint8, l.Len())
	for name, v := range m {
		i, err := l.Parse(name)
		if err != nil {
			return nil, err
		}
		if v > 1 {
			return nil, errs.InvalidInput("variable %s has non-binary value %d", name, v)
		}
		x[i] = v
	}
	return x, nil
}
