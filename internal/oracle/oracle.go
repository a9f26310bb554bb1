// Package oracle minimizes binary quadratic objectives.
//
// An Oracle returns its best assignment together with a Status. The
// assignment may violate the encoded constraints; callers decide what an
// infeasible or unknown status means for them.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"qroute/internal/qubo"
)

var log = logrus.WithField("module", "oracle")

type Status string

const (
	// StatusOptimal: the search was exhaustive and the minimum is feasible.
	StatusOptimal Status = "optimal"
	// StatusFeasible: a heuristic finished its budget. The assignment may
	// still break constraints; see Result.Violations.
	StatusFeasible Status = "feasible"
	// StatusInfeasible: the exhaustive minimum still violates a constraint.
	StatusInfeasible Status = "infeasible"
	// StatusUnknown: the caller's context ended before the search did.
	StatusUnknown Status = "unknown"
)

// OK reports whether a result with this status may be decoded.
func (s Status) OK() bool { return s == StatusOptimal || s == StatusFeasible }

// Options bound a single Minimize call. Zero values select the oracle's
// defaults.
type Options struct {
	// Seed drives stochastic oracles. Zero draws a fresh seed per call.
	Seed          int64
	TimeBudget    time.Duration
	MaxIterations int
	InitialTemp   float64
	Cooling       float64
}

// Result is the outcome of one minimization.
type Result struct {
	Assignment []uint8
	Value      float64
	Status     Status
	Oracle     string
	Seed       int64
	Elapsed    time.Duration
	// Violations is nil when Assignment satisfies every constraint.
	Violations *qubo.Violations
	// Metrics is set by the annealing oracle.
	Metrics *Metrics
}

func violations(o *qubo.Objective, x []uint8) *qubo.Violations {
	v := o.Check(x)
	if v.Feasible() {
		return nil
	}
	return &v
}

// Variables returns the assignment keyed by variable name.
func (r Result) Variables(lay qubo.Layout) map[string]uint8 {
	return lay.Named(r.Assignment)
}

// Oracle minimizes an objective.
type Oracle interface {
	Name() string
	Minimize(ctx context.Context, o *qubo.Objective, opts Options) (Result, error)
}

// Algorithm names accepted by New.
const (
	AlgoAuto      = "auto"
	AlgoExact     = "exact"
	AlgoAnnealing = "annealing"
)

// New returns the oracle registered under algo.
func New(algo string, maxExactVars int) (Oracle, error) {
	switch algo {
	case AlgoExact:
		return Exact{MaxVars: maxExactVars}, nil
	case AlgoAnnealing:
		return Annealing{}, nil
	case "", AlgoAuto:
		return Auto{Exact: Exact{MaxVars: maxExactVars}}, nil
	default:
		return nil, fmt.Errorf("unknown solver algorithm %q", algo)
	}
}

// Auto enumerates small objectives exactly and anneals larger ones.
type Auto struct {
	Exact     Exact
	Annealing Annealing
}

func (Auto) Name() string { return AlgoAuto }

func (a Auto) Minimize(ctx context.Context, o *qubo.Objective, opts Options) (Result, error) {
	if o.Len() <= a.Exact.limit() {
		return a.Exact.Minimize(ctx, o, opts)
	}
	return a.Annealing.Minimize(ctx, o, opts)
}
