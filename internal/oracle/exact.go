package oracle

import (
	"context"
	"math/bits"
	"time"

	"qroute/internal/errs"
	"qroute/internal/qubo"
)

// DefaultMaxExactVars caps exhaustive enumeration at 2^22 assignments.
const DefaultMaxExactVars = 22

// ctxCheckMask sets how often enumeration polls the context.
const ctxCheckMask = 1<<16 - 1

// Exact enumerates every assignment in Gray-code order, so consecutive
// assignments differ by one flipped variable and the objective is updated
// incrementally.
type Exact struct {
	MaxVars int
}

func (Exact) Name() string { return AlgoExact }

func (e Exact) limit() int {
	if e.MaxVars <= 0 {
		return DefaultMaxExactVars
	}
	return e.MaxVars
}

func (e Exact) Minimize(ctx context.Context, o *qubo.Objective, _ Options) (Result, error) {
	n := o.Len()
	if n == 0 {
		return Result{}, errs.InvalidInput("objective has no variables")
	}
	if n > e.limit() || n >= 63 {
		return Result{}, errs.InvalidInput("%d variables exceed the exact oracle limit of %d", n, e.limit())
	}
	began := time.Now()
	x := make([]uint8, n)
	best := make([]uint8, n)
	energy := o.Offset
	bestEnergy := energy
	res := Result{Oracle: AlgoExact}

	total := uint64(1) << uint(n)
	for k := uint64(1); k < total; k++ {
		if k&ctxCheckMask == 0 && ctx.Err() != nil {
			res.Status = StatusUnknown
			break
		}
		v := bits.TrailingZeros64(k)
		energy += o.FlipDelta(x, v)
		x[v] ^= 1
		if energy < bestEnergy {
			bestEnergy = energy
			copy(best, x)
		}
	}
	res.Assignment = best
	res.Value = o.Evaluate(best)
	res.Elapsed = time.Since(began)
	res.Violations = violations(o, best)
	if res.Status == "" {
		if res.Violations == nil {
			res.Status = StatusOptimal
		} else {
			res.Status = StatusInfeasible
		}
	}
	log.Debugf("exact: %d vars, value %g, status %s in %s", n, res.Value, res.Status, res.Elapsed)
	return res, nil
}
