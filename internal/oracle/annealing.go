package oracle

import (
	"context"
	"math"
	"math/rand"
	"time"

	"qroute/internal/errs"
	"qroute/internal/qubo"
)

// Annealing defaults.
const (
	DefaultTimeBudget    = 300 * time.Millisecond
	DefaultMaxIterations = 2000
	DefaultCooling       = 0.99
	snapshotEvery        = 50
)

// Move operators picked by roulette wheel.
const (
	opFlip = iota // flip one variable
	opHop         // move a hop's selection to another vertex
	numOps
)

// Metrics describe one annealing run.
type Metrics struct {
	OpSelects     [numOps]int      `json:"opSelects"`
	Iterations    int              `json:"iterations"`
	Improvements  int              `json:"improvements"`
	AcceptedWorse int              `json:"acceptedWorse"`
	BestEnergy    float64          `json:"bestEnergy"`
	FinalEnergy   float64          `json:"finalEnergy"`
	FinalWeights  [numOps]float64  `json:"finalWeights"`
	Snapshots     []WeightSnapshot `json:"snapshots,omitempty"`
}

type WeightSnapshot struct {
	Iteration int             `json:"iteration"`
	Weights   [numOps]float64 `json:"weights"`
}

// Annealing is a simulated-annealing search over single-variable flips and
// within-hop moves, starting from the assignment that stays on the start
// vertex until the last hop. One iteration is a sweep of Len() moves; the
// temperature cools once per sweep.
type Annealing struct {
	Defaults Options
}

func (Annealing) Name() string { return AlgoAnnealing }

func (a Annealing) Minimize(ctx context.Context, o *qubo.Objective, opts Options) (Result, error) {
	n := o.Len()
	if n == 0 {
		return Result{}, errs.InvalidInput("objective has no variables")
	}
	opts = a.resolve(opts, o)
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	began := time.Now()
	deadline := began.Add(opts.TimeBudget)

	curr := seedAssignment(o)
	energy := o.Evaluate(curr)
	best := append([]uint8(nil), curr...)
	bestEnergy := energy
	weights := [numOps]float64{1, 1}
	temp := opts.InitialTemp
	m := Metrics{BestEnergy: bestEnergy}
	res := Result{Oracle: AlgoAnnealing, Seed: seed}

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			res.Status = StatusUnknown
			break
		}
		m.Iterations++
		for step := 0; step < n; step++ {
			op := selectOp(weights[:], rng)
			m.OpSelects[op]++
			var d float64
			var undo func()
			switch op {
			case opFlip:
				d, undo = flipMove(o, curr, rng)
			case opHop:
				d, undo = hopMove(o, curr, rng)
			}
			if d < 0 || rng.Float64() < math.Exp(-d/(temp+1e-9)) {
				energy += d
				if energy < bestEnergy {
					bestEnergy = energy
					copy(best, curr)
					weights[op] += 0.1
					m.Improvements++
					m.BestEnergy = bestEnergy
				} else if d > 0 {
					weights[op] += 0.01
					m.AcceptedWorse++
				}
			} else {
				undo()
				weights[op] = math.Max(0.01, weights[op]*0.999)
			}
		}
		temp *= opts.Cooling
		if m.Iterations%snapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, WeightSnapshot{Iteration: m.Iterations, Weights: weights})
		}
		if m.Iterations >= opts.MaxIterations {
			break
		}
	}
	if res.Status == "" {
		res.Status = StatusFeasible
	}
	res.Assignment = best
	res.Value = o.Evaluate(best)
	res.Violations = violations(o, best)
	res.Elapsed = time.Since(began)
	m.FinalEnergy = res.Value
	m.FinalWeights = weights
	res.Metrics = &m
	log.Debugf("annealing: %d vars, %d sweeps, value %g, status %s in %s", n, m.Iterations, res.Value, res.Status, res.Elapsed)
	if res.Violations != nil {
		log.Debugf("annealing: best assignment violates %+v", *res.Violations)
	}
	return res, nil
}

func (a Annealing) resolve(opts Options, o *qubo.Objective) Options {
	if opts.Seed == 0 {
		opts.Seed = a.Defaults.Seed
	}
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = a.Defaults.TimeBudget
	}
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = DefaultTimeBudget
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = a.Defaults.MaxIterations
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.InitialTemp <= 0 {
		opts.InitialTemp = a.Defaults.InitialTemp
	}
	if opts.InitialTemp <= 0 {
		opts.InitialTemp = math.Max(1, o.CostScale)
	}
	if opts.Cooling <= 0 || opts.Cooling >= 1 {
		opts.Cooling = a.Defaults.Cooling
	}
	if opts.Cooling <= 0 || opts.Cooling >= 1 {
		opts.Cooling = DefaultCooling
	}
	return opts
}

// seedAssignment waits on the start vertex and moves to the end vertex at
// the last hop. It satisfies every constraint except, with ExclusiveVisits,
// the revisit one.
func seedAssignment(o *qubo.Objective) []uint8 {
	lay := o.Layout
	x := make([]uint8, o.Len())
	for i := 0; i < lay.Hops-1; i++ {
		x[lay.Index(i, o.Start)] = 1
	}
	x[lay.Index(lay.Hops-1, o.End)] = 1
	return x
}

func flipMove(o *qubo.Objective, x []uint8, rng *rand.Rand) (float64, func()) {
	v := rng.Intn(len(x))
	d := o.FlipDelta(x, v)
	x[v] ^= 1
	return d, func() { x[v] ^= 1 }
}

// hopMove deselects one vertex at a random hop and selects another. A hop
// with nothing selected just gains a vertex.
func hopMove(o *qubo.Objective, x []uint8, rng *rand.Rand) (float64, func()) {
	lay := o.Layout
	hop := rng.Intn(lay.Hops)
	var selected []int
	for j := 0; j < lay.Vertices; j++ {
		if x[lay.Index(hop, j)] == 1 {
			selected = append(selected, lay.Index(hop, j))
		}
	}
	in := lay.Index(hop, rng.Intn(lay.Vertices))
	if len(selected) == 0 || lay.Vertices == 1 {
		d := o.FlipDelta(x, in)
		x[in] ^= 1
		return d, func() { x[in] ^= 1 }
	}
	out := selected[rng.Intn(len(selected))]
	if in == out || x[in] == 1 {
		return 0, func() {}
	}
	d := o.FlipDelta(x, out)
	x[out] = 0
	d += o.FlipDelta(x, in)
	x[in] = 1
	return d, func() { x[in], x[out] = 0, 1 }
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
