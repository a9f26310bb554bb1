package qubo

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/errs"
)

const noEdge = 1e7

func dense(rows [][]float64) *matrix.Dense {
	m, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// S=0, A=1, B=2, T=3
func diamond() *matrix.Dense {
	return dense([][]float64{
		{0, 1, 100, noEdge},
		{1, 0, noEdge, 1},
		{100, noEdge, 0, 100},
		{noEdge, 1, 100, 0},
	})
}

func TestBuildFeasibleEqualsTransitionCost(t *testing.T) {
	m := diamond()
	o, err := Build(m, 3, 0, 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, 12, o.Len())
	assert.Equal(t, 3*noEdge+1, o.Penalty)

	for _, path := range [][]int{{0, 1, 3}, {0, 2, 3}, {0, 0, 3}, {0, 3, 3}} {
		x := o.Assignment(path)
		require.True(t, o.Check(x).Feasible(), "%v", path)
		assert.Equal(t, TransitionCost(m, o.Layout, x), o.Evaluate(x), "%v", path)
	}
	assert.Equal(t, 2.0, o.Evaluate(o.Assignment([]int{0, 1, 3})))
}

func TestViolationsCostMoreThanAnyPath(t *testing.T) {
	o, err := Build(diamond(), 3, 0, 3, Options{})
	require.NoError(t, err)

	worst := o.Evaluate(o.Assignment([]int{0, 3, 3})) // no-edge transition
	cases := map[string][]uint8{
		"empty":      make([]uint8, o.Len()),
		"wrongStart": o.Assignment([]int{1, 1, 3}),
		"wrongEnd":   o.Assignment([]int{0, 1, 1}),
	}
	crowded := o.Assignment([]int{0, 1, 3})
	crowded[o.Layout.Index(1, 2)] = 1
	cases["crowded"] = crowded

	for name, x := range cases {
		assert.False(t, o.Check(x).Feasible(), name)
		assert.Greater(t, o.Evaluate(x), worst, name)
	}
	v := o.Check(crowded)
	assert.Equal(t, []int{1}, v.CrowdedHops)
	assert.Empty(t, v.EmptyHops)
}

func TestExclusiveVisits(t *testing.T) {
	o, err := Build(diamond(), 3, 0, 3, Options{ExclusiveVisits: true})
	require.NoError(t, err)

	stay := o.Assignment([]int{0, 0, 3})
	v := o.Check(stay)
	assert.Equal(t, []int{0}, v.Revisited)
	assert.Greater(t, o.Evaluate(stay), o.Penalty)

	x := o.Assignment([]int{0, 1, 3})
	assert.True(t, o.Check(x).Feasible())
	assert.Equal(t, 2.0, o.Evaluate(x))
}

func TestExclusiveVisitsRejectsImpossibleRequests(t *testing.T) {
	two := dense([][]float64{{0, 1}, {1, 0}})

	_, err := Build(two, 3, 0, 0, Options{ExclusiveVisits: true})
	assert.ErrorIs(t, err, errs.ErrInfeasibleRequest)
	_, err = Build(two, 4, 0, 1, Options{ExclusiveVisits: true})
	assert.ErrorIs(t, err, errs.ErrInfeasibleRequest)

	_, err = Build(two, 2, 0, 1, Options{ExclusiveVisits: true})
	assert.NoError(t, err)
	_, err = Build(two, 3, 0, 0, Options{})
	assert.NoError(t, err)
}

func TestUnreachableCostsPenalty(t *testing.T) {
	m := dense([][]float64{
		{0, math.Inf(1), 1},
		{math.Inf(1), 0, 1},
		{1, 1, 0},
	})
	at, err := m.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, Unreachable, at)

	o, err := Build(m, 2, 0, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, o.CostScale)
	assert.Equal(t, DefaultPenaltyFloor, o.Penalty)
	assert.Equal(t, o.Penalty, o.Evaluate(o.Assignment([]int{0, 1})))
}

func TestFlipDelta(t *testing.T) {
	o, err := Build(diamond(), 3, 0, 3, Options{})
	require.NoError(t, err)
	x := o.Assignment([]int{0, 2, 3})
	base := o.Evaluate(x)
	for v := 0; v < o.Len(); v++ {
		d := o.FlipDelta(x, v)
		x[v] ^= 1
		assert.InDelta(t, o.Evaluate(x)-base, d, 1e-6, "var %s", o.Layout.Name(v))
		x[v] ^= 1
	}
}

func TestSingleHopDistinctEndpointsInfeasible(t *testing.T) {
	_, err := Build(diamond(), 1, 0, 3, Options{})
	assert.ErrorIs(t, err, errs.ErrInfeasibleRequest)

	o, err := Build(diamond(), 1, 2, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, o.Evaluate(o.Assignment([]int{2})))
}

func TestBuildInvalidInput(t *testing.T) {
	cases := map[string]func() error{
		"empty": func() error {
			_, err := Build(nil, 3, 0, 0, Options{})
			return err
		},
		"ragged": func() error {
			_, err := FromRows([][]float64{{0, 1}, {1}})
			return err
		},
		"nan": func() error {
			_, err := FromRows([][]float64{{0, math.NaN()}, {1, 0}})
			return err
		},
		"notSquare": func() error {
			m, err := matrix.NewDense(2, 3)
			require.NoError(t, err)
			_, err = Build(m, 3, 0, 1, Options{})
			return err
		},
		"allZero": func() error {
			_, err := Build(dense([][]float64{{0, 0}, {0, 0}}), 3, 0, 1, Options{})
			return err
		},
		"allZeroSingleVertex": func() error {
			_, err := Build(dense([][]float64{{0}}), 3, 0, 0, Options{})
			return err
		},
		"startOutOfRange": func() error {
			_, err := Build(diamond(), 3, -1, 3, Options{})
			return err
		},
		"endOutOfRange": func() error {
			_, err := Build(diamond(), 3, 0, 4, Options{})
			return err
		},
		"zeroHops": func() error {
			_, err := Build(diamond(), 0, 0, 3, Options{})
			return err
		},
	}
	for name, f := range cases {
		assert.ErrorIs(t, f(), errs.ErrInvalidInput, name)
	}
}

func TestPenaltyFloor(t *testing.T) {
	m := dense([][]float64{{0, 2}, {2, 0}})
	o, err := Build(m, 2, 0, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPenaltyFloor, o.Penalty)
	assert.Equal(t, 2.0, o.CostScale)

	o, err = Build(m, 2, 0, 1, Options{PenaltyFloor: 10})
	require.NoError(t, err)
	assert.Equal(t, 10.0, o.Penalty)
}

func TestLayoutNames(t *testing.T) {
	lay := Layout{Hops: 3, Vertices: 4}
	assert.Equal(t, "x_2_1", lay.Name(9))
	i, err := lay.Parse("x_2_1")
	require.NoError(t, err)
	assert.Equal(t, 9, i)

	_, err = lay.Parse("x_3_0")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = lay.Parse("y")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	x := []uint8{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 1}
	back, err := lay.FromNamed(lay.Named(x))
	require.NoError(t, err)
	assert.Equal(t, x, back)
}
