package oracle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/errs"
	"qroute/internal/qubo"
)

const noEdge = 1e7

func dense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := qubo.FromRows(rows)
	require.NoError(t, err)
	return m
}

// S=0, A=1, B=2, T=3
func diamond(t *testing.T, hops int) *qubo.Objective {
	t.Helper()
	m := [][]float64{
		{0, 1, 100, noEdge},
		{1, 0, noEdge, 1},
		{100, noEdge, 0, 100},
		{noEdge, 1, 100, 0},
	}
	o, err := qubo.Build(dense(t, m), hops, 0, 3, qubo.Options{})
	require.NoError(t, err)
	return o
}

func path(o *qubo.Objective, x []uint8) []int {
	var out []int
	for i, v := range x {
		if v == 1 {
			_, j := o.Layout.Split(i)
			out = append(out, j)
		}
	}
	return out
}

func TestExactFindsCheapestPath(t *testing.T) {
	o := diamond(t, 3)
	res, err := Exact{}.Minimize(context.Background(), o, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, res.Status)
	assert.Nil(t, res.Violations)
	assert.Equal(t, 2.0, res.Value)
	assert.Equal(t, []int{0, 1, 3}, path(o, res.Assignment))

	vars := res.Variables(o.Layout)
	assert.Equal(t, uint8(1), vars["x_1_1"])
	assert.Equal(t, uint8(0), vars["x_1_2"])
}

// startIsDear returns an objective whose minimum leaves the start vertex
// unselected: leaving from it costs more than breaking the constraint.
func startIsDear(t *testing.T) *qubo.Objective {
	t.Helper()
	m := [][]float64{{0, 5}, {5, 0}}
	o, err := qubo.Build(dense(t, m), 2, 0, 1, qubo.Options{ExclusiveVisits: true, PenaltyFloor: 1})
	require.NoError(t, err)
	o.Linear[o.Layout.Index(0, 0)] = 1000
	return o
}

func TestExactReportsInfeasibleMinimum(t *testing.T) {
	o := startIsDear(t)
	res, err := Exact{}.Minimize(context.Background(), o, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.False(t, res.Status.OK())
	assert.Equal(t, uint8(0), res.Assignment[o.Layout.Index(0, 0)])
	require.NotNil(t, res.Violations)
	assert.True(t, res.Violations.Start)
}

func TestExactRejectsLargeObjectives(t *testing.T) {
	o := diamond(t, 3)
	_, err := Exact{MaxVars: 8}.Minimize(context.Background(), o, Options{})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestExactCancelled(t *testing.T) {
	m := make([][]float64, 6)
	for i := range m {
		m[i] = make([]float64, 6)
		for j := range m[i] {
			if i != j {
				m[i][j] = float64(1 + (i+j)%5)
			}
		}
	}
	o, err := qubo.Build(dense(t, m), 3, 0, 5, qubo.Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Exact{MaxVars: 18}.Minimize(ctx, o, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Len(t, res.Assignment, 18)
}

func TestAnnealingFindsCheapestPath(t *testing.T) {
	o := diamond(t, 3)
	res, err := Annealing{}.Minimize(context.Background(), o, Options{Seed: 7, TimeBudget: 10 * time.Second, MaxIterations: 200})
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, res.Status)
	assert.Nil(t, res.Violations)
	assert.Equal(t, 2.0, res.Value)
	assert.Equal(t, []int{0, 1, 3}, path(o, res.Assignment))
	assert.Equal(t, int64(7), res.Seed)

	require.NotNil(t, res.Metrics)
	assert.Equal(t, 200, res.Metrics.Iterations)
	assert.Equal(t, 200*o.Len(), res.Metrics.OpSelects[opFlip]+res.Metrics.OpSelects[opHop])
	assert.Len(t, res.Metrics.Snapshots, 4)
	assert.Equal(t, 2.0, res.Metrics.BestEnergy)
}

func TestAnnealingReportsViolations(t *testing.T) {
	o := startIsDear(t)
	res, err := Annealing{}.Minimize(context.Background(), o, Options{Seed: 3, TimeBudget: 10 * time.Second, MaxIterations: 100})
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, res.Status)
	require.NotNil(t, res.Violations)
	assert.True(t, res.Violations.Start)
	assert.Equal(t, uint8(0), res.Assignment[o.Layout.Index(0, 0)])
}

func TestAnnealingSeedIsReproducible(t *testing.T) {
	o := diamond(t, 4)
	opts := Options{Seed: 42, TimeBudget: 10 * time.Second, MaxIterations: 50}
	a, err := Annealing{}.Minimize(context.Background(), o, opts)
	require.NoError(t, err)
	b, err := Annealing{}.Minimize(context.Background(), o, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Assignment, b.Assignment)
	assert.Equal(t, a.Metrics.OpSelects, b.Metrics.OpSelects)
	assert.Equal(t, a.Metrics.FinalWeights, b.Metrics.FinalWeights)
}

func TestAnnealingCancelledIsUnknown(t *testing.T) {
	o := diamond(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Annealing{}.Minimize(ctx, o, Options{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, res.Status)
	// the seed assignment is still returned
	assert.Equal(t, []int{0, 0, 3}, path(o, res.Assignment))
}

func TestAutoSelectsBySize(t *testing.T) {
	o := diamond(t, 3)
	res, err := Auto{}.Minimize(context.Background(), o, Options{})
	require.NoError(t, err)
	assert.Equal(t, AlgoExact, res.Oracle)

	res, err = Auto{Exact: Exact{MaxVars: 4}}.Minimize(context.Background(), o, Options{Seed: 3, MaxIterations: 20, TimeBudget: time.Second})
	require.NoError(t, err)
	assert.Equal(t, AlgoAnnealing, res.Oracle)
}

func TestNew(t *testing.T) {
	for _, algo := range []string{"", AlgoAuto, AlgoExact, AlgoAnnealing} {
		o, err := New(algo, 0)
		require.NoError(t, err, algo)
		assert.NotEmpty(t, o.Name())
	}
	_, err := New("quantum", 0)
	assert.Error(t, err)
}

func TestMetricsStore(t *testing.T) {
	s := NewMetricsStore(3)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		algo := AlgoExact
		if i%2 == 1 {
			algo = AlgoAnnealing
		}
		s.Record(SolveRecord{SolveID: fmt.Sprint(i), Oracle: algo, At: base.Add(time.Duration(i) * time.Minute)})
	}
	all := s.List("", 0)
	require.Len(t, all, 3)
	assert.Equal(t, "4", all[0].SolveID)
	assert.Equal(t, "2", all[2].SolveID)

	_, ok := s.Get("0")
	assert.False(t, ok)
	r, ok := s.Get("3")
	require.True(t, ok)
	assert.Equal(t, AlgoAnnealing, r.Oracle)

	assert.Len(t, s.List(AlgoExact, 0), 2)
	assert.Len(t, s.List("", 1), 1)
}
