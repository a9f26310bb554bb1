package route

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/earth"
	"qroute/internal/errs"
	"qroute/internal/geo"
	"qroute/internal/oracle"
	"qroute/internal/population"
	"qroute/internal/qubo"
)

var (
	ptS = earth.Point{Lng: -74.00, Lat: 40.700}
	// ~3 km north of S
	ptT   = earth.Point{Lng: -74.00, Lat: 40.727}
	ptMid = earth.Point{Lng: -74.00, Lat: 40.7135}
	// east of the S-T rectangle
	ptFar = earth.Point{Lng: -73.95, Lat: 40.71}
	// ~0.5 km of longitude at 40.7N
	east = 0.5 / (earth.EarthRadiusKm * 0.0174533 * 0.758)
)

// One sample 0.5 km east of S, T and the midpoint gives the three equal
// weights, so the two-leg detour is cheaper than the direct S-T edge.
func testBase(t *testing.T) *geo.Graph {
	t.Helper()
	pop, err := population.NewIndex([]population.Sample{
		{Point: earth.Point{Lng: ptS.Lng + east, Lat: ptS.Lat}, Population: 1000},
		{Point: earth.Point{Lng: ptT.Lng + east, Lat: ptT.Lat}, Population: 1000},
		{Point: earth.Point{Lng: ptMid.Lng + east, Lat: ptMid.Lat}, Population: 1000},
	})
	require.NoError(t, err)
	g := geo.New(pop, geo.DefaultOptions())
	for _, p := range []earth.Point{ptMid, ptFar} {
		_, err := g.AddVertex(geo.NewVertex(p))
		require.NoError(t, err)
	}
	return g
}

func newService(t *testing.T, o oracle.Oracle, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DefaultHops = 3
	if mutate != nil {
		mutate(&cfg)
	}
	return NewService(testBase(t), o, cfg, oracle.NewMetricsStore(16))
}

func pt(p earth.Point) *earth.Point { return &p }

func TestFindPathPrefersDetour(t *testing.T) {
	s := newService(t, oracle.Exact{}, nil)
	res, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT)})
	require.NoError(t, err)
	assert.Equal(t, oracle.StatusOptimal, res.Status)
	assert.Equal(t, []earth.Point{ptS, ptMid, ptT}, res.Path)
	assert.False(t, res.Degraded)
	assert.Equal(t, 3, res.GraphSize, "far vertex must be culled")
	assert.Equal(t, 9, res.Variables)
	assert.NotEmpty(t, res.SolveID)

	rec, ok := s.metrics.Get(res.SolveID)
	require.True(t, ok)
	assert.Equal(t, oracle.AlgoExact, rec.Oracle)
}

func TestFindPathWithoutCull(t *testing.T) {
	s := newService(t, oracle.Exact{}, func(c *Config) { c.Cull = false })
	res, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT)})
	require.NoError(t, err)
	assert.Equal(t, 4, res.GraphSize)
	assert.Equal(t, []earth.Point{ptS, ptMid, ptT}, res.Path)
}

func TestFindPathDirectWhenOneHopShort(t *testing.T) {
	s := newService(t, oracle.Exact{}, nil)
	res, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT), Hops: 2})
	require.NoError(t, err)
	assert.Equal(t, []earth.Point{ptS, ptT}, res.Path)
}

func TestFindPathLeavesBaseUntouched(t *testing.T) {
	s := newService(t, oracle.Exact{}, nil)
	before, err := s.Base().GenMatrix()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, s.Base().Len())
	after, err := s.Base().GenMatrix()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	require.NoError(t, s.Base().Check())
}

func TestFindPathInputErrors(t *testing.T) {
	s := newService(t, oracle.Exact{}, nil)
	ctx := context.Background()

	_, err := s.FindPath(ctx, Request{End: pt(ptT)})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = s.FindPath(ctx, Request{Start: pt(ptS)})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = s.FindPath(ctx, Request{Start: pt(earth.Point{Lat: 91}), End: pt(ptT)})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = s.FindPath(ctx, Request{Start: pt(ptS), End: pt(ptT), Hops: 9})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestFindPathSingleHopInfeasible(t *testing.T) {
	spy := &spyOracle{}
	s := newService(t, spy, nil)
	_, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT), Hops: 1})
	assert.ErrorIs(t, err, errs.ErrInfeasibleRequest)
	assert.Equal(t, 0, spy.calls, "oracle must not run")
}

func TestFindPathOracleStatusFailure(t *testing.T) {
	for _, status := range []oracle.Status{oracle.StatusUnknown, oracle.StatusInfeasible} {
		s := newService(t, &spyOracle{status: status}, nil)
		_, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT)})
		assert.ErrorIs(t, err, errs.ErrOracleFailure, string(status))
	}
}

func TestFindPathDegraded(t *testing.T) {
	spy := &spyOracle{
		status: oracle.StatusFeasible,
		assign: func(o *qubo.Objective) []uint8 {
			x := make([]uint8, o.Len())
			x[o.Layout.Index(0, o.Start)] = 1
			x[o.Layout.Index(1, 0)] = 1
			x[o.Layout.Index(1, o.End)] = 1
			return x
		},
	}
	s := newService(t, spy, nil)
	res, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT), Seed: 99})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []earth.Point{ptS, ptMid, ptT}, res.Path)
	assert.Equal(t, int64(99), spy.seed)
}

func TestSetBase(t *testing.T) {
	s := newService(t, oracle.Exact{}, nil)
	s.SetBase(geo.New(nil, geo.DefaultOptions()))
	assert.Equal(t, 0, s.Base().Len())
	res, err := s.FindPath(context.Background(), Request{Start: pt(ptS), End: pt(ptT)})
	require.NoError(t, err)
	assert.Equal(t, []earth.Point{ptS, ptT}, res.Path)
}

type spyOracle struct {
	status oracle.Status
	assign func(*qubo.Objective) []uint8
	calls  int
	seed   int64
}

func (*spyOracle) Name() string { return "spy" }

func (s *spyOracle) Minimize(_ context.Context, o *qubo.Objective, opts oracle.Options) (oracle.Result, error) {
	s.calls++
	s.seed = opts.Seed
	x := make([]uint8, o.Len())
	if s.assign != nil {
		x = s.assign(o)
	}
	return oracle.Result{Assignment: x, Value: o.Evaluate(x), Status: s.status, Oracle: "spy"}, nil
}
