// Package route answers bounded-hop path requests between two coordinates.
//
// Each request works on a clone of the shared base graph: the endpoints are
// inserted and scored, the clone is culled to the endpoints' rectangle, and
// the resulting matrix is formulated, minimized and decoded.
package route

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"qroute/internal/decode"
	"qroute/internal/earth"
	"qroute/internal/errs"
	"qroute/internal/geo"
	"qroute/internal/oracle"
	"qroute/internal/qubo"
)

var log = logrus.WithField("module", "route")

type Config struct {
	DefaultHops      int
	MaxHops          int
	ConnectEndpoints bool
	Cull             bool
	SolveTimeout     time.Duration
	QUBO             qubo.Options
	Solver           oracle.Options
}

// DefaultConfig mirrors config.Default.
func DefaultConfig() Config {
	return Config{
		DefaultHops:      4,
		MaxHops:          8,
		ConnectEndpoints: true,
		Cull:             true,
		SolveTimeout:     10 * time.Second,
		QUBO:             qubo.Options{PenaltyFloor: qubo.DefaultPenaltyFloor},
	}
}

// Request names the endpoints. Zero Hops selects the default; zero Seed a
// fresh one.
type Request struct {
	Start *earth.Point
	End   *earth.Point
	Hops  int
	Seed  int64
}

type Result struct {
	Path      []earth.Point
	Vertices  []int
	Degraded  bool
	Status    oracle.Status
	Objective float64
	Hops      int
	GraphSize int
	Variables int
	Oracle    string
	Seed      int64
	SolveID   string
	Elapsed   time.Duration
	Metrics   *oracle.Metrics
}

type Service struct {
	mu      *xsync.RBMutex
	base    *geo.Graph
	oracle  oracle.Oracle
	cfg     Config
	metrics *oracle.MetricsStore
}

// NewService serves requests against base. A nil metrics store disables
// solve bookkeeping.
func NewService(base *geo.Graph, o oracle.Oracle, cfg Config, metrics *oracle.MetricsStore) *Service {
	if base == nil {
		base = geo.New(nil, geo.DefaultOptions())
	}
	if cfg.DefaultHops <= 0 {
		cfg.DefaultHops = DefaultConfig().DefaultHops
	}
	if cfg.MaxHops < cfg.DefaultHops {
		cfg.MaxHops = cfg.DefaultHops
	}
	return &Service{mu: xsync.NewRBMutex(), base: base, oracle: o, cfg: cfg, metrics: metrics}
}

func (s *Service) Config() Config { return s.cfg }

func (s *Service) Oracle() oracle.Oracle { return s.oracle }

// Base returns the current base graph. Callers must not mutate it.
func (s *Service) Base() *geo.Graph {
	t := s.mu.RLock()
	defer s.mu.RUnlock(t)
	return s.base
}

// SetBase swaps in a new base graph. In-flight requests keep their clones.
func (s *Service) SetBase(g *geo.Graph) {
	s.mu.Lock()
	s.base = g
	s.mu.Unlock()
}

func (s *Service) snapshot() *geo.Graph {
	t := s.mu.RLock()
	defer s.mu.RUnlock(t)
	return s.base.Clone()
}

// FindPath computes the cheapest route of at most Hops vertices from Start
// to End. A path decoded from a constraint-violating assignment is returned
// with Degraded set rather than as an error.
func (s *Service) FindPath(ctx context.Context, req Request) (Result, error) {
	began := time.Now()
	if err := checkPoint("start", req.Start); err != nil {
		return Result{}, err
	}
	if err := checkPoint("end", req.End); err != nil {
		return Result{}, err
	}
	hops := req.Hops
	if hops == 0 {
		hops = s.cfg.DefaultHops
	}
	if hops < 1 || hops > s.cfg.MaxHops {
		return Result{}, errs.InvalidInput("hops must be in [1,%d], got %d", s.cfg.MaxHops, hops)
	}

	g := s.snapshot()
	sv, tv := geo.NewVertex(*req.Start), geo.NewVertex(*req.End)
	si, err := g.AddVertex(sv)
	if err != nil {
		return Result{}, err
	}
	ti, err := g.AddVertex(tv)
	if err != nil {
		return Result{}, err
	}
	if s.cfg.ConnectEndpoints {
		if _, err := g.ConnectVertices(si, ti); err != nil {
			return Result{}, err
		}
	}
	if s.cfg.Cull {
		if _, err := g.CullNotInRect(sv, tv); err != nil {
			return Result{}, err
		}
	}
	if g.Len() < 2 {
		return Result{}, errs.InvalidInput("no path-relevant vertices between the endpoints")
	}
	if err := g.Check(); err != nil {
		return Result{}, err
	}
	si, _ = g.IndexOf(sv)
	ti, _ = g.IndexOf(tv)

	m, err := g.GenMatrix()
	if err != nil {
		return Result{}, err
	}
	obj, err := qubo.Build(m, hops, si, ti, s.cfg.QUBO)
	if err != nil {
		return Result{}, err
	}

	solveCtx := ctx
	if s.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.cfg.SolveTimeout)
		defer cancel()
	}
	opts := s.cfg.Solver
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	sol, err := s.oracle.Minimize(solveCtx, obj, opts)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidInput) {
			return Result{}, err
		}
		return Result{}, errs.OracleFailure("%s: %v", s.oracle.Name(), err)
	}
	res := Result{
		Status:    sol.Status,
		Objective: sol.Value,
		Hops:      hops,
		GraphSize: g.Len(),
		Variables: obj.Len(),
		Oracle:    sol.Oracle,
		Seed:      sol.Seed,
		SolveID:   uuid.NewString(),
		Metrics:   sol.Metrics,
	}
	if s.metrics != nil {
		s.metrics.Record(oracle.SolveRecord{
			SolveID:    res.SolveID,
			Oracle:     sol.Oracle,
			Status:     sol.Status,
			Variables:  obj.Len(),
			Value:      sol.Value,
			Seed:       sol.Seed,
			Elapsed:    sol.Elapsed,
			Violations: sol.Violations,
			Metrics:    sol.Metrics,
		})
	}
	if !sol.Status.OK() {
		return res, errs.OracleFailure("%s reported %s", sol.Oracle, sol.Status)
	}

	p, err := decode.Decode(sol.Assignment, obj.Layout)
	if err != nil {
		return res, err
	}
	res.Vertices = p.Vertices
	res.Degraded = p.Degraded
	res.Path = lo.Map(p.Vertices, func(i int, _ int) earth.Point {
		v, _ := g.Vertex(i)
		return v.Point
	})
	res.Elapsed = time.Since(began)
	if p.Degraded {
		log.Warnf("degraded path: empty hops %v, crowded hops %v", p.EmptyHops, p.CrowdedHops)
	}
	log.Debugf("path: %d hops over %d vertices (%d vars), %s %s value %g, %d stops in %s",
		hops, res.GraphSize, res.Variables, res.Oracle, res.Status, res.Objective, len(res.Path), res.Elapsed)
	return res, nil
}

func checkPoint(name string, p *earth.Point) error {
	if p == nil {
		return errs.InvalidInput("%s coordinates are missing", name)
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.Abs(p.Lat) > 90 || math.Abs(p.Lng) > 180 {
		return errs.InvalidInput("%s coordinates out of range: lat %v lng %v", name, p.Lat, p.Lng)
	}
	return nil
}
