// Package bootstrap turns a loaded config into a ready route service.
package bootstrap

import (
	"github.com/sirupsen/logrus"

	"qroute/internal/config"
	"qroute/internal/earth"
	"qroute/internal/geo"
	"qroute/internal/oracle"
	"qroute/internal/population"
	"qroute/internal/route"
)

var log = logrus.WithField("module", "bootstrap")

// BaseGraph loads the population index and boundary named in cfg.Data and
// lays the base grid over them. Without a population file every vertex
// scores +Inf and all edges cost the maximum.
func BaseGraph(cfg config.Config) (*geo.Graph, error) {
	var pop *population.Index
	if cfg.Data.PopulationCSV != "" {
		idx, err := population.LoadCSV(cfg.Data.PopulationCSV)
		if err != nil {
			return nil, err
		}
		pop = idx
	} else {
		log.Warn("no population dataset configured; edge costs are flat")
	}
	var boundary []earth.Polygon
	if cfg.Data.BoundaryFile != "" {
		b, err := geo.LoadBoundary(cfg.Data.BoundaryFile)
		if err != nil {
			return nil, err
		}
		boundary = b
	}
	return geo.BuildGrid(geo.GridSpec{
		Bounds:    cfg.Grid.Bounds,
		Precision: cfg.Grid.Precision,
		Boundary:  boundary,
	}, pop, cfg.Graph)
}

func RouteConfig(cfg config.Config) route.Config {
	return route.Config{
		DefaultHops:      cfg.Route.DefaultHops,
		MaxHops:          cfg.Route.MaxHops,
		ConnectEndpoints: cfg.Route.ConnectEndpoints,
		Cull:             cfg.Route.Cull,
		SolveTimeout:     cfg.Route.SolveTimeout,
		QUBO:             cfg.QUBO,
		Solver:           cfg.Solver.Options(),
	}
}

// Service builds the base graph and the configured oracle.
func Service(cfg config.Config, solves *oracle.MetricsStore) (*route.Service, error) {
	base, err := BaseGraph(cfg)
	if err != nil {
		return nil, err
	}
	o, err := oracle.New(cfg.Solver.Algorithm, cfg.Solver.MaxExactVars)
	if err != nil {
		return nil, err
	}
	return route.NewService(base, o, RouteConfig(cfg), solves), nil
}
