package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"qroute/internal/earth"
	"qroute/internal/errs"
	"qroute/internal/metrics"
	"qroute/internal/model"
	"qroute/internal/oracle"
	"qroute/internal/route"
	"qroute/internal/store"
)

// PathGenerateHandler handles POST /path/generate. Failures are reported as
// plain text: 400 for a non-JSON request, 500 for anything that goes wrong
// while computing the path.
func (s *Server) PathGenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeText(w, http.StatusBadRequest, "Content-Type not supported!")
		return
	}
	var req model.PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	start := time.Now()
	rreq, err := routeRequest(req)
	var res route.Result
	if err == nil {
		res, err = s.Route.FindPath(r.Context(), rreq)
	}
	if res.Oracle != "" {
		metrics.ObserveSolve(res.Oracle, string(res.Status), res.Variables, time.Since(start), res.Degraded)
	}
	if err != nil {
		log.WithError(err).Warn("path generation failed")
		s.Broker.Publish(pathsTopic, model.PathEvent{Type: model.EventPathFailed, At: time.Now().UTC(), Error: errs.Public(err)})
		writeText(w, http.StatusInternalServerError, "Server side error: "+errs.Public(err))
		return
	}

	rec := model.PathRecord{
		Start:     toGeoPoint(*rreq.Start),
		End:       toGeoPoint(*rreq.End),
		Hops:      res.Hops,
		Path:      lo.Map(res.Path, func(p earth.Point, _ int) model.GeoPoint { return toGeoPoint(p) }),
		Vertices:  res.GraphSize,
		Variables: res.Variables,
		Objective: res.Objective,
		Status:    string(res.Status),
		Degraded:  res.Degraded,
		Oracle:    res.Oracle,
		Seed:      res.Seed,
		SolveID:   res.SolveID,
		ElapsedMs: res.Elapsed.Milliseconds(),
	}
	saved, err := s.Store.SavePath(r.Context(), rec)
	if err != nil {
		// the path is still good; only the record is lost
		log.WithError(err).Error("save path record")
	} else {
		rec = saved
	}
	s.Broker.Publish(pathsTopic, model.PathEvent{Type: model.EventPathGenerated, At: time.Now().UTC(), Record: &rec})
	writeJSON(w, http.StatusOK, model.PathResponse{Path: rec.Path, ID: rec.ID, Degraded: rec.Degraded})
}

// PathsIndexHandler handles GET /v1/paths?limit=&cursor=
func (s *Server) PathsIndexHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", fmt.Sprintf("limit must be a non-negative integer, got %q", v), r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListPaths(r.Context(), q.Get("cursor"), limit)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusBadRequest, "Invalid cursor", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List paths failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PathByIDHandler handles GET /v1/paths/{id}
func (s *Server) PathByIDHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Store.GetPath(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get path failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PathEventsHandler streams path events as server-sent events.
func (s *Server) PathEventsHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(pathsTopic)
	defer s.Broker.Unsubscribe(pathsTopic, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(evt)
			if err != nil {
				log.WithError(err).Warn("encode path event")
				continue
			}
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

// OptimizerConfigHandler reports the effective solver and route defaults.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	rc := s.Route.Config()
	sc := s.cfg.Solver
	out := model.OptimizerConfig{
		Algorithm:        s.Route.Oracle().Name(),
		MaxExactVars:     lo.Ternary(sc.MaxExactVars > 0, sc.MaxExactVars, oracle.DefaultMaxExactVars),
		TimeBudgetMs:     lo.Ternary(rc.Solver.TimeBudget > 0, rc.Solver.TimeBudget, oracle.DefaultTimeBudget).Milliseconds(),
		MaxIterations:    lo.Ternary(rc.Solver.MaxIterations > 0, rc.Solver.MaxIterations, oracle.DefaultMaxIterations),
		InitialTemp:      rc.Solver.InitialTemp,
		Cooling:          lo.Ternary(rc.Solver.Cooling > 0, rc.Solver.Cooling, oracle.DefaultCooling),
		DefaultHops:      rc.DefaultHops,
		MaxHops:          rc.MaxHops,
		PenaltyFloor:     rc.QUBO.PenaltyFloor,
		ExclusiveVisits:  rc.QUBO.ExclusiveVisits,
		ConnectEndpoints: rc.ConnectEndpoints,
		Cull:             rc.Cull,
		SolveTimeoutMs:   rc.SolveTimeout.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, map[string]any{"defaults": out})
}

// SolveMetricsHandler handles GET /v1/admin/solve-metrics?oracle=&limit= and
// GET /v1/admin/solve-metrics/{id}.
func (s *Server) SolveMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Solves == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []oracle.SolveRecord{}})
		return
	}
	if id := r.PathValue("id"); id != "" {
		rec, ok := s.Solves.Get(id)
		if !ok {
			writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items := s.Solves.List(r.URL.Query().Get("oracle"), limit)
	if items == nil {
		items = []oracle.SolveRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler checks the store and, when it supports it, the broker.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	type pinger interface{ Ping(ctx context.Context) error }
	if p, ok := s.Broker.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
