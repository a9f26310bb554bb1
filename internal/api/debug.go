package api

import (
	"net/http"
	"time"

	"qroute/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	base := s.Route.Base()
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Get(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"graph": map[string]any{
			"vertices": base.Len(),
			"edges":    base.EdgeCount(),
		},
		"config": map[string]any{
			"PORT":             s.cfg.Server.Port,
			"H2C":              s.cfg.Server.H2C,
			"RATE_RPS":         s.cfg.Server.RateRPS,
			"RATE_BURST":       s.cfg.Server.RateBurst,
			"SOLVER_ALGORITHM": s.Route.Oracle().Name(),
			"HAS_DATABASE_URL": s.cfg.Store.DatabaseURL != "",
			"HAS_MONGO_URI":    s.cfg.Store.MongoURI != "",
			"HAS_REDIS_URL":    s.cfg.Store.RedisURL != "",
		},
	})
}
