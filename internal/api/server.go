// Package api serves the path generation HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"qroute/internal/auth"
	"qroute/internal/config"
	"qroute/internal/metrics"
	"qroute/internal/oracle"
	"qroute/internal/route"
	"qroute/internal/store"
	"qroute/internal/webhooks"
)

var log = logrus.WithField("module", "api")

type Server struct {
	Store  store.Store
	Broker EventBroker
	Route  *route.Service
	Solves *oracle.MetricsStore
	Auth   *auth.Verifier

	cfg     config.Config
	limiter *rate.Limiter
}

// NewServer picks the store and broker from cfg.Store: Postgres when a
// DATABASE_URL is set, else MongoDB when a MONGO_URI is set, else memory;
// Redis pub/sub when REDIS_URL is set, else an in-process broker.
func NewServer(ctx context.Context, cfg config.Config, svc *route.Service, solves *oracle.MetricsStore) (*Server, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	var broker EventBroker = NewBroker()
	if cfg.Store.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.Store.RedisURL); err == nil {
			broker = rb
		} else {
			log.WithError(err).Warn("redis broker unavailable, using in-process broker")
		}
	}
	return newServer(cfg, st, broker, svc, solves), nil
}

func newServer(cfg config.Config, st store.Store, broker EventBroker, svc *route.Service, solves *oracle.MetricsStore) *Server {
	s := &Server{Store: st, Broker: broker, Route: svc, Solves: solves, Auth: auth.NewVerifier(cfg.Auth), cfg: cfg}
	if cfg.Server.RateRPS > 0 {
		burst := cfg.Server.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateRPS), burst)
	}
	return s
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		log.Info("using postgres store")
		return pg, nil
	case cfg.MongoURI != "":
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("mongo indexes")
		}
		log.Info("using mongo store")
		return m, nil
	default:
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	}
}

// Handler returns the routed, instrumented handler tree.
func (s *Server) Handler() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	handle("POST /path/generate", s.rateLimit(s.PathGenerateHandler))

	handle("GET /v1/paths", s.PathsIndexHandler)
	handle("GET /v1/paths/{id}", s.PathByIDHandler)
	handle("GET /v1/paths/events/stream", s.PathEventsHandler)
	handle("GET /v1/paths/ws", s.PathEventsWSHandler)

	handle("GET /v1/optimizer/config", s.OptimizerConfigHandler)
	handle("GET /v1/admin/solve-metrics", s.requireAdmin(s.SolveMetricsHandler))
	handle("GET /v1/admin/solve-metrics/{id}", s.requireAdmin(s.SolveMetricsHandler))

	handle("GET /healthz", s.HealthHandler)
	handle("GET /readyz", s.ReadyHandler)
	handle("GET /debug/info", s.DebugJSON)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return logMiddleware(mux)
}

// StartWebhooks forwards path events to the configured webhook URLs until
// ctx is done. It is a no-op without URLs.
func (s *Server) StartWebhooks(ctx context.Context) {
	if len(s.cfg.Webhooks.URLs) == 0 {
		return
	}
	ch := s.Broker.Subscribe(pathsTopic)
	w := webhooks.NewWorker(s.cfg.Webhooks)
	go func() {
		defer s.Broker.Unsubscribe(pathsTopic, ch)
		w.Run(ctx, ch)
	}()
	log.Infof("forwarding path events to %d webhook(s)", len(s.cfg.Webhooks.URLs))
}

// Close releases the store and broker connections.
func (s *Server) Close() error {
	var errList []error
	if c, ok := s.Broker.(interface{ Close() error }); ok {
		errList = append(errList, c.Close())
	}
	errList = append(errList, s.Store.Close())
	return errors.Join(errList...)
}
