package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"qroute/internal/api"
	"qroute/internal/bootstrap"
	"qroute/internal/buildinfo"
	"qroute/internal/config"
	"qroute/internal/oracle"
)

var log = logrus.WithField("module", "main")

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.0000"})
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if err := cfg.Log.Apply(); err != nil {
		log.Fatal(err)
	}
	log.Info(buildinfo.Get())

	solves := oracle.NewMetricsStore(0)
	svc, err := bootstrap.Service(cfg, solves)
	if err != nil {
		log.Fatalf("failed to build route service: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srvDeps, err := api.NewServer(ctx, cfg, svc, solves)
	cancel()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	hookCtx, stopHooks := context.WithCancel(context.Background())
	defer stopHooks()
	srvDeps.StartWebhooks(hookCtx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srvDeps.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	if cfg.Server.H2C {
		// HTTP/2 without TLS alongside HTTP/1.1
		srv.Protocols = new(http.Protocols)
		srv.Protocols.SetHTTP1(true)
		srv.Protocols.SetUnencryptedHTTP2(true)
	}

	idle := make(chan struct{})
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1)
		}()
		defer close(idle)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.Infof("API listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-idle
	stopHooks()
	if err := srvDeps.Close(); err != nil {
		log.WithError(err).Warn("close")
	}
	log.Info("api closes")
}
