package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/rr-balancer/config"
	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/circuitbreaker"
	"github.com/angeloszaimis/rr-balancer/internal/handler"
	"github.com/angeloszaimis/rr-balancer/internal/healthcheck"
	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
	"github.com/angeloszaimis/rr-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
	"github.com/angeloszaimis/rr-balancer/internal/strategy"
	"github.com/angeloszaimis/rr-balancer/pkg/logger"
)

type application struct {
	log       *slog.Logger
	registry  *backend.Registry
	collector *metrics.Collector
	monitor   *healthcheck.Monitor
	server    *httpserver.Server
	admin     *httpserver.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(cfg, log)
	if err != nil {
		log.Error("Failed to initialize load balancer", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.listen(); err != nil {
		log.Error("Failed to bind listeners", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.run(ctx); err != nil {
		log.Error("Load balancer stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func newApplication(cfg *config.Config, log *slog.Logger) (*application, error) {
	registry, err := initializeRegistry(cfg)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)

	monitor := healthcheck.NewMonitor(registry, log,
		healthcheck.WithInterval(cfg.HealthCheck.Interval),
		healthcheck.WithTimeout(cfg.HealthCheck.Timeout),
		healthcheck.WithPath(cfg.HealthCheck.Path),
		healthcheck.WithCollector(collector),
	)

	lb := loadbalancer.NewLoadBalancer(registry, strategy.NewRoundRobinStrategy())

	handlerOpts := []handler.Option{
		handler.WithTimeout(cfg.Proxy.Timeout),
		handler.WithCollector(collector),
	}
	var breakers *circuitbreaker.Registry
	if cfg.CircuitBreaker.Enabled {
		breakers = circuitbreaker.NewRegistry(cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.ResetTimeout, log)
		handlerOpts = append(handlerOpts, handler.WithCircuitBreakers(breakers))
	}

	loadBalancerHandler := handler.NewLoadBalancerHandler(log, lb, handlerOpts...)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(loadBalancerHandler, cfg.RateLimit, log))
	if err != nil {
		return nil, err
	}

	app := &application{
		log:       log,
		registry:  registry,
		collector: collector,
		monitor:   monitor,
		server:    srv,
	}

	if cfg.Metrics.Address != "" {
		app.admin, err = httpserver.New(cfg.Metrics.Address, setupAdminRouter(collector, breakers))
		if err != nil {
			return nil, err
		}
	}

	return app, nil
}

func initializeRegistry(cfg *config.Config) (*backend.Registry, error) {
	urls, err := cfg.BackendURLs()
	if err != nil {
		return nil, err
	}

	return backend.NewRegistry(urls)
}

// listen binds every listener up front so a taken port fails startup.
func (a *application) listen() error {
	if err := a.server.Listen(); err != nil {
		return err
	}

	if a.admin != nil {
		if err := a.admin.Listen(); err != nil {
			_ = a.server.Shutdown(context.Background())
			return err
		}
	}

	return nil
}

// run serves until ctx is cancelled or a listener fails, then shuts
// everything down. The health monitor and metrics collector share the
// lifetime of the servers.
func (a *application) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.collector.Start(ctx)

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		a.monitor.Run(ctx)
	}()

	srvErrCh := make(chan error, 2)
	go func() {
		srvErrCh <- a.server.Start()
	}()

	a.log.Info("Load balancer started",
		slog.String("address", a.server.Addr()),
		slog.Any("backends", a.registry.Snapshot()))

	if a.admin != nil {
		go func() {
			srvErrCh <- a.admin.Start()
		}()
		a.log.Info("Metrics endpoint started", slog.String("address", a.admin.Addr()))
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("Shutting down gracefully...")
	case runErr = <-srvErrCh:
		a.log.Error("Listener failed", slog.Any("err", runErr))
	}

	shutdownErr := a.server.Shutdown(context.Background())
	if a.admin != nil {
		shutdownErr = errors.Join(shutdownErr, a.admin.Shutdown(context.Background()))
	}

	cancel()
	<-monitorDone
	<-a.collector.Done()

	return errors.Join(runErr, shutdownErr)
}
