package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/23skdu/smellsense/internal/dashboard"
	flightsvc "github.com/23skdu/smellsense/internal/flight"
	"github.com/23skdu/smellsense/internal/health"
	"github.com/23skdu/smellsense/internal/httpapi"
	"github.com/23skdu/smellsense/internal/limiter"
	"github.com/23skdu/smellsense/internal/signature"
)

// app owns the three listeners: Flight (gRPC), HTTP API and metrics.
type app struct {
	cfg    Config
	logger zerolog.Logger

	grpcServer *grpc.Server
	grpcLis    net.Listener

	httpServer *http.Server
	httpLis    net.Listener

	metricsServer *http.Server
	metricsLis    net.Listener
}

func newApp(cfg Config, logger zerolog.Logger) (*app, error) {
	comparer, err := dashboard.NewComparer(signature.Default(), logger.With().Str("component", "comparer").Logger())
	if err != nil {
		return nil, err
	}

	hm := health.NewHealthManager(version, logger.With().Str("component", "health").Logger())
	hm.RegisterChecker(health.NewSignatureStoreChecker(comparer.Store()))
	hm.RegisterChecker(health.NewLoggingChecker(logger))

	rl := limiter.NewRateLimiter(cfg.Config)

	opts := append(cfg.ServerOptions(),
		grpc.ChainUnaryInterceptor(rl.UnaryInterceptor()),
		grpc.ChainStreamInterceptor(rl.StreamInterceptor()),
	)
	grpcServer := grpc.NewServer(opts...)
	flight.RegisterFlightServiceServer(grpcServer,
		flightsvc.NewServer(comparer, memory.NewGoAllocator(), logger.With().Str("component", "flight").Logger()))

	api := httpapi.NewHandler(comparer, hm.HTTPHandler(), logger.With().Str("component", "httpapi").Logger())

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.Handle("/healthz", hm.HTTPHandler())

	a := &app{
		cfg:        cfg,
		logger:     logger,
		grpcServer: grpcServer,
		httpServer: &http.Server{
			Handler:           rl.Middleware(api),
			ReadHeaderTimeout: 5 * time.Second,
		},
		metricsServer: &http.Server{
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	if a.grpcLis, err = net.Listen("tcp", cfg.ListenAddr); err != nil {
		return nil, err
	}
	if a.httpLis, err = net.Listen("tcp", cfg.HTTPAddr); err != nil {
		_ = a.grpcLis.Close()
		return nil, err
	}
	if a.metricsLis, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
		_ = a.grpcLis.Close()
		_ = a.httpLis.Close()
		return nil, err
	}
	return a, nil
}

// serve runs every listener until ctx is canceled or one of them fails, then
// shuts the rest down.
func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("address", a.grpcLis.Addr().String()).Msg("Flight server starting")
		if err := a.grpcServer.Serve(a.grpcLis); !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Info().Str("address", a.httpLis.Addr().String()).Msg("HTTP API starting")
		if err := a.httpServer.Serve(a.httpLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Info().Str("address", a.metricsLis.Addr().String()).Msg("Metrics server starting")
		if err := a.metricsServer.Serve(a.metricsLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.shutdown()
		return nil
	})

	return g.Wait()
}

func (a *app) shutdown() {
	a.logger.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(stopped)
	}()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("HTTP API shutdown")
	}
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Metrics server shutdown")
	}

	select {
	case <-stopped:
	case <-ctx.Done():
		a.logger.Warn().Msg("Flight server did not drain in time, forcing stop")
		a.grpcServer.Stop()
	}
}
