package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/nainya/docversions/internal/config"
	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/internal/metrics"
	"github.com/nainya/docversions/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and observability servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log.LoggerConfig())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	rt, err := buildApp(cfg, log, m)
	if err != nil {
		return err
	}
	defer rt.Close()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.GrpcMetricsInterceptor(m, log)),
		grpc.MaxRecvMsgSize(16*1024*1024),
		grpc.MaxSendMsgSize(16*1024*1024),
	)
	server.RegisterDocumentsServer(grpcServer, server.NewServer(rt.app, cfg.Versions.UserEntityField, log))

	obs := server.NewObservabilityServer(cfg.Server.MetricsAddr, reg, log)

	stopUptime := make(chan struct{})
	defer close(stopUptime)
	go m.TrackUptime(15*time.Second, stopUptime)

	log.LogServerStart(lis.Addr().String(), cfg.Storage.Adapter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.LogServerReady(lis.Addr().String())
		obs.SetReady(true)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil
	})
	if cfg.Server.MetricsAddr != "" {
		g.Go(obs.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		log.LogServerShutdown()
		obs.SetReady(false)
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return obs.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
