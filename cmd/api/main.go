package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/quant-curve-engine/config"
	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/service"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/internal/websocket"
	"github.com/rzzdr/quant-curve-engine/pkg/api"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", config.GetConfigPath(), "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("api.main")
	defer log.Sync()
	log.Infow("Starting curve engine API service", "config", *configFile, "environment", cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots := store.NewInMemorySnapshotStore(cfg.Store.HistoryDepth)
	engine := calibration.NewEngine(cfg.EngineConfig("api"), metrics.PrometheusRecorder{})

	var hub *websocket.Hub
	var notifiers []service.Notifier
	if cfg.API.Websocket {
		hub = websocket.NewHub(snapshots)
		notifiers = append(notifiers, hub)
	}
	curves := service.New(engine, snapshots, notifiers...)
	server := api.NewServer(cfg.ServerConfig(), curves, hub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)

	if hub != nil {
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
	}

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, cfg.Metrics.Prometheus.Path)
		g.Go(promServer.Start)
	}
	g.Go(func() error {
		metrics.CollectSystemMetrics(cfg.Metrics.Interval, gctx.Done())
		return nil
	})

	// Shut everything down once a signal arrives or a component fails
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Initiating shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			log.Errorf("API server shutdown error: %v", err)
		}
		if promServer != nil {
			if err := promServer.Stop(shutdownCtx); err != nil {
				log.Errorf("Prometheus server shutdown error: %v", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Service stopped with error: %v", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
