package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/quant-curve-engine/config"
	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/kafka"
	"github.com/rzzdr/quant-curve-engine/internal/service"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/circuit"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", config.GetConfigPath(), "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("processor.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("processor.main")
	defer log.Sync()
	log.Infow("Starting calibration request processor",
		"requests", cfg.Kafka.Topics.CalibrationRequests,
		"results", cfg.Kafka.Topics.CalibrationResults)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := kafka.NewClient(cfg.KafkaClientConfig())
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}

	setupCtx, cancelSetup := context.WithTimeout(ctx, 30*time.Second)
	for _, topic := range []string{cfg.Kafka.Topics.CalibrationRequests, cfg.Kafka.Topics.CalibrationResults} {
		if err := client.EnsureTopicExists(setupCtx, topic, cfg.Kafka.Topics.Partitions, cfg.Kafka.Topics.ReplicationFactor); err != nil {
			cancelSetup()
			log.Fatalf("Failed to ensure topic %s: %v", topic, err)
		}
	}
	cancelSetup()

	producer, err := client.NewProducer(cfg.Kafka.Topics.CalibrationResults)
	if err != nil {
		log.Fatalf("Failed to create result producer: %v", err)
	}
	producer.WithBreaker(circuit.NewBreaker("kafka.results", cfg.BreakerConfig()))

	consumer, err := client.NewConsumer(cfg.Kafka.Topics.CalibrationRequests)
	if err != nil {
		log.Fatalf("Failed to create request consumer: %v", err)
	}

	snapshots := store.NewInMemorySnapshotStore(cfg.Store.HistoryDepth)
	engine := calibration.NewEngine(cfg.EngineConfig("kafka"), metrics.PrometheusRecorder{})
	processor := kafka.NewCalibrationProcessor(service.New(engine, snapshots), producer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.ConsumeMessages(gctx, processor.Handle)
	})

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, cfg.Metrics.Prometheus.Path)
		g.Go(promServer.Start)
	}
	g.Go(func() error {
		metrics.CollectSystemMetrics(cfg.Metrics.Interval, gctx.Done())
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Initiating shutdown")
		if promServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := promServer.Stop(shutdownCtx); err != nil {
				log.Errorf("Prometheus server shutdown error: %v", err)
			}
		}
		return nil
	})

	runErr := g.Wait()

	if err := consumer.Close(); err != nil {
		log.Errorf("Consumer shutdown error: %v", err)
	}
	if err := producer.Close(); err != nil {
		log.Errorf("Producer shutdown error: %v", err)
	}

	if runErr != nil {
		log.Errorf("Processor stopped with error: %v", runErr)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
