// Command calibrator calibrates a curve document from disk and prints the
// calibrated market, optionally pricing a second document against it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/rzzdr/quant-curve-engine/config"
	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/service"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

var (
	configFile  = flag.String("config", config.GetConfigPath(), "Path to configuration file")
	requestFile = flag.String("request", "", "Calibration document (YAML or JSON)")
	priceFile   = flag.String("price", "", "Optional pricing document valued on the calibrated market")
	format      = flag.String("format", "json", "Output format: json or yaml")
)

// output is what the command prints
type output struct {
	Calibration *request.CalibrationResponse `json:"calibration" yaml:"calibration"`
	Pricing     *request.PriceResponse       `json:"pricing,omitempty" yaml:"pricing,omitempty"`
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(2)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("calibrator.main")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := run(ctx, cfg)
	if err != nil {
		log.Errorw("Calibration failed", "request", *requestFile, "type", errors.TypeOf(err).String(), "error", err)
		os.Exit(1)
	}
	if err := write(os.Stdout, *format, out); err != nil {
		log.Errorf("Writing output: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) (*output, error) {
	if *requestFile == "" {
		return nil, errors.InvalidArgument("-request is required")
	}
	data, err := os.ReadFile(*requestFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", *requestFile)
	}
	req, err := request.ParseCalibrationRequest(data)
	if err != nil {
		return nil, err
	}

	engine := calibration.NewEngine(cfg.EngineConfig("cli"), metrics.NopRecorder{})
	curves := service.New(engine, store.NewInMemorySnapshotStore(1))

	snap, err := curves.Calibrate(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &output{Calibration: snap.Response}

	if *priceFile == "" {
		return out, nil
	}
	data, err = os.ReadFile(*priceFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", *priceFile)
	}
	preq, err := request.ParsePriceRequest(data)
	if err != nil {
		return nil, err
	}
	preq.Snapshot, preq.Market = snap.Name, nil
	if out.Pricing, err = curves.Price(ctx, preq); err != nil {
		return nil, err
	}
	return out, nil
}

func write(w io.Writer, format string, out *output) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	default:
		return errors.InvalidArgumentf("unknown output format %q", format)
	}
}
