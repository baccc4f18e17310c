// Command geoshape-sim runs a navigation scenario outside the host: entities
// are loaded from a scenario file and advanced on a fixed-step clock, with
// the journal, InfluxDB and Prometheus outputs the extension uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/geoshape/extension/internal/app"
	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/internal/navigation"
	"github.com/geoshape/extension/internal/observability"
	"github.com/geoshape/extension/internal/scenario"
	"github.com/geoshape/extension/internal/timectrl"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario file (.json, .yaml, .toml, optionally .zst)")
		configDir    = flag.String("config", "", "directory holding "+config.FileName)
		metricsAddr  = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
		mode         = flag.String("mode", "accelerated", "clock mode: realtime or accelerated")
		speedup      = flag.Float64("speedup", 1, "realtime only: simulated seconds per wall second")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: geoshape-sim -scenario <file> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *scenarioPath, *configDir, *metricsAddr, *mode, *speedup, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "geoshape-sim:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, scenarioPath, configDir, metricsAddr, modeName string, speedup float64, verbose bool) error {
	if configDir != "" {
		if err := config.Load(configDir); err != nil {
			return err
		}
	} else {
		config.SetDefaults()
	}

	mode, ok := timectrl.ParseMode(modeName)
	if !ok {
		return fmt.Errorf("unknown clock mode %q", modeName)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logger := newLogger(os.Stderr, filepath.Join(logsDir, "geoshape-sim.log"), verbose)

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}
	start, _ := sc.StartTime()

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		return err
	}

	session, err := app.Start(ctx, app.Options{
		Name:      "geoshape-sim",
		Version:   Version,
		BuildDate: BuildDate,
		Zerolog:   &logger,
		Recorders: []navigation.Recorder{metrics},
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to close session")
		}
	}()

	sc.Apply(session.Store, session.Navigator.Projection())
	logger.Info().
		Str("scenario", sc.Name).
		Int("entities", len(sc.Entities)).
		Dur("tick", sc.Tick).
		Dur("duration", sc.Duration).
		Str("log", session.LogFilePath).
		Msg("Scenario loaded")

	sim := scenario.NewSimulation(session.Navigator, session.Store, metrics, logger, start)
	clock := timectrl.New(start, sc.Tick, mode)
	clock.SetSpeedup(speedup)
	clock.AddListener(sim.OnTick)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, finish := context.WithCancel(gctx)
	defer finish()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(metrics)}
		g.Go(func() error {
			logger.Info().Str("addr", metricsAddr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer finish()
		err := clock.Run(runCtx, sc.Duration, sim.Idle)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Warn().Msg("Interrupted")
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	steps, arrivals := sim.Stats()
	logger.Info().
		Int("ticks", clock.Ticks()).
		Dur("simulated", clock.Elapsed()).
		Int("steps", steps).
		Int("arrivals", arrivals).
		Msg("Scenario finished")
	for _, p := range sim.Positions() {
		logger.Info().Uint32("entity", p.ID).Float64("lat", p.LatLon.Lat).Float64("lon", p.LatLon.Lon).Msg("Final position")
	}
	return nil
}

// newLogger writes human-readable lines to console and JSON to a rotated
// log file.
func newLogger(console io.Writer, file string, verbose bool) zerolog.Logger {
	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    32, // MB
		MaxBackups: 3,
		Compress:   true,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}, rotated)
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func metricsMux(metrics *observability.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
