// Package app wires the navigator, its journal and telemetry from the loaded
// configuration. Both the host extension and the simulator start through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/geoshape/extension/internal/cache"
	"github.com/geoshape/extension/internal/config"
	"github.com/geoshape/extension/internal/dispatcher"
	"github.com/geoshape/extension/internal/geo"
	"github.com/geoshape/extension/internal/handlers"
	"github.com/geoshape/extension/internal/influx"
	"github.com/geoshape/extension/internal/intercept"
	"github.com/geoshape/extension/internal/logging"
	"github.com/geoshape/extension/internal/navigation"
	intOtel "github.com/geoshape/extension/internal/otel"
	"github.com/geoshape/extension/internal/storage"
	"github.com/rs/zerolog"
)

// Command names handled by the app itself rather than the navigation handlers.
const (
	CmdLogPath = ":GETDIR:LOG:"
	CmdSave    = ":SAVE:"
)

// Options describes the binary being started.
type Options struct {
	// Name prefixes the session log and backup files.
	Name      string
	Version   string
	BuildDate string

	// Zerolog overrides the dispatcher logger, which otherwise writes JSON
	// to the session log file.
	Zerolog *zerolog.Logger

	// Recorders receive every step next to the journal and influx.
	Recorders []navigation.Recorder
}

// App holds every long-lived component of a session.
type App struct {
	StartTime   time.Time
	LogFilePath string

	Logs       *logging.SlogManager
	Logger     *slog.Logger
	Zerolog    zerolog.Logger
	OTel       *intOtel.Provider
	Store      *cache.EntityStore
	Navigator  *navigation.Navigator
	Journal    *storage.StepRecorder
	Influx     *influx.Manager
	Dispatcher *dispatcher.Dispatcher
	Handlers   *handlers.Service

	opts       Options
	storageCfg config.StorageConfig
	logFile    *os.File
	gelf       *gelf.Writer
	journals   int
}

// Start builds a session from the configuration loaded in viper. Failures of
// optional outputs (Graylog, InfluxDB, the journal) are logged and the
// session continues without them.
func Start(ctx context.Context, opts Options) (*App, error) {
	if opts.Name == "" {
		opts.Name = "geoshape"
	}
	a := &App{
		StartTime:  time.Now(),
		opts:       opts,
		storageCfg: config.GetStorageConfig(),
		Store:      cache.NewEntityStore(),
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	a.LogFilePath = logging.LogFilePath(logsDir, opts.Name, a.StartTime)
	if _, err := os.Stat(a.LogFilePath); err == nil {
		_ = os.Rename(a.LogFilePath, a.LogFilePath+".old")
	}
	file, err := os.OpenFile(a.LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	a.logFile = file

	if err := a.setupLogging(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	proj := ProjectionFrom(config.GetProjectionConfig())
	backend := a.openJournal()
	a.Journal = storage.NewStepRecorder(backend, proj)

	recorders := []navigation.Recorder{a.Journal}
	if m := a.connectInflux(ctx, logsDir); m != nil {
		a.Influx = m
		recorders = append(recorders, m)
	}
	recorders = append(recorders, opts.Recorders...)

	navOpts := []navigation.Option{navigation.WithLogger(a.Logger)}
	for _, r := range recorders {
		navOpts = append(navOpts, navigation.WithRecorder(r))
	}
	a.Navigator, err = NewNavigator(a.Store, config.GetNavigationConfig(), config.GetProjectionConfig(), navOpts...)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("creating navigator: %w", err)
	}

	a.Dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.Zerolog))
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	a.Handlers = handlers.NewService(handlers.Dependencies{
		Navigator:        a.Navigator,
		Store:            a.Store,
		LogManager:       a.Logs,
		ExtensionVersion: opts.Version,
		BuildDate:        opts.BuildDate,
		RouteSteps:       config.GetNavigationConfig().RouteSteps,
	})
	a.Handlers.Register(a.Dispatcher)
	a.registerLifecycle(a.Dispatcher)

	a.Logger.Info("Session started",
		"version", opts.Version,
		"journal", a.storageCfg.Type,
		"influx", a.Influx != nil,
		"log", a.LogFilePath,
	)
	return a, nil
}

func (a *App) setupLogging() error {
	level := config.GetString("logLevel")

	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      a.logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
		MetricWriter:   a.logFile,
		MetricInterval: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing otel: %w", err)
	}
	a.OTel = provider

	a.Logs = logging.NewSlogManager()
	var gelfErr error
	if g := config.GetGraylogConfig(); g.Enabled {
		w, err := logging.DialGelf(g.Address)
		if err != nil {
			gelfErr = err
		} else {
			a.gelf = w
			a.Logs.AddHandler(logging.NewGelfHandler(w, a.opts.Name, nil))
		}
	}
	a.Logs.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.Int("entities", a.Store.Len()),
			slog.String("journal", a.storageCfg.Type),
		}
	})
	a.Logs.Setup(a.logFile, level, provider.LoggerProvider())
	a.Logger = a.Logs.Logger()
	if gelfErr != nil {
		a.Logger.Warn("Graylog output disabled", "error", gelfErr)
	}

	if a.opts.Zerolog != nil {
		a.Zerolog = *a.opts.Zerolog
	} else {
		zl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			zl = zerolog.InfoLevel
		}
		a.Zerolog = zerolog.New(a.logFile).Level(zl).With().Timestamp().Str("component", "dispatcher").Logger()
	}
	return nil
}

// openJournal creates and initializes the configured backend, falling back
// to no journal on failure.
func (a *App) openJournal() storage.Backend {
	cfg := a.storageCfg
	cfg.SQLite.Path = sessionFile(cfg.SQLite.Path, time.Now(), a.journals)
	a.journals++

	backend, err := storage.NewBackend(cfg, config.GetDBConfig(), storage.Options{
		LogManager:       a.Logs,
		ExtensionName:    a.opts.Name,
		ExtensionVersion: a.opts.Version,
		Settings:         config.GetNavigationConfig(),
	})
	if err == nil {
		err = backend.Init()
	}
	if err != nil {
		a.Logger.Error("Journal unavailable, steps are not recorded", "type", a.storageCfg.Type, "error", err)
		return storage.Noop{}
	}
	a.Logger.Info("Journal initialized", "type", cfg.Type)
	return backend
}

// sessionFile stamps path with the session start so saved journals are not
// overwritten by the next session.
func sessionFile(path string, at time.Time, seq int) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	stamp := at.Format("20060102_150405")
	if seq > 0 {
		stamp = fmt.Sprintf("%s_%d", stamp, seq)
	}
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(path, ext), stamp, ext)
}

func (a *App) connectInflux(ctx context.Context, logsDir string) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(logsDir, fmt.Sprintf("%s_influx_%s.lp.gz", a.opts.Name, a.StartTime.Format("20060102_150405")))
	m := influx.NewManager(cfg, a.Zerolog, backup)
	if err := m.Connect(ctx); err != nil {
		a.Logger.Error("InfluxDB output disabled", "url", m.URL(), "error", err)
		_ = m.Close()
		return nil
	}
	return m
}

func (a *App) registerLifecycle(d *dispatcher.Dispatcher) {
	d.Register(CmdLogPath, func(e dispatcher.Event) (any, error) {
		return a.LogFilePath, nil
	})
	d.Register(CmdSave, func(e dispatcher.Event) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		path, err := a.Save(ctx)
		if err != nil {
			return nil, err
		}
		return path, nil
	}, dispatcher.Logged())
}

// Save closes the current journal, which exports or flushes it, and starts
// a new one. It returns the exported file, if the journal wrote one.
func (a *App) Save(ctx context.Context) (string, error) {
	old := a.Journal.Swap(a.openJournal())

	var path string
	err := old.Close()
	if exp, ok := old.(storage.Exportable); ok && err == nil {
		path = exp.ExportedFilePath()
	}
	if err != nil {
		a.Logger.Error("Failed to close journal", "error", err)
		return "", fmt.Errorf("closing journal: %w", err)
	}
	if err := a.OTel.Flush(ctx); err != nil {
		a.Logger.Warn("Failed to flush OTel data", "error", err)
	}
	a.Logger.Info("Journal saved", "path", path)
	return path, nil
}

// Close stops the dispatcher and closes every output in reverse start order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.Journal != nil {
		errs = append(errs, a.Journal.Backend().Close())
	}
	if a.Influx != nil {
		errs = append(errs, a.Influx.Close())
	}
	if a.Logs != nil {
		errs = append(errs, a.Logs.Flush(ctx))
	}
	if a.OTel != nil {
		errs = append(errs, a.OTel.Shutdown(ctx))
	}
	if a.gelf != nil {
		errs = append(errs, a.gelf.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// ProjectionFrom builds the map projection described by cfg.
func ProjectionFrom(cfg config.ProjectionConfig) geo.Projection {
	return geo.NewProjection(geo.Position2D{X: cfg.OriginX, Y: cfg.OriginY}, cfg.PlayableWidth, cfg.UnitsPerDegreeLat)
}

// NewNavigator creates a navigator over store configured from nav and proj.
// extra options are applied last.
func NewNavigator(store navigation.Store, nav config.NavigationConfig, proj config.ProjectionConfig, extra ...navigation.Option) (*navigation.Navigator, error) {
	heading, err := navigation.ParseHeadingMode(nav.HeadingMode)
	if err != nil {
		return nil, err
	}

	var solverOpts []intercept.SolverOption
	if nav.Tolerance > 0 {
		solverOpts = append(solverOpts, intercept.WithTolerance(nav.Tolerance))
	}
	if nav.MaxIterations > 0 {
		solverOpts = append(solverOpts, intercept.WithMaxIterations(nav.MaxIterations))
	}
	if nav.InterceptHorizon > 0 {
		solverOpts = append(solverOpts, intercept.WithHorizon(nav.InterceptHorizon.Hours()))
	}

	opts := []navigation.Option{
		navigation.WithProjection(ProjectionFrom(proj)),
		navigation.WithHeadingMode(heading),
		navigation.WithSolverOptions(solverOpts...),
	}
	if nav.RadiusKm > 0 {
		opts = append(opts, navigation.WithSphere(geo.Sphere{Radius: nav.RadiusKm}))
	}
	if nav.ArcCacheSize > 0 {
		opts = append(opts, navigation.WithArcCacheSize(nav.ArcCacheSize))
	}
	opts = append(opts, extra...)

	return navigation.New(store, opts...)
}
