// Package main is the entry point for the API relay.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/observability"
	"github.com/vyrodovalexey/apirelay/internal/relay"
	"github.com/vyrodovalexey/apirelay/internal/secrets"
	"github.com/vyrodovalexey/apirelay/internal/server"
	"github.com/vyrodovalexey/apirelay/internal/upstream"
	"github.com/vyrodovalexey/apirelay/internal/weather"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cli holds command-line flags. Flags take precedence over environment
// variables, which take precedence over the config file.
type cli struct {
	Config    string `help:"Path to YAML configuration file." short:"c" env:"RELAY_CONFIG"`
	Port      int    `help:"Listen port (overrides PORT)." short:"p"`
	LogLevel  string `help:"Log level: debug, info, warn or error." name:"log-level"`
	LogFormat string `help:"Log format: json or console." name:"log-format"`
	Version   bool   `help:"Print version information and exit." short:"v"`
}

func main() {
	var flags cli
	parser := kong.Must(&flags,
		kong.Name("apirelay"),
		kong.Description("HTTP relay that forwards requests to upstream APIs and projects selected fields."),
		kong.UsageOnError(),
	)
	if _, err := parser.Parse(os.Args[1:]); err != nil {
		parser.FatalIfErrorf(err)
	}

	if flags.Version {
		printVersion()
		return
	}

	cfg, err := loadAndValidateConfig(flags, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apirelay: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting apirelay",
		observability.String("version", version),
		observability.String("config", flags.Config),
	)

	app, err := initApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", observability.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	watcher := startConfigWatcher(flags, app, logger)

	if err := runRelay(app, watcher); err != nil {
		logger.Error("relay exited with error", observability.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("apirelay version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadAndValidateConfig loads the configuration, applies flag overrides and
// validates the result.
func loadAndValidateConfig(flags cli, lookup config.LookupFunc) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(flags.Config, lookup)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags cli) {
	if flags.Port != 0 {
		cfg.Server.Port = flags.Port
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
}

// initLogger creates the process logger.
func initLogger(cfg *config.Config) (observability.Logger, error) {
	return observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// application holds the wired components of a running relay.
type application struct {
	config  *config.Config
	server  *server.Server
	tracer  *observability.Tracer
	metrics *observability.Metrics
	logger  observability.Logger
}

// initApplication builds every component from cfg.
func initApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("relay")
		metrics.SetBuildInfo(version, gitCommit, buildTime)
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	if tracer.Enabled() {
		logger.Info("tracing enabled", observability.String("otlp_endpoint", cfg.Tracing.OTLPEndpoint))
	}

	if err := secrets.ResolveWeatherKey(ctx, cfg, logger); err != nil {
		// The relay still serves proxy traffic; weather reports a
		// configuration error until a key is available.
		logger.Warn("failed to resolve weather API key from vault", observability.Error(err))
	}
	if !cfg.WeatherConfigured() {
		logger.Warn("weather API key is not configured, weather endpoint will be unavailable")
	}

	handler := relay.NewHandler(
		newProxyClient(cfg, logger, metrics, tracer),
		newWeatherProvider(cfg, logger, metrics, tracer),
		relay.WithLogger(logger),
	)

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithCORS(cfg.CORS),
		server.WithServiceName(cfg.Tracing.ServiceName),
	}
	if metrics != nil {
		serverOpts = append(serverOpts, server.WithMetrics(metrics, cfg.Metrics.Path))
	}

	return &application{
		config:  cfg,
		server:  server.New(cfg.Server, []server.Registrar{handler}, serverOpts...),
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}, nil
}

func newProxyClient(
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) *upstream.Client {
	return upstream.New(cfg.Upstream.Timeout.Duration(),
		upstream.WithLogger(logger),
		upstream.WithMetrics(metrics),
		upstream.WithTracer(tracer),
		upstream.WithTarget("proxy"),
		upstream.WithMaxResponseBytes(cfg.Upstream.MaxResponseBytes),
	)
}

func newWeatherProvider(
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) *weather.Provider {
	client := upstream.New(cfg.Upstream.Timeout.Duration(),
		upstream.WithLogger(logger),
		upstream.WithMetrics(metrics),
		upstream.WithTracer(tracer),
		upstream.WithTarget("weather"),
		upstream.WithMaxResponseBytes(cfg.Upstream.MaxResponseBytes),
	)

	opts := []weather.Option{weather.WithLogger(logger)}
	if cfg.Weather.Breaker.Enabled {
		opts = append(opts, weather.WithBreaker(weather.NewBreaker("weather",
			cfg.Weather.Breaker.Threshold,
			cfg.Weather.Breaker.Timeout.Duration(),
			weather.WithBreakerLogger(logger),
			weather.WithBreakerMetrics(metrics),
		)))
	}

	return weather.NewProvider(client, cfg.Weather, opts...)
}

// startConfigWatcher watches the config file, when one was given, and
// applies the log level of each valid reload. Other settings need a
// restart.
func startConfigWatcher(flags cli, app *application, logger observability.Logger) *config.Watcher {
	if flags.Config == "" {
		return nil
	}

	watcher, err := config.NewWatcher(flags.Config, func(newCfg *config.Config) {
		applyFlags(newCfg, flags)
		applyReload(logger, newCfg)
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	app.logger.Debug("config watcher started", observability.String("path", flags.Config))
	return watcher
}

func applyReload(logger observability.Logger, cfg *config.Config) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		logger.Warn("ignoring invalid log level from reloaded config",
			observability.String("level", cfg.Logging.Level),
			observability.Error(err),
		)
		return
	}
	logger.Info("applied reloaded configuration",
		observability.String("log_level", cfg.Logging.Level),
	)
}
