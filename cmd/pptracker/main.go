package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/pptracker/recorder/internal/audit"
	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/internal/directory"
	"github.com/pptracker/recorder/internal/gate"
	"github.com/pptracker/recorder/internal/logging"
	"github.com/pptracker/recorder/internal/metrics"
	"github.com/pptracker/recorder/internal/notify"
	intOtel "github.com/pptracker/recorder/internal/otel"
	"github.com/pptracker/recorder/internal/persist"
	"github.com/pptracker/recorder/internal/presence"
	"github.com/pptracker/recorder/internal/queue"
	"github.com/pptracker/recorder/internal/sampler"
	"github.com/pptracker/recorder/internal/store"
	"github.com/pptracker/recorder/internal/transport"
	"github.com/pptracker/recorder/internal/worker"
	"github.com/pptracker/recorder/pkg/core"
)

var (
	// Version can be set at build time via ldflags.
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "pptracker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config", ".", "directory containing pptracker.cfg.json")
	flag.Parse()

	sessionStart := time.Now()

	// Console-only logging until the config and logs dir are known.
	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, nil, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		logger.Info("Loaded config", "dir", *configDir)
	}

	logsDir := viper.GetString("logsDir")
	dataDir := viper.GetString("dataDir")
	for _, dir := range []string{logsDir, dataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, sessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	// OTel provider before the final logging setup so the slog bridge can use it.
	var otelProvider *intOtel.Provider
	var otelLogProvider *sdklog.LoggerProvider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			otelLogProvider = otelProvider.LoggerProvider()
		}
	}

	var gelfWriter io.Writer
	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		gelfWriter, err = logging.NewGelfWriter(graylogCfg.Address)
		if err != nil {
			logger.Error("Failed to connect GELF writer", "address", graylogCfg.Address, "error", err)
			gelfWriter = nil
		}
	}

	slogManager.Setup(logFile, gelfWriter, viper.GetString("logLevel"), otelLogProvider)
	logger = slogManager.Logger()
	logger.Info("Starting up", "version", Version, "buildDate", BuildDate, "logFile", logFilePath)

	// Metrics are optional; the recorder runs fine without InfluxDB.
	var metricsManager *metrics.Manager
	if viper.GetBool("influx.enabled") {
		zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		metricsManager = metrics.NewManager(zlog, filepath.Join(dataDir, "influx_backup.gz"))
		if err := metricsManager.Connect(); err != nil {
			logger.Error("Failed to connect metrics", "error", err)
			metricsManager = nil
		}
	}

	storageCfg := config.GetStorageConfig()
	backend, err := persist.New(storageCfg, logger)
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}
	defer backend.Close()

	positions := store.New()
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	buckets, err := backend.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Error("Failed to load persisted positions, starting empty", "error", err)
	} else {
		positions.Replace(buckets)
		logger.Info("Loaded persisted positions", "dates", len(buckets), "records", positions.Len())
	}

	registry := presence.NewRegistry()
	names := directory.NewCache()
	batches := queue.New[core.SampleBatch]()

	samplingCfg := config.GetSamplingConfig()

	var workerMetrics worker.Metrics
	if metricsManager != nil {
		workerMetrics = metricsManager
	}
	workerManager := worker.NewManager(worker.Dependencies{
		Store:   positions,
		Backend: backend,
		Batches: batches,
		Logger:  logger,
		Metrics: workerMetrics,
	}, samplingCfg.AutosaveInterval)

	samplerService := sampler.NewService(sampler.Dependencies{
		Source:  registry,
		Batches: batches,
		Names:   names,
		Logger:  logger,
	}, samplingCfg.Interval)

	auditLogger, err := audit.NewLogger(filepath.Join(dataDir, "query_audit.log"))
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLogger.Close()

	discord := notify.NewDiscord(config.GetDiscordConfig(), logger)
	defer discord.Close()
	var notifier notify.Notifier = notify.Nop{}
	if discord.Enabled() {
		notifier = discord
		logger.Info("Discord audit notifications enabled")
	}

	gateService := gate.NewService(gate.Dependencies{
		Store:     positions,
		Directory: names,
		Audit:     auditLogger,
		Notifier:  notifier,
		Logger:    logger,
	}, gate.DefaultPolicy(config.GetAuthConfig()))

	var queryMetrics transport.QueryMetrics
	if metricsManager != nil {
		queryMetrics = metricsManager
	}
	server, err := transport.NewServer(transport.Dependencies{
		Presence: registry,
		Gate:     gateService,
		Saver:    workerManager,
		Metrics:  queryMetrics,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating transport server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		workerManager.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		samplerService.Run(ctx)
	}()

	listenAddr := viper.GetString("server.listenAddr")
	serveErr := server.ListenAndServe(ctx, listenAddr)

	// Worker performs the final drain and save on its way out.
	stop()
	wg.Wait()

	if metricsManager != nil {
		metricsManager.Close()
	}
	if otelProvider != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := otelProvider.Flush(flushCtx); err != nil {
			logger.Warn("Failed to flush OTel data", "error", err)
		}
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			logger.Warn("Failed to shut down OTel provider", "error", err)
		}
		cancel()
	}

	logger.Info("Shutdown complete")
	return serveErr
}
