// Lobbyscope - lobby directory watcher & API
//
// Lobbyscope polls the multiplayer lobby directory, decodes the
// bit-packed session descriptors into typed sessions, enriches them
// with map metadata, and serves the result over a REST API, an
// interactive CLI, and MQTT telemetry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/api"
	"github.com/lobbyscope-project/lobbyscope/internal/assemble"
	"github.com/lobbyscope-project/lobbyscope/internal/cli"
	"github.com/lobbyscope-project/lobbyscope/internal/config"
	"github.com/lobbyscope-project/lobbyscope/internal/enrich"
	"github.com/lobbyscope-project/lobbyscope/internal/events"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
	"github.com/lobbyscope-project/lobbyscope/internal/scheduler"
	"github.com/lobbyscope-project/lobbyscope/internal/storage"
	"github.com/lobbyscope-project/lobbyscope/internal/telemetry"
	"github.com/lobbyscope-project/lobbyscope/internal/util"
)

const (
	AppName    = "Lobbyscope"
	AppVersion = "1.0.0"
	Banner     = `
  _          _     _
 | |    ___ | |__ | |__  _   _ ___  ___ ___  _ __   ___
 | |   / _ \| '_ \| '_ \| | | / __|/ __/ _ \| '_ \ / _ \
 | |__| (_) | |_) | |_) | |_| \__ \ (_| (_) | |_) |  __/
 |_____\___/|_.__/|_.__/ \__, |___/\___\___/| .__/ \___|
                         |___/              |_|  v%s
 Lobby Directory Watcher & API
`
)

func main() {
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting Lobbyscope")

	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Re-initialize logger with config-based settings
	logCfg := util.LogConfig{
		Level:      cfg.Logging.Level,
		Directory:  cfg.Logging.Directory,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := events.NewEventBus()

	// Pipeline: fetcher -> assembler -> scheduler
	dirCfg := cfg.GetDirectory()
	routeMemory := &fetch.RouteMemory{}
	var routes []fetch.Route
	if dirCfg.UseFallbackRoutes {
		routes = fetch.DefaultFallbackRoutes()
	} else {
		routes = []fetch.Route{}
	}
	fetcher := fetch.New(routes, routeMemory)

	var mapData *enrich.MapDataClient
	if cfg.GetEnrichment().Maps {
		mapData = enrich.NewMapDataClient(cfg.GetEnrichment().MapDataURL, enrich.NewMapDataCache())
	}
	assembler := assemble.New(fetcher, mapData)

	var store *storage.SnapshotStore
	if cfg.Storage.Enabled {
		store, err = storage.NewSnapshotStore(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open snapshot store")
		}
		defer store.Close()
	}

	sched := scheduler.NewScheduler(cfg, eventBus, assembler, store)

	apiServer := api.NewServer(cfg, eventBus, sched, AppVersion)
	apiServer.SetStore(store)
	apiServer.SetRouteInfo(routes, routeMemory)

	var mqttHandler *telemetry.MQTTHandler
	if cfg.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus, AppVersion)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	cliHandler := cli.NewCLI(cfg, eventBus, sched)
	cliHandler.SetRouteInfo(routes, routeMemory)

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// Task 1: refresh scheduler
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting refresh scheduler")
		sched.Start(ctx)
	}()

	// Task 2: REST API server
	if cfg.API.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Int("port", cfg.API.Port).Msg("starting REST API server")
			if err := apiServer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("API server failed")
				errCh <- fmt.Errorf("api server: %w", err)
			}
		}()
	}

	// Task 3: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 4: interactive CLI
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting interactive CLI")
		cliHandler.Start(ctx)
	}()

	// A 'quit' in the CLI flows through the event bus like a signal.
	shutdownCh := make(chan struct{}, 1)
	eventBus.Subscribe(events.EventShutdown, "main.shutdown", func(ctx context.Context, ev events.Event) error {
		select {
		case shutdownCh <- struct{}{}:
		default:
		}
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	eventBus.Stop()

	log.Info().Msg("Lobbyscope stopped")
}
