package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/zwavetools/ztrace/pkg/capture"
	"github.com/zwavetools/ztrace/pkg/config"
	"github.com/zwavetools/ztrace/pkg/database"
	"github.com/zwavetools/ztrace/pkg/logger"
	"github.com/zwavetools/ztrace/pkg/metrics"
	"github.com/zwavetools/ztrace/pkg/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("ztrace %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate only mode
	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level})

	log.Info("Starting ztrace",
		logger.String("version", version),
		logger.String("config_file", *configFile),
		logger.Int("sources", len(cfg.Sources)))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector()

	// Start Prometheus metrics server if enabled
	if cfg.Metrics.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metricsServer := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Enabled,
					Port:    cfg.Metrics.Port,
					Path:    cfg.Metrics.Path,
				},
				metricsCollector,
				log,
			)
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
	}

	// Open the capture index database if enabled
	var sessionRepo *database.SessionRepository
	var frameRepo *database.FrameRepository
	if cfg.Database.Enabled {
		db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log.WithComponent("database"))
		if err != nil {
			log.Error("Failed to open database", logger.Error(err))
			os.Exit(1)
		}
		defer db.Close()
		sessionRepo = database.NewSessionRepository(db.GetDB())
		frameRepo = database.NewFrameRepository(db.GetDB())
	}

	// Start web dashboard if enabled
	var webServer *web.Server
	if cfg.Web.Enabled {
		api := web.NewAPI(log.WithComponent("web"), metricsCollector, sessionRepo, frameRepo)
		webServer = web.NewServer(cfg.Web, api, log.WithComponent("web"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Web server error", logger.Error(err))
			}
		}()
	}

	// Start capture workers
	manager := capture.NewManager(cfg, metricsCollector, log)
	if webServer != nil {
		manager.SetHub(webServer.GetHub())
	}
	manager.SetRepositories(sessionRepo, frameRepo)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := manager.Run(ctx); err != nil {
			log.Error("Capture manager error", logger.Error(err))
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal",
		logger.String("signal", sig.String()))

	cancel()
	wg.Wait()

	log.Info("ztrace stopped")
}
