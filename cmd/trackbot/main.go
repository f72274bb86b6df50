package main

import (
	"log"
	"os"
	"time"

	"trackbot/internal/core/cache"
	"trackbot/internal/core/config"
	"trackbot/internal/core/logger"
	"trackbot/internal/core/server"
	shipadapters "trackbot/internal/features/shipments/adapters"
	shipservice "trackbot/internal/features/shipments/service"
	trackadapters "trackbot/internal/features/tracking/adapters"
	trackhandler "trackbot/internal/features/tracking/handler"
	trackservice "trackbot/internal/features/tracking/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Trackbot API
// @version 1.0
// @description On-demand shipment tracking lookups with normalized carrier statuses.
// @host localhost:8080
// @BasePath /
func main() {
	rootCmd := &cobra.Command{
		Use:          "trackbot",
		Short:        "Shipment tracking bot for Lark sheets",
		SilenceUsage: true,
	}

	var dryRun bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one polling pass over the configured sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(dryRun)
		},
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "poll carriers without writing sheets or sending messages")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the on-demand tracking lookup API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and initializes the global logger.
func setup() (*config.AppConfig, error) {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	return cfg, nil
}

// newRouter wires the carrier adapter registry and optional result cache.
func newRouter(cfg *config.AppConfig) *trackservice.Router {
	l := logger.Get()

	var resultCache *trackservice.ResultCache
	if cfg.Cache.RedisURL != "" && cfg.Cache.TTLMinutes > 0 {
		redisCache, err := cache.NewRedisAdapter(cfg.Cache.RedisURL)
		if err != nil {
			l.Warn("Result cache disabled", zap.Error(err))
		} else {
			ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
			resultCache = trackservice.NewResultCache(redisCache, ttl)
			l.Info("Result cache enabled", zap.Duration("ttl", ttl))
		}
	}

	return trackservice.NewRouter(trackadapters.NewRegistry(cfg.Carriers), resultCache)
}

// runOnce executes one full polling run.
func runOnce(dryRun bool) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	l := logger.Get()
	if dryRun {
		l.Info("Dry run mode, no writes or messages")
	}

	tokens := cfg.Lark.Tokens()
	if len(tokens) == 0 {
		l.Error("No sheet tokens configured, set LARK_SHEET_TOKENS")
		return shipservice.ErrNoSheetsConfigured
	}

	lark := shipadapters.NewLarkClient(cfg.Lark)
	router := newRouter(cfg)
	pause := time.Duration(cfg.Bot.LookupPauseMS) * time.Millisecond

	runner := shipservice.NewRunner(lark, lark, router, tokens, pause)
	report, err := runner.Run(dryRun)
	if err != nil {
		l.Error("Run failed", zap.Error(err))
		return err
	}

	l.Info("Run finished", zap.Int("report_bytes", len(report)))
	return nil
}

// serve starts the lookup API server.
func serve() error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	router := newRouter(cfg)
	trackingHdl := trackhandler.NewTrackingHandler(router)

	srv := server.New(cfg)
	srv.App.Get("/tracking/:number", trackingHdl.GetTracking)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
	return nil
}
