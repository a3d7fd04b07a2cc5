package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/api"
	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/internal/middleware/ratelimit"
	"github.com/legaldesk/insights/internal/middleware/security"
	"github.com/legaldesk/insights/internal/middleware/validation"
	"github.com/legaldesk/insights/pkg/config"
	appLogger "github.com/legaldesk/insights/pkg/logger"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "insights",
		Short: "Predictive insights service for the practice management platform",
		Long: `insights scores search suggestions, user behavior, document
classifications, case recommendations and fraud risk from the platform's
activity data, and retrains its model tables on demand.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (defaults to ./config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("insights v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "train",
		Short: "Run the training pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd.Context(), configPath)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "performance",
		Short: "Print the stored model metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPerformance(cmd.Context(), configPath)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting insights API server", zap.String("version", version))

	metrics.Init()

	deps, err := bootstrap(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	server := api.NewServer(deps.Engine, deps.DB, api.Options{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		AccessLog:    true,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			Logger:            appLogger.GetLogger(),
		},
		Headers: security.HeadersConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			IsDevelopment:  cfg.Server.Development,
		},
		Validation: validation.Config{
			MaxDocumentSize: cfg.Server.BodyLimit,
			Logger:          appLogger.GetLogger(),
		},
		ExposeMetrics: true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")

	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func runTrain(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	deps, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	summary, err := deps.Engine.TrainModels(ctx)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runPerformance(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	deps, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	perf, err := deps.Engine.GetModelPerformance(ctx)
	if err != nil {
		return err
	}
	return printJSON(perf)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		TTLs: engine.TTLs{
			Suggestions:     cfg.Cache.TTL(cfg.Cache.SuggestionsTTL),
			Behavior:        cfg.Cache.TTL(cfg.Cache.BehaviorTTL),
			Classification:  cfg.Cache.TTL(cfg.Cache.ClassificationTTL),
			Recommendations: cfg.Cache.TTL(cfg.Cache.RecommendationsTTL),
		},
		SuggestionLimit:     cfg.Scoring.SuggestionLimit,
		RecommendationLimit: cfg.Scoring.RecommendationLimit,
		ModelVersion:        cfg.Scoring.ModelVersion,
	}
}
