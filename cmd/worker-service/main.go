package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/thetrashhub/wastewise/internal/ai"
	"github.com/thetrashhub/wastewise/internal/config"
	"github.com/thetrashhub/wastewise/internal/jobs/storage"
	"github.com/thetrashhub/wastewise/internal/property"
	"github.com/thetrashhub/wastewise/internal/search"
	"github.com/thetrashhub/wastewise/internal/search/providers"
	"github.com/thetrashhub/wastewise/internal/skills"
	"github.com/thetrashhub/wastewise/internal/worker"
	"github.com/thetrashhub/wastewise/shared/logger"
	"github.com/thetrashhub/wastewise/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	jobStorage := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	propertyRepo := property.NewPostgresRepository(dbClient.GetDB())

	// Initialize skill dependencies: model client and search manager
	generator, err := initGenerator(&cfg.OpenAI, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}

	searchManager, err := initSearchManager(&cfg.Search, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize search manager: %w", err)
	}

	appLogger.Info("Search providers configured",
		slog.Any("providers", searchManager.Providers()),
	)

	// Register skills for the closed set of job types
	registry, err := skills.NewRegistry(
		skills.NewInvoiceExtractionSkill(generator, appLogger.Logger),
		skills.NewCompactorOptimizationSkill(appLogger.Logger),
		skills.NewContractExtractionSkill(generator, appLogger.Logger),
		skills.NewRegulatoryLookupSkill(searchManager, appLogger.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to build skill registry: %w", err)
	}
	if err := registry.CheckComplete(); err != nil {
		return fmt.Errorf("incomplete skill registry: %w", err)
	}

	processor := worker.NewProcessor(jobStorage, propertyRepo, registry, cfg.Worker.SkillTimeout, appLogger.Logger)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       appLogger.Logger,
		Store:        jobStorage,
		Processor:    processor,
		PollInterval: cfg.Worker.PollInterval,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Give worker time to finish the in-flight job
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.EnableCaller,
		TimeFormat: time.RFC3339,
		Service:    "analysis-worker-service",
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initGenerator builds the OpenAI-backed generator from config plus the
// OPENAI_API_KEY environment variable.
func initGenerator(cfg *config.OpenAIConfig, logger *slog.Logger) (ai.Generator, error) {
	return ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout,
		Pricing: ai.Pricing{
			InputPer1K:  cfg.InputCostPer1K,
			OutputPer1K: cfg.OutputCostPer1K,
		},
	}, logger)
}

// initSearchManager wires the configured providers, in config order, into
// the caching fallback manager.
func initSearchManager(cfg *config.SearchConfig, logger *slog.Logger) (*search.Manager, error) {
	var providerList []search.Provider
	for _, p := range cfg.Providers {
		switch p.Name {
		case "tavily":
			providerList = append(providerList, providers.NewTavily(p.APIKey, ""))
		case "serpapi":
			providerList = append(providerList, providers.NewSerpAPI(p.APIKey, ""))
		case "brave":
			providerList = append(providerList, providers.NewBrave(p.APIKey, ""))
		default:
			return nil, fmt.Errorf("unknown search provider: %q", p.Name)
		}
	}

	return search.NewManager(search.ManagerConfig{
		CacheCapacity:   cfg.CacheCapacity,
		CacheTTL:        cfg.CacheTTL,
		ProviderTimeout: cfg.ProviderTimeout,
	}, logger, providerList...), nil
}
