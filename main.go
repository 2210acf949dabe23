package main

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/answer"
	"github.com/coopregistry/coopassist/pkg/config"
	"github.com/coopregistry/coopassist/pkg/database"
	"github.com/coopregistry/coopassist/pkg/handlers"
	"github.com/coopregistry/coopassist/pkg/intent"
	"github.com/coopregistry/coopassist/pkg/knowledge"
	"github.com/coopregistry/coopassist/pkg/language"
	"github.com/coopregistry/coopassist/pkg/llm"
	"github.com/coopregistry/coopassist/pkg/logging"
	"github.com/coopregistry/coopassist/pkg/pipeline"
	"github.com/coopregistry/coopassist/pkg/planner"
	"github.com/coopregistry/coopassist/pkg/schema"
	"github.com/coopregistry/coopassist/pkg/viz"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model))

	ctx := context.Background()

	db, err := database.Open(ctx, &database.Config{URL: cfg.Database.URL()})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	kb, err := knowledge.Load(cfg.KnowledgePath, logger)
	if err != nil {
		logger.Fatal("Failed to load knowledge base", zap.Error(err))
	}

	client, err := llm.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create model client", zap.Error(err))
	}

	normalizer := language.NewNormalizer(client, cfg.AI.Temperature, logger)
	classifier := intent.NewClassifier(client, cfg.AI.Temperature, logger)
	guard := schema.NewGuard(schema.Default())
	executor := database.NewExecutor(db, logger)
	queryPlanner := planner.New(client, guard, executor, cfg.Pipeline.PlannerMaxAttempts, cfg.AI.Temperature, logger)
	synthesizer := answer.NewSynthesizer(client, cfg.Pipeline.AnswerMaxChars, cfg.AI.Temperature, logger)
	charts := viz.NewEngine(logger)

	controller := pipeline.NewController(
		normalizer, classifier, queryPlanner, synthesizer, charts, kb,
		cfg.Charts.Dir, cfg.Charts.URLPrefix, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	chatHandler := handlers.NewChatHandler(controller, logger)
	chatHandler.RegisterRoutes(mux)

	translateHandler := handlers.NewTranslateHandler(normalizer, logger)
	translateHandler.RegisterRoutes(mux)

	mux.Handle("/metrics", promhttp.Handler())

	// Serve rendered chart files
	mux.Handle(cfg.Charts.URLPrefix+"/", http.StripPrefix(cfg.Charts.URLPrefix+"/", http.FileServer(http.Dir(cfg.Charts.Dir))))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting coopassist",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
