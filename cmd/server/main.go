package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"planproof/internal/config"
	"planproof/internal/docai/layout"
	"planproof/internal/docai/pdftext"
	"planproof/internal/gate"
	"planproof/internal/handler"
	"planproof/internal/pipeline"
	"planproof/internal/port"
	"planproof/internal/repository/postgres"
	"planproof/internal/resolver"
	"planproof/internal/resolver/claude"
	"planproof/internal/resolver/openai"
	"planproof/internal/router"
	"planproof/internal/rules"
	"planproof/internal/service"
	s3storage "planproof/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	runRepo := postgres.NewRunRepo(db)
	docRepo := postgres.NewDocumentRepo(db)
	fieldRepo := postgres.NewResolvedFieldRepo(db)
	findingRepo := postgres.NewFindingRepo(db)
	cacheRepo := postgres.NewResolutionCacheRepo(db)
	artifactRepo := postgres.NewArtifactRepo(db)
	ruleRepo := postgres.NewRuleRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the rule catalog and mirror it into the database for reporting.
	catalog, err := rules.LoadCatalog(cfg.Rules.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load rule catalog: %w", err)
	}
	if err := ruleRepo.UpsertBatch(ctx, catalog); err != nil {
		return fmt.Errorf("failed to store rule catalog: %w", err)
	}
	log.Printf("rule catalog loaded: %d rules from %s", len(catalog), cfg.Rules.CatalogPath)

	// Register LLM resolver providers and assemble the fallback chain.
	resolver.RegisterProvider("claude", func(c *config.ResolverProviderConfig) (port.FieldResolver, error) {
		return claude.NewResolver(c), nil
	})
	resolver.RegisterProvider("openai", func(c *config.ResolverProviderConfig) (port.FieldResolver, error) {
		return openai.NewResolver(c), nil
	})

	primary, err := resolver.NewResolver(&cfg.Resolver.Primary)
	if err != nil {
		return fmt.Errorf("failed to create primary resolver: %w", err)
	}
	chain := []port.FieldResolver{primary}
	names := []string{cfg.Resolver.Primary.Provider}
	if sec := cfg.Resolver.SecondaryConfig(); sec != nil {
		secondary, err := resolver.NewResolver(sec)
		if err != nil {
			return fmt.Errorf("failed to create secondary resolver: %w", err)
		}
		chain = append(chain, secondary)
		names = append(names, sec.Provider)
	}
	fieldResolver := resolver.NewFallbackResolver(chain, names)

	// Pick the document analyzer.
	var analyzer port.DocumentAnalyzer
	switch cfg.DocAI.Provider {
	case "layout":
		analyzer = layout.New(&cfg.DocAI)
	case "pdftext":
		analyzer = pdftext.New()
	default:
		return fmt.Errorf("unknown document analysis provider: %s", cfg.DocAI.Provider)
	}

	// Assemble the pipeline and queue worker.
	cache := gate.NewCache(cacheRepo)
	llmGate := gate.New(&cfg.Extraction, fieldResolver, cache)
	pipe := pipeline.New(&cfg.Extraction, analyzer, llmGate, cache, catalog)

	worker := service.NewProcessQueueWorker(
		runRepo, docRepo, fieldRepo, findingRepo, artifactRepo, s3Client, pipe,
		service.ProcessQueueConfig{
			PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
			MaxRetries:   cfg.Queue.MaxRetries,
			Concurrency:  cfg.Queue.Concurrency,
		})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	// Initialize services and handlers
	runSvc := service.NewRunService(runRepo, docRepo, fieldRepo, findingRepo, artifactRepo, s3Client, &cfg.S3)
	runH := handler.NewRunHandler(runSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, runH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (env %s, analyzer %s)",
			cfg.Server.Port, cfg.Server.Environment, cfg.DocAI.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone

	return nil
}
