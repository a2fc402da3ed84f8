package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ragdocs/internal/adapter/httpapi"
	"ragdocs/internal/adapter/provider"
	"ragdocs/internal/adapter/repository"
	"ragdocs/internal/domain"
	"ragdocs/internal/infra"
	"ragdocs/internal/infra/config"
	"ragdocs/internal/infra/httpclient"
	"ragdocs/internal/infra/logger"
	"ragdocs/internal/loader"
	"ragdocs/internal/usecase"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	// 3. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := infra.InitSchema(context.Background(), dbPool); err != nil {
		log.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Adapters
	docRepo := repository.NewDocumentRepository(dbPool)
	chunkRepo := repository.NewChunkRepository(dbPool)
	txManager := repository.NewPostgresTransactionManager(dbPool)

	embedder := provider.NewOpenAIEmbedder(
		cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel,
		domain.EmbeddingDim, cfg.EmbedMaxBatch, cfg.EmbedRateLimit,
		httpclient.NewPooledClient(time.Duration(cfg.EmbedTimeoutSecs)*time.Second),
	)
	generator := provider.NewAnthropicGenerator(
		cfg.GenerationURL, cfg.GenerationAPIKey, cfg.GenerationModel,
		httpclient.NewPooledClient(time.Duration(cfg.GenTimeoutSecs)*time.Second),
	)

	// 5. Initialize Usecases
	fileLoader := loader.New()
	chunker := domain.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)

	ingestUsecase := usecase.NewIngestDocumentUsecase(
		docRepo, chunkRepo, txManager, fileLoader, chunker, embedder,
		cfg.EmbedBatchSize, log,
	)
	retrieveUsecase := usecase.NewRetrieveChunksUsecase(chunkRepo, embedder, log)
	queryUsecase := usecase.NewQueryUsecase(
		retrieveUsecase, usecase.NewGroundedPromptBuilder(), generator,
		cfg.RetrieveLimit, cfg.AnswerMaxChunks, cfg.AnswerMaxTokens, log,
		usecase.WithAnswerCache(cfg.CacheSize, time.Duration(cfg.CacheTTLMins)*time.Minute),
	)
	docsUsecase := usecase.NewManageDocumentsUsecase(docRepo, log)

	// 6. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// 7. Register Handlers
	handler := httpapi.NewHandler(ingestUsecase, queryUsecase, docsUsecase, cfg.UploadDir, log)
	handler.Register(e)

	// 8. Health Checks
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 9. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("Starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
