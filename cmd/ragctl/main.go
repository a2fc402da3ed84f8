// ragctl is the operational CLI: ingest files, run queries and manage
// documents without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

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

var (
	version = "dev"

	// Ingest flags
	title       string
	concurrency int

	// Query flags
	documentID string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ragctl",
	Short:   "Manage the document Q&A corpus",
	Version: version,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file> [file...]",
	Short: "Ingest one or more files into the corpus",
	Long: `Ingest files into the corpus. Each file is chunked, embedded and
persisted atomically: a failed file leaves nothing behind.

Examples:
  # Ingest a single file with an explicit title
  ragctl ingest report.pdf --title "Quarterly report"

  # Ingest several files, four at a time
  ragctl ingest docs/*.md --concurrency 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	ingestCmd.Flags().StringVar(&title, "title", "", "document title (single file only; defaults to file name)")
	ingestCmd.Flags().IntVar(&concurrency, "concurrency", 2, "how many files to ingest in parallel")
	queryCmd.Flags().StringVar(&documentID, "document", "", "restrict the query to one document id")

	rootCmd.AddCommand(ingestCmd, queryCmd, listCmd, deleteCmd)
}

// components bundles the wired dependencies shared by all commands.
type components struct {
	pool      *pgxpool.Pool
	ingest    usecase.IngestDocumentUsecase
	query     usecase.QueryUsecase
	documents usecase.ManageDocumentsUsecase
}

func setup(ctx context.Context) (*components, error) {
	cfg := config.Load()
	log := logger.New()
	slog.SetDefault(log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := infra.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	embedder := provider.NewOpenAIEmbedder(
		cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel,
		domain.EmbeddingDim, cfg.EmbedMaxBatch, cfg.EmbedRateLimit,
		httpclient.NewPooledClient(time.Duration(cfg.EmbedTimeoutSecs)*time.Second),
	)
	generator := provider.NewAnthropicGenerator(
		cfg.GenerationURL, cfg.GenerationAPIKey, cfg.GenerationModel,
		httpclient.NewPooledClient(time.Duration(cfg.GenTimeoutSecs)*time.Second),
	)

	ingest := usecase.NewIngestDocumentUsecase(
		docRepo, chunkRepo, txManager, loader.New(),
		domain.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder, cfg.EmbedBatchSize, log,
	)
	retrieve := usecase.NewRetrieveChunksUsecase(chunkRepo, embedder, log)
	query := usecase.NewQueryUsecase(
		retrieve, usecase.NewGroundedPromptBuilder(), generator,
		cfg.RetrieveLimit, cfg.AnswerMaxChunks, cfg.AnswerMaxTokens, log,
	)
	documents := usecase.NewManageDocumentsUsecase(docRepo, log)

	return &components{
		pool:      pool,
		ingest:    ingest,
		query:     query,
		documents: documents,
	}, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if title != "" && len(args) > 1 {
		return fmt.Errorf("--title can only be used with a single file")
	}

	ctx := cmd.Context()
	comps, err := setup(ctx)
	if err != nil {
		return err
	}
	defer comps.pool.Close()

	// Each file is its own transaction; files fan out, batches within a
	// file stay sequential.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range args {
		path := path
		g.Go(func() error {
			docTitle := title
			if docTitle == "" {
				docTitle = filepath.Base(path)
			}
			out, err := comps.ingest.Ingest(gctx, usecase.IngestDocumentInput{
				FilePath: path,
				Title:    docTitle,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("ingested %s: document %s, %d chunks\n", path, out.DocumentID, out.ChunkCount)
			return nil
		})
	}
	return g.Wait()
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	comps, err := setup(ctx)
	if err != nil {
		return err
	}
	defer comps.pool.Close()

	var docID *uuid.UUID
	if documentID != "" {
		id, err := uuid.Parse(documentID)
		if err != nil {
			return fmt.Errorf("invalid document id %q: %w", documentID, err)
		}
		docID = &id
	}

	result, err := comps.query.Query(ctx, args[0], docID)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.UsedChunks) > 0 {
		fmt.Printf("\n(answer grounded in %d of %d retrieved chunks)\n",
			len(result.UsedChunks), len(result.AllChunks))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	comps, err := setup(ctx)
	if err != nil {
		return err
	}
	defer comps.pool.Close()

	docs, err := comps.documents.List(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%s  %s  %s\n", d.ID, d.UploadedAt.Format(time.RFC3339), d.Title)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	comps, err := setup(ctx)
	if err != nil {
		return err
	}
	defer comps.pool.Close()

	if err := comps.documents.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}
