package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/keikapi/AIApp/internal/config"
	"github.com/keikapi/AIApp/internal/database"
	"github.com/keikapi/AIApp/internal/document"
	"github.com/keikapi/AIApp/internal/embedding"
	"github.com/keikapi/AIApp/internal/ingest"
	"github.com/keikapi/AIApp/internal/llm"
	"github.com/keikapi/AIApp/internal/queue"
	"github.com/keikapi/AIApp/internal/queue/workers"
	"github.com/keikapi/AIApp/internal/searchindex"
	"github.com/keikapi/AIApp/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := storage.NewMinioStorage(cfg.Storage)
	if err != nil {
		slog.Error("storage unavailable", "error", err)
		os.Exit(1)
	}

	docSvc := document.NewService(db)
	analysis := document.NewAnalysisClient(cfg.Analysis.BaseURL, cfg.Analysis.PollTimeout, cfg.Analysis.PollInterval)
	extractor := document.NewTextExtractor(analysis)
	index := searchindex.NewPostgresIndex(db, cfg.Index.Collection, cfg.Index.EmbeddingDim)
	gw := llm.NewGateway(cfg.LLM)
	embedSvc := embedding.NewService(gw, cfg.LLM.EmbeddingModel)
	pipeline := ingest.NewPipeline(store, docSvc, extractor, embedSvc, index, cfg.Storage.Bucket)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()
	ingestWorker := workers.NewIngestWorker(pipeline)
	registry.Register(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
