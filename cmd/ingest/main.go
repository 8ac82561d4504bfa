package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pdfchat/internal/ai"
	"pdfchat/internal/chunker"
	"pdfchat/internal/config"
	"pdfchat/internal/ingest"
	"pdfchat/internal/model"
	"pdfchat/internal/platform/mysql"
	"pdfchat/internal/vectorindex"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env failed: %v", err)
	}

	var dir string
	flag.StringVar(&dir, "dir", "", "directory of PDF files to ingest (defaults to the configured ingest dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if dir == "" {
		dir = cfg.Ingest.Dir
	}

	ctx := context.Background()

	db, err := mysql.New(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}
	if err := db.AutoMigrate(&model.Document{}, &model.Chunk{}); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}

	client := ai.NewOpenAICompatibleClient(cfg.LLM.MaxRetries)
	gateway := ai.NewGateway(client, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
		Timeout: time.Duration(cfg.LLM.EmbeddingTimeoutSeconds) * time.Second,
	}, cfg.Ingest.EmbeddingBatchSize)

	splitter := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	pipeline := ingest.NewPipeline(splitter, gateway, vectorindex.NewSQLStore(db))

	report, err := pipeline.Run(ctx, dir)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	log.Printf("ingest finished: %d processed, %d chunks written, %d skipped, %d failed",
		report.DocumentsProcessed, report.ChunksWritten, report.DocumentsSkipped, len(report.Failures))
	for _, f := range report.Failures {
		log.Printf("  failed %s: %s", f.Source, f.Reason)
	}
}
