package main

import (
	"context"
	"log"
	"time"

	"quizsmith/internal/activities"
	"quizsmith/internal/cache"
	"quizsmith/internal/config"
	"quizsmith/internal/ingest"
	"quizsmith/internal/parser"
	"quizsmith/internal/storage"
	"quizsmith/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatal(err)
	}

	svc := ingest.NewService(ingest.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ExtractTimeout:  time.Duration(cfg.ExtractTimeoutSecs) * time.Second,
		StrictTypeCheck: cfg.StrictTypeCheck,
		Segment: parser.SegmentConfig{
			MaxHeadingLen: cfg.MaxHeadingLen,
			MinTextLen:    cfg.MinSectionLen,
		},
	}, cache.New(time.Duration(cfg.CacheTTLSeconds)*time.Second), storage.NewArtifactRepo(db), storage.NewParsedRepo(db))

	a, err := activities.New(cfg, db, svc)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Printf("quizsmith worker listening on %s queue=%s quiz_providers=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.QuizProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
