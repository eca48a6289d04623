package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"ytpublish/internal/config"
	"ytpublish/internal/storage"
	"ytpublish/internal/store"
	"ytpublish/internal/worker"

	"github.com/joho/godotenv"
)

// workerd is the ephemeral worker: launched once per admitted job with the
// job identifiers in its environment, it claims the job, fetches the video
// object, runs the configured upload command, and records the terminal
// status before exiting.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer st.Close()

	s3, err := storage.NewS3(
		cfg.S3Endpoint,
		cfg.S3AccessKey,
		cfg.S3SecretKey,
		cfg.S3Region,
		cfg.S3Bucket,
		cfg.S3UsePathStyle,
		cfg.S3PublicEndpoint,
	)
	if err != nil {
		log.Fatalf("s3 init: %v", err)
	}

	uploader := &worker.CommandUploader{
		Command: cfg.UploadCommand,
		Timeout: cfg.UploadTimeout,
	}
	runner := worker.NewRunner(st, s3, uploader, cfg.TempDir)

	params := worker.ParamsFromEnv()
	if err := runner.Run(ctx, params); err != nil {
		log.Fatalf("worker run: %v", err)
	}
}
