package main

import (
	"context"
	"log"
	"net/url"
	"os/signal"
	"syscall"

	"ytpublish/internal/config"
	"ytpublish/internal/ingest"
	"ytpublish/internal/storage"
	"ytpublish/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		log.Fatalf("store schema: %v", err)
	}

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

	handler := ingest.NewHandler(s3, st)

	log.Printf("ingestd listening for object-created events bucket=%s", cfg.S3Bucket)
	for info := range s3.ListenObjectCreated(ctx) {
		if info.Err != nil {
			log.Printf("ingest notification error: %v", info.Err)
			continue
		}
		for _, record := range info.Records {
			key := record.S3.Object.Key
			// Notification object keys arrive URL-encoded.
			if decoded, err := url.QueryUnescape(key); err == nil {
				key = decoded
			}
			event := ingest.ObjectEvent{
				Bucket: record.S3.Bucket.Name,
				Key:    key,
			}
			res := handler.Handle(ctx, event)
			if res.StatusCode != 200 {
				log.Printf("ingest event failed bucket=%s key=%s status=%d body=%s",
					event.Bucket, event.Key, res.StatusCode, res.Body)
			}
		}
	}
	log.Println("ingestd stopped")
}
