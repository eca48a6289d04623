package main

import (
	"log"

	"ytpublish/internal/config"
	"ytpublish/internal/dispatch"
	"ytpublish/internal/launch"
	"ytpublish/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
	cfg := config.Load()
	if err := cfg.ValidateDispatcher(); err != nil {
		log.Fatalf("config: %v", err)
	}

	handler := dispatch.NewHandler(launch.NewExecLauncher(), dispatch.Template{
		Cluster:        cfg.ClusterName,
		Command:        cfg.WorkerCommand,
		AssignPublicIP: cfg.AssignPublicIP,
		Subnets:        cfg.Subnets,
		SecurityGroups: cfg.SecurityGroups,
	})

	concurrency := cfg.DispatchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{cfg.DispatchQueue: 1},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDispatchUpload, dispatch.NewTaskHandler(handler))

	log.Printf("dispatcherd started queue=%s concurrency=%d", cfg.DispatchQueue, concurrency)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("dispatcher error: %v", err)
	}
}
