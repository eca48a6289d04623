package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/ytpublish",
		RedisAddr:          "localhost:6379",
		S3Endpoint:         "http://localhost:9000",
		S3Bucket:           "yt-uploads",
		DispatchMaxReceive: 3,
		DispatchTimeout:    time.Minute,
		WorkerCommand:      "/usr/local/bin/workerd",
		UploadCommand:      "/usr/local/bin/yt-upload",
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.S3Bucket = ""
	cfg.DispatchMaxReceive = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "S3_BUCKET", "DISPATCH_MAX_RECEIVE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateDispatcherRequiresWorkerCommand(t *testing.T) {
	cfg := validConfig()
	cfg.WorkerCommand = ""
	if err := cfg.ValidateDispatcher(); err == nil {
		t.Fatal("expected error for missing WORKER_COMMAND")
	}
	cfg.WorkerCommand = "/usr/local/bin/workerd"
	if err := cfg.ValidateDispatcher(); err != nil {
		t.Fatalf("ValidateDispatcher failed: %v", err)
	}
}

func TestValidateWorkerRequiresUploadCommand(t *testing.T) {
	cfg := validConfig()
	cfg.UploadCommand = ""
	if err := cfg.ValidateWorker(); err == nil {
		t.Fatal("expected error for missing UPLOAD_COMMAND")
	}
	cfg.UploadCommand = "/usr/local/bin/yt-upload"
	if err := cfg.ValidateWorker(); err != nil {
		t.Fatalf("ValidateWorker failed: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.DispatchMaxReceive != 3 {
		t.Fatalf("default max receive = %d, want 3", cfg.DispatchMaxReceive)
	}
	if cfg.DispatchQueue != "yt-upload-jobs" {
		t.Fatalf("unexpected default queue %q", cfg.DispatchQueue)
	}
	if cfg.DispatchConcurrency != 1 {
		t.Fatalf("default concurrency = %d, want 1", cfg.DispatchConcurrency)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DISPATCH_MAX_RECEIVE", "5")
	t.Setenv("WORKER_SUBNETS", "subnet-a, subnet-b ,")
	t.Setenv("WORKER_ASSIGN_PUBLIC_IP", "true")
	t.Setenv("DISPATCH_TIMEOUT", "90s")

	cfg := Load()
	if cfg.DispatchMaxReceive != 5 {
		t.Fatalf("max receive = %d, want 5", cfg.DispatchMaxReceive)
	}
	if len(cfg.Subnets) != 2 || cfg.Subnets[0] != "subnet-a" || cfg.Subnets[1] != "subnet-b" {
		t.Fatalf("unexpected subnets %v", cfg.Subnets)
	}
	if !cfg.AssignPublicIP {
		t.Fatal("expected AssignPublicIP true")
	}
	if cfg.DispatchTimeout != 90*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.DispatchTimeout)
	}
}
