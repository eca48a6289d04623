package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPAddr string

	RedisAddr   string
	RedisDB     int
	DatabaseURL string

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3Region         string
	S3UsePathStyle   bool

	// Dispatch queue behavior. MaxReceive is the number of delivery
	// attempts a message gets before the queue moves it to the
	// dead-letter set.
	DispatchQueue       string
	DispatchMaxReceive  int
	DispatchTimeout     time.Duration
	DispatchConcurrency int

	// Worker launch template.
	ClusterName    string
	WorkerCommand  string
	AssignPublicIP bool
	Subnets        []string
	SecurityGroups []string

	// Worker runtime.
	UploadCommand   string
	UploadTimeout   time.Duration
	TempDir         string
	PresignVideoTTL time.Duration

	APIToken string
}

func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "local"),
		HTTPAddr: getEnv("APP_HTTP_ADDR", ":8080"),

		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		S3Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3UsePathStyle:   getEnvBool("S3_USE_PATH_STYLE", true),

		DispatchQueue:       getEnv("DISPATCH_QUEUE", "yt-upload-jobs"),
		DispatchMaxReceive:  getEnvInt("DISPATCH_MAX_RECEIVE", 3),
		DispatchTimeout:     getEnvDuration("DISPATCH_TIMEOUT", time.Minute),
		DispatchConcurrency: getEnvInt("DISPATCH_CONCURRENCY", 1),

		ClusterName:    getEnv("WORKER_CLUSTER", "local"),
		WorkerCommand:  getEnv("WORKER_COMMAND", ""),
		AssignPublicIP: getEnvBool("WORKER_ASSIGN_PUBLIC_IP", false),
		Subnets:        getEnvList("WORKER_SUBNETS"),
		SecurityGroups: getEnvList("WORKER_SECURITY_GROUPS"),

		UploadCommand:   getEnv("UPLOAD_COMMAND", ""),
		UploadTimeout:   getEnvDuration("UPLOAD_TIMEOUT", 30*time.Minute),
		TempDir:         getEnv("TEMP_DIR", ""),
		PresignVideoTTL: getEnvDuration("PRESIGN_VIDEO_TTL", 15*time.Minute),

		APIToken: getEnv("API_TOKEN", ""),
	}
}

// Validate checks the settings every component depends on. Mains call it
// once at startup so a misconfigured process fails fast instead of
// surfacing the gap on its first event.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		problems = append(problems, "REDIS_ADDR is required")
	}
	if strings.TrimSpace(c.S3Endpoint) == "" {
		problems = append(problems, "S3_ENDPOINT is required")
	}
	if strings.TrimSpace(c.S3Bucket) == "" {
		problems = append(problems, "S3_BUCKET is required")
	}
	if c.DispatchMaxReceive < 1 {
		problems = append(problems, "DISPATCH_MAX_RECEIVE must be at least 1")
	}
	if c.DispatchTimeout <= 0 {
		problems = append(problems, "DISPATCH_TIMEOUT must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}

// ValidateDispatcher extends Validate with the launch template settings the
// dispatcher cannot run without.
func (c Config) ValidateDispatcher() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.WorkerCommand) == "" {
		return errors.New("invalid configuration: WORKER_COMMAND is required")
	}
	return nil
}

// ValidateWorker extends Validate with the settings the worker cannot run
// without. A blank upload command must fail startup, before the worker
// claims a job it can never finish.
func (c Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.UploadCommand) == "" {
		return errors.New("invalid configuration: UPLOAD_COMMAND is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
