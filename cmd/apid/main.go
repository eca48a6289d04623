package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ytpublish/internal/config"
	"ytpublish/internal/jobs"
	"ytpublish/internal/queue"
	"ytpublish/internal/storage"
	"ytpublish/internal/store"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

type jobRequest struct {
	Org     string `json:"org"`
	Project string `json:"project"`
	Video   string `json:"video"`
	Channel string `json:"channel,omitempty"`
}

type jobResponse struct {
	Org         string  `json:"org"`
	Project     string  `json:"project"`
	Video       string  `json:"video"`
	Status      string  `json:"status"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	VideoURL    *string `json:"video_url,omitempty"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

type listJobsResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type dlqTaskResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Retried int    `json:"retried"`
	LastErr string `json:"last_error,omitempty"`
}

type dlqRetryRequest struct {
	ID string `json:"id"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		log.Fatalf("store schema: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

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

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		org := strings.TrimSpace(r.URL.Query().Get("org"))
		project := strings.TrimSpace(r.URL.Query().Get("project"))
		if org == "" || project == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "org and project are required"})
			return
		}
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				limit = v
			}
		}
		if limit > 200 {
			limit = 200
		}
		items, err := st.ListJobs(r.Context(), jobs.OwnerKey(org, project), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load jobs"})
			return
		}
		resp := listJobsResponse{Jobs: make([]jobResponse, 0, len(items))}
		for _, j := range items {
			resp.Jobs = append(resp.Jobs, buildJobResponse(r.Context(), cfg, s3, org, project, j))
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/jobs/video", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		org := strings.TrimSpace(r.URL.Query().Get("org"))
		project := strings.TrimSpace(r.URL.Query().Get("project"))
		video := strings.TrimSpace(r.URL.Query().Get("video"))
		if org == "" || project == "" || video == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "org, project and video are required"})
			return
		}
		j, err := st.GetJob(r.Context(), jobs.OwnerKey(org, project), videoSK(video))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load job"})
			return
		}
		writeJSON(w, http.StatusOK, buildJobResponse(r.Context(), cfg, s3, org, project, j))
	})

	mux.HandleFunc("/jobs/approve", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeJobRequest(w, r)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Channel) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "channel is required"})
			return
		}
		sk := videoSK(req.Video)
		j, err := st.GetJob(r.Context(), jobs.OwnerKey(req.Org, req.Project), sk)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load job"})
			return
		}
		if j.Status != jobs.StatusAwaitingApproval {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "job is not awaiting approval"})
			return
		}
		task, err := queue.NewDispatchTask(queue.DispatchPayload{
			OrgSK:     req.Org,
			ProjectSK: req.Project,
			VideoSK:   sk,
			ChannelSK: req.Channel,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to build dispatch task"})
			return
		}
		// First delivery plus retries adds up to the max receive count.
		_, err = client.Enqueue(task,
			asynq.Queue(cfg.DispatchQueue),
			asynq.MaxRetry(cfg.DispatchMaxReceive-1),
			asynq.Timeout(cfg.DispatchTimeout),
		)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to enqueue"})
			return
		}
		log.Printf("approve enqueued org=%s project=%s video=%s channel=%s", req.Org, req.Project, sk, req.Channel)
		writeJSON(w, http.StatusAccepted, buildJobResponse(r.Context(), cfg, s3, req.Org, req.Project, j))
	})

	mux.HandleFunc("/jobs/reject", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeJobRequest(w, r)
		if !ok {
			return
		}
		pk := jobs.OwnerKey(req.Org, req.Project)
		sk := videoSK(req.Video)
		err := st.Transition(r.Context(), pk, sk, jobs.StatusAwaitingApproval, jobs.StatusRejected)
		if err != nil {
			if errors.Is(err, store.ErrStateConflict) {
				writeJSON(w, http.StatusConflict, errorResponse{Error: "job is not awaiting approval"})
				return
			}
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to update job"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(jobs.StatusRejected)})
	})

	mux.HandleFunc("/admin/redrive", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeJobRequest(w, r)
		if !ok {
			return
		}
		pk := jobs.OwnerKey(req.Org, req.Project)
		sk := videoSK(req.Video)
		if err := st.ReDrive(r.Context(), pk, sk); err != nil {
			if errors.Is(err, store.ErrStateConflict) {
				writeJSON(w, http.StatusConflict, errorResponse{Error: "job is not in a terminal state"})
				return
			}
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to redrive job"})
			return
		}
		log.Printf("redrive pk=%s sk=%s", pk, sk)
		writeJSON(w, http.StatusOK, map[string]string{"status": string(jobs.StatusAwaitingApproval)})
	})

	mux.HandleFunc("/admin/dlq", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		tasks, err := inspector.ListArchivedTasks(cfg.DispatchQueue, asynq.PageSize(100))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list dead-letter tasks"})
			return
		}
		out := make([]dlqTaskResponse, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, dlqTaskResponse{
				ID:      t.ID,
				Type:    t.Type,
				Payload: string(t.Payload),
				Retried: t.Retried,
				LastErr: t.LastErr,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
	})

	mux.HandleFunc("/admin/dlq/retry", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req dlqRetryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ID) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id is required"})
			return
		}
		if err := inspector.RunTask(cfg.DispatchQueue, req.ID); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to requeue task"})
			return
		}
		log.Printf("dlq requeue id=%s", req.ID)
		writeJSON(w, http.StatusAccepted, map[string]string{"id": req.ID})
	})

	handler := authMiddleware(cfg.APIToken, mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("apid listening on %s", cfg.HTTPAddr)
	log.Fatal(srv.ListenAndServe())
}

func decodeJobRequest(w http.ResponseWriter, r *http.Request) (jobRequest, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return jobRequest{}, false
	}
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return jobRequest{}, false
	}
	if strings.TrimSpace(req.Org) == "" || strings.TrimSpace(req.Project) == "" || strings.TrimSpace(req.Video) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "org, project and video are required"})
		return jobRequest{}, false
	}
	return req, true
}

func videoSK(video string) string {
	if jobs.IsVideoKey(video) {
		return video
	}
	return jobs.VideoKey(video)
}

func buildJobResponse(ctx context.Context, cfg config.Config, s3 *storage.S3Client, org, project string, j store.Job) jobResponse {
	resp := jobResponse{
		Org:         org,
		Project:     project,
		Video:       j.SK,
		Status:      string(j.Status),
		UserID:      j.UserID,
		Title:       j.VideoTitle,
		Description: j.VideoDescription,
		CreatedAt:   j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.CompletedAt.Valid {
		completed := j.CompletedAt.Time.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	objectKey := jobs.ObjectKeyFromVideoKey(j.SK)
	if signed, err := s3.PresignVideo(ctx, objectKey, cfg.PresignVideoTTL); err == nil {
		resp.VideoURL = &signed
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func authMiddleware(token string, next http.Handler) http.Handler {
	if strings.TrimSpace(token) == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if !isAuthorized(r, token) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAuthorized(r *http.Request, token string) bool {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == token {
		return true
	}
	return r.Header.Get("X-API-KEY") == token
}
