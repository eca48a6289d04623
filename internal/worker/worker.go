package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ytpublish/internal/jobs"
	"ytpublish/internal/store"
)

// Params identifies the job this worker instance was launched for. All
// four values arrive through the launch environment.
type Params struct {
	OrgSK     string
	ProjectSK string
	VideoSK   string
	ChannelSK string
}

func (p Params) validate() error {
	var missing []string
	if strings.TrimSpace(p.OrgSK) == "" {
		missing = append(missing, "ORG_SK")
	}
	if strings.TrimSpace(p.ProjectSK) == "" {
		missing = append(missing, "PROJECT_SK")
	}
	if strings.TrimSpace(p.VideoSK) == "" {
		missing = append(missing, "VIDEO_SK")
	}
	if strings.TrimSpace(p.ChannelSK) == "" {
		missing = append(missing, "CHANNEL_SK")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing launch params: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParamsFromEnv reads the launch parameterization from the environment.
func ParamsFromEnv() Params {
	return Params{
		OrgSK:     os.Getenv("ORG_SK"),
		ProjectSK: os.Getenv("PROJECT_SK"),
		VideoSK:   os.Getenv("VIDEO_SK"),
		ChannelSK: os.Getenv("CHANNEL_SK"),
	}
}

// JobStore is the slice of the record store the worker needs.
type JobStore interface {
	GetJob(ctx context.Context, pk, sk string) (store.Job, error)
	Transition(ctx context.Context, pk, sk string, from, to jobs.Status) error
}

// ObjectFetcher downloads the source video object to a local file.
type ObjectFetcher interface {
	FetchVideo(ctx context.Context, objectKey, destPath string) error
}

// UploadRequest is everything the platform upload step receives.
type UploadRequest struct {
	FilePath         string
	VideoTitle       string
	VideoDescription string
	ThumbnailKey     string
	ChannelSK        string
}

// Uploader performs the actual platform upload. The implementation lives
// outside this pipeline; see CommandUploader.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) error
}

// Runner drives one ephemeral worker invocation through the job lifecycle:
// claim, fetch, upload, terminal status.
type Runner struct {
	store    JobStore
	fetcher  ObjectFetcher
	uploader Uploader
	tempDir  string
}

func NewRunner(st JobStore, fetcher ObjectFetcher, uploader Uploader, tempDir string) *Runner {
	return &Runner{store: st, fetcher: fetcher, uploader: uploader, tempDir: tempDir}
}

// Run executes the full worker lifecycle for one job. A duplicate launch
// (the job is already uploading, or already terminal) is a clean no-op:
// delivery is at-least-once, so a second worker for the same job is
// expected occasionally and must not disturb the first one's work.
func (r *Runner) Run(ctx context.Context, p Params) error {
	if err := p.validate(); err != nil {
		return err
	}

	pk := jobs.OwnerKey(p.OrgSK, p.ProjectSK)
	sk := p.VideoSK
	if !jobs.IsVideoKey(sk) {
		sk = jobs.VideoKey(p.VideoSK)
	}

	// Claiming the job is the duplicate-launch check: only one worker can
	// win the awaiting_approval -> uploading_to_yt write.
	if err := r.store.Transition(ctx, pk, sk, jobs.StatusAwaitingApproval, jobs.StatusUploading); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			log.Printf("worker duplicate launch, job already claimed pk=%s sk=%s", pk, sk)
			return nil
		}
		return fmt.Errorf("claim job %s/%s: %w", pk, sk, err)
	}

	job, err := r.store.GetJob(ctx, pk, sk)
	if err != nil {
		return r.fail(ctx, pk, sk, fmt.Errorf("load job %s/%s: %w", pk, sk, err))
	}

	workDir, err := os.MkdirTemp(r.workRoot(), "ytpublish-worker-*")
	if err != nil {
		return r.fail(ctx, pk, sk, fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	objectKey := jobs.ObjectKeyFromVideoKey(sk)
	filePath := filepath.Join(workDir, filepath.Base(objectKey))
	if err := r.fetcher.FetchVideo(ctx, objectKey, filePath); err != nil {
		return r.fail(ctx, pk, sk, fmt.Errorf("fetch video %s: %w", objectKey, err))
	}

	req := UploadRequest{
		FilePath:         filePath,
		VideoTitle:       job.VideoTitle,
		VideoDescription: job.VideoDescription,
		ThumbnailKey:     job.ThumbnailKey,
		ChannelSK:        p.ChannelSK,
	}
	if err := r.uploader.Upload(ctx, req); err != nil {
		return r.fail(ctx, pk, sk, fmt.Errorf("platform upload: %w", err))
	}

	if err := r.store.Transition(ctx, pk, sk, jobs.StatusUploading, jobs.StatusUploaded); err != nil {
		return fmt.Errorf("mark uploaded %s/%s: %w", pk, sk, err)
	}
	log.Printf("worker done pk=%s sk=%s", pk, sk)
	return nil
}

// fail records the terminal failure and hands the original error back. The
// status write is best-effort: if it loses a race the correctness signal is
// already logged by the store caller.
func (r *Runner) fail(ctx context.Context, pk, sk string, cause error) error {
	log.Printf("worker failed pk=%s sk=%s err=%v", pk, sk, cause)
	if err := r.store.Transition(ctx, pk, sk, jobs.StatusUploading, jobs.StatusFailed); err != nil {
		log.Printf("worker mark failed pk=%s sk=%s err=%v", pk, sk, err)
	}
	return cause
}

func (r *Runner) workRoot() string {
	if strings.TrimSpace(r.tempDir) != "" {
		return r.tempDir
	}
	return os.TempDir()
}
