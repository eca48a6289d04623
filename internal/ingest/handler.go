package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ytpublish/internal/jobs"
	"ytpublish/internal/storage"
	"ytpublish/internal/store"
)

// ObjectEvent is one storage-object-created notification record.
type ObjectEvent struct {
	Bucket string
	Key    string
}

// Result is the structured outcome handed back to the event source. 200
// acknowledges the event; 500 asks the source to redeliver it.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// MetadataFetcher reads the declarative metadata attached to an object.
type MetadataFetcher interface {
	StatVideo(ctx context.Context, objectKey string) (storage.VideoMetadata, error)
}

// RecordCreator writes the initial job record if none exists yet.
type RecordCreator interface {
	CreateJob(ctx context.Context, j store.Job) (bool, error)
}

// Handler turns storage-creation events into tracked job records.
type Handler struct {
	metadata MetadataFetcher
	records  RecordCreator
}

func NewHandler(metadata MetadataFetcher, records RecordCreator) *Handler {
	return &Handler{metadata: metadata, records: records}
}

// Handle processes one event. Nothing escapes the handler boundary: every
// failure is logged and folded into the Result so the event source alone
// decides whether to retry.
func (h *Handler) Handle(ctx context.Context, event ObjectEvent) Result {
	if event.Key == "" {
		log.Printf("ingest skipped: event without object key bucket=%s", event.Bucket)
		return Result{StatusCode: 200, Body: "skipped: no object key"}
	}

	meta, err := h.metadata.StatVideo(ctx, event.Key)
	if err != nil {
		log.Printf("ingest metadata fetch bucket=%s key=%s err=%v", event.Bucket, event.Key, err)
		if errors.Is(err, storage.ErrMetadataFetch) {
			return Result{StatusCode: 500, Body: "metadata fetch failed"}
		}
		return Result{StatusCode: 500, Body: "internal error"}
	}

	// Objects without a video classification never become jobs. The event
	// is acknowledged so the source does not redeliver something that can
	// never succeed.
	if !meta.IsVideo() {
		log.Printf("ingest skipped: not a video bucket=%s key=%s contenttype=%q", event.Bucket, event.Key, meta.ContentType)
		return Result{StatusCode: 200, Body: "skipped: not a video"}
	}

	job := store.Job{
		PK:               jobs.OwnerKey(meta.OrgID, meta.ProjectID),
		SK:               jobs.VideoKey(event.Key),
		Status:           jobs.StatusAwaitingApproval,
		UserID:           meta.UserID,
		VideoTitle:       meta.VideoTitle,
		VideoDescription: meta.VideoDescription,
		ThumbnailKey:     meta.ThumbnailKey,
		SourceBucket:     event.Bucket,
	}

	created, err := h.records.CreateJob(ctx, job)
	if err != nil {
		log.Printf("ingest create record pk=%s sk=%s err=%v", job.PK, job.SK, err)
		return Result{StatusCode: 500, Body: "record creation failed"}
	}
	if !created {
		// Redelivered event; the existing record, whatever status it has
		// reached, stays untouched.
		log.Printf("ingest duplicate absorbed pk=%s sk=%s", job.PK, job.SK)
		return Result{StatusCode: 200, Body: "duplicate event absorbed"}
	}

	log.Printf("ingest job created pk=%s sk=%s title=%q", job.PK, job.SK, job.VideoTitle)
	return Result{StatusCode: 200, Body: fmt.Sprintf("job created: %s/%s", job.PK, job.SK)}
}
