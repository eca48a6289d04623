package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ytpublish/internal/dispatch"
	"ytpublish/internal/launch"
	"ytpublish/internal/queue"

	"github.com/hibiken/asynq"
)

func TestTaskHandlerAcknowledgesSuccess(t *testing.T) {
	launcher := &fakeLauncher{}
	th := dispatch.NewTaskHandler(dispatch.NewHandler(launcher, testTemplate()))

	task := asynq.NewTask(queue.TaskDispatchUpload, validBody())
	if err := th(context.Background(), task); err != nil {
		t.Fatalf("expected nil for successful dispatch, got %v", err)
	}
	if len(launcher.specs) != 1 {
		t.Fatalf("expected exactly one launch, got %d", len(launcher.specs))
	}
}

func TestTaskHandlerDeadLettersMalformedBody(t *testing.T) {
	launcher := &fakeLauncher{}
	th := dispatch.NewTaskHandler(dispatch.NewHandler(launcher, testTemplate()))

	task := asynq.NewTask(queue.TaskDispatchUpload, []byte(`{"orgSK":"o1"}`))
	err := th(context.Background(), task)
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed body must skip retries and archive, got %v", err)
	}
	if len(launcher.specs) != 0 {
		t.Fatal("malformed message must not launch a worker")
	}
}

func TestTaskHandlerLeavesLaunchFailureForRedelivery(t *testing.T) {
	launcher := &fakeLauncher{err: fmt.Errorf("%w: capacity exhausted", launch.ErrSubmission)}
	th := dispatch.NewTaskHandler(dispatch.NewHandler(launcher, testTemplate()))

	task := asynq.NewTask(queue.TaskDispatchUpload, validBody())
	err := th(context.Background(), task)
	if err == nil {
		t.Fatal("expected error on launch failure")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient launch failure must stay retryable, got %v", err)
	}
	if !errors.Is(err, launch.ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
}
