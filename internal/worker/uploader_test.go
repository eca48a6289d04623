package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandUploaderSuccess(t *testing.T) {
	out := filepath.Join(t.TempDir(), "env.txt")
	u := &CommandUploader{Command: writeScript(t, `echo "$UPLOAD_FILE $VIDEO_TITLE $CHANNEL_SK" > `+out)}

	err := u.Upload(context.Background(), UploadRequest{
		FilePath:   "/tmp/clip.mp4",
		VideoTitle: "Demo",
		ChannelSK:  "CHANNEL#c1",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	captured, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read captured env: %v", err)
	}
	got := strings.TrimSpace(string(captured))
	if got != "/tmp/clip.mp4 Demo CHANNEL#c1" {
		t.Fatalf("upload command saw %q", got)
	}
}

func TestCommandUploaderFailureIncludesOutput(t *testing.T) {
	u := &CommandUploader{Command: writeScript(t, `echo "quota exceeded" >&2; exit 1`)}

	err := u.Upload(context.Background(), UploadRequest{FilePath: "/tmp/clip.mp4"})
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error does not carry command output: %v", err)
	}
}

func TestCommandUploaderTimeout(t *testing.T) {
	u := &CommandUploader{
		Command: writeScript(t, `sleep 5`),
		Timeout: 50 * time.Millisecond,
	}
	if err := u.Upload(context.Background(), UploadRequest{FilePath: "/tmp/clip.mp4"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCommandUploaderEmptyCommand(t *testing.T) {
	u := &CommandUploader{}
	if err := u.Upload(context.Background(), UploadRequest{}); err == nil {
		t.Fatal("expected error for missing command")
	}
}
