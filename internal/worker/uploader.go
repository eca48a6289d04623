package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CommandUploader delegates the platform upload to an external command.
// The command receives the downloaded file and the job's descriptive
// fields through its environment and is expected to exit zero on success.
// Credentials and the upload protocol itself stay outside this repository.
type CommandUploader struct {
	Command string
	Timeout time.Duration
}

func (u *CommandUploader) Upload(ctx context.Context, req UploadRequest) error {
	command := strings.TrimSpace(u.Command)
	if command == "" {
		return errors.New("UPLOAD_COMMAND is required")
	}
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command)
	cmd.Env = append(os.Environ(),
		"UPLOAD_FILE="+req.FilePath,
		"VIDEO_TITLE="+req.VideoTitle,
		"VIDEO_DESCRIPTION="+req.VideoDescription,
		"THUMBNAIL_KEY="+req.ThumbnailKey,
		"CHANNEL_SK="+req.ChannelSK,
	)
	output, err := runCommand(cmd)
	if err != nil {
		if output == "" {
			return fmt.Errorf("upload command failed: %w", err)
		}
		return fmt.Errorf("upload command failed: %w: %s", err, output)
	}
	return nil
}

func runCommand(cmd *exec.Cmd) (string, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	out = truncate(out, 800)
	return out, err
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
