package launch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrSubmission marks a failed launch submission. It is transient: the
// dispatcher leaves the message unacknowledged and the queue redelivers it.
var ErrSubmission = errors.New("worker launch submission failed")

// Network describes the placement the worker runs under. For a local
// launcher it is informational; remote orchestrators consume it as-is.
type Network struct {
	AssignPublicIP bool
	Subnets        []string
	SecurityGroups []string
}

// Spec is one worker launch request: where to run, what to run, and the
// job identifiers injected as the worker's environment. Params is the only
// channel job identity crosses into the ephemeral worker; no payload data
// travels with the launch.
type Spec struct {
	Cluster string
	Command string
	Network Network
	Params  map[string]string
}

// Launcher submits worker launch requests to the compute layer.
type Launcher interface {
	// Launch submits exactly one launch request and returns the
	// worker instance identifier assigned to it.
	Launch(ctx context.Context, spec Spec) (string, error)
}

// ExecLauncher starts the worker command as a detached local process. The
// process must outlive the dispatch invocation, so it is released rather
// than waited on; its exit status is the worker's own concern.
type ExecLauncher struct{}

func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

func (l *ExecLauncher) Launch(ctx context.Context, spec Spec) (string, error) {
	command := strings.TrimSpace(spec.Command)
	if command == "" {
		return "", fmt.Errorf("%w: worker command is empty", ErrSubmission)
	}

	launchID := uuid.NewString()
	cmd := exec.Command(command)
	cmd.Env = append(os.Environ(), paramEnv(spec.Params)...)
	cmd.Env = append(cmd.Env, "LAUNCH_ID="+launchID)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: start %s: %v", ErrSubmission, command, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		log.Printf("launch release pid=%d err=%v", pid, err)
	}
	log.Printf("worker launched cluster=%s command=%s launch_id=%s pid=%d", spec.Cluster, command, launchID, pid)
	return launchID, nil
}

func paramEnv(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+params[k])
	}
	return env
}
