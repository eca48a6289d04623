package launch

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestExecLauncherEmptyCommand(t *testing.T) {
	l := NewExecLauncher()
	_, err := l.Launch(context.Background(), Spec{Command: "  "})
	if err == nil {
		t.Fatal("expected error for empty command")
	}
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
}

func TestExecLauncherMissingBinary(t *testing.T) {
	l := NewExecLauncher()
	_, err := l.Launch(context.Background(), Spec{Command: "/nonexistent/worker-binary"})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
}

func TestExecLauncherReturnsLaunchID(t *testing.T) {
	l := NewExecLauncher()
	id, err := l.Launch(context.Background(), Spec{
		Cluster: "local",
		Command: "true",
		Params:  map[string]string{"ORG_SK": "o1"},
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a launch ID")
	}
}

func TestParamEnvDeterministicOrder(t *testing.T) {
	params := map[string]string{
		"VIDEO_SK":   "v1",
		"ORG_SK":     "o1",
		"PROJECT_SK": "p1",
		"CHANNEL_SK": "c1",
	}
	want := []string{
		"CHANNEL_SK=c1",
		"ORG_SK=o1",
		"PROJECT_SK=p1",
		"VIDEO_SK=v1",
	}
	if got := paramEnv(params); !reflect.DeepEqual(got, want) {
		t.Fatalf("paramEnv = %v, want %v", got, want)
	}
}
