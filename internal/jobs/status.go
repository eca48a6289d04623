package jobs

import "fmt"

// Status is the lifecycle state of a publish job.
type Status string

const (
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusRejected         Status = "rejected_by_creator"
	StatusUploading        Status = "uploading_to_yt"
	StatusUploaded         Status = "uploaded_to_yt"
	StatusFailed           Status = "failed"
)

var allStatuses = []Status{
	StatusAwaitingApproval,
	StatusRejected,
	StatusUploading,
	StatusUploaded,
	StatusFailed,
}

// transitions holds every move the automated pipeline is allowed to make.
// Manual re-drive (terminal back to awaiting_approval) is deliberately not
// listed; it is an operator action exposed only through the store's ReDrive.
var transitions = map[Status][]Status{
	StatusAwaitingApproval: {StatusRejected, StatusUploading},
	StatusUploading:        {StatusUploaded, StatusFailed},
}

// Parse validates a raw status string.
func Parse(raw string) (Status, error) {
	for _, s := range allStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", raw)
}

// Valid reports whether s is one of the known lifecycle states.
func Valid(s Status) bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further automated transition may leave s.
func Terminal(s Status) bool {
	switch s {
	case StatusRejected, StatusUploaded, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the automated pipeline may move a job
// from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
