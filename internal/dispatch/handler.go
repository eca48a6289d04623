package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ytpublish/internal/launch"
	"ytpublish/internal/queue"
)

// Result mirrors the ingest handler's boundary contract: a structured
// status the queue adapter converts into its own ack/retry decision.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Template is the fixed part of every worker launch, resolved from
// configuration once at startup. Only Params varies per message.
type Template struct {
	Cluster        string
	Command        string
	AssignPublicIP bool
	Subnets        []string
	SecurityGroups []string
}

// Handler consumes dispatch messages one at a time and submits exactly one
// worker launch per delivery attempt.
type Handler struct {
	launcher launch.Launcher
	template Template
}

func NewHandler(launcher launch.Launcher, template Template) *Handler {
	return &Handler{launcher: launcher, template: template}
}

// Handle processes one message delivery. The returned error drives the
// queue: nil acknowledges the message, ErrMalformedMessage dead-letters it
// immediately, and anything else leaves it for redelivery.
func (h *Handler) Handle(ctx context.Context, body []byte) (Result, error) {
	p, err := queue.ParseDispatchPayload(body)
	if err != nil {
		// Defective message; retrying can never fix it.
		log.Printf("dispatch malformed message err=%v body=%q", err, truncate(string(body), 200))
		return Result{StatusCode: 500, Body: "malformed dispatch message"}, err
	}

	spec := launch.Spec{
		Cluster: h.template.Cluster,
		Command: h.template.Command,
		Network: launch.Network{
			AssignPublicIP: h.template.AssignPublicIP,
			Subnets:        h.template.Subnets,
			SecurityGroups: h.template.SecurityGroups,
		},
		Params: map[string]string{
			"ORG_SK":     p.OrgSK,
			"PROJECT_SK": p.ProjectSK,
			"VIDEO_SK":   p.VideoSK,
			"CHANNEL_SK": p.ChannelSK,
		},
	}

	launchID, err := h.launcher.Launch(ctx, spec)
	if err != nil {
		// Capacity or config trouble at the compute layer. No bespoke
		// retry loop here: the unacknowledged message becomes visible
		// again and the queue's receive-count policy bounds the attempts.
		log.Printf("dispatch launch failed org=%s project=%s video=%s err=%v", p.OrgSK, p.ProjectSK, p.VideoSK, err)
		if !errors.Is(err, launch.ErrSubmission) {
			err = fmt.Errorf("%w: %v", launch.ErrSubmission, err)
		}
		return Result{StatusCode: 500, Body: "worker launch failed"}, err
	}

	// The launch ID is logged, not persisted; the worker itself records
	// the uploading status once it starts.
	log.Printf("dispatch worker launched org=%s project=%s video=%s channel=%s launch_id=%s",
		p.OrgSK, p.ProjectSK, p.VideoSK, p.ChannelSK, launchID)
	return Result{StatusCode: 200, Body: launchID}, nil
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
