package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// TaskDispatchUpload is enqueued once per approved job. The payload carries
// identifiers only; the worker resolves full job data from the record store.
const TaskDispatchUpload = "yt:dispatch"

// ErrMalformedMessage marks a payload that can never be processed. It is
// permanent: the dispatcher dead-letters the message instead of letting the
// queue retry it.
var ErrMalformedMessage = errors.New("malformed dispatch message")

type DispatchPayload struct {
	OrgSK     string `json:"orgSK"`
	ProjectSK string `json:"projectSK"`
	VideoSK   string `json:"videoSK"`
	ChannelSK string `json:"channelSK"`
}

func NewDispatchTask(p DispatchPayload) (*asynq.Task, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchUpload, b), nil
}

// ParseDispatchPayload decodes and validates a message body. All four
// identifiers are required.
func ParseDispatchPayload(body []byte) (DispatchPayload, error) {
	var p DispatchPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return DispatchPayload{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := p.validate(); err != nil {
		return DispatchPayload{}, err
	}
	return p, nil
}

func (p DispatchPayload) validate() error {
	var missing []string
	if strings.TrimSpace(p.OrgSK) == "" {
		missing = append(missing, "orgSK")
	}
	if strings.TrimSpace(p.ProjectSK) == "" {
		missing = append(missing, "projectSK")
	}
	if strings.TrimSpace(p.VideoSK) == "" {
		missing = append(missing, "videoSK")
	}
	if strings.TrimSpace(p.ChannelSK) == "" {
		missing = append(missing, "channelSK")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedMessage, strings.Join(missing, ", "))
	}
	return nil
}
