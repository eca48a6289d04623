package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ytpublish/internal/queue"

	"github.com/hibiken/asynq"
)

// NewTaskHandler adapts a Handler to asynq's task contract and owns the
// ack/skip/retry decision: nil acknowledges the message, a malformed body
// is wrapped in asynq.SkipRetry so the queue archives it to the
// dead-letter set immediately, and any other error is returned plain so
// the unacknowledged message is redelivered until the receive-count
// policy exhausts it.
func NewTaskHandler(h *Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		attempt := 1
		if n, ok := asynq.GetRetryCount(ctx); ok {
			attempt = n + 1
		}
		res, err := h.Handle(ctx, t.Payload())
		if err != nil {
			if errors.Is(err, queue.ErrMalformedMessage) {
				// Poison message: archive it now instead of burning
				// the remaining delivery attempts.
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			log.Printf("dispatch attempt=%d failed, leaving message for redelivery: %v", attempt, err)
			return err
		}
		log.Printf("dispatch attempt=%d ok launch_id=%s", attempt, res.Body)
		return nil
	}
}
