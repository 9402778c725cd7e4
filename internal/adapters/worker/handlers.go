package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crmbridge/backend/internal/domain/model"
)

// emailPayload is the expected shape of jobs on the email queue.
type emailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// handleEmail validates and hands an email job to the delivery channel.
// Delivery is a structured log event for now; the mail relay integration
// slots in here without touching the queue contract.
func (r *Runner) handleEmail(ctx context.Context, job *model.Job) error {
	var payload emailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode email payload: %w", err)
	}
	if payload.To == "" {
		return errors.New("email payload missing recipient")
	}
	r.logger.InfoContext(ctx, "email dispatched",
		"job_id", job.ID, "to", payload.To, "subject", payload.Subject)
	return nil
}

// notificationPayload is the expected shape of jobs on the notification queue.
type notificationPayload struct {
	Channel string `json:"channel"`
	Message string `json:"message"`

	// Cron-triggered jobs carry their family instead of a channel.
	CronType string `json:"cron_type"`
}

func (r *Runner) handleNotification(ctx context.Context, job *model.Job) error {
	var payload notificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}
	if payload.Channel == "" && payload.CronType == "" {
		return errors.New("notification payload missing channel")
	}
	r.logger.InfoContext(ctx, "notification dispatched",
		"job_id", job.ID, "channel", payload.Channel, "cron_type", payload.CronType)
	return nil
}
