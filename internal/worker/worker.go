// Package worker consumes queued order notifications and delivers them over WhatsApp.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kariyerai/backend/pkg/queue"
)

// Sender delivers one text message. *notify.WhatsApp satisfies it.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Source is the job queue. *queue.Queue satisfies it.
type Source interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor turns order jobs into WhatsApp messages.
type NotificationProcessor struct {
	source     Source
	sender     Sender
	adminPhone string
	backoff    time.Duration
	logger     *zap.Logger
}

// NewNotificationProcessor creates a processor. adminPhone receives transfer notices.
func NewNotificationProcessor(source Source, sender Sender, adminPhone string, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{source: source, sender: sender, adminPhone: adminPhone, backoff: queue.RetryBackoff, logger: logger}
}

// Process delivers one job. Jobs with no recipient are dropped without error.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	var n queue.OrderNotification
	if err := job.Decode(&n); err != nil {
		return err
	}
	var to, text string
	switch job.Type {
	case queue.JobOrderAwaitingPayment:
		to = p.adminPhone
		text = fmt.Sprintf("Yeni havale siparişi: %s\nKullanıcı: %s <%s>\nPlan: %s\nTutar: %d %s\nOnay bekliyor.",
			n.OrderCode, n.UserName, n.UserEmail, n.Plan, n.Amount, n.Currency)
	case queue.JobOrderActivated:
		to = n.UserPhone
		text = fmt.Sprintf("Merhaba %s, %s siparişiniz onaylandı. %s planınız aktif.", n.UserName, n.OrderCode, n.Plan)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if to == "" {
		p.logger.Info("notification has no recipient, skipping",
			zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("order_code", n.OrderCode))
		return nil
	}
	if err := p.sender.SendText(ctx, to, text); err != nil {
		return fmt.Errorf("send %s: %w", job.Type, err)
	}
	p.logger.Info("notification sent", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("order_code", n.OrderCode))
	return nil
}

// Run dequeues and processes jobs until ctx is done. Failed jobs are retried, then dead-lettered.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("notification worker stopping")
			return
		}
		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.source.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
