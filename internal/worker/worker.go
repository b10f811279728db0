package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
	"github.com/airlog/backend/internal/notifications"
	"github.com/airlog/backend/internal/sessions"
	"github.com/airlog/backend/internal/testers"
	"github.com/airlog/backend/pkg/queue"
)

// NotificationProcessor fans session lifecycle events out into per-tester
// notifications: one event job becomes one notification row per tester.
type NotificationProcessor struct {
	sessionRepo *sessions.Repository
	testerRepo  *testers.Repository
	notifRepo   *notifications.Repository
	queue       *queue.Queue
	logger      *zap.Logger
}

// NewNotificationProcessor creates a session event processor.
func NewNotificationProcessor(sessionRepo *sessions.Repository, testerRepo *testers.Repository, notifRepo *notifications.Repository, q *queue.Queue, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{sessionRepo: sessionRepo, testerRepo: testerRepo, notifRepo: notifRepo, queue: q, logger: logger}
}

// Process executes one session event job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSessionEvent {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SessionEventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	session, err := p.sessionRepo.GetByID(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("session not found: %s", payload.SessionID)
	}

	var kind, message string
	switch payload.Event {
	case queue.SessionEventStarted:
		kind = models.NotificationSessionStarted
		message = fmt.Sprintf("Session %q has started", session.Name)
	case queue.SessionEventEnded:
		kind = models.NotificationSessionEnded
		message = fmt.Sprintf("Session %q has ended", session.Name)
	default:
		return fmt.Errorf("unknown session event: %s", payload.Event)
	}

	testerList, err := p.testerRepo.ListBySession(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("list testers: %w", err)
	}

	for _, t := range testerList {
		n := &models.Notification{
			TesterID:  t.ID,
			SessionID: payload.SessionID,
			Kind:      kind,
			Message:   message,
		}
		if err := p.notifRepo.Insert(ctx, n); err != nil {
			return fmt.Errorf("insert notification for tester %s: %w", t.ID, err)
		}
	}

	p.logger.Info("session event processed",
		zap.String("session_id", payload.SessionID.String()),
		zap.String("event", payload.Event),
		zap.Int("testers", len(testerList)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
