package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/pkg/config"
	"github.com/neurobridge/scheduling-api/pkg/jobs"
)

type auditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// AuditService writes the appointment audit trail off the request path. Every
// lifecycle transition and PIN event is enqueued here and persisted by a
// background worker with retries, so a slow audit insert never delays a
// booking response.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService builds the audit writer on top of the in-memory job queue.
func NewAuditService(store auditStore, cfg config.AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			logger.Error("audit job carries unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return store.Insert(ctx, entry)
	}

	queue := jobs.NewQueue("audit", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})

	return &AuditService{queue: queue, logger: logger}
}

// Start launches the background workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers. Entries still queued when Stop returns are lost;
// the audit trail is an operational record, not a ledger of record.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues one audit entry. Failures are logged, never propagated.
func (s *AuditService) Record(actor, action, resource, resourceID, detail string) {
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:      entry.ID,
		Type:    action,
		Payload: entry,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue audit entry",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}
