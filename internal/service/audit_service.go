package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/jobs"
	"github.com/noah-isme/diploma-portal/pkg/middleware/requestid"
)

const auditJobType = "audit_log"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// auditRecorder is what the domain services need from the audit trail.
type auditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry describes one auditable action.
type AuditEntry struct {
	Actor      models.ActorContext
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
}

type clientInfoKey struct{}

type clientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo stores the caller address and user agent on ctx for audit records.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{IP: ip, UserAgent: userAgent})
}

func clientInfoFrom(ctx context.Context) clientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(clientInfo)
	return info
}

// AuditService writes audit records asynchronously through a job queue so
// request latency never depends on the database.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// AuditConfig tunes the audit worker pool.
type AuditConfig struct {
	Workers int
	Retries int
}

// NewAuditService constructs an AuditService. Call Start before recording.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger, cfg AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop flushes pending entries and stops the workers.
func (s *AuditService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record queues an entry. A full queue drops the entry and counts it.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil {
		return
	}
	log := s.buildLog(ctx, entry)
	if err := s.queue.TryEnqueue(jobs.Job{ID: log.ID, Type: auditJobType, Payload: log}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

// History returns the most recent audit entries recorded for a diploma. A
// disabled audit trail yields an empty history.
func (s *AuditService) History(ctx context.Context, diplomaID string, limit int) ([]models.AuditLog, error) {
	if s == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.repo.ListByResource(ctx, models.AuditResourceDiploma, diplomaID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit history")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

func (s *AuditService) buildLog(ctx context.Context, entry AuditEntry) *models.AuditLog {
	info := clientInfoFrom(ctx)
	log := &models.AuditLog{
		ID:        uuid.NewString(),
		ActorRole: string(entry.Actor.Role),
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: info.IP,
		UserAgent: info.UserAgent,
		RequestID: requestid.FromContext(ctx),
	}
	if entry.Actor.Email != "" {
		email := entry.Actor.Email
		log.ActorEmail = &email
	}
	if entry.ResourceID != "" {
		id := entry.ResourceID
		log.ResourceID = &id
	}
	if len(entry.Details) > 0 {
		if raw, err := json.Marshal(entry.Details); err == nil {
			log.Details = raw
		}
	}
	return log
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.Create(ctx, log)
}
