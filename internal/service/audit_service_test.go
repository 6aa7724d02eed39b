package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/middleware/requestid"
)

type mockAuditRepo struct {
	mu       sync.Mutex
	logs     []*models.AuditLog
	failures int
}

func (m *mockAuditRepo) Create(_ context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("db unavailable")
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepo) ListByResource(_ context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		return nil, errors.New("db unavailable")
	}
	var out []models.AuditLog
	for _, l := range m.logs {
		if l.Resource == resource && l.ResourceID != nil && *l.ResourceID == resourceID && len(out) < limit {
			out = append(out, *l)
		}
	}
	return out, nil
}

type mockAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *mockAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockAuditRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func TestAuditServiceWritesThroughQueue(t *testing.T) {
	repo := &mockAuditRepo{failures: 1}
	svc := NewAuditService(repo, nil, nil, AuditConfig{Workers: 1, Retries: 2})
	svc.Start(context.Background())

	ctx := requestid.WithContext(WithClientInfo(context.Background(), "10.0.0.1", "curl"), "req-1")
	svc.Record(ctx, AuditEntry{
		Actor:      models.ActorContext{Role: models.RoleAuthority, Email: "school@example.com"},
		Action:     models.AuditActionRevoke,
		Resource:   models.AuditResourceDiploma,
		ResourceID: "d-1",
		Details:    map[string]interface{}{"already_revoked": false},
	})
	svc.Stop()

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, "authority", log.ActorRole)
	assert.Equal(t, "school@example.com", *log.ActorEmail)
	assert.Equal(t, "d-1", *log.ResourceID)
	assert.Equal(t, "10.0.0.1", log.IPAddress)
	assert.Equal(t, "req-1", log.RequestID)
	assert.JSONEq(t, `{"already_revoked":false}`, string(log.Details))
}

func TestAuditServiceNilIsNoop(t *testing.T) {
	var svc *AuditService
	svc.Start(context.Background())
	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionLogin})
	svc.Stop()
}

func TestAuditServiceRecordBeforeStartDrops(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, NewMetricsService(), nil, AuditConfig{})
	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionLogin})
	assert.Empty(t, repo.logs)
}

func TestAuditServiceHistory(t *testing.T) {
	id := "d-1"
	other := "d-2"
	repo := &mockAuditRepo{logs: []*models.AuditLog{
		{ID: "a", Resource: models.AuditResourceDiploma, ResourceID: &id, Action: models.AuditActionRevoke},
		{ID: "b", Resource: models.AuditResourceDiploma, ResourceID: &other, Action: models.AuditActionShare},
	}}
	svc := NewAuditService(repo, nil, nil, AuditConfig{Workers: 1})

	logs, err := svc.History(context.Background(), "d-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionRevoke, logs[0].Action)

	logs, err = svc.History(context.Background(), "unknown", 10)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)

	var disabled *AuditService
	logs, err = disabled.History(context.Background(), "d-1", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)

	repo.failures = 1
	_, err = svc.History(context.Background(), "d-1", 10)
	assert.Error(t, err)
}
