package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/neurobridge/scheduling-api/internal/models"
	"github.com/neurobridge/scheduling-api/pkg/config"
)

type auditStoreStub struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (s *auditStoreStub) Insert(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *auditStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestAuditServicePersistsAsynchronously(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, config.AuditConfig{Workers: 1, BufferSize: 8}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Record("admin-1", models.AuditActionAppointmentReset, "appointment", "appt-1", "billing dispute")

	assert.Eventually(t, func() bool { return store.count() == 1 },
		time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	entry := store.entries[0]
	assert.Equal(t, "admin-1", entry.Actor)
	assert.Equal(t, models.AuditActionAppointmentReset, entry.Action)
	assert.Equal(t, "appt-1", entry.ResourceID)
	assert.NotEmpty(t, entry.ID)
}

func TestAuditServiceRecordBeforeStartDoesNotPanic(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, config.AuditConfig{}, nil)

	svc.Record("admin-1", models.AuditActionAppointmentReset, "appointment", "appt-1", "")
	assert.Equal(t, 0, store.count())
}
