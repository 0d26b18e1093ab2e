package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/english-korat/ekls-api/internal/models"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
)

// Shared hand-rolled mocks for the workflow collaborators.

type mockQuotaCache struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
	hits        int
}

func newMockQuotaCache() *mockQuotaCache {
	return &mockQuotaCache{store: map[string][]byte{}}
}

func (m *mockQuotaCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	m.hits++
	return nil
}

func (m *mockQuotaCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *mockQuotaCache) Invalidate(ctx context.Context, patterns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, patterns...)
	for _, p := range patterns {
		delete(m.store, p)
	}
}

type mockAuditWriter struct {
	entries []*models.AuditLog
	err     error
}

func (m *mockAuditWriter) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockWorkflowMetrics struct {
	requested, approved, rejected, makeups, exhausted int
}

func (m *mockWorkflowMetrics) CancellationRequested() { m.requested++ }
func (m *mockWorkflowMetrics) CancellationApproved()  { m.approved++ }
func (m *mockWorkflowMetrics) CancellationRejected()  { m.rejected++ }
func (m *mockWorkflowMetrics) MakeupCreated()         { m.makeups++ }
func (m *mockWorkflowMetrics) QuotaExhausted()        { m.exhausted++ }

type mockNotifierRecorder struct {
	requestedCount int
	approvedUsers  []int64
	rejectedUsers  []int64
	makeupUsers    []int64
}

func (m *mockNotifierRecorder) CancellationRequested(ctx context.Context, scheduleName string, sessionDate time.Time, reason string) {
	m.requestedCount++
}

func (m *mockNotifierRecorder) CancellationApproved(ctx context.Context, userIDs []int64, scheduleName string, sessionDate time.Time) {
	m.approvedUsers = append(m.approvedUsers, userIDs...)
}

func (m *mockNotifierRecorder) CancellationRejected(ctx context.Context, requesterID int64, scheduleName string, sessionDate time.Time, note string) {
	m.rejectedUsers = append(m.rejectedUsers, requesterID)
}

func (m *mockNotifierRecorder) MakeupScheduled(ctx context.Context, userIDs []int64, scheduleName string, makeupDate time.Time) {
	m.makeupUsers = append(m.makeupUsers, userIDs...)
}

type mockStudentLister struct {
	students []models.Student
	err      error
}

func (m *mockStudentLister) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.students, nil
}

func i64(n int64) *int64 { return &n }

func intPtr(n int) *int { return &n }
