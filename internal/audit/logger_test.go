package audit

import (
	"context"
	"errors"
	"testing"

	"marketplace-iam/internal/audit/domain"
)

type mockAuditRepo struct {
	events    []*domain.AuditEvent
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditEvent, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, e *domain.AuditEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditEvent, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "t1", "u1", "auth.login", "user", `{"identifier":"a@b.com"}`)

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	e := repo.events[0]
	if e.TenantID != "t1" {
		t.Errorf("tenant_id = %q, want %q", e.TenantID, "t1")
	}
	if e.UserID != "u1" {
		t.Errorf("user_id = %q, want %q", e.UserID, "u1")
	}
	if e.Action != "auth.login" {
		t.Errorf("action = %q, want %q", e.Action, "auth.login")
	}
	if e.Resource != "user" {
		t.Errorf("resource = %q, want %q", e.Resource, "user")
	}
	if e.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", e.IP, "192.168.1.1")
	}
	if e.ID == "" {
		t.Error("event ID should be set")
	}
	if e.CreatedAt.IsZero() {
		t.Error("event CreatedAt should be set")
	}
}

func TestLogger_LogEvent_EmptyTenantUsesSentinel(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "", "auth.login_failure", "user", "")

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	if repo.events[0].TenantID != SentinelTenantID {
		t.Errorf("tenant_id = %q, want %q", repo.events[0].TenantID, SentinelTenantID)
	}
	if repo.events[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.events[0].IP, "unknown")
	}
}

func TestLogger_LogEvent_CreateFailureSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo, nil)
	logger.LogEvent(context.Background(), "t1", "u1", "auth.login", "user", "")
	if len(repo.events) != 0 {
		t.Errorf("expected no events on create failure, got %d", len(repo.events))
	}
}

func TestLogger_NilRepoIsNoop(t *testing.T) {
	logger := NewLogger(nil, nil)
	logger.LogEvent(context.Background(), "t1", "u1", "auth.login", "user", "")
}

func TestContextIP(t *testing.T) {
	if got := ContextIP(context.Background()); got != "unknown" {
		t.Errorf("empty context: got %q", got)
	}
	ctx := context.WithValue(context.Background(), clientIPKey{}, "10.0.0.9")
	if got := ContextIP(ctx); got != "10.0.0.9" {
		t.Errorf("got %q", got)
	}
}
