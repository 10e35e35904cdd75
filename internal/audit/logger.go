package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"marketplace-iam/internal/audit/domain"
	auditrepo "marketplace-iam/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for audit events that have no tenant
// (e.g. login_failure, logout with an invalid token).
const SentinelTenantID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Logger persists audit events through the audit repository, with an optional
// IP extractor. LogEvent is best-effort: failures are logged and do not
// affect the caller.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns a Logger that persists to repo and uses ipExtractor for
// the client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit event. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	event := &domain.AuditEvent{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, event); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
