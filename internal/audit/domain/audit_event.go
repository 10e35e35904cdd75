package domain

import "time"

// AuditEvent represents one recorded security-relevant action.
type AuditEvent struct {
	ID        string
	TenantID  string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
