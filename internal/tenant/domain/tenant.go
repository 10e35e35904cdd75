package domain

import (
	"errors"
	"time"
)

// DefaultTenantID is the well-known id of the marketplace tenant created at
// bootstrap. Customers registering without an explicit tenant land here.
const DefaultTenantID = "00000000-0000-0000-0000-000000000000"

// Tenant is an administrative isolation boundary. Tenants are never deleted;
// only their status transitions.
type Tenant struct {
	ID        string
	Name      string
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "ACTIVE"
	TenantStatusInactive TenantStatus = "INACTIVE"
)

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	return nil
}
