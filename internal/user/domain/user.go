package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Role is one of the fixed marketplace roles.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
	RoleDriver   Role = "DRIVER"
)

// ParseRole validates s against the known role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleSeller, RoleAdmin, RoleStaff, RoleDriver:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// User is a user account scoped to one tenant. Email and phone uniqueness is
// enforced per tenant at the storage layer.
type User struct {
	ID            string
	Email         string // optional; unique within tenant when set
	Phone         string // optional, E.164; unique within tenant when set
	PasswordHash  string
	Salt          []byte
	TenantID      string
	Enabled       bool
	EmailVerified bool
	PhoneVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" && u.Phone == "" {
		return errors.New("email or phone is required")
	}
	if u.Email != "" && !emailPattern.MatchString(u.Email) {
		return errors.New("email is not valid")
	}
	if u.Phone != "" && !phonePattern.MatchString(u.Phone) {
		return errors.New("phone must be E.164")
	}
	if u.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if len(u.Salt) < 16 {
		return errors.New("salt must be at least 16 bytes")
	}
	return nil
}

// RoleGrant assigns a role to a user. (UserID, Role) is unique; every user
// holds at least one grant.
type RoleGrant struct {
	UserID    string
	Role      Role
	CreatedAt time.Time
}
