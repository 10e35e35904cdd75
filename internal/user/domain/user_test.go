package domain

import (
	"strings"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"CUSTOMER", "SELLER", "ADMIN", "STAFF", "DRIVER"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "customer", "ROOT", "Admin"} {
		if _, err := ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q): want error", s)
		}
	}
}

func validUser() *User {
	return &User{
		ID:           "u1",
		Email:        "a@example.com",
		PasswordHash: "hash",
		Salt:         make([]byte, 32),
		TenantID:     "t1",
	}
}

func TestUserValidate(t *testing.T) {
	if err := validUser().Validate(); err != nil {
		t.Fatalf("valid user: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*User)
	}{
		{"no identifier", func(u *User) { u.Email, u.Phone = "", "" }},
		{"bad email", func(u *User) { u.Email = "not-an-email" }},
		{"phone without plus", func(u *User) { u.Email, u.Phone = "", "15551234567" }},
		{"missing tenant", func(u *User) { u.TenantID = "" }},
		{"missing hash", func(u *User) { u.PasswordHash = "" }},
		{"short salt", func(u *User) { u.Salt = make([]byte, 8) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(u)
			if err := u.Validate(); err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestUserValidate_PhoneOnly(t *testing.T) {
	u := validUser()
	u.Email = ""
	u.Phone = "+15551234567"
	if err := u.Validate(); err != nil {
		t.Errorf("phone-only user: %v", err)
	}
}

func TestUserValidate_LongEmailLocalPart(t *testing.T) {
	u := validUser()
	u.Email = strings.Repeat("a", 64) + "@example.com"
	if err := u.Validate(); err != nil {
		t.Errorf("long local part: %v", err)
	}
}
