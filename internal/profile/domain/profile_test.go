package domain

import (
	"strings"
	"testing"
)

func TestProfileValidate(t *testing.T) {
	valid := Profile{UserID: "u1", TenantID: "t1", DisplayName: "Ada"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid profile: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"missing user id", func(p *Profile) { p.UserID = "" }},
		{"missing tenant id", func(p *Profile) { p.TenantID = "" }},
		{"blank display name", func(p *Profile) { p.DisplayName = "   " }},
		{"display name too long", func(p *Profile) { p.DisplayName = strings.Repeat("x", 121) }},
		{"bio too long", func(p *Profile) { p.Bio = strings.Repeat("x", 2001) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestProfileValidate_BoundaryLengths(t *testing.T) {
	p := Profile{
		UserID:      "u1",
		TenantID:    "t1",
		DisplayName: strings.Repeat("x", 120),
		Bio:         strings.Repeat("x", 2000),
	}
	if err := p.Validate(); err != nil {
		t.Errorf("boundary lengths: %v", err)
	}
}
