package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PASSWORD_PEPPER", "test-pepper")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Issuer != "ecom-identity" {
		t.Errorf("Issuer = %q", cfg.Issuer)
	}
	if got := cfg.AccessTTL(); got != 2*time.Hour {
		t.Errorf("AccessTTL = %v", got)
	}
	if got := cfg.RefreshTTL(); got != 720*time.Hour {
		t.Errorf("RefreshTTL = %v", got)
	}
	if got := cfg.KeyExpiry(); got != 2160*time.Hour {
		t.Errorf("KeyExpiry = %v", got)
	}
	if got := cfg.RevocationTimeout(); got != 200*time.Millisecond {
		t.Errorf("RevocationTimeout = %v", got)
	}
	if cfg.RevocationFailMode != "closed" {
		t.Errorf("RevocationFailMode = %q", cfg.RevocationFailMode)
	}
	paths := cfg.PublicPaths()
	if len(paths) == 0 || paths[0] != "/auth/**" {
		t.Errorf("PublicPaths = %v", paths)
	}
}

func TestLoad_RequiresPepper(t *testing.T) {
	t.Setenv("PASSWORD_PEPPER", "")
	if _, err := Load(); err == nil {
		t.Error("want error when PASSWORD_PEPPER is unset")
	}
}

func TestLoad_RejectsBadFailMode(t *testing.T) {
	t.Setenv("PASSWORD_PEPPER", "test-pepper")
	t.Setenv("REVOCATION_FAIL_MODE", "maybe")
	if _, err := Load(); err == nil {
		t.Error("want error for unknown fail mode")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PASSWORD_PEPPER", "test-pepper")
	t.Setenv("ACCESS_TTL", "30m")
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v", got)
	}
}

func TestDuration_FallbackOnGarbage(t *testing.T) {
	if got := duration("not-a-duration", time.Minute); got != time.Minute {
		t.Errorf("got %v", got)
	}
	if got := duration("-5m", time.Minute); got != time.Minute {
		t.Errorf("negative: got %v", got)
	}
}

func TestUpstreams(t *testing.T) {
	t.Setenv("GATEWAY_UPSTREAM_PROFILE", "/api/v1/profile=http://profile:8083")
	t.Setenv("GATEWAY_UPSTREAM_BROKEN", "nourl")

	cfg := &Config{}
	got := cfg.Upstreams()
	if got["/api/v1/profile"] != "http://profile:8083" {
		t.Errorf("Upstreams = %v", got)
	}
	if len(got) != 1 {
		t.Errorf("malformed entries should be skipped, got %v", got)
	}
}
