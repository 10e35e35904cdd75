package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/revocation"
	"marketplace-iam/internal/security"
)

type staticKeys struct {
	set security.StaticKeySet
}

func (s *staticKeys) KeySet(ctx context.Context) (security.StaticKeySet, error) {
	return s.set, nil
}

func (s *staticKeys) Refresh(ctx context.Context) error { return nil }

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (r *stubRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.revoked[jti], nil
}

func (r *stubRevocations) RevokedByEpoch(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	return false, r.err
}

func TestValidatorMiddleware(t *testing.T) {
	key, keySet, err := security.NewTestSigningKey()
	if err != nil {
		t.Fatal(err)
	}
	minter := security.NewTokenMinter("ecom-identity", time.Hour, 24*time.Hour)
	revs := &stubRevocations{revoked: map[string]bool{}}
	core := kernel.NewAuthCore(minter, &staticKeys{set: keySet}, revs)
	v := NewValidator(core, []string{"/auth/**", "/healthz"})

	token, jti, _, err := minter.MintAccess(key, "u1", "t1", []string{"CUSTOMER", "SELLER"})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	var forwarded *http.Request
	next := func(c echo.Context) error {
		forwarded = c.Request()
		return c.NoContent(http.StatusOK)
	}
	handler := v.Middleware()(next)

	do := func(t *testing.T, path, bearer string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		forwarded = nil
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		return rec
	}

	t.Run("public path skips validation", func(t *testing.T) {
		rec := do(t, "/auth/login", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		if forwarded == nil {
			t.Fatal("next not called")
		}
		if forwarded.Header.Get(HeaderUserID) != "" {
			t.Error("public request should not carry identity headers")
		}
	})

	t.Run("valid token forwards with identity headers", func(t *testing.T) {
		rec := do(t, "/api/v1/orders", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		if forwarded == nil {
			t.Fatal("next not called")
		}
		if got := forwarded.Header.Get(HeaderUserID); got != "u1" {
			t.Errorf("%s: got %q", HeaderUserID, got)
		}
		if got := forwarded.Header.Get(HeaderTenantID); got != "t1" {
			t.Errorf("%s: got %q", HeaderTenantID, got)
		}
		if got := forwarded.Header.Get(HeaderRoles); got != "CUSTOMER,SELLER" {
			t.Errorf("%s: got %q", HeaderRoles, got)
		}
		if got := forwarded.Header.Get("Authorization"); got != "Bearer "+token {
			t.Errorf("Authorization: got %q", got)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		rec := do(t, "/api/v1/orders", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d", rec.Code)
		}
		if forwarded != nil {
			t.Error("next should not be called")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := do(t, "/api/v1/orders", "not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d", rec.Code)
		}
	})

	t.Run("revoked token", func(t *testing.T) {
		revs.revoked[jti] = true
		defer delete(revs.revoked, jti)
		rec := do(t, "/api/v1/orders", token)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d", rec.Code)
		}
	})

	t.Run("revocation store down fails closed", func(t *testing.T) {
		revs.err = revocation.ErrUnavailable
		defer func() { revs.err = nil }()
		rec := do(t, "/api/v1/orders", token)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status: got %d", rec.Code)
		}
	})
}

func TestStageError(t *testing.T) {
	serr := &StageError{StageVerify, security.ErrExpired}
	if serr.Error() != "verify: token expired" {
		t.Errorf("Error(): got %q", serr.Error())
	}
}

func TestProxyRouting(t *testing.T) {
	var hitPath, hitHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitPath = r.URL.Path
		hitHost = r.Host
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	p, err := NewProxy(map[string]string{
		"/api/v1/profile": upstream.URL,
		"/api":            "http://other.invalid",
	})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
	rec := httptest.NewRecorder()
	if err := p.Handler()(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", rec.Code)
	}
	if hitPath != "/api/v1/profile/me" {
		t.Errorf("upstream path: got %q", hitPath)
	}
	if hitHost == "" {
		t.Error("upstream host not set")
	}

	req = httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rec = httptest.NewRecorder()
	if err := p.Handler()(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("unrouted path status: got %d", rec.Code)
	}
}

func TestNewProxy_RejectsBadUpstream(t *testing.T) {
	if _, err := NewProxy(map[string]string{"/api": "not-a-url"}); err == nil {
		t.Error("want error for relative upstream url")
	}
}
