package kernel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/revocation"
	"marketplace-iam/internal/security"
)

type fakeKeySource struct {
	sets     []security.StaticKeySet
	idx      int
	refreshN int
}

func (s *fakeKeySource) KeySet(ctx context.Context) (security.StaticKeySet, error) {
	return s.sets[s.idx], nil
}

func (s *fakeKeySource) Refresh(ctx context.Context) error {
	s.refreshN++
	if s.idx < len(s.sets)-1 {
		s.idx++
	}
	return nil
}

type fakeRevocations struct {
	revokedJTIs map[string]bool
	epochs      map[string]time.Time
	err         error
}

func (r *fakeRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.revokedJTIs[jti], nil
}

func (r *fakeRevocations) RevokedByEpoch(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	epoch, ok := r.epochs[userID]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(epoch), nil
}

func newCore(t *testing.T, revs *fakeRevocations) (*AuthCore, security.SigningKeyRef, *security.TokenMinter) {
	t.Helper()
	key, keySet, err := security.NewTestSigningKey()
	if err != nil {
		t.Fatalf("NewTestSigningKey: %v", err)
	}
	minter := security.NewTokenMinter("ecom-identity", time.Hour, 24*time.Hour)
	core := NewAuthCore(minter, &fakeKeySource{sets: []security.StaticKeySet{keySet}}, revs)
	return core, key, minter
}

func TestAuthCoreValidate(t *testing.T) {
	revs := &fakeRevocations{revokedJTIs: map[string]bool{}, epochs: map[string]time.Time{}}
	core, key, minter := newCore(t, revs)
	token, jti, _, err := minter.MintAccess(key, "u1", "t1", []string{"CUSTOMER"})
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	claims, err := core.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" || claims.TenantID != "t1" {
		t.Errorf("claims: got %+v", claims)
	}

	revs.revokedJTIs[jti] = true
	if _, err := core.Validate(context.Background(), token); !errors.Is(err, ErrRevoked) {
		t.Errorf("blacklisted jti: want ErrRevoked, got %v", err)
	}

	revs.revokedJTIs[jti] = false
	revs.epochs["u1"] = time.Now().UTC().Add(time.Minute)
	if _, err := core.Validate(context.Background(), token); !errors.Is(err, ErrRevoked) {
		t.Errorf("epoch violation: want ErrRevoked, got %v", err)
	}
}

func TestAuthCoreValidate_StoreFailurePassesThrough(t *testing.T) {
	revs := &fakeRevocations{err: revocation.ErrUnavailable}
	core, key, minter := newCore(t, revs)
	token, _, _, err := minter.MintAccess(key, "u1", "t1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := core.Validate(context.Background(), token); !errors.Is(err, revocation.ErrUnavailable) {
		t.Errorf("want ErrUnavailable, got %v", err)
	}
}

func TestAuthCoreVerifyToken_UnknownKidTriggersRefresh(t *testing.T) {
	key, keySet, err := security.NewTestSigningKey()
	if err != nil {
		t.Fatal(err)
	}
	minter := security.NewTokenMinter("ecom-identity", time.Hour, 24*time.Hour)
	source := &fakeKeySource{sets: []security.StaticKeySet{{}, keySet}}
	core := NewAuthCore(minter, source, &fakeRevocations{})
	token, _, _, err := minter.MintAccess(key, "u1", "t1", nil)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := core.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyToken after refresh: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("claims: got %+v", claims)
	}
	if source.refreshN != 1 {
		t.Errorf("refresh count: got %d", source.refreshN)
	}
}

func TestMiddleware(t *testing.T) {
	revs := &fakeRevocations{revokedJTIs: map[string]bool{}, epochs: map[string]time.Time{}}
	core, key, minter := newCore(t, revs)
	token, _, _, err := minter.MintAccess(key, "u1", "t1", []string{"ADMIN"})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	var seen Principal
	next := func(c echo.Context) error {
		p, ok := PrincipalFrom(c.Request().Context())
		if !ok {
			t.Error("no principal in context")
		}
		seen = p
		return c.NoContent(http.StatusOK)
	}
	handler := Middleware(core)(next)

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		if seen.UserID != "u1" || seen.TenantID != "t1" || !seen.HasRole("ADMIN") {
			t.Errorf("principal: got %+v", seen)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d", rec.Code)
		}
	})

	t.Run("revocation store down fails closed", func(t *testing.T) {
		revs.err = revocation.ErrUnavailable
		defer func() { revs.err = nil }()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status: got %d", rec.Code)
		}
	})
}
