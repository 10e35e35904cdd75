package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/profile/domain"
)

type memRepo struct {
	profiles map[string]*domain.Profile
}

func (m *memRepo) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return m.profiles[userID], nil
}

func (m *memRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	if m.profiles == nil {
		m.profiles = map[string]*domain.Profile{}
	}
	m.profiles[p.UserID] = p
	return nil
}

func seedProfile(userID, tenantID, name string) *domain.Profile {
	now := time.Now().UTC()
	return &domain.Profile{
		UserID: userID, TenantID: tenantID, DisplayName: name,
		CreatedAt: now, UpdatedAt: now,
	}
}

func call(t *testing.T, h echo.HandlerFunc, p *kernel.Principal, method, path, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if p != nil {
		req = req.WithContext(kernel.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestProfileMe(t *testing.T) {
	repo := &memRepo{profiles: map[string]*domain.Profile{
		"u1": seedProfile("u1", "t1", "Alice"),
	}}
	h := NewProfileHandler(repo)
	p := kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"CUSTOMER"}}

	rec := call(t, h.Me, &p, http.MethodGet, "/api/v1/profile/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var got profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" || got.DisplayName != "Alice" {
		t.Errorf("body: got %+v", got)
	}
}

func TestProfileMe_NoPrincipal(t *testing.T) {
	h := NewProfileHandler(&memRepo{})
	rec := call(t, h.Me, nil, http.MethodGet, "/api/v1/profile/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestProfileGet_Authorization(t *testing.T) {
	repo := &memRepo{profiles: map[string]*domain.Profile{
		"u2": seedProfile("u2", "t1", "Bob"),
		"u3": seedProfile("u3", "t2", "Carol"),
	}}
	h := NewProfileHandler(repo)

	tests := []struct {
		name      string
		principal kernel.Principal
		target    string
		want      int
	}{
		{
			"customer reading someone else is forbidden",
			kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"CUSTOMER"}},
			"u2", http.StatusForbidden,
		},
		{
			"admin reads anyone in tenant",
			kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"ADMIN"}},
			"u2", http.StatusOK,
		},
		{
			"staff reads anyone in tenant",
			kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"STAFF"}},
			"u2", http.StatusOK,
		},
		{
			"owner reads self",
			kernel.Principal{UserID: "u2", TenantID: "t1", Roles: []string{"CUSTOMER"}},
			"u2", http.StatusOK,
		},
		{
			"cross-tenant admin reads not found",
			kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"ADMIN"}},
			"u3", http.StatusNotFound,
		},
		{
			"missing profile is not found",
			kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"ADMIN"}},
			"nobody", http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.Get, &tt.principal, http.MethodGet, "/api/v1/profile/"+tt.target, "", "id", tt.target)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestProfilePut_UpsertsOwn(t *testing.T) {
	repo := &memRepo{}
	h := NewProfileHandler(repo)
	p := kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"SELLER"}}

	rec := call(t, h.Put, &p, http.MethodPut, "/api/v1/profile/me",
		`{"display_name":"Ann's Shop","bio":"handmade goods"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	stored := repo.profiles["u1"]
	if stored == nil {
		t.Fatal("profile not stored")
	}
	if stored.TenantID != "t1" || stored.DisplayName != "Ann's Shop" {
		t.Errorf("stored: got %+v", stored)
	}
}

func TestProfilePut_Validation(t *testing.T) {
	h := NewProfileHandler(&memRepo{})
	p := kernel.Principal{UserID: "u1", TenantID: "t1", Roles: []string{"CUSTOMER"}}
	rec := call(t, h.Put, &p, http.MethodPut, "/api/v1/profile/me", `{"display_name":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
}
