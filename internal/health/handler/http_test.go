package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

func healthz(t *testing.T, pingers ...Pinger) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := Healthz(pingers...)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestHealthz_NoPingers(t *testing.T) {
	rec := healthz(t)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealthz_NilPingerSkipped(t *testing.T) {
	rec := healthz(t, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealthz_PingerSuccess(t *testing.T) {
	rec := healthz(t, &mockPinger{})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealthz_PingerFailure(t *testing.T) {
	rec := healthz(t, &mockPinger{pingErr: errors.New("connection refused")})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
