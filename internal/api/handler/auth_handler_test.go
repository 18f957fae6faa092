package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, nombre, email, password, rol string, area *domain.Area) (*domain.Account, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.Account, error)
}

func (s *stubAuthService) Register(ctx context.Context, nombre, email, password, rol string, area *domain.Area) (*domain.Account, error) {
	return s.registerFn(ctx, nombre, email, password, rol, area)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	return s.loginFn(ctx, email, password)
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, nombre, email, _, rol string, area *domain.Area) (*domain.Account, error) {
			if nombre != "Ana" || rol != "admin" {
				t.Fatalf("unexpected args: %s %s", nombre, rol)
			}
			if area == nil || area.Nombre != "Mantenimiento" {
				t.Fatalf("area not passed through: %+v", area)
			}
			return &domain.Account{PresenceID: 42, Nombre: nombre, Email: email, Rol: rol, Area: area}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/register",
		`{"nombre":"Ana","email":"ana@cmo.example","password":"supersecret","rol":"admin","area_id":3,"area_nombre":"Mantenimiento"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["nombre"] != "Ana" || user["rol"] != "admin" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Register_ValidationFailure(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	cases := []string{
		`{"nombre":"Ana","email":"not-an-email","password":"supersecret","rol":"admin"}`,
		`{"nombre":"Ana","email":"ana@cmo.example","password":"short","rol":"admin"}`,
		`{"nombre":"Ana","email":"ana@cmo.example","password":"supersecret","rol":"jefe"}`,
	}
	for _, body := range cases {
		c, _ := newTestContext(t, http.MethodPost, "/auth/register", body)
		err := h.Register(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %v", body, err)
		}
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (string, *domain.Account, error) {
			if email != "ana@cmo.example" || password != "supersecret" {
				t.Fatalf("unexpected credentials: %s %s", email, password)
			}
			return "jwt-token", &domain.Account{PresenceID: 42, Nombre: "Ana", Email: email, Rol: "admin"}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login",
		`{"email":"ana@cmo.example","password":"supersecret"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "jwt-token" {
		t.Fatalf("expected token in response, got %+v", resp)
	}
}

func TestAuthHandler_Login_UnknownAccountIsUnauthorized(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.Account, error) {
			return "", nil, domain.ErrUserNotFound
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/auth/login",
		`{"email":"ghost@cmo.example","password":"whatever"}`)

	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("unknown account must look like bad credentials, got %v", err)
	}
}
