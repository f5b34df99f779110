package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/takumi/hiretrack/internal/auth"
	"github.com/takumi/hiretrack/internal/middleware"
	"github.com/takumi/hiretrack/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginResult *auth.LoginResult
	loginErr    error
	logoutErr   error
	user        *model.User

	loginEmail    string
	loginPassword string
	loginIP       string
	logoutCalls   int
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func (m *mockAuthService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*auth.LoginResult, error) {
	m.loginEmail = email
	m.loginPassword = password
	m.loginIP = ipAddress
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResult, nil
}

func (m *mockAuthService) Logout(ctx context.Context, identity model.Identity) error {
	m.logoutCalls++
	return m.logoutErr
}

func (m *mockAuthService) CurrentUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	if m.user == nil {
		return nil, model.NewUnauthorizedError("ユーザーが見つかりません")
	}
	return m.user, nil
}

func testIdentity() model.Identity {
	return model.Identity{
		UserID:    "user-1",
		Email:     "admin@example.com",
		Role:      model.RoleAdmin,
		SessionID: "session-token-1",
	}
}

func TestAuthHandler_Login(t *testing.T) {
	expiresAt := time.Now().Add(8 * time.Hour)
	service := &mockAuthService{
		loginResult: &auth.LoginResult{
			Token:     "bearer-token",
			ExpiresAt: expiresAt,
			User: &model.User{
				ID:        "user-1",
				Email:     "admin@example.com",
				Role:      model.RoleAdmin,
				FirstName: "太郎",
				LastName:  "山田",
			},
		},
	}
	h := NewAuthHandler(service)

	body, _ := json.Marshal(map[string]string{
		"email":    "admin@example.com",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.10:54321"
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "bearer-token" {
		t.Errorf("token = %q, want %q", resp.Token, "bearer-token")
	}
	if resp.User.Email != "admin@example.com" {
		t.Errorf("user.email = %q", resp.User.Email)
	}
	if resp.User.Role != "ADMIN" {
		t.Errorf("user.role = %q, want ADMIN", resp.User.Role)
	}

	if service.loginEmail != "admin@example.com" {
		t.Errorf("service received email %q", service.loginEmail)
	}
	if service.loginIP != "192.0.2.10" {
		t.Errorf("service received ip %q, want port stripped", service.loginIP)
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{loginErr: model.NewInvalidCredentialsError()}
	h := NewAuthHandler(service)

	body, _ := json.Marshal(map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var resp struct {
		Code string `json:"code"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "INVALID_CREDENTIALS" {
		t.Errorf("code = %q, want INVALID_CREDENTIALS", resp.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), testIdentity()))
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if service.logoutCalls != 1 {
		t.Errorf("logout calls = %d, want 1", service.logoutCalls)
	}
}

func TestAuthHandler_Logout_NoIdentity(t *testing.T) {
	service := &mockAuthService{}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if service.logoutCalls != 0 {
		t.Errorf("logout should not be called without identity")
	}
}

func TestAuthHandler_Me(t *testing.T) {
	service := &mockAuthService{
		user: &model.User{
			ID:    "user-1",
			Email: "admin@example.com",
			Role:  model.RoleAdmin,
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), testIdentity()))
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp userResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "user-1" {
		t.Errorf("id = %q, want user-1", resp.ID)
	}
}
