package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
)

// --- auth.Service テスト用モック ---

// mockUserRepo はテスト用のUserRepositoryモック。
type mockUserRepo struct {
	usersByEmail map[string]*model.User
	usersByID    map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByEmail: make(map[string]*model.User),
		usersByID:    make(map[string]*model.User),
	}
}

func (m *mockUserRepo) add(user *model.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	return m.usersByID[id], nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return m.usersByEmail[email], nil
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	m.add(user)
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// mockSessionRepo はテスト用のSessionRepositoryモック。
type mockSessionRepo struct {
	sessions        map[string]*model.Session // token -> session
	deactivateCalls int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	m.sessions[session.Token] = session
	return nil
}

func (m *mockSessionRepo) FindActiveByToken(_ context.Context, token, userID string) (*model.Session, error) {
	s, ok := m.sessions[token]
	if !ok || s.UserID != userID || !s.Valid(time.Now()) {
		return nil, nil
	}
	return s, nil
}

func (m *mockSessionRepo) Deactivate(_ context.Context, token, userID string) error {
	m.deactivateCalls++
	if s, ok := m.sessions[token]; ok && s.UserID == userID {
		s.IsActive = false
		now := time.Now()
		s.LogoutAt = &now
	}
	return nil
}

func (m *mockSessionRepo) DeactivateExpired(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

var _ repository.SessionRepository = (*mockSessionRepo)(nil)

func newTestAuthService(t *testing.T) (*Service, *mockUserRepo, *mockSessionRepo) {
	t.Helper()
	userRepo := newMockUserRepo()
	sessionRepo := newMockSessionRepo()

	hash, err := security.HashPassword("admin123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	userRepo.add(&model.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	})

	svc := NewService(userRepo, sessionRepo, security.NewTokenProvider("test-secret"),
		ServiceConfig{SessionMaxAge: 28800})
	return svc, userRepo, sessionRepo
}

// --- Login ---

// 正しい認証情報でのログインを検証
func TestLogin_Success(t *testing.T) {
	svc, _, sessionRepo := newTestAuthService(t)

	result, err := svc.Login(context.Background(), "admin@example.com", "admin123", "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token == "" {
		t.Error("expected non-empty bearer token")
	}
	if result.User.ID != "user-1" {
		t.Errorf("user ID = %q, want user-1", result.User.ID)
	}
	if len(sessionRepo.sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessionRepo.sessions))
	}

	for _, s := range sessionRepo.sessions {
		if !s.IsActive {
			t.Error("session should be active")
		}
		if s.UserAgent != "test-agent" || s.IPAddress != "127.0.0.1" {
			t.Errorf("device info not recorded: %+v", s)
		}
		// 有効期限はSessionMaxAge（8時間）後
		want := time.Now().Add(8 * time.Hour)
		if s.ExpiresAt.Before(want.Add(-time.Minute)) || s.ExpiresAt.After(want.Add(time.Minute)) {
			t.Errorf("ExpiresAt = %v, want ~%v", s.ExpiresAt, want)
		}
	}
}

// 発行されたクレデンシャルにセッショントークンが埋め込まれることを検証
func TestLogin_TokenEmbedsSession(t *testing.T) {
	svc, _, sessionRepo := newTestAuthService(t)

	result, err := svc.Login(context.Background(), "admin@example.com", "admin123", "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := security.NewTokenProvider("test-secret").Parse(result.Token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("claims.UserID = %q, want user-1", claims.UserID)
	}
	if claims.Role != "ADMIN" {
		t.Errorf("claims.Role = %q, want ADMIN", claims.Role)
	}
	if _, ok := sessionRepo.sessions[claims.SessionID]; !ok {
		t.Error("claims.SessionID should reference the stored session token")
	}
}

// パスワード不一致がInvalidCredentialsになることを検証
func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "admin@example.com", "wrongpass", "", "")
	assertErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// 未登録メールがInvalidCredentialsになることを検証
func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "admin123", "", "")
	assertErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// 無効化済みアカウントがInvalidCredentialsになることを検証
func TestLogin_InactiveUser(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)

	hash, _ := security.HashPassword("pass1234")
	userRepo.add(&model.User{
		ID:           "user-2",
		Email:        "inactive@example.com",
		PasswordHash: hash,
		Role:         model.RoleRecruiter,
		IsActive:     false,
	})

	_, err := svc.Login(context.Background(), "inactive@example.com", "pass1234", "", "")
	assertErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

// 不正なメール形式・短すぎるパスワードのバリデーションを検証
func TestLogin_InputValidation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "not-an-email", "abc", "", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeValidationFailed)
	}
	if len(apiErr.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %+v", apiErr.Fields)
	}
}

// --- Logout ---

// ログアウトがセッションを非アクティブ化することを検証
func TestLogout_DeactivatesSession(t *testing.T) {
	svc, _, sessionRepo := newTestAuthService(t)

	result, err := svc.Login(context.Background(), "admin@example.com", "admin123", "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	claims, _ := security.NewTokenProvider("test-secret").Parse(result.Token)

	identity := model.Identity{UserID: claims.UserID, SessionID: claims.SessionID}
	if err := svc.Logout(context.Background(), identity); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	session := sessionRepo.sessions[claims.SessionID]
	if session.IsActive {
		t.Error("session should be deactivated")
	}
	if session.LogoutAt == nil {
		t.Error("logout_at should be recorded")
	}
}

// セッション特定不能なログアウトがUnauthorizedになることを検証
func TestLogout_MissingSession(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	err := svc.Logout(context.Background(), model.Identity{UserID: "user-1"})
	assertErrorCode(t, err, model.ErrCodeUnauthorized)
}

// --- CurrentUser ---

// 実行主体のプロフィール取得を検証
func TestCurrentUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	user, err := svc.CurrentUser(context.Background(), model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.Email != "admin@example.com" {
		t.Errorf("email = %q, want admin@example.com", user.Email)
	}
}

// 存在しないユーザーのプロフィール取得がUnauthorizedになることを検証
func TestCurrentUser_MissingUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.CurrentUser(context.Background(), model.Identity{UserID: "ghost"})
	assertErrorCode(t, err, model.ErrCodeUnauthorized)
}

func assertErrorCode(t *testing.T, err error, want string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != want {
		t.Errorf("code = %s, want %s", apiErr.Code, want)
	}
}
