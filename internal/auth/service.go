// Package auth はスタッフのログイン認証とセッション管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
)

// minPasswordLength はログイン時のパスワード最小長。
const minPasswordLength = 4

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// LoginResult はログイン成功時にクライアントへ返す情報。
type LoginResult struct {
	Token     string // Bearerクレデンシャル
	User      *model.User
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokens      *security.TokenProvider
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokens *security.TokenProvider,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		config:      config,
	}
}

// Login は認証情報を検証し、セッションとBearerクレデンシャルを発行する。
// 未登録メール・パスワード不一致・無効化済みアカウントはいずれも
// 同一のInvalidCredentialsとして返す（存在有無を漏らさない）。
func (s *Service) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*LoginResult, error) {
	if err := validateLoginInput(email, password); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewInvalidCredentialsError()
	}

	if !security.VerifyPassword(user.PasswordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	// セッション発行: 不透明トークンをDBに保存し、JWTに埋め込む
	now := time.Now()
	ttl := time.Duration(s.config.SessionMaxAge) * time.Second
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		IsActive:  true,
		LoginAt:   now,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}

	token, err := s.tokens.Generate(user, session.Token, ttl)
	if err != nil {
		return nil, fmt.Errorf("クレデンシャルの発行に失敗しました: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.String("session_id", session.ID),
	)

	return &LoginResult{
		Token:     token,
		User:      user,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout はセッションを非アクティブ化する。
// セッション行は監査のため削除しない。
func (s *Service) Logout(ctx context.Context, identity model.Identity) error {
	if identity.SessionID == "" {
		return model.NewUnauthorizedError("セッションが特定できません")
	}

	if err := s.sessionRepo.Deactivate(ctx, identity.SessionID, identity.UserID); err != nil {
		return fmt.Errorf("セッションの無効化に失敗しました: %w", err)
	}

	slog.Info("user logged out",
		slog.String("user_id", identity.UserID),
	)
	return nil
}

// CurrentUser は認証済みリクエストの実行主体のプロフィールを返す。
func (s *Service) CurrentUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("ユーザーが存在しません")
	}
	return user, nil
}

// validateLoginInput はログイン入力を検証する。
// メール形式とパスワード最小長のみをチェックする。
func validateLoginInput(email, password string) error {
	var fields []model.FieldError
	if _, err := mail.ParseAddress(email); err != nil {
		fields = append(fields, model.FieldError{
			Field:   "email",
			Message: "有効なメールアドレスを入力してください",
		})
	}
	if len(password) < minPasswordLength {
		fields = append(fields, model.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("パスワードは%d文字以上で入力してください", minPasswordLength),
		})
	}
	if len(fields) > 0 {
		return model.NewValidationError(fields...)
	}
	return nil
}
