// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに実行主体を格納するためのキー。
var identityContextKey = contextKey("identity")

// SessionFinder は有効セッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindActiveByToken(ctx context.Context, token, userID string) (*model.Session, error)
}

// NewAuthMiddleware はBearerクレデンシャルを検証する認証ゲートを返す。
// クレデンシャルの署名検証後、埋め込まれたセッショントークンが
// アクティブかつ未失効であることをセッションストアで確認する。
// 検証を通過した実行主体をリクエストコンテキストに注入する。
func NewAuthMiddleware(tokens *security.TokenProvider, sessions SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからクレデンシャルを取り出す
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("認証情報がありません"))
				return
			}

			// 2. 署名と有効期限を検証
			claims, err := tokens.Parse(token)
			if err != nil {
				reason := "認証情報が不正です"
				if errors.Is(err, security.ErrTokenExpired) {
					reason = "認証情報の有効期限が切れています"
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(reason))
				return
			}

			// 3. セッションがアクティブかつ未失効であることを確認
			session, err := sessions.FindActiveByToken(r.Context(), claims.SessionID, claims.UserID)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("セッションが無効です"))
				return
			}

			// 4. 実行主体をコンテキストに注入
			identity := model.Identity{
				UserID:    claims.UserID,
				Email:     claims.Email,
				Role:      model.Role(claims.Role),
				SessionID: claims.SessionID,
			}
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireRoleMiddleware は指定ロールを持つ実行主体のみを通すミドルウェアを返す。
// 認証ミドルウェアの後に配置すること。
func NewRequireRoleMiddleware(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("認証されていません"))
				return
			}
			if identity.Role != role {
				slog.Warn("role check failed",
					slog.String("user_id", identity.UserID),
					slog.String("role", string(identity.Role)),
					slog.String("required", string(role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストから実行主体を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok || identity.UserID == "" {
		return model.Identity{}, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストに実行主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

var _ SessionFinder = (repository.SessionRepository)(nil)
