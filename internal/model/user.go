package model

import "time"

// User は採用管理ダッシュボードを利用するスタッフアカウントを表す。
// シーディングまたは管理者プロビジョニングで作成される。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はスタッフのログインセッションを表す。
// ログイン成功時に作成され、ログアウトまたは期限切れで非アクティブ化される。
// 監査のためレコード自体は削除しない。
type Session struct {
	ID        string
	UserID    string
	Token     string // Bearerクレデンシャルに埋め込まれる不透明トークン
	UserAgent string
	IPAddress string
	IsActive  bool
	LoginAt   time.Time
	LogoutAt  *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid はセッションが現在有効（アクティブかつ未失効）かどうかを判定する。
func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// Identity は認証ゲートを通過したリクエストの実行主体を表す。
// 認証ミドルウェアがリクエストコンテキストに注入する。
type Identity struct {
	UserID    string
	Email     string
	Role      Role
	SessionID string
}
