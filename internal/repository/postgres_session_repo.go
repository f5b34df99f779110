package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takumi/hiretrack/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create は新しいセッション行を挿入する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, user_agent, ip_address, is_active, login_at, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.UserID, session.Token, session.UserAgent, session.IPAddress,
		session.IsActive, session.LoginAt, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindActiveByToken はトークンとユーザーIDで有効なセッションを検索する。
// 無効化済み・期限切れのセッションは返さない。見つからない場合はnil。
func (r *PostgresSessionRepo) FindActiveByToken(ctx context.Context, token, userID string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, user_agent, ip_address, is_active, login_at, logout_at, expires_at, created_at
		 FROM sessions
		 WHERE token = $1 AND user_id = $2 AND is_active = true AND expires_at > NOW()`,
		token, userID,
	).Scan(
		&session.ID, &session.UserID, &session.Token, &session.UserAgent, &session.IPAddress,
		&session.IsActive, &session.LoginAt, &session.LogoutAt, &session.ExpiresAt, &session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// Deactivate はセッションを論理的に無効化する。行は削除せず監査のため残す。
func (r *PostgresSessionRepo) Deactivate(ctx context.Context, token, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false, logout_at = NOW()
		 WHERE token = $1 AND user_id = $2 AND is_active = true`,
		token, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

// DeactivateExpired は期限切れのアクティブセッションをまとめて無効化し、
// 保持期間を過ぎた無効セッション行を物理削除する。無効化件数を返す。
func (r *PostgresSessionRepo) DeactivateExpired(ctx context.Context, retention time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false, logout_at = NOW()
		 WHERE is_active = true AND expires_at <= NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	deactivated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE is_active = false AND expires_at < $1`, cutoff,
	)
	if err != nil {
		return deactivated, fmt.Errorf("failed to purge old sessions: %w", err)
	}

	return deactivated, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
