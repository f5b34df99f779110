// Package seed はスタッフアカウントの初期データ投入を提供する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
)

// Account は投入するスタッフアカウントの定義。
type Account struct {
	Email     string
	Password  string
	Role      model.Role
	FirstName string
	LastName  string
}

// Seeder はスタッフアカウントの冪等な投入処理を行う。
// 既存のメールアドレスはスキップされるため、起動のたびに安全に実行できる。
type Seeder struct {
	users repository.UserRepository
}

// NewSeeder はSeederを生成する。
func NewSeeder(users repository.UserRepository) *Seeder {
	return &Seeder{users: users}
}

// DefaultAccounts は管理者アカウントに加えてデモ用のスタッフアカウントを返す。
func DefaultAccounts(adminEmail, adminPassword string) []Account {
	return []Account{
		{
			Email:     adminEmail,
			Password:  adminPassword,
			Role:      model.RoleAdmin,
			FirstName: "Admin",
			LastName:  "User",
		},
		{
			Email:     "recruiter@demo.com",
			Password:  "recruiter123",
			Role:      model.RoleRecruiter,
			FirstName: "Recruiter",
			LastName:  "User",
		},
		{
			Email:     "interviewer@demo.com",
			Password:  "interviewer123",
			Role:      model.RoleInterviewer,
			FirstName: "Interviewer",
			LastName:  "User",
		},
	}
}

// Run は指定アカウントを投入する。既存アカウントは変更しない。
func (s *Seeder) Run(ctx context.Context, accounts []Account) error {
	for _, account := range accounts {
		hash, err := security.HashPassword(account.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", account.Email, err)
		}

		now := time.Now()
		user := &model.User{
			ID:           uuid.NewString(),
			Email:        account.Email,
			PasswordHash: hash,
			Role:         account.Role,
			IsActive:     true,
			FirstName:    account.FirstName,
			LastName:     account.LastName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", account.Email, err)
		}

		slog.Info("seeded staff account",
			slog.String("email", account.Email),
			slog.String("role", string(account.Role)),
		)
	}

	return nil
}
