// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/takumi/hiretrack/internal/model"
)

// UserRepository はスタッフアカウントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Upsert はメールアドレスをキーにユーザーを作成する。
	// 既存の場合は何も変更しない（シーディングの冪等性のため）。
	Upsert(ctx context.Context, user *model.User) error
}

// SessionRepository はログインセッションの永続化インターフェース。
// セッション行は監査のため物理削除せず、非アクティブ化で無効にする。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindActiveByToken はトークンとユーザーIDが一致する有効なセッションを取得する。
	// 非アクティブまたは期限切れの場合はnilを返す。
	FindActiveByToken(ctx context.Context, token, userID string) (*model.Session, error)

	// Deactivate は指定トークンのセッションを非アクティブ化し、logout_atを記録する。
	Deactivate(ctx context.Context, token, userID string) error

	// DeactivateExpired は期限切れの全アクティブセッションを非アクティブ化し、件数を返す。
	// あわせて保持期間retentionを過ぎた非アクティブ行を物理削除する。
	DeactivateExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// ApplicantRepository は応募者と応募サイクルの永続化インターフェース。
type ApplicantRepository interface {
	// CreateWithApplication は応募者と初回応募を同一トランザクションで作成する。
	// 両方の行が見えるか、どちらも見えないかのいずれかになる。
	CreateWithApplication(ctx context.Context, applicant *model.Applicant, application *model.Application) error

	// ListWithLatestFiles は応募者一覧を応募日時の降順で返す。
	// 各行には最新の応募のIDと、写真/履歴書の公開パス、応募回数が付与される。
	// statusが空でない場合はそのステータスのみに絞り込む。
	// cursorがゼロ値でない場合はapplied_atがcursorより古い行のみを返す。
	// limitが0の場合は全件を返す（観測された既定動作）。
	ListWithLatestFiles(ctx context.Context, status model.Status, cursor time.Time, limit int) ([]ApplicantListItem, error)
}

// ApplicationRepository は応募サイクルの永続化インターフェース。
type ApplicationRepository interface {
	// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Application, error)

	// FindDetail は応募と所有者・添付ファイルを結合して取得する。見つからない場合はnilを返す。
	FindDetail(ctx context.Context, id string) (*model.ApplicationDetail, error)

	// UpdateTransition は現在のステータスがfromの場合に限りtoへ更新する。
	// 応募行と所有applicant行のステータスを同一トランザクションで更新し、
	// updated_atを進める。notesは空でない場合のみ上書きする。
	// ガード付きUPDATEにより同時遷移は行レベルで直列化される。
	// 現在のステータスがfromでない場合はfalseを返す（行は変更されない）。
	UpdateTransition(ctx context.Context, id string, from, to model.Status, notes string, interviewAt *time.Time, updatedBy string) (bool, error)

	// UpdateStatusDirect は遷移ガードなしでステータスを上書きする。
	// 管理者専用の監査付き操作からのみ呼び出すこと。
	UpdateStatusDirect(ctx context.Context, id string, to model.Status, notes string, updatedBy string) (bool, error)

	// DeleteCascade は応募を削除する。添付ファイルはCASCADE削除される。
	// 削除後に所有applicantの応募が残っていない場合はapplicantも削除する。
	// 戻り値は（応募が存在したか, applicantも削除されたか, error）。
	DeleteCascade(ctx context.Context, id string) (found bool, applicantDeleted bool, err error)
}

// FileRepository は添付ファイルメタデータの永続化インターフェース。
type FileRepository interface {
	// Create はファイルメタデータを作成する。
	Create(ctx context.Context, file *model.File) error

	// ListByApplication は指定応募の添付ファイル一覧を作成日時の昇順で返す。
	ListByApplication(ctx context.Context, applicationID string) ([]model.File, error)
}

// ApplicantListItem は管理ダッシュボード一覧用の結合ビュー。
// 応募者行に最新応募のファイルパスと応募回数を付与する。
type ApplicantListItem struct {
	model.Applicant
	ApplicationID    string // 最新応募のID
	ApplicationCount int
	PhotoPath        string // 写真なしの場合は空文字列
	CVPath           string
}
