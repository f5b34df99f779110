// Package cleanup はセッションとアップロードファイルの自動整理ジョブを提供する。
// 期限切れセッションの非アクティブ化と保持期間超過行の削除、および
// filesテーブルから参照されなくなった孤立アップロードファイルの削除を行う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/takumi/hiretrack/internal/repository"
)

// FilePathLister は記録済みアップロードファイルパスの列挙インターフェース。
type FilePathLister interface {
	ListPaths(ctx context.Context) ([]string, error)
}

// Querier はSQLのQueryContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// dbFilePathLister はfilesテーブルを参照するFilePathLister実装。
type dbFilePathLister struct {
	db Querier
}

// NewDBFilePathLister はfilesテーブルを参照するFilePathListerを生成する。
func NewDBFilePathLister(db Querier) FilePathLister {
	return &dbFilePathLister{db: db}
}

// ListPaths はfilesテーブルに記録されている全ファイルパスを返す。
func (l *dbFilePathLister) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT file_path FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// orphanGracePeriod は孤立判定までの猶予時間。
// 応募受付と中継の間にあるファイルを誤削除しないための余裕。
const orphanGracePeriod = time.Hour

// CleanupJob はセッションと孤立ファイルの定期整理ジョブ。
// 冪等な処理として設計されており、対象がない場合でもエラーにならない。
type CleanupJob struct {
	files     FilePathLister
	sessions  repository.SessionRepository
	uploadDir string
	logger    *slog.Logger

	// SessionRetention は非アクティブセッション行の保持期間（デフォルト: 90日）。
	SessionRetention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(files FilePathLister, sessions repository.SessionRepository, uploadDir string, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		files:            files,
		sessions:         sessions,
		uploadDir:        uploadDir,
		logger:           logger,
		SessionRetention: 90 * 24 * time.Hour,
	}
}

// Run はセッション整理と孤立ファイル削除を順に実行する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deactivated, err := j.sessions.DeactivateExpired(ctx, j.SessionRetention)
	if err != nil {
		j.logger.Error("セッション整理に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッション整理の実行に失敗: %w", err)
	}

	removed, err := j.sweepOrphanFiles(ctx)
	if err != nil {
		j.logger.Error("孤立ファイルの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("孤立ファイル削除の実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deactivated_sessions", deactivated),
		slog.Int("removed_files", removed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// sweepOrphanFiles はfilesテーブルから参照されていないアップロードファイルを削除する。
// 作成から猶予時間を過ぎたファイルのみを対象とする。
func (j *CleanupJob) sweepOrphanFiles(ctx context.Context) (int, error) {
	paths, err := j.files.ListPaths(ctx)
	if err != nil {
		return 0, err
	}

	// file_pathは公開パス（/uploads/<name>）なのでベース名に正規化する
	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[path.Base(p)] = true
	}

	entries, err := os.ReadDir(j.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-orphanGracePeriod)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(j.uploadDir, entry.Name())); err != nil {
			j.logger.Warn("孤立ファイルの削除に失敗しました",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	return removed, nil
}
