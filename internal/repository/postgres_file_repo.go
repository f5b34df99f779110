package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/takumi/hiretrack/internal/model"
)

// PostgresFileRepo はPostgreSQLを使用した添付ファイルメタデータリポジトリ。
type PostgresFileRepo struct {
	db *sql.DB
}

// NewPostgresFileRepo はPostgresFileRepoを生成する。
func NewPostgresFileRepo(db *sql.DB) *PostgresFileRepo {
	return &PostgresFileRepo{db: db}
}

// Create はファイルメタデータを作成する。
func (r *PostgresFileRepo) Create(ctx context.Context, file *model.File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, application_id, uploader_id, file_path, file_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		file.ID, file.ApplicationID, nullableID(file.UploaderID),
		file.FilePath, file.FileType, file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// ListByApplication は指定応募の添付ファイル一覧を作成日時の昇順で返す。
func (r *PostgresFileRepo) ListByApplication(ctx context.Context, applicationID string) ([]model.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, application_id, uploader_id, file_path, file_type, created_at
		 FROM files WHERE application_id = $1 ORDER BY created_at ASC`, applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := []model.File{}
	for rows.Next() {
		var f model.File
		var uploaderID sql.NullString
		if err := rows.Scan(&f.ID, &f.ApplicationID, &uploaderID, &f.FilePath, &f.FileType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		f.UploaderID = uploaderID.String
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}

	return files, nil
}

// compile-time interface check
var _ FileRepository = (*PostgresFileRepo)(nil)
