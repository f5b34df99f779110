package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takumi/hiretrack/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
func (r *PostgresApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	app := &model.Application{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, applicant_id, status, notes, interview_at, created_at, updated_at
		 FROM applications WHERE id = $1`, id,
	).Scan(&app.ID, &app.ApplicantID, &app.Status, &app.Notes, &app.InterviewAt, &app.CreatedAt, &app.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}

	return app, nil
}

// FindDetail は応募と所有applicant・添付ファイルを結合して取得する。
func (r *PostgresApplicationRepo) FindDetail(ctx context.Context, id string) (*model.ApplicationDetail, error) {
	detail := &model.ApplicationDetail{}
	var createdBy, updatedBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT ap.id, ap.applicant_id, ap.status, ap.notes, ap.interview_at, ap.created_at, ap.updated_at,
		        a.id, a.full_name, a.email, a.phone, a.position, a.date_of_birth,
		        a.status, a.applied_at, a.updated_at, a.created_by, a.updated_by
		 FROM applications ap
		 JOIN applicants a ON a.id = ap.applicant_id
		 WHERE ap.id = $1`, id,
	).Scan(
		&detail.Application.ID, &detail.Application.ApplicantID, &detail.Application.Status,
		&detail.Application.Notes, &detail.Application.InterviewAt,
		&detail.Application.CreatedAt, &detail.Application.UpdatedAt,
		&detail.Applicant.ID, &detail.Applicant.FullName, &detail.Applicant.Email,
		&detail.Applicant.Phone, &detail.Applicant.Position, &detail.Applicant.DateOfBirth,
		&detail.Applicant.Status, &detail.Applicant.AppliedAt, &detail.Applicant.UpdatedAt,
		&createdBy, &updatedBy,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application detail: %w", err)
	}

	detail.Applicant.CreatedByID = createdBy.String
	detail.Applicant.UpdatedByID = updatedBy.String

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, application_id, uploader_id, file_path, file_type, created_at
		 FROM files WHERE application_id = $1 ORDER BY created_at ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f model.File
		var uploaderID sql.NullString
		if err := rows.Scan(&f.ID, &f.ApplicationID, &uploaderID, &f.FilePath, &f.FileType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		f.UploaderID = uploaderID.String
		detail.Files = append(detail.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file rows: %w", err)
	}

	return detail, nil
}

// UpdateTransition は現在のステータスがfromの場合に限りtoへ更新する。
// ガード付きUPDATEで同時遷移を直列化し、負けた側はfalseを受け取る。
// 応募行の更新が成功した場合のみ所有applicant行のステータスをミラーする。
func (r *PostgresApplicationRepo) UpdateTransition(ctx context.Context, id string, from, to model.Status, notes string, interviewAt *time.Time, updatedBy string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var applicantID string
	err = tx.QueryRowContext(ctx,
		`UPDATE applications
		 SET status = $1,
		     notes = CASE WHEN $2 <> '' THEN $2 ELSE notes END,
		     interview_at = COALESCE($3, interview_at),
		     updated_at = NOW()
		 WHERE id = $4 AND status = $5
		 RETURNING applicant_id`,
		to, notes, interviewAt, id, from,
	).Scan(&applicantID)

	if err == sql.ErrNoRows {
		// ガードに弾かれた（ステータスがfromではない、または応募が存在しない）
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update application status: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE applicants SET status = $1, updated_at = NOW(), updated_by = $2 WHERE id = $3`,
		to, nullableID(updatedBy), applicantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mirror applicant status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// UpdateStatusDirect は遷移ガードなしでステータスを上書きする。
// 管理者専用の監査付き操作からのみ呼び出すこと。
func (r *PostgresApplicationRepo) UpdateStatusDirect(ctx context.Context, id string, to model.Status, notes string, updatedBy string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var applicantID string
	err = tx.QueryRowContext(ctx,
		`UPDATE applications
		 SET status = $1,
		     notes = CASE WHEN $2 <> '' THEN $2 ELSE notes END,
		     updated_at = NOW()
		 WHERE id = $3
		 RETURNING applicant_id`,
		to, notes, id,
	).Scan(&applicantID)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to override application status: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE applicants SET status = $1, updated_at = NOW(), updated_by = $2 WHERE id = $3`,
		to, nullableID(updatedBy), applicantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mirror applicant status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// DeleteCascade は応募を削除する。添付ファイルは外部キーのCASCADEで削除される。
// 削除後に所有applicantの応募が残っていない場合はapplicant行も削除する。
func (r *PostgresApplicationRepo) DeleteCascade(ctx context.Context, id string) (bool, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var applicantID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM applications WHERE id = $1 RETURNING applicant_id`, id,
	).Scan(&applicantID)

	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to delete application: %w", err)
	}

	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE applicant_id = $1`, applicantID,
	).Scan(&remaining)
	if err != nil {
		return false, false, fmt.Errorf("failed to count remaining applications: %w", err)
	}

	applicantDeleted := false
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM applicants WHERE id = $1`, applicantID); err != nil {
			return false, false, fmt.Errorf("failed to delete orphaned applicant: %w", err)
		}
		applicantDeleted = true
	}

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, applicantDeleted, nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
