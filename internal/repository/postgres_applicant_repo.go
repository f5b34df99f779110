package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/takumi/hiretrack/internal/model"
)

// PostgresApplicantRepo はPostgreSQLを使用した応募者リポジトリ。
type PostgresApplicantRepo struct {
	db *sql.DB
}

// NewPostgresApplicantRepo はPostgresApplicantRepoを生成する。
func NewPostgresApplicantRepo(db *sql.DB) *PostgresApplicantRepo {
	return &PostgresApplicantRepo{db: db}
}

// CreateWithApplication は応募者と初回応募を同一トランザクションで作成する。
func (r *PostgresApplicantRepo) CreateWithApplication(ctx context.Context, applicant *model.Applicant, application *model.Application) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applicants (id, full_name, email, phone, position, date_of_birth, status, applied_at, updated_at, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		applicant.ID, applicant.FullName, applicant.Email, applicant.Phone, applicant.Position,
		applicant.DateOfBirth, applicant.Status, applicant.AppliedAt, applicant.UpdatedAt,
		nullableID(applicant.CreatedByID), nullableID(applicant.UpdatedByID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert applicant: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applications (id, applicant_id, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		application.ID, application.ApplicantID, application.Status, application.Notes,
		application.CreatedAt, application.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListWithLatestFiles は応募者一覧を応募日時の降順で返す。
// 最新応募はLATERAL結合で1件に絞り、写真/履歴書のパスはその応募の
// 添付ファイルからサブクエリで引き当てる。
func (r *PostgresApplicantRepo) ListWithLatestFiles(ctx context.Context, status model.Status, cursor time.Time, limit int) ([]ApplicantListItem, error) {
	var sb strings.Builder
	sb.WriteString(
		`SELECT a.id, a.full_name, a.email, a.phone, a.position, a.date_of_birth,
		        a.status, a.applied_at, a.updated_at,
		        latest.id,
		        (SELECT COUNT(*) FROM applications WHERE applicant_id = a.id),
		        COALESCE((SELECT f.file_path FROM files f
		                  WHERE f.application_id = latest.id AND f.file_type = 'PHOTO'
		                  ORDER BY f.created_at DESC LIMIT 1), ''),
		        COALESCE((SELECT f.file_path FROM files f
		                  WHERE f.application_id = latest.id AND f.file_type = 'CV'
		                  ORDER BY f.created_at DESC LIMIT 1), '')
		 FROM applicants a
		 LEFT JOIN LATERAL (
		     SELECT id FROM applications
		     WHERE applicant_id = a.id
		     ORDER BY created_at DESC LIMIT 1
		 ) latest ON true`)

	args := []interface{}{}
	conds := []string{}

	if status != "" {
		args = append(args, status)
		conds = append(conds, "a.status = $"+strconv.Itoa(len(args)))
	}
	if !cursor.IsZero() {
		args = append(args, cursor)
		conds = append(conds, "a.applied_at < $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY a.applied_at DESC")

	if limit > 0 {
		args = append(args, limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	defer rows.Close()

	items := []ApplicantListItem{}
	for rows.Next() {
		var item ApplicantListItem
		var latestID sql.NullString
		err := rows.Scan(
			&item.ID, &item.FullName, &item.Email, &item.Phone, &item.Position, &item.DateOfBirth,
			&item.Status, &item.AppliedAt, &item.UpdatedAt,
			&latestID, &item.ApplicationCount, &item.PhotoPath, &item.CVPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant row: %w", err)
		}
		item.ApplicationID = latestID.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applicant rows: %w", err)
	}

	return items, nil
}

// nullableID は空文字列をNULLとして扱うためのヘルパー。
// UUID列に空文字列を渡すとキャストエラーになるため必須。
func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

// compile-time interface check
var _ ApplicantRepository = (*PostgresApplicantRepo)(nil)

