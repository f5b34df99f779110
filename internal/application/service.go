// Package application は応募の受付・照会・削除のドメインロジックを提供する。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/hiretrack/internal/metrics"
	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
	"github.com/takumi/hiretrack/internal/upload"
)

// SubmitCommand は公開フォームから受け取った応募内容。
// ハンドラー層でmultipartから一度だけパースされ、以降は型付きで扱う。
type SubmitCommand struct {
	FullName    string
	Email       string
	Phone       string
	Position    string
	DateOfBirth string // RFC3339または日付のみ。空可
	Photo       *upload.Incoming
	CV          *upload.Incoming
}

// SubmitResult は応募受付の結果。
// 中継に失敗した添付があっても応募自体は受理される（FailedUploadsで通知）。
// PhotoPath/CVPathは中継に成功した添付の保存先公開パス（未添付・失敗時は空）。
type SubmitResult struct {
	Applicant     *model.Applicant
	Application   *model.Application
	PhotoPath     string
	CVPath        string
	FailedUploads []upload.FailedUpload
}

// ListQuery は管理ダッシュボード一覧の照会条件。
type ListQuery struct {
	Status string    // 空で全件
	Cursor time.Time // ゼロ値で先頭から
	Limit  int       // 0で全件
}

// Service は応募のサービス層。
type Service struct {
	applicantRepo   repository.ApplicantRepository
	applicationRepo repository.ApplicationRepository
	store           *upload.Store
	relay           upload.RelayService
	sanitizer       security.TextSanitizerService
	collector       metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	applicantRepo repository.ApplicantRepository,
	applicationRepo repository.ApplicationRepository,
	store *upload.Store,
	relay upload.RelayService,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		applicantRepo:   applicantRepo,
		applicationRepo: applicationRepo,
		store:           store,
		relay:           relay,
		sanitizer:       sanitizer,
		collector:       collector,
	}
}

// Submit は公開フォームからの応募を受理する。
// フィールド検証→ファイル検証→レコード作成→ファイル中継の順で処理する。
// レコード作成後の中継失敗は応募を取り消さず、FailedUploadsとして返す。
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	dob, err := validateSubmit(&cmd)
	if err != nil {
		return nil, err
	}

	if err := s.store.ValidateSubmission(cmd.Photo, cmd.CV); err != nil {
		return nil, err
	}

	now := time.Now()
	applicant := &model.Applicant{
		ID:          uuid.NewString(),
		FullName:    s.sanitizer.Sanitize(cmd.FullName),
		Email:       s.sanitizer.Sanitize(cmd.Email),
		Phone:       s.sanitizer.Sanitize(cmd.Phone),
		Position:    s.sanitizer.Sanitize(cmd.Position),
		DateOfBirth: dob,
		Status:      model.StatusPending,
		AppliedAt:   now,
		UpdatedAt:   now,
	}
	application := &model.Application{
		ID:          uuid.NewString(),
		ApplicantID: applicant.ID,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.applicantRepo.CreateWithApplication(ctx, applicant, application); err != nil {
		return nil, fmt.Errorf("応募レコードの作成に失敗しました: %w", err)
	}

	s.collector.RecordSubmission()
	slog.Info("application submitted",
		slog.String("applicant_id", applicant.ID),
		slog.String("application_id", application.ID),
		slog.String("position", applicant.Position),
	)

	// ファイル中継。失敗してもロールバックせず、部分失敗として通知する。
	var failed []upload.FailedUpload
	var photoPath, cvPath string
	for _, file := range []*upload.Incoming{cmd.CV, cmd.Photo} {
		if file == nil {
			continue
		}
		storedPath, err := s.relay.RelayFile(ctx, application.ID, file)
		if err != nil {
			s.collector.RecordRelayFailure()
			slog.Error("file relay failed",
				slog.String("application_id", application.ID),
				slog.String("field", file.Field),
				slog.String("error", err.Error()),
			)
			failed = append(failed, upload.FailedUpload{
				Field:  file.Field,
				Reason: "ファイルの保存に失敗しました",
			})
			continue
		}
		switch file.Field {
		case upload.FieldPhoto:
			photoPath = storedPath
		case upload.FieldCV:
			cvPath = storedPath
		}
	}

	return &SubmitResult{
		Applicant:     applicant,
		Application:   application,
		PhotoPath:     photoPath,
		CVPath:        cvPath,
		FailedUploads: failed,
	}, nil
}

// List は応募者一覧をステータス絞り込み・カーソル付きで返す。
func (s *Service) List(ctx context.Context, q ListQuery) ([]repository.ApplicantListItem, error) {
	status := model.Status(q.Status)
	if q.Status != "" && !status.IsValid() {
		return nil, model.NewInvalidStatusError(q.Status)
	}

	items, err := s.applicantRepo.ListWithLatestFiles(ctx, status, q.Cursor, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("応募者一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// Get は応募の詳細を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.ApplicationDetail, error) {
	detail, err := s.applicationRepo.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("応募詳細の取得に失敗しました: %w", err)
	}
	if detail == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}
	return detail, nil
}

// Delete は応募を削除する。添付ファイル行はCASCADEで削除され、
// 最後の応募だった場合はapplicant行も削除される。
// ディスク上のファイル実体はクリーンアップワーカーが回収する。
func (s *Service) Delete(ctx context.Context, id string, actor model.Identity) error {
	found, applicantDeleted, err := s.applicationRepo.DeleteCascade(ctx, id)
	if err != nil {
		return fmt.Errorf("応募の削除に失敗しました: %w", err)
	}
	if !found {
		return model.NewApplicationNotFoundError(id)
	}

	slog.Info("application deleted",
		slog.String("application_id", id),
		slog.Bool("applicant_deleted", applicantDeleted),
		slog.String("actor_id", actor.UserID),
	)
	return nil
}

// validateSubmit はフォームフィールドを検証し、生年月日をパースして返す。
func validateSubmit(cmd *SubmitCommand) (*time.Time, error) {
	var fields []model.FieldError

	if cmd.FullName == "" {
		fields = append(fields, model.FieldError{Field: "fullName", Message: "氏名は必須です"})
	}
	if _, err := mail.ParseAddress(cmd.Email); err != nil {
		fields = append(fields, model.FieldError{Field: "email", Message: "有効なメールアドレスを入力してください"})
	}
	if cmd.Position == "" {
		fields = append(fields, model.FieldError{Field: "position", Message: "応募ポジションは必須です"})
	}

	var dob *time.Time
	if cmd.DateOfBirth != "" {
		parsed, err := parseDate(cmd.DateOfBirth)
		if err != nil {
			fields = append(fields, model.FieldError{Field: "dob", Message: "生年月日の形式が不正です"})
		} else {
			dob = &parsed
		}
	}

	if len(fields) > 0 {
		return nil, model.NewValidationError(fields...)
	}
	return dob, nil
}

// parseDate はRFC3339または日付のみ（YYYY-MM-DD)の文字列をパースする。
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
