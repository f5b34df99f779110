package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/takumi/hiretrack/internal/metrics"
	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/upload"
)

// --- application.Service テスト用モック ---

// mockApplicantRepo はテスト用のApplicantRepositoryモック。
type mockApplicantRepo struct {
	applicants   map[string]*model.Applicant
	applications map[string]*model.Application
	createCalls  int
	listQuery    struct {
		status model.Status
		cursor time.Time
		limit  int
	}
	listResult []repository.ApplicantListItem
}

func newMockApplicantRepo() *mockApplicantRepo {
	return &mockApplicantRepo{
		applicants:   make(map[string]*model.Applicant),
		applications: make(map[string]*model.Application),
	}
}

func (m *mockApplicantRepo) CreateWithApplication(_ context.Context, applicant *model.Applicant, application *model.Application) error {
	m.createCalls++
	m.applicants[applicant.ID] = applicant
	m.applications[application.ID] = application
	return nil
}

func (m *mockApplicantRepo) ListWithLatestFiles(_ context.Context, status model.Status, cursor time.Time, limit int) ([]repository.ApplicantListItem, error) {
	m.listQuery.status = status
	m.listQuery.cursor = cursor
	m.listQuery.limit = limit
	return m.listResult, nil
}

var _ repository.ApplicantRepository = (*mockApplicantRepo)(nil)

// mockApplicationRepo はテスト用のApplicationRepositoryモック。
type mockApplicationRepo struct {
	details     map[string]*model.ApplicationDetail
	deleteCalls int
	deleted     map[string]bool
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{
		details: make(map[string]*model.ApplicationDetail),
		deleted: make(map[string]bool),
	}
}

func (m *mockApplicationRepo) FindByID(_ context.Context, id string) (*model.Application, error) {
	d, ok := m.details[id]
	if !ok {
		return nil, nil
	}
	app := d.Application
	return &app, nil
}

func (m *mockApplicationRepo) FindDetail(_ context.Context, id string) (*model.ApplicationDetail, error) {
	return m.details[id], nil
}

func (m *mockApplicationRepo) UpdateTransition(_ context.Context, id string, from, to model.Status, notes string, interviewAt *time.Time, updatedBy string) (bool, error) {
	return false, nil
}

func (m *mockApplicationRepo) UpdateStatusDirect(_ context.Context, id string, to model.Status, notes string, updatedBy string) (bool, error) {
	return false, nil
}

func (m *mockApplicationRepo) DeleteCascade(_ context.Context, id string) (bool, bool, error) {
	m.deleteCalls++
	if _, ok := m.details[id]; !ok {
		return false, false, nil
	}
	delete(m.details, id)
	m.deleted[id] = true
	return true, true, nil
}

var _ repository.ApplicationRepository = (*mockApplicationRepo)(nil)

// mockRelay はテスト用のRelayServiceモック。失敗させるフィールドを指定できる。
type mockRelay struct {
	relayed    []string // 中継されたフィールド名の順序
	failFields map[string]bool
}

func newMockRelay() *mockRelay {
	return &mockRelay{failFields: make(map[string]bool)}
}

func (m *mockRelay) RelayFile(_ context.Context, applicationID string, file *upload.Incoming) (string, error) {
	m.relayed = append(m.relayed, file.Field)
	if m.failFields[file.Field] {
		return "", errors.New("relay failed")
	}
	return "/uploads/" + file.Field + "-stored.bin", nil
}

var _ upload.RelayService = (*mockRelay)(nil)

// mockSanitizer は前後の空白だけ落とす簡易サニタイザー。
type mockSanitizer struct{}

func (mockSanitizer) Sanitize(raw string) string { return raw }

func newTestService(t *testing.T) (*Service, *mockApplicantRepo, *mockApplicationRepo, *mockRelay) {
	t.Helper()
	applicantRepo := newMockApplicantRepo()
	applicationRepo := newMockApplicationRepo()
	relay := newMockRelay()

	store, err := upload.NewStore(t.TempDir(), 10<<20)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	svc := NewService(applicantRepo, applicationRepo, store, relay, mockSanitizer{}, metrics.NopCollector{})
	return svc, applicantRepo, applicationRepo, relay
}

func validCommand() SubmitCommand {
	return SubmitCommand{
		FullName:    "山田太郎",
		Email:       "taro@example.com",
		Phone:       "090-1234-5678",
		Position:    "Backend Engineer",
		DateOfBirth: "1995-04-01",
		Photo:       &upload.Incoming{Field: upload.FieldPhoto, Filename: "face.jpg", ContentType: "image/jpeg", Data: []byte("img")},
		CV:          &upload.Incoming{Field: upload.FieldCV, Filename: "resume.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	}
}

var testActor = model.Identity{UserID: "user-1", Role: model.RoleAdmin}

// --- Submit ---

// 正常な応募が受理され、ファイルが中継されることを検証
func TestSubmit_Success(t *testing.T) {
	svc, applicantRepo, _, relay := newTestService(t)

	result, err := svc.Submit(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.Applicant.Status != model.StatusPending {
		t.Errorf("applicant status = %s, want PENDING", result.Applicant.Status)
	}
	if result.Application.ApplicantID != result.Applicant.ID {
		t.Error("application should reference the created applicant")
	}
	if result.Applicant.DateOfBirth == nil {
		t.Error("date of birth should be parsed")
	}
	if applicantRepo.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", applicantRepo.createCalls)
	}
	if len(relay.relayed) != 2 {
		t.Fatalf("relayed = %v, want cv and photo", relay.relayed)
	}
	if len(result.FailedUploads) != 0 {
		t.Errorf("FailedUploads = %v, want empty", result.FailedUploads)
	}
	if result.PhotoPath != "/uploads/photo-stored.bin" {
		t.Errorf("PhotoPath = %q, want relayed path", result.PhotoPath)
	}
	if result.CVPath != "/uploads/cv-stored.bin" {
		t.Errorf("CVPath = %q, want relayed path", result.CVPath)
	}
}

// photoなしの応募が受理されることを検証
func TestSubmit_WithoutPhoto(t *testing.T) {
	svc, _, _, relay := newTestService(t)

	cmd := validCommand()
	cmd.Photo = nil

	result, err := svc.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(relay.relayed) != 1 || relay.relayed[0] != upload.FieldCV {
		t.Errorf("relayed = %v, want [cv]", relay.relayed)
	}
	if len(result.FailedUploads) != 0 {
		t.Errorf("FailedUploads = %v, want empty", result.FailedUploads)
	}
	if result.PhotoPath != "" {
		t.Errorf("PhotoPath = %q, want empty for missing photo", result.PhotoPath)
	}
	if result.CVPath == "" {
		t.Error("CVPath should be set after successful relay")
	}
}

// フィールド検証がファイル検証・レコード作成より先に行われることを検証
func TestSubmit_FieldValidation(t *testing.T) {
	svc, applicantRepo, _, _ := newTestService(t)

	cmd := validCommand()
	cmd.FullName = ""
	cmd.Email = "not-an-email"
	cmd.DateOfBirth = "not-a-date"

	_, err := svc.Submit(context.Background(), cmd)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeValidationFailed)
	}
	if len(apiErr.Fields) != 3 {
		t.Errorf("expected 3 field errors, got %+v", apiErr.Fields)
	}
	if applicantRepo.createCalls != 0 {
		t.Error("validation failure should not create records")
	}
}

// CV欠落がCV_REQUIREDになることを検証
func TestSubmit_CVRequired(t *testing.T) {
	svc, applicantRepo, _, _ := newTestService(t)

	cmd := validCommand()
	cmd.CV = nil

	_, err := svc.Submit(context.Background(), cmd)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeCVRequired {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeCVRequired)
	}
	if applicantRepo.createCalls != 0 {
		t.Error("file validation failure should not create records")
	}
}

// 中継失敗が応募を取り消さず、FailedUploadsとして返ることを検証
func TestSubmit_PartialRelayFailure(t *testing.T) {
	svc, applicantRepo, _, relay := newTestService(t)
	relay.failFields[upload.FieldPhoto] = true

	result, err := svc.Submit(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if applicantRepo.createCalls != 1 {
		t.Error("records should be created despite relay failure")
	}
	if len(result.FailedUploads) != 1 {
		t.Fatalf("FailedUploads = %v, want 1 entry", result.FailedUploads)
	}
	if result.FailedUploads[0].Field != upload.FieldPhoto {
		t.Errorf("failed field = %q, want photo", result.FailedUploads[0].Field)
	}
	if result.PhotoPath != "" {
		t.Errorf("PhotoPath = %q, want empty after relay failure", result.PhotoPath)
	}
	if result.CVPath == "" {
		t.Error("CVPath should be set for the attachment that succeeded")
	}
}

// RFC3339形式の生年月日もパースされることを検証
func TestSubmit_RFC3339DateOfBirth(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	cmd := validCommand()
	cmd.DateOfBirth = "1995-04-01T00:00:00Z"

	result, err := svc.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.Applicant.DateOfBirth == nil || result.Applicant.DateOfBirth.Year() != 1995 {
		t.Errorf("DateOfBirth = %v, want 1995", result.Applicant.DateOfBirth)
	}
}

// --- List ---

// ステータス絞り込みがリポジトリに渡ることを検証
func TestList_PassesFilter(t *testing.T) {
	svc, applicantRepo, _, _ := newTestService(t)

	cursor := time.Now()
	_, err := svc.List(context.Background(), ListQuery{Status: "PENDING", Cursor: cursor, Limit: 20})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if applicantRepo.listQuery.status != model.StatusPending {
		t.Errorf("status = %s, want PENDING", applicantRepo.listQuery.status)
	}
	if !applicantRepo.listQuery.cursor.Equal(cursor) {
		t.Error("cursor should be passed through")
	}
	if applicantRepo.listQuery.limit != 20 {
		t.Errorf("limit = %d, want 20", applicantRepo.listQuery.limit)
	}
}

// 未定義ステータスでの絞り込みがINVALID_STATUSになることを検証
func TestList_InvalidStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.List(context.Background(), ListQuery{Status: "NOT_A_STATUS"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidStatus {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeInvalidStatus)
	}
}

// --- Get / Delete ---

// 存在しない応募の取得がNotFoundになることを検証
func TestGet_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeApplicationNotFound {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeApplicationNotFound)
	}
}

// 応募削除の成功とNotFoundを検証
func TestDelete(t *testing.T) {
	svc, _, applicationRepo, _ := newTestService(t)
	applicationRepo.details["application-1"] = &model.ApplicationDetail{
		Application: model.Application{ID: "application-1", Status: model.StatusPending},
	}

	if err := svc.Delete(context.Background(), "application-1", testActor); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !applicationRepo.deleted["application-1"] {
		t.Error("application should be deleted")
	}

	err := svc.Delete(context.Background(), "application-1", testActor)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeApplicationNotFound {
		t.Errorf("code = %s, want %s", apiErr.Code, model.ErrCodeApplicationNotFound)
	}
}
