package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takumi/hiretrack/internal/application"
	"github.com/takumi/hiretrack/internal/middleware"
	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/upload"
)

// maxSubmitBytes は応募フォームのリクエストボディ上限。
// 添付2ファイル（各10MiB）とテキストフィールド分の余裕を持たせる。
const maxSubmitBytes = 25 << 20

// multipartMemory はmultipartパース時にメモリ上に保持する上限。
const multipartMemory = 16 << 20

// ApplicationServiceInterface は応募ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	Submit(ctx context.Context, cmd application.SubmitCommand) (*application.SubmitResult, error)
	List(ctx context.Context, q application.ListQuery) ([]repository.ApplicantListItem, error)
	Get(ctx context.Context, id string) (*model.ApplicationDetail, error)
	Delete(ctx context.Context, id string, actor model.Identity) error
}

// LifecycleServiceInterface はステータス遷移ハンドラーが必要とするサービスインターフェース。
type LifecycleServiceInterface interface {
	Approve(ctx context.Context, id string, interviewAt *time.Time, notes string, actor model.Identity) (*model.ApplicationDetail, error)
	Reject(ctx context.Context, id string, notes string, actor model.Identity) (*model.ApplicationDetail, error)
	RecordResult(ctx context.Context, id string, result string, feedback string, actor model.Identity) (*model.ApplicationDetail, error)
	Override(ctx context.Context, id string, status string, notes string, actor model.Identity) (*model.ApplicationDetail, error)
}

// ApplicationHandler は応募の受付と管理操作のHTTPハンドラー。
type ApplicationHandler struct {
	applications ApplicationServiceInterface
	lifecycle    LifecycleServiceInterface
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(applications ApplicationServiceInterface, lifecycle LifecycleServiceInterface) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		lifecycle:    lifecycle,
	}
}

// submitResponse は応募受付のレスポンス。
// photoPath/cvPathは保存に成功した添付の公開パスで、未添付・保存失敗時はnull。
type submitResponse struct {
	ID            string                `json:"id"`
	ApplicationID string                `json:"applicationId"`
	FullName      string                `json:"fullName"`
	Email         string                `json:"email"`
	Position      string                `json:"position"`
	Status        string                `json:"status"`
	AppliedAt     time.Time             `json:"appliedAt"`
	PhotoPath     *string               `json:"photoPath"`
	CVPath        *string               `json:"cvPath"`
	FailedUploads []upload.FailedUpload `json:"failedUploads,omitempty"`
}

// applicantListItemResponse は管理ダッシュボード一覧の1行。
type applicantListItemResponse struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Position         string    `json:"position"`
	Status           string    `json:"status"`
	AppliedAt        time.Time `json:"appliedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	ApplicationID    string    `json:"applicationId"`
	ApplicationCount int       `json:"applicationCount"`
	PhotoPath        *string   `json:"photoPath"`
	CVPath           *string   `json:"cvPath"`
}

// applicationDetailResponse は応募詳細のレスポンス。
type applicationDetailResponse struct {
	ID          string             `json:"id"`
	ApplicantID string             `json:"applicantId"`
	Status      string             `json:"status"`
	Notes       string             `json:"notes,omitempty"`
	InterviewAt *time.Time         `json:"interviewDate,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Applicant   applicantResponse  `json:"applicant"`
	Files       []fileResponse     `json:"files"`
	PhotoPath   *string            `json:"photoPath"`
	CVPath      *string            `json:"cvPath"`
}

type applicantResponse struct {
	ID          string     `json:"id"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Position    string     `json:"position"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Status      string     `json:"status"`
	AppliedAt   time.Time  `json:"appliedAt"`
}

type fileResponse struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"filePath"`
	FileType  string    `json:"fileType"`
	CreatedAt time.Time `json:"createdAt"`
}

func toApplicationDetailResponse(detail *model.ApplicationDetail) applicationDetailResponse {
	files := make([]fileResponse, len(detail.Files))
	for i, f := range detail.Files {
		files[i] = fileResponse{
			ID:        f.ID,
			FilePath:  f.FilePath,
			FileType:  string(f.FileType),
			CreatedAt: f.CreatedAt,
		}
	}
	return applicationDetailResponse{
		ID:          detail.Application.ID,
		ApplicantID: detail.Applicant.ID,
		Status:      string(detail.Application.Status),
		Notes:       detail.Application.Notes,
		InterviewAt: detail.Application.InterviewAt,
		CreatedAt:   detail.Application.CreatedAt,
		UpdatedAt:   detail.Application.UpdatedAt,
		Applicant: applicantResponse{
			ID:          detail.Applicant.ID,
			FullName:    detail.Applicant.FullName,
			Email:       detail.Applicant.Email,
			Phone:       detail.Applicant.Phone,
			Position:    detail.Applicant.Position,
			DateOfBirth: detail.Applicant.DateOfBirth,
			Status:      string(detail.Applicant.Status),
			AppliedAt:   detail.Applicant.AppliedAt,
		},
		Files:     files,
		PhotoPath: nullableString(detail.PhotoPath()),
		CVPath:    nullableString(detail.CVPath()),
	}
}

// nullableString は空文字列をJSONのnullとして表現するためのポインタに変換する。
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Submit は公開フォームからの応募を受け付ける。
// POST /submit
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "multipartフォームの解析に失敗しました。",
			Category: "validation",
			Action:   "フォームの形式とサイズを確認してください。",
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	photo, err := incomingFromForm(r.MultipartForm, upload.FieldPhoto)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	cv, err := incomingFromForm(r.MultipartForm, upload.FieldCV)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	cmd := application.SubmitCommand{
		FullName:    r.FormValue("fullName"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		Position:    r.FormValue("position"),
		DateOfBirth: r.FormValue("dob"),
		Photo:       photo,
		CV:          cv,
	}

	result, err := h.applications.Submit(r.Context(), cmd)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		ID:            result.Applicant.ID,
		ApplicationID: result.Application.ID,
		FullName:      result.Applicant.FullName,
		Email:         result.Applicant.Email,
		Position:      result.Applicant.Position,
		Status:        string(result.Applicant.Status),
		AppliedAt:     result.Applicant.AppliedAt,
		PhotoPath:     nullableString(result.PhotoPath),
		CVPath:        nullableString(result.CVPath),
		FailedUploads: result.FailedUploads,
	})
}

// incomingFromForm はmultipartフォームから指定フィールドのファイルを読み出す。
// フィールドが存在しない場合はnilを返す（必須チェックはサービス層で行う）。
func incomingFromForm(form *multipart.Form, field string) (*upload.Incoming, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	return incomingFromHeader(headers[0], field)
}

func incomingFromHeader(header *multipart.FileHeader, field string) (*upload.Incoming, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &upload.Incoming{
		Field:       field,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// List は応募者一覧を返す。statusクエリで絞り込み、cursor/limitでページングする。
// GET /admin/applications?status=&cursor=&limit=
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := application.ListQuery{
		Status: r.URL.Query().Get("status"),
	}

	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		t, err := time.Parse(time.RFC3339, cursor)
		if err != nil {
			middleware.WriteError(w, model.NewValidationError(model.FieldError{
				Field:   "cursor",
				Message: "cursorはRFC3339形式で指定してください",
			}))
			return
		}
		q.Cursor = t
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := parsePositiveInt(limit)
		if err != nil {
			middleware.WriteError(w, model.NewValidationError(model.FieldError{
				Field:   "limit",
				Message: "limitは正の整数で指定してください",
			}))
			return
		}
		q.Limit = n
	}

	items, err := h.applications.List(r.Context(), q)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	results := make([]applicantListItemResponse, len(items))
	for i, item := range items {
		results[i] = applicantListItemResponse{
			ID:               item.ID,
			FullName:         item.FullName,
			Email:            item.Email,
			Phone:            item.Phone,
			Position:         item.Position,
			Status:           string(item.Status),
			AppliedAt:        item.AppliedAt,
			UpdatedAt:        item.UpdatedAt,
			ApplicationID:    item.ApplicationID,
			ApplicationCount: item.ApplicationCount,
			PhotoPath:        nullableString(item.PhotoPath),
			CVPath:           nullableString(item.CVPath),
		}
	}

	writeJSON(w, http.StatusOK, results)
}

// Get は応募詳細を返す。
// GET /admin/applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.applications.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDetailResponse(detail))
}

// Delete は応募を削除する。最後の応募だった場合は応募者も削除される。
// DELETE /admin/applications/{id}
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError("認証が必要です"))
		return
	}

	if err := h.applications.Delete(r.Context(), chi.URLParam(r, "id"), identity); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "応募を削除しました。"})
}

type approveRequest struct {
	InterviewDate string `json:"interviewDate"`
	Notes         string `json:"notes"`
}

// Approve は面接日を設定して応募をWAIT_RESULTへ遷移させる。
// PUT /admin/applications/{id}/approve
func (h *ApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError("認証が必要です"))
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError(model.FieldError{
			Field:   "body",
			Message: "リクエストボディの解析に失敗しました",
		}))
		return
	}

	var interviewAt *time.Time
	if req.InterviewDate != "" {
		t, err := time.Parse(time.RFC3339, req.InterviewDate)
		if err != nil {
			middleware.WriteError(w, model.NewValidationError(model.FieldError{
				Field:   "interviewDate",
				Message: "面接日時はRFC3339形式で指定してください",
			}))
			return
		}
		interviewAt = &t
	}

	detail, err := h.lifecycle.Approve(r.Context(), chi.URLParam(r, "id"), interviewAt, req.Notes, identity)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDetailResponse(detail))
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

// Reject は応募を面接なしで不採用（REJECT）へ遷移させる。
// PUT /admin/applications/{id}/reject
func (h *ApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError("認証が必要です"))
		return
	}

	var req rejectRequest
	if r.Body != nil {
		// bodyは任意。デコード失敗は空扱いにする
		json.NewDecoder(r.Body).Decode(&req)
	}

	detail, err := h.lifecycle.Reject(r.Context(), chi.URLParam(r, "id"), req.Notes, identity)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDetailResponse(detail))
}

type interviewResultRequest struct {
	Result   string `json:"result"`
	Feedback string `json:"feedback"`
}

// InterviewResult は面接結果（合格/不合格）を記録する。
// PUT /admin/applications/{id}/interview-result
func (h *ApplicationHandler) InterviewResult(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError("認証が必要です"))
		return
	}

	var req interviewResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError(model.FieldError{
			Field:   "body",
			Message: "リクエストボディの解析に失敗しました",
		}))
		return
	}

	detail, err := h.lifecycle.RecordResult(r.Context(), chi.URLParam(r, "id"), req.Result, req.Feedback, identity)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDetailResponse(detail))
}

type overrideStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// OverrideStatus は遷移ガードを経由せずステータスを直接上書きする。
// 管理者ロール専用。操作は監査ログに記録される。
// PUT /admin/applications/{id}/status
func (h *ApplicationHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError("認証が必要です"))
		return
	}

	var req overrideStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError(model.FieldError{
			Field:   "body",
			Message: "リクエストボディの解析に失敗しました",
		}))
		return
	}

	detail, err := h.lifecycle.Override(r.Context(), chi.URLParam(r, "id"), req.Status, req.Notes, identity)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDetailResponse(detail))
}

// parsePositiveInt は正の整数文字列をパースする。
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %d", n)
	}
	return n, nil
}
