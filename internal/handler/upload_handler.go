package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/hiretrack/internal/metrics"
	"github.com/takumi/hiretrack/internal/middleware"
	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/upload"
)

// ApplicationFinder はアップロード先の応募の存在確認に使うインターフェース。
type ApplicationFinder interface {
	FindByID(ctx context.Context, id string) (*model.Application, error)
}

// UploadHandler は内部ストレージエンドポイントのHTTPハンドラー。
// 応募受付サービスの中継（relay）から呼び出され、ファイル本体の保存と
// メタデータ行の記録を行う。
type UploadHandler struct {
	store        *upload.Store
	files        repository.FileRepository
	applications ApplicationFinder
	collector    metrics.MetricsCollector
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(
	store *upload.Store,
	files repository.FileRepository,
	applications ApplicationFinder,
	collector metrics.MetricsCollector,
) *UploadHandler {
	return &UploadHandler{
		store:        store,
		files:        files,
		applications: applications,
		collector:    collector,
	}
}

type uploadedFileResponse struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
}

type uploadResponse struct {
	Files []uploadedFileResponse `json:"files"`
}

// Upload はファイルを保存し、指定応募に紐づくメタデータ行を作成する。
// POST /api/upload?applicationId=xxx
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	applicationID := r.URL.Query().Get("applicationId")
	if applicationID == "" {
		middleware.WriteError(w, model.NewValidationError(model.FieldError{
			Field:   "applicationId",
			Message: "applicationIdは必須です",
		}))
		return
	}

	app, err := h.applications.FindByID(r.Context(), applicationID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if app == nil {
		middleware.WriteError(w, model.NewApplicationNotFoundError(applicationID))
		return
	}

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

	// 中継元のスタッフ認証は任意。存在すればuploader_idとして記録する
	uploaderID := ""
	if identity, err := middleware.IdentityFromContext(r.Context()); err == nil {
		uploaderID = identity.UserID
	}

	var saved []uploadedFileResponse
	for _, field := range []string{upload.FieldPhoto, upload.FieldCV} {
		headers := r.MultipartForm.File[field]
		if len(headers) == 0 {
			continue
		}

		in, err := incomingFromHeader(headers[0], field)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}

		if err := h.store.ValidateFile(in); err != nil {
			middleware.WriteError(w, err)
			return
		}

		publicPath, err := h.store.Save(in)
		if err != nil {
			slog.Error("upload save failed",
				slog.String("application_id", applicationID),
				slog.String("field", field),
				slog.String("error", err.Error()),
			)
			middleware.WriteInternalServerError(w)
			return
		}

		fileType := upload.FileTypeForField(field)
		file := &model.File{
			ID:            uuid.NewString(),
			ApplicationID: applicationID,
			UploaderID:    uploaderID,
			FilePath:      publicPath,
			FileType:      fileType,
			CreatedAt:     time.Now(),
		}
		if err := h.files.Create(r.Context(), file); err != nil {
			middleware.WriteError(w, err)
			return
		}

		h.collector.RecordUpload(string(fileType))
		h.collector.RecordUploadBytes(int64(len(in.Data)))

		saved = append(saved, uploadedFileResponse{
			ID:       file.ID,
			Field:    field,
			FilePath: publicPath,
			FileType: string(fileType),
		})
	}

	if len(saved) == 0 {
		middleware.WriteError(w, model.NewValidationError(model.FieldError{
			Field:   "file",
			Message: "アップロードするファイルがありません",
		}))
		return
	}

	slog.Info("files uploaded",
		slog.String("application_id", applicationID),
		slog.Int("count", len(saved)),
	)

	writeJSON(w, http.StatusCreated, uploadResponse{Files: saved})
}
