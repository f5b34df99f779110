package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/takumi/hiretrack/internal/model"
)

// エラーコードからHTTPステータスへのマッピングを検証
func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", model.NewValidationError(model.FieldError{Field: "email", Message: "x"}), http.StatusBadRequest},
		{"cv required", model.NewCVRequiredError(), http.StatusBadRequest},
		{"invalid file type", model.NewInvalidFileTypeError("photo", "x"), http.StatusBadRequest},
		{"file too large", model.NewFileTooLargeError("cv", 10<<20), http.StatusRequestEntityTooLarge},
		{"not found", model.NewApplicationNotFoundError("id"), http.StatusNotFound},
		{"invalid transition", model.NewInvalidTransitionError(model.StatusReject, model.StatusPending), http.StatusConflict},
		{"invalid status", model.NewInvalidStatusError("X"), http.StatusBadRequest},
		{"invalid result", model.NewInvalidResultError("X"), http.StatusBadRequest},
		{"unauthorized", model.NewUnauthorizedError("x"), http.StatusUnauthorized},
		{"invalid credentials", model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"forbidden", model.NewForbiddenError(), http.StatusForbidden},
		{"internal", model.NewInternalError(), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
}

// バリデーションエラーのフィールド詳細がレスポンスに含まれることを検証
func TestWriteError_IncludesFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, model.NewValidationError(
		model.FieldError{Field: "fullName", Message: "氏名は必須です"},
		model.FieldError{Field: "email", Message: "有効なメールアドレスを入力してください"},
	))

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response should be JSON: %v", err)
	}
	if body.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %s, want %s", body.Code, model.ErrCodeValidationFailed)
	}
	if len(body.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2 entries", body.Errors)
	}
	if body.Errors[0].Field != "fullName" {
		t.Errorf("first field = %q, want fullName", body.Errors[0].Field)
	}
}

// 通常エラーのレスポンスにerrorsキーが含まれないことを検証
func TestWriteError_OmitsEmptyFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, model.NewApplicationNotFoundError("id"))

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("response should be JSON: %v", err)
	}
	if _, ok := raw["errors"]; ok {
		t.Error("errors key should be omitted when empty")
	}
}

// 内部エラーで詳細が漏れないことを検証
func TestWriteInternalServerError_GenericMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response should be JSON: %v", err)
	}
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %s, want %s", body.Code, model.ErrCodeInternal)
	}
}
