package model

import "fmt"

// FieldError はバリデーション失敗したフィールドと理由を表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// バリデーションエラーの場合はFieldsにフィールド単位の詳細が入る。
type APIError struct {
	Code     string       // エラーコード
	Message  string       // エラーメッセージ
	Category string       // カテゴリ: auth, validation, application, upload, system
	Action   string       // ユーザー向け対処方法
	Fields   []FieldError // フィールド単位のバリデーションエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeCVRequired          = "CV_REQUIRED"
	ErrCodeInvalidFileType     = "INVALID_FILE_TYPE"
	ErrCodeFileTooLarge        = "FILE_TOO_LARGE"
	ErrCodeApplicationNotFound = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidResult       = "INVALID_RESULT"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewValidationError はフィールド単位の詳細付きバリデーションエラーを生成する。
func NewValidationError(fields ...FieldError) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラー内容を確認して修正してください。",
		Fields:   fields,
	}
}

// NewCVRequiredError は履歴書未添付エラーを生成する。
// 写真は任意だが、履歴書は応募時に必須。
func NewCVRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCVRequired,
		Message:  "履歴書（CV）は必須です。",
		Category: "validation",
		Action:   "PDF形式の履歴書を添付してください。",
	}
}

// NewInvalidFileTypeError は許可されない形式のファイルに対するエラーを生成する。
// fieldには違反したフィールド名（photo または cv）を設定する。
func NewInvalidFileTypeError(field, detail string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFileType,
		Message:  fmt.Sprintf("%s のファイル形式が不正です: %s", field, detail),
		Category: "validation",
		Action:   "写真は画像（jpg/jpeg/png）、履歴書はPDFを添付してください。",
		Fields:   []FieldError{{Field: field, Message: detail}},
	}
}

// NewFileTooLargeError はサイズ上限超過エラーを生成する。
func NewFileTooLargeError(field string, limitBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("%s のファイルサイズが上限を超えています。", field),
		Category: "validation",
		Action:   fmt.Sprintf("%dMB以下のファイルを添付してください。", limitBytes/(1024*1024)),
		Fields:   []FieldError{{Field: field, Message: "file too large"}},
	}
}

// NewApplicationNotFoundError は応募未検出エラーを生成する。
func NewApplicationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された応募が見つかりません: %s", id),
		Category: "application",
		Action:   "応募IDを確認してください。",
	}
}

// NewInvalidStatusError は未定義のステータス値に対するエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "PENDING、WAIT_RESULT、PASS_INTERVIEW、REJECT_INTERVIEW、REJECT のいずれかを指定してください。",
		Fields:   []FieldError{{Field: "status", Message: "invalid status value"}},
	}
}

// NewInvalidResultError は面接結果として許可されない値に対するエラーを生成する。
// 面接結果はPASS_INTERVIEWまたはREJECT_INTERVIEWのみ。
func NewInvalidResultError(result string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResult,
		Message:  fmt.Sprintf("無効な面接結果です: %s", result),
		Category: "validation",
		Action:   "面接結果には PASS_INTERVIEW または REJECT_INTERVIEW を指定してください。",
		Fields:   []FieldError{{Field: "result", Message: "must be PASS_INTERVIEW or REJECT_INTERVIEW"}},
	}
}

// NewInvalidTransitionError は選考フローで許可されない遷移に対するエラーを生成する。
func NewInvalidTransitionError(from, to Status) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("ステータス %s から %s への遷移は許可されていません。", from, to),
		Category: "application",
		Action:   "現在のステータスを確認してから操作をやり直してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "管理者に権限の付与を依頼してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレス不明とパスワード不一致は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
