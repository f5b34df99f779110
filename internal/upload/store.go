// Package upload は応募添付ファイルの検証・保存・中継を提供する。
package upload

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takumi/hiretrack/internal/model"
)

// Incoming はフォームから受け取った1つのアップロードファイルを表す。
type Incoming struct {
	Field       string // フォームフィールド名（photo / cv）
	Filename    string // クライアントが申告した元のファイル名
	ContentType string // クライアントが申告したMIMEタイプ
	Data        []byte
}

// フィールド名の定数。フォームとの契約値。
const (
	FieldPhoto = "photo"
	FieldCV    = "cv"
)

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Store は検証済みファイルのローカル保存を担う。
type Store struct {
	dir     string
	maxSize int64
}

// NewStore はStoreを生成し、保存ディレクトリを作成する。
func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("アップロードディレクトリの作成に失敗しました: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize}, nil
}

// Dir は保存ディレクトリのパスを返す。静的配信ルートの設定に使用する。
func (s *Store) Dir() string {
	return s.dir
}

// ValidateSubmission は応募フォームの添付ファイルを検証する。
// 検証順序は (1) CV必須チェック (2) 全ファイルのMIME/拡張子チェック
// (3) 全ファイルのサイズ上限。photoはnil可（任意添付）。
func (s *Store) ValidateSubmission(photo, cv *Incoming) error {
	if cv == nil || len(cv.Data) == 0 {
		return model.NewCVRequiredError()
	}

	files := []*Incoming{cv}
	if photo != nil {
		files = append(files, photo)
	}

	for _, in := range files {
		if err := s.validateType(in); err != nil {
			return err
		}
	}
	for _, in := range files {
		if err := s.validateSize(in); err != nil {
			return err
		}
	}

	return nil
}

// ValidateFile は1ファイルをフィールド種別に応じて検証する。
// MIME/拡張子チェックをサイズチェックより先に行う。
func (s *Store) ValidateFile(in *Incoming) error {
	if err := s.validateType(in); err != nil {
		return err
	}
	return s.validateSize(in)
}

func (s *Store) validateType(in *Incoming) error {
	switch in.Field {
	case FieldPhoto:
		if !strings.HasPrefix(s.contentType(in), "image/") || !photoExtensions[s.extension(in)] {
			return model.NewInvalidFileTypeError(in.Field, "写真はJPEGまたはPNG画像である必要があります")
		}
	case FieldCV:
		if s.contentType(in) != "application/pdf" || s.extension(in) != ".pdf" {
			return model.NewInvalidFileTypeError(in.Field, "履歴書はPDFである必要があります")
		}
	default:
		return model.NewInvalidFileTypeError(in.Field, "未知のフィールドです")
	}
	return nil
}

func (s *Store) validateSize(in *Incoming) error {
	if int64(len(in.Data)) > s.maxSize {
		return model.NewFileTooLargeError(in.Field, s.maxSize)
	}
	return nil
}

// Save は検証済みファイルをディスクに書き込み、公開パスを返す。
// 生成名はタイムスタンプとランダムサフィックスで衝突を回避する。
// 同一ファイルの再送はデデュープされず、新しいファイルとして保存される。
func (s *Store) Save(in *Incoming) (string, error) {
	name := fmt.Sprintf("%s-%d-%s%s",
		in.Field,
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		s.extension(in),
	)

	if err := os.WriteFile(filepath.Join(s.dir, name), in.Data, 0o644); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}

	return "/uploads/" + name, nil
}

// contentType は申告MIMEタイプを返し、未申告の場合は先頭バイトから推定する。
func (s *Store) contentType(in *Incoming) string {
	if in.ContentType != "" {
		return in.ContentType
	}
	return http.DetectContentType(in.Data)
}

func (s *Store) extension(in *Incoming) string {
	return strings.ToLower(filepath.Ext(in.Filename))
}

// FileTypeForField はフォームフィールド名からFileTypeを返す。
func FileTypeForField(field string) model.FileType {
	if field == FieldPhoto {
		return model.FileTypePhoto
	}
	return model.FileTypeCV
}
