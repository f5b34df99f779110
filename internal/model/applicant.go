package model

import "time"

// Applicant は応募者本人を表す。
// 1人の応募者は複数のApplication（応募サイクル）を持ちうる。
// Statusには最新のApplicationのステータスがミラーされる。
type Applicant struct {
	ID          string
	FullName    string
	Email       string
	Phone       string     // 任意
	Position    string     // 応募ポジション
	DateOfBirth *time.Time // 任意
	Status      Status
	AppliedAt   time.Time
	UpdatedAt   time.Time
	CreatedByID string // 代理登録したスタッフのユーザーID（任意）
	UpdatedByID string // 最終更新したスタッフのユーザーID（任意）
}

// Application は1回の応募サイクルを表す。
// applicantと同一トランザクションで作成され、ステータス遷移の単位となる。
type Application struct {
	ID          string
	ApplicantID string
	Status      Status
	Notes       string
	InterviewAt *time.Time // WAIT_RESULT遷移時に設定される面接日時
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// File は応募に添付されたアップロードファイルを表す。
// 所有するApplicationの削除時にCASCADE削除される。
type File struct {
	ID            string
	ApplicationID string
	UploaderID    string // 代理アップロードしたスタッフのユーザーID（任意）
	FilePath      string
	FileType      FileType
	CreatedAt     time.Time
}

// ApplicationDetail は応募詳細画面用の結合ビュー。
// applicationと所有applicant、添付ファイル一覧を結合する。
type ApplicationDetail struct {
	Application Application
	Applicant   Applicant
	Files       []File
}

// PhotoPath は添付ファイルから写真の公開パスを返す。存在しない場合は空文字列。
func (d *ApplicationDetail) PhotoPath() string {
	return d.pathByType(FileTypePhoto)
}

// CVPath は添付ファイルから履歴書の公開パスを返す。存在しない場合は空文字列。
func (d *ApplicationDetail) CVPath() string {
	return d.pathByType(FileTypeCV)
}

func (d *ApplicationDetail) pathByType(t FileType) string {
	for _, f := range d.Files {
		if f.FileType == t {
			return f.FilePath
		}
	}
	return ""
}
