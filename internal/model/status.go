// Package model はドメインモデルを定義する。
package model

// Status は応募の選考ステータスを表す。
type Status string

const (
	// StatusPending は応募直後の初期状態。
	StatusPending Status = "PENDING"
	// StatusWaitResult は面接日程が確定し、結果待ちの状態。
	StatusWaitResult Status = "WAIT_RESULT"
	// StatusPassInterview は面接合格（終端状態）。
	StatusPassInterview Status = "PASS_INTERVIEW"
	// StatusRejectInterview は面接不合格（終端状態）。
	StatusRejectInterview Status = "REJECT_INTERVIEW"
	// StatusReject は面接なしでの不採用（終端状態）。
	// 面接不合格（REJECT_INTERVIEW）とはレポーティング上区別する。
	StatusReject Status = "REJECT"
)

// AllStatuses は定義済みの全ステータス。
var AllStatuses = []Status{
	StatusPending,
	StatusWaitResult,
	StatusPassInterview,
	StatusRejectInterview,
	StatusReject,
}

// IsValid はステータス値が定義済みのものかどうかを判定する。
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusWaitResult, StatusPassInterview, StatusRejectInterview, StatusReject:
		return true
	}
	return false
}

// IsTerminal は終端状態（以降の遷移が定義されない状態）かどうかを判定する。
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassInterview, StatusRejectInterview, StatusReject:
		return true
	}
	return false
}

// FileType はアップロードファイルの種別を表す。
type FileType string

const (
	// FileTypePhoto は応募者の写真。
	FileTypePhoto FileType = "PHOTO"
	// FileTypeCV は履歴書（PDF）。
	FileTypeCV FileType = "CV"
)

// IsValid はファイル種別が定義済みのものかどうかを判定する。
func (t FileType) IsValid() bool {
	return t == FileTypePhoto || t == FileTypeCV
}

// Role はスタッフアカウントの権限ロールを表す。
type Role string

const (
	// RoleAdmin は全操作が可能な管理者。ステータスの直接上書きは管理者のみ。
	RoleAdmin Role = "ADMIN"
	// RoleRecruiter は採用担当者。
	RoleRecruiter Role = "RECRUITER"
	// RoleInterviewer は面接官。
	RoleInterviewer Role = "INTERVIEWER"
)

// IsValid はロール値が定義済みのものかどうかを判定する。
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleRecruiter, RoleInterviewer:
		return true
	}
	return false
}
