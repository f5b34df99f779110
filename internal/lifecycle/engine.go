// Package lifecycle は応募ステータスの遷移エンジンを提供する。
package lifecycle

import "github.com/takumi/hiretrack/internal/model"

// transitions は許可されたステータス遷移の定義。
// REJECT（面接なし不採用）は任意の非終端状態から可能。
// 終端状態（PASS_INTERVIEW / REJECT_INTERVIEW / REJECT）からの遷移は存在しない。
var transitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusWaitResult, model.StatusReject},
	model.StatusWaitResult: {model.StatusPassInterview, model.StatusRejectInterview, model.StatusReject},
}

// CanTransition はfromからtoへの遷移が許可されているかを判定する。
func CanTransition(from, to model.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses はfromから遷移可能なステータスの一覧を返す。
// 終端状態の場合は空スライスを返す。
func NextStatuses(from model.Status) []model.Status {
	next := transitions[from]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}
