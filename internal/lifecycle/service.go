package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/takumi/hiretrack/internal/metrics"
	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
)

// Service はステータス遷移のサービス層。
// 全てのステータス変更はこのサービスを経由し、遷移テーブルで検証される。
type Service struct {
	applicationRepo repository.ApplicationRepository
	sanitizer       security.TextSanitizerService
	collector       metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	applicationRepo repository.ApplicationRepository,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		applicationRepo: applicationRepo,
		sanitizer:       sanitizer,
		collector:       collector,
	}
}

// Approve は応募をPENDINGからWAIT_RESULTへ遷移させる（面接日程の確定）。
// 面接日時は必須。notesは任意で、保存前にサニタイズされる。
func (s *Service) Approve(ctx context.Context, id string, interviewAt *time.Time, notes string, actor model.Identity) (*model.ApplicationDetail, error) {
	if interviewAt == nil {
		return nil, model.NewValidationError(model.FieldError{
			Field:   "interviewDate",
			Message: "面接日時は必須です",
		})
	}
	return s.transition(ctx, id, model.StatusWaitResult, notes, interviewAt, actor)
}

// Reject は応募をREJECT（面接なし不採用）へ遷移させる。
// 非終端状態からのみ可能。
func (s *Service) Reject(ctx context.Context, id string, notes string, actor model.Identity) (*model.ApplicationDetail, error) {
	return s.transition(ctx, id, model.StatusReject, notes, nil, actor)
}

// RecordResult は面接結果を記録し、WAIT_RESULTから終端状態へ遷移させる。
// resultはPASS_INTERVIEWまたはREJECT_INTERVIEWのいずれかでなければならない。
func (s *Service) RecordResult(ctx context.Context, id string, result string, feedback string, actor model.Identity) (*model.ApplicationDetail, error) {
	to := model.Status(result)
	if to != model.StatusPassInterview && to != model.StatusRejectInterview {
		return nil, model.NewInvalidResultError(result)
	}
	return s.transition(ctx, id, to, feedback, nil, actor)
}

// Override は遷移ガードを通さずステータスを直接設定する管理者専用操作。
// 実行は監査ログに記録される。呼び出し側でADMINロールを強制すること。
func (s *Service) Override(ctx context.Context, id string, status string, notes string, actor model.Identity) (*model.ApplicationDetail, error) {
	to := model.Status(status)
	if !to.IsValid() {
		return nil, model.NewInvalidStatusError(status)
	}

	current, err := s.applicationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}

	ok, err := s.applicationRepo.UpdateStatusDirect(ctx, id, to, s.sanitizer.Sanitize(notes), actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("ステータスの上書きに失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewApplicationNotFoundError(id)
	}

	// 監査ログ: 誰がどのステータスからどのステータスへ上書きしたか
	slog.Warn("status override",
		"application_id", id,
		"from", current.Status,
		"to", to,
		"actor_id", actor.UserID,
		"actor_email", actor.Email,
	)
	s.collector.RecordTransition(string(to))

	return s.detail(ctx, id)
}

// transition はガード付き遷移の共通経路。
// 現在のステータスを読み、遷移テーブルで検証した上でガード付きUPDATEを実行する。
// ガードに負けた場合（同時遷移）はInvalidTransitionを返す。
func (s *Service) transition(ctx context.Context, id string, to model.Status, notes string, interviewAt *time.Time, actor model.Identity) (*model.ApplicationDetail, error) {
	current, err := s.applicationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}

	from := current.Status
	if !CanTransition(from, to) {
		return nil, model.NewInvalidTransitionError(from, to)
	}

	ok, err := s.applicationRepo.UpdateTransition(ctx, id, from, to, s.sanitizer.Sanitize(notes), interviewAt, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("ステータス遷移に失敗しました: %w", err)
	}
	if !ok {
		// 読み取りと更新の間に別の遷移が先行した
		return nil, model.NewInvalidTransitionError(from, to)
	}

	slog.Info("status transition",
		"application_id", id,
		"from", from,
		"to", to,
		"actor_id", actor.UserID,
	)
	s.collector.RecordTransition(string(to))

	return s.detail(ctx, id)
}

func (s *Service) detail(ctx context.Context, id string) (*model.ApplicationDetail, error) {
	detail, err := s.applicationRepo.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("応募詳細の取得に失敗しました: %w", err)
	}
	if detail == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}
	return detail, nil
}
