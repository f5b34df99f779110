package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/takumi/hiretrack/internal/metrics"
	"github.com/takumi/hiretrack/internal/middleware"
	"github.com/takumi/hiretrack/internal/model"
	"github.com/takumi/hiretrack/internal/repository"
	"github.com/takumi/hiretrack/internal/security"
	"github.com/takumi/hiretrack/internal/upload"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenProvider     *security.TokenProvider
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// サービス
	AuthService        AuthServiceInterface
	ApplicationService ApplicationServiceInterface
	LifecycleService   LifecycleServiceInterface

	// アップロード
	UploadStore       *upload.Store
	FileRepo          repository.FileRepository
	ApplicationFinder ApplicationFinder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders →（認証ルートのみ）Auth → RateLimit(General)
//
// 公開ルート（/applications/submit、/auth/login、/uploads/*、/health、/metrics、
// /api/upload）は認証ミドルウェアの外に配置する。
// /applications/submitにはIP単位の専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	appHandler := NewApplicationHandler(deps.ApplicationService, deps.LifecycleService)
	uploadHandler := NewUploadHandler(deps.UploadStore, deps.FileRepo, deps.ApplicationFinder, deps.Collector)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.SetupMetricsRoute(deps.Gatherer))

	// 公開応募フォーム（IP単位の専用レート制限）
	r.With(deps.RateLimiter.SubmitMiddleware()).Post("/applications/submit", appHandler.Submit)

	// ログインはBearerクレデンシャル発行前なので認証の外
	r.Post("/auth/login", authHandler.Login)

	// 内部ストレージエンドポイント（中継元から呼ばれる）
	r.Post("/api/upload", uploadHandler.Upload)

	// アップロード済みファイルの静的配信
	fileServer := http.FileServer(http.Dir(deps.UploadStore.Dir()))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenProvider, deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション管理
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)

		// 管理ダッシュボード
		r.Route("/admin/applications", func(r chi.Router) {
			r.Get("/", appHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", appHandler.Get)
				r.Delete("/", appHandler.Delete)

				// ステータス遷移
				r.Put("/approve", appHandler.Approve)
				r.Put("/reject", appHandler.Reject)
				r.Put("/interview-result", appHandler.InterviewResult)

				// 直接上書きは管理者のみ
				r.With(middleware.NewRequireRoleMiddleware(model.RoleAdmin)).Put("/status", appHandler.OverrideStatus)
			})
		})
	})

	return r
}

// healthHandler は死活監視用のエンドポイント。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
