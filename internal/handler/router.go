package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/psg-community/psgweb/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	RateLimiter   *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// サイトデータ
	SnapshotPath string
	MerchLister  MerchListerInterface
	DB           Pinger

	// 静的ファイル（サイト本体とミラーリング済みアバター）
	StaticDir string

	// Prometheusメトリクスのエクスポートハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders
//
// データルート（/events-data, /merch-data）にはIP単位のレート制限を追加する。
// /auth/meのみセッションミドルウェアの内側に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	siteHandler := NewSiteHandler(deps.SnapshotPath, deps.MerchLister, deps.DB)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/discord/login", authHandler.Login)
		r.Get("/discord/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)

		// セッションが必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Get("/me", authHandler.Me)
		})
	})

	// データルート（レート制限つき）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())
		r.Get("/events-data", siteHandler.EventsData)
		r.Get("/merch-data", siteHandler.MerchData)
	})

	// 運用ルート
	r.Get("/health", siteHandler.Health)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// サイト本体（静的ファイル）。アバターもStaticDir配下にミラーされる。
	fileServer := http.FileServer(http.Dir(deps.StaticDir))
	r.Handle("/*", fileServer)

	return r
}
