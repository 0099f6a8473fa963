// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psg-community/psgweb/internal/auth"
	"github.com/psg-community/psgweb/internal/config"
	"github.com/psg-community/psgweb/internal/database"
	"github.com/psg-community/psgweb/internal/discord"
	"github.com/psg-community/psgweb/internal/event"
	"github.com/psg-community/psgweb/internal/handler"
	"github.com/psg-community/psgweb/internal/logger"
	"github.com/psg-community/psgweb/internal/metrics"
	"github.com/psg-community/psgweb/internal/middleware"
	"github.com/psg-community/psgweb/internal/repository"
	"github.com/psg-community/psgweb/internal/security"
	"github.com/psg-community/psgweb/internal/user"
	"github.com/psg-community/psgweb/internal/worker"
	"github.com/psg-community/psgweb/internal/worker/avatarsync"
	"github.com/psg-community/psgweb/internal/worker/eventsync"
	"github.com/psg-community/psgweb/internal/worker/sessioncleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandSync:
		return runSync(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// syncJobs は同期パイプラインの依存関係をワイヤリングし、2つのジョブを返す。
// serveモード（スケジューラ経由）とsyncモード（1回実行）で共用する。
func syncJobs(cfg *config.Config, collector *metrics.Collector) (*eventsync.Pipeline, *avatarsync.Syncer) {
	httpClient := &http.Client{Timeout: cfg.DiscordTimeout}
	discordClient := discord.NewClient(httpClient, cfg.DiscordBotToken, cfg.DiscordRPS, collector, slog.Default())

	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	enricher := event.NewEnricher(discordClient, cfg.GuildID, slog.Default())
	snapshotWriter := event.NewSnapshotWriter(cfg.SnapshotPath, sanitizer)

	pipeline := eventsync.NewPipeline(
		discordClient, enricher, snapshotWriter, collector, cfg.GuildID, slog.Default(),
	)

	avatarSyncer := avatarsync.NewSyncer(
		discordClient, ssrfGuard, collector, cfg.Roster,
		cfg.AvatarDir, cfg.DiscordTimeout, slog.Default(),
	)

	return pipeline, avatarSyncer
}

// runServe はサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーと同期スケジューラを
// 同一プロセスで起動する。SIGINTまたはSIGTERMシグナルを受信すると
// グレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	merchRepo := repository.NewPostgresMerchRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 同期パイプラインの構築
	pipeline, avatarSyncer := syncJobs(cfg, collector)

	scheduler := worker.NewScheduler(slog.Default(), collector)
	if err := scheduler.Add(cfg.EventSyncCron, pipeline); err != nil {
		return fmt.Errorf("failed to schedule event sync: %w", err)
	}
	if err := scheduler.Add(cfg.AvatarSyncCron, avatarSyncer); err != nil {
		return fmt.Errorf("failed to schedule avatar sync: %w", err)
	}
	if err := scheduler.Add(cfg.SessionCleanupCron, sessioncleanup.NewJob(db, slog.Default())); err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}

	// 5. 認証サービスの初期化
	httpClient := &http.Client{Timeout: cfg.DiscordTimeout}
	discordClient := discord.NewClient(httpClient, cfg.DiscordBotToken, cfg.DiscordRPS, collector, slog.Default())

	oauthProvider := auth.NewDiscordOAuthProvider(auth.DiscordOAuthConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
	})
	userService := user.NewService(userRepo, collector)
	authService := auth.NewService(
		oauthProvider, discordClient, userService, sessionRepo,
		auth.ServiceConfig{
			GuildID:       cfg.GuildID,
			SessionMaxAge: cfg.SessionMaxAge,
		},
	)

	// 6. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.RequestsPerMinute = cfg.RateLimitGeneral
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:        slog.Default(),
		SessionFinder: sessionRepo,
		RateLimiter:   rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		SnapshotPath: cfg.SnapshotPath,
		MerchLister:  merchRepo,
		DB:           db,

		StaticDir: cfg.StaticDir,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの構築
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 8. 同期スケジューラをバックグラウンドで起動
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(ctx)
	}()

	go func() {
		slog.Info("server starting",
			slog.String("addr", server.Addr),
			slog.String("event_sync_cron", cfg.EventSyncCron),
			slog.String("avatar_sync_cron", cfg.AvatarSyncCron),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down server...")

	// スケジューラを停止し、実行中のジョブの完了を待つ
	cancel()
	<-schedulerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// runSync は全同期ジョブを1回ずつ実行して終了する。
// cronを待たずに手動で同期を回すための運用サブコマンド。
func runSync(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	pipeline, avatarSyncer := syncJobs(cfg, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	if err := pipeline.RunOnce(ctx); err != nil {
		return fmt.Errorf("event sync failed: %w", err)
	}

	if err := avatarSyncer.RunOnce(ctx); err != nil {
		// アバター同期は部分失敗を許容する（失敗分は次回の実行で再試行される）
		slog.Error("avatar sync completed with errors", slog.String("error", err.Error()))
	}

	slog.Info("sync completed")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
