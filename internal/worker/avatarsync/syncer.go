// Package avatarsync はロスターメンバーのアバター画像を
// 静的アセットディレクトリへミラーリングする同期処理を提供する。
package avatarsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/psg-community/psgweb/internal/model"
)

// maxAvatarBytes は1アバター画像の最大サイズ。CDN応答の異常肥大からの防御。
const maxAvatarBytes = 10 << 20 // 10MiB

// ProfileAPI はアバター同期が必要とするDiscord APIの部分集合。
type ProfileAPI interface {
	// GetUser は指定IDのユーザープロフィールを取得する。
	GetUser(ctx context.Context, userID string) (*model.Profile, error)
	// AvatarURL はユーザーアバターのCDN URLを構築する。
	AvatarURL(userID, hash string) string
}

// SafeClientFactory はCDNダウンロード用のSSRF防止クライアント生成インターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type SafeClientFactory interface {
	NewSafeClient(timeout time.Duration) *http.Client
	ValidateURL(rawURL string) error
}

// Metrics はアバター同期のメトリクス記録インターフェース。
type Metrics interface {
	RecordAvatarSynced()
	RecordAvatarFailure()
}

// Syncer はロスター全員のアバターをアセットディレクトリへ同期する。
// ファイル名は<キー>.png、アニメーションアバターは<キー>.gif。
// 拡張子が変わった場合は古い拡張子のファイルを先に削除し、
// 1キーにつき最大1ファイルの不変条件を保つ。
type Syncer struct {
	api      ProfileAPI
	guard    SafeClientFactory
	metrics  Metrics
	logger   *slog.Logger
	roster   model.Roster
	assetDir string
	timeout  time.Duration
}

// NewSyncer はSyncerの新しいインスタンスを生成する。
func NewSyncer(
	api ProfileAPI,
	guard SafeClientFactory,
	metrics Metrics,
	roster model.Roster,
	assetDir string,
	timeout time.Duration,
	logger *slog.Logger,
) *Syncer {
	return &Syncer{
		api:      api,
		guard:    guard,
		metrics:  metrics,
		logger:   logger,
		roster:   roster,
		assetDir: assetDir,
		timeout:  timeout,
	}
}

// Name はジョブ名を返す。
func (s *Syncer) Name() string { return "avatar-sync" }

// RunOnce はロスター全員のアバターを定義順に同期する。
// 1メンバーの失敗は記録して次のメンバーへ進み、実行全体は中断しない。
// 失敗があった場合はまとめたエラーを返す（呼び出し元はログに記録するのみ）。
func (s *Syncer) RunOnce(ctx context.Context) error {
	start := time.Now()

	if len(s.roster) == 0 {
		s.logger.Info("アバター同期対象のロスターが空です")
		return nil
	}

	if err := os.MkdirAll(s.assetDir, 0o755); err != nil {
		return &model.AssetWriteError{Path: s.assetDir, Err: err}
	}

	client := s.guard.NewSafeClient(s.timeout)

	var errs []error
	var synced int
	for _, entry := range s.roster {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.syncOne(ctx, client, entry); err != nil {
			s.logger.Error("アバターの同期に失敗しました",
				slog.String("roster_key", entry.Key),
				slog.String("user_id", entry.UserID),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordAvatarFailure()
			errs = append(errs, fmt.Errorf("%s: %w", entry.Key, err))
			continue
		}
		s.metrics.RecordAvatarSynced()
		synced++
	}

	duration := time.Since(start)
	s.logger.Info("アバター同期サイクルが完了しました",
		slog.Int("synced", synced),
		slog.Int("failed", len(errs)),
		slog.Int("roster_size", len(s.roster)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return errors.Join(errs...)
}

// syncOne は1メンバーのアバターを同期する。
// プロフィール取得 → 拡張子決定 → 古い拡張子の削除 → CDN取得 → 書き込みの順。
func (s *Syncer) syncOne(ctx context.Context, client *http.Client, entry model.RosterEntry) error {
	profile, err := s.api.GetUser(ctx, entry.UserID)
	if err != nil {
		return err
	}

	if profile.Avatar == "" {
		// アバター未設定のメンバーはアセットを作らない（既存ファイルもそのまま）
		s.logger.Warn("メンバーにアバターが設定されていません",
			slog.String("roster_key", entry.Key),
			slog.String("user_id", entry.UserID),
		)
		return nil
	}

	ext, stale := "png", "gif"
	if model.AnimatedAvatar(profile.Avatar) {
		ext, stale = "gif", "png"
	}
	target := filepath.Join(s.assetDir, entry.Key+"."+ext)
	stalePath := filepath.Join(s.assetDir, entry.Key+"."+stale)

	cdnURL := s.api.AvatarURL(entry.UserID, profile.Avatar)
	if err := s.guard.ValidateURL(cdnURL); err != nil {
		return fmt.Errorf("CDN URLの検証に失敗しました: %w", err)
	}

	data, err := s.download(ctx, client, cdnURL)
	if err != nil {
		return err
	}

	// 拡張子が変わった場合に古いファイルが残らないよう、書き込みの前に削除する
	if err := os.Remove(stalePath); err != nil && !os.IsNotExist(err) {
		return &model.AssetWriteError{Path: stalePath, Err: err}
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return &model.AssetWriteError{Path: target, Err: err}
	}

	return nil
}

// download はCDNから画像バイト列を取得する。
func (s *Syncer) download(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "PSGWeb/1.0 Community Site")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.RemoteCallError{Endpoint: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.RemoteCallError{Endpoint: rawURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return nil, fmt.Errorf("CDNレスポンスの読み取りに失敗しました: %w", err)
	}

	return data, nil
}
