// Package discord はDiscord REST APIとCDNへのアクセスを提供する。
// Bot資格情報によるAPI呼び出しと、アバター/イベント画像のCDN URL構築を含む。
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/psg-community/psgweb/internal/model"
)

const (
	// defaultBaseURL はDiscord REST APIのベースURL。
	defaultBaseURL = "https://discord.com/api/v10"
	// defaultCDNBaseURL はDiscord CDNのベースURL。
	defaultCDNBaseURL = "https://cdn.discordapp.com"
)

// Metrics はAPI呼び出し結果のメトリクス記録インターフェース。
type Metrics interface {
	// RecordDiscordRequest は呼び出し結果をHTTPステータス別に記録する。
	// status 0はレスポンスが得られなかったネットワークエラーを示す。
	RecordDiscordRequest(status int)
}

// noopMetrics はメトリクス未設定時のダミー実装。
type noopMetrics struct{}

func (noopMetrics) RecordDiscordRequest(int) {}

// Client はDiscord REST APIのクライアント。
// 全呼び出しにBotトークンを付与し、グローバルレートリミッターで
// API呼び出し頻度を制御する。リトライは行わない（リトライ方針は呼び出し元が持つ）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    Metrics
	token      string
	limiter    *rate.Limiter
	baseURL    string // テスト用にエンドポイントを差し替え可能
	cdnBaseURL string // テスト用にCDNベースを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// rpsは1秒あたりの最大API呼び出し回数。0以下の場合はデフォルト値10を使用する。
// metricsがnilの場合は記録しない。
func NewClient(httpClient *http.Client, token string, rps float64, metrics Metrics, logger *slog.Logger) *Client {
	if rps <= 0 {
		rps = 10
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	// rpsが1未満の小数でもWait(n=1)が通るよう、バーストは最低1を保証する
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		baseURL:    defaultBaseURL,
		cdnBaseURL: defaultCDNBaseURL,
	}
}

// GetUser は指定IDのユーザープロフィールを取得する。
func (c *Client) GetUser(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	if err := c.get(ctx, fmt.Sprintf("/users/%s", userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetChannel は指定IDのチャンネルメタデータを取得する。
func (c *Client) GetChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	var channel model.Channel
	if err := c.get(ctx, fmt.Sprintf("/channels/%s", channelID), &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetGuildMember は指定ギルドのメンバーメタデータを取得する。
func (c *Client) GetGuildMember(ctx context.Context, guildID, userID string) (*model.GuildMember, error) {
	var member model.GuildMember
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/members/%s", guildID, userID), &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// GetGuildScheduledEvents は指定ギルドのスケジュールイベント一覧を取得する。
func (c *Client) GetGuildScheduledEvents(ctx context.Context, guildID string) ([]model.ScheduledEvent, error) {
	var events []model.ScheduledEvent
	if err := c.get(ctx, fmt.Sprintf("/guilds/%s/scheduled-events", guildID), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AvatarURL はユーザーアバターのCDN URLを構築する。
// ハッシュの"a_"プレフィックス（アニメーション）に応じてgif/pngを選択する。
func (c *Client) AvatarURL(userID, hash string) string {
	ext := "png"
	if model.AnimatedAvatar(hash) {
		ext = "gif"
	}
	return fmt.Sprintf("%s/avatars/%s/%s.%s", c.cdnBaseURL, userID, hash, ext)
}

// EventCoverURL はイベントカバー画像のCDN URLを構築する。
func (c *Client) EventCoverURL(eventID, hash string) string {
	return fmt.Sprintf("%s/guild-events/%s/%s.png", c.cdnBaseURL, eventID, hash)
}

// get はレートリミッターを通してGETリクエストを実行し、JSONレスポンスをoutにデコードする。
// 非成功ステータスはRemoteCallErrorとして返す。呼び出し元が中断かスキップかを判断する。
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("レートリミッター待機に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "PSGWeb/1.0 Community Site")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordDiscordRequest(0)
		c.logger.Error("discord APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return &model.RemoteCallError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordDiscordRequest(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("discord APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return &model.RemoteCallError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %s: %w", endpoint, err)
	}

	return nil
}
