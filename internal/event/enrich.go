// Package event はギルドイベントのエンリッチ処理とスナップショット永続化を提供する。
// エンリッチはDiscord APIから取得した生イベントに派生フィールドを付与する
// 加算のみの処理で、生フィールドは削除も変更もしない。
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/psg-community/psgweb/internal/model"
)

// EnrichAPI はエンリッチ処理が必要とするDiscord APIの部分集合。
// discord.Clientが実装する。テスト時にモックに差し替え可能。
type EnrichAPI interface {
	// GetChannel は指定IDのチャンネルメタデータを取得する。
	GetChannel(ctx context.Context, channelID string) (*model.Channel, error)
	// GetGuildMember は指定ギルドのメンバーメタデータを取得する。
	GetGuildMember(ctx context.Context, guildID, userID string) (*model.GuildMember, error)
	// AvatarURL はユーザーアバターのCDN URLを構築する。
	AvatarURL(userID, hash string) string
	// EventCoverURL はイベントカバー画像のCDN URLを構築する。
	EventCoverURL(eventID, hash string) string
}

// EnrichResult は1イベントのエンリッチ結果を表すタグ付き結果。
// Errがnilの場合Eventは派生フィールド付き、非nilの場合Eventは生のまま。
type EnrichResult struct {
	Event model.ScheduledEvent
	Err   error
}

// Enricher は生のスケジュールイベントに派生フィールドを付与する。
// チャンネル/メンバーのルックアップは1回の実行内でメモ化し、
// 同一チャンネルを参照する複数イベントでAPI呼び出しを重複させない。
type Enricher struct {
	api     EnrichAPI
	logger  *slog.Logger
	guildID string
}

// NewEnricher はEnricherの新しいインスタンスを生成する。
func NewEnricher(api EnrichAPI, guildID string, logger *slog.Logger) *Enricher {
	return &Enricher{
		api:     api,
		logger:  logger,
		guildID: guildID,
	}
}

// EnrichAll は全イベントをエンリッチし、イベントごとのタグ付き結果を返す。
// 1イベントの依存ルックアップ失敗はそのイベントの結果にのみ記録され、
// 他のイベントの処理は継続する。入力スライスは変更しない。
func (e *Enricher) EnrichAll(ctx context.Context, events []model.ScheduledEvent) []EnrichResult {
	channels := make(map[string]*model.Channel)
	members := make(map[string]*model.GuildMember)

	results := make([]EnrichResult, 0, len(events))
	for _, ev := range events {
		enriched, err := e.enrichOne(ctx, ev, channels, members)
		if err != nil {
			// 失敗したイベントは生のまま返す（部分的な派生フィールドを残さない）
			results = append(results, EnrichResult{Event: ev, Err: err})
			continue
		}
		results = append(results, EnrichResult{Event: enriched})
	}
	return results
}

// enrichOne は1イベントをエンリッチしたコピーを返す。
// 依存ルックアップが失敗した場合はEnrichmentErrorを返し、コピーは破棄される。
func (e *Enricher) enrichOne(
	ctx context.Context,
	ev model.ScheduledEvent,
	channels map[string]*model.Channel,
	members map[string]*model.GuildMember,
) (model.ScheduledEvent, error) {
	// 画像URL: 生の画像参照がある場合のみ付与
	if ev.Image != "" {
		ev.ImageURL = e.api.EventCoverURL(ev.ID, ev.Image)
	}

	// チャンネル名: チャンネルIDがある場合のみ解決
	if ev.ChannelID != "" {
		ch, ok := channels[ev.ChannelID]
		if !ok {
			var err error
			ch, err = e.api.GetChannel(ctx, ev.ChannelID)
			if err != nil {
				return ev, &model.EnrichmentError{EventID: ev.ID, Field: "channel_name", Err: err}
			}
			channels[ev.ChannelID] = ch
		}
		ev.ChannelName = ch.Name
	}

	// 作成者の派生フィールド: 作成者サブレコードがある場合のみ
	if ev.Creator != nil {
		if ev.Creator.Avatar != "" {
			ev.CreatorAvatarURL = e.api.AvatarURL(ev.Creator.ID, ev.Creator.Avatar)
		}

		member, ok := members[ev.Creator.ID]
		if !ok {
			var err error
			member, err = e.api.GetGuildMember(ctx, e.guildID, ev.Creator.ID)
			if err != nil {
				return ev, &model.EnrichmentError{EventID: ev.ID, Field: "creator_nickname", Err: err}
			}
			members[ev.Creator.ID] = member
		}

		// ニックネームが未設定の場合はユーザー名にフォールバック
		if member.Nick != nil && *member.Nick != "" {
			ev.CreatorNickname = *member.Nick
		} else {
			ev.CreatorNickname = ev.Creator.Username
		}
	}

	// 次回開催時刻: 繰り返しルールがある場合のみ計算する
	if ev.RecurrenceRule != nil {
		if next, ok := NextOccurrence(ev.ScheduledStartTime, ev.RecurrenceRule, time.Now()); ok {
			ev.NextOccurrence = &next
		} else {
			e.logger.Warn("繰り返しルールから次回開催時刻を計算できませんでした",
				slog.String("event_id", ev.ID),
				slog.Int("frequency", ev.RecurrenceRule.Frequency),
			)
		}
	}

	return ev, nil
}
