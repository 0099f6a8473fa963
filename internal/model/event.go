// Package model はドメインモデルを定義する。
package model

import "time"

// RecurrenceRule はギルドイベントの繰り返しルールを表す。
// frequencyは 1=Daily, 2=Weekly, 3=Monthly, 4=Yearly。
// by_weekdayは 0=Sunday 始まりの曜日インデックス。
type RecurrenceRule struct {
	Frequency int        `json:"frequency"`
	Interval  int        `json:"interval"`
	ByWeekday []int      `json:"by_weekday,omitempty"`
	Count     *int       `json:"count,omitempty"`
	End       *time.Time `json:"end,omitempty"`
}

// EntityMetadata はイベントの開催場所などの付随情報を表す。
// 外部開催（ボイスチャンネル以外）のイベントはlocationに物理的な場所を持つ。
type EntityMetadata struct {
	Location string `json:"location,omitempty"`
}

// EventCreator はイベント作成者のサブレコードを表す。
// avatarはCDNの画像ハッシュ参照で、"a_"プレフィックスはアニメーション画像を示す。
type EventCreator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// ScheduledEvent はギルドのスケジュールイベントを表す。
// Discord APIから取得した生フィールドに加え、エンリッチ処理で付与される
// 派生フィールドを持つ。エンリッチは加算のみで、生フィールドは変更しない。
type ScheduledEvent struct {
	ID                 string          `json:"id"`
	GuildID            string          `json:"guild_id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	ScheduledStartTime time.Time       `json:"scheduled_start_time"`
	ScheduledEndTime   *time.Time      `json:"scheduled_end_time,omitempty"`
	RecurrenceRule     *RecurrenceRule `json:"recurrence_rule,omitempty"`
	EntityMetadata     *EntityMetadata `json:"entity_metadata,omitempty"`
	Image              string          `json:"image,omitempty"`
	ChannelID          string          `json:"channel_id,omitempty"`
	Creator            *EventCreator   `json:"creator,omitempty"`

	// 派生フィールド（エンリッチ処理で付与される）
	ImageURL         string     `json:"image_url,omitempty"`
	ChannelName      string     `json:"channel_name,omitempty"`
	CreatorAvatarURL string     `json:"creator_avatar_url,omitempty"`
	CreatorNickname  string     `json:"creator_nickname,omitempty"`
	NextOccurrence   *time.Time `json:"next_occurrence,omitempty"`
}

// Channel はギルドチャンネルのメタデータを表す。
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// GuildMember はギルドメンバーのメタデータを表す。
// nickはサーバーニックネームで、未設定の場合はnull。
type GuildMember struct {
	Nick   *string  `json:"nick"`
	Avatar string   `json:"avatar,omitempty"`
	User   *Profile `json:"user,omitempty"`
}

// Profile はDiscordユーザーのプロフィールを表す。
// avatarはCDNの画像ハッシュ参照で、"a_"プレフィックスはアニメーション画像を示す。
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar,omitempty"`
}

// AnimatedAvatar はアバターハッシュがアニメーション画像を指すかを返す。
// Discordはアニメーションアバターのハッシュに"a_"プレフィックスを付ける。
func AnimatedAvatar(hash string) bool {
	return len(hash) > 2 && hash[:2] == "a_"
}
