// Package model はドメインモデルを定義する。
package model

import "time"

// User はDiscord OAuthで認証したサイト利用者を表す。
// discord_idを主キーとし、認証のたびに可変フィールドを上書き更新する。
// このサブシステムからは削除されない。
type User struct {
	DiscordID     string
	Username      string
	Discriminator string
	Avatar        string
	AccessToken   string
	RefreshToken  string
	Nickname      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SessionIdentity はセッションに埋め込む正規化済みのユーザー情報を表す。
// OAuthトークンは含まない。信頼境界の外へ出せるのはこの形のみ。
type SessionIdentity struct {
	DiscordID     string `json:"discord_id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string // users.discord_id
	ExpiresAt time.Time
	CreatedAt time.Time
}
