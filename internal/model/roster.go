package model

// RosterEntry はアバター追跡対象のメンバー1名を表す。
// Keyはアセットファイル名になる短い名前、UserIDはDiscordのユーザーID。
type RosterEntry struct {
	Key    string
	UserID string
}

// Roster はアバター追跡対象メンバーの固定リスト。
// 起動時に設定から構築され、実行中は変更されない。
// スライスなのでイテレーション順は定義順に一致する。
type Roster []RosterEntry
